// Package build wires one orchestration run end to end: stylesheet
// resolution, target execution, and report assembly, plus the optional
// history and event side channels.
package build

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lowsky/happo.io/internal/assets"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/events"
	"github.com/lowsky/happo.io/internal/gitsha"
	"github.com/lowsky/happo.io/internal/history"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/observability"
	"github.com/lowsky/happo.io/internal/plugin"
	"github.com/lowsky/happo.io/internal/report"
	"github.com/lowsky/happo.io/internal/target"
)

// Deps are the collaborators a Service drives. Renderer may be nil when the
// configuration selects direct mode.
type Deps struct {
	Renderer target.Renderer
	Remote   target.Remote
	Uploader assets.Uploader
	Cache    *assets.Cache
	Recorder metrics.Recorder

	// History and Events are optional side channels; both are nil-safe.
	History *history.Store
	Events  *events.Publisher

	// Plugins contribute inline CSS appended after declared stylesheets.
	Plugins *plugin.Registry

	Logger *slog.Logger
}

// RunOptions select what one run does.
type RunOptions struct {
	// Only restricts rendering to a single component.
	Only string

	// Async submits executions without awaiting comparison outcomes.
	Async bool

	// Job carries the cancellation token and per-build logger in watch
	// mode; nil for one-shot runs.
	Job *job.BuildJob
}

// Service is the run entry point.
type Service struct {
	cfg  *config.Config
	deps Deps
	sha  func() string
}

// NewService creates a run service for one loaded configuration.
func NewService(cfg *config.Config, deps Deps) *Service {
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		cfg:  cfg,
		deps: deps,
		sha:  func() string { return gitsha.Resolve(".") },
	}
}

// Run executes one orchestration run and returns its report. In async mode
// the report carries submission acknowledgments instead of comparison
// outcomes; reconciliation happens outside the orchestrator.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*report.Report, error) {
	logger := s.deps.Logger
	var token *job.Token
	buildID := uuid.NewString()
	if opts.Job != nil {
		logger = opts.Job.Logger
		token = opts.Job.Token
		buildID = opts.Job.ID
	}

	ctx = observability.WithBuildID(ctx, buildID)

	sha := s.sha()
	observability.InfoContext(ctx, logger, "Starting run",
		slog.String("project", s.cfg.Project),
		slog.String("sha", sha),
		slog.Int("targets", len(s.cfg.Targets)),
		slog.Bool("async", opts.Async))
	s.deps.Events.Publish(events.BuildEvent{Type: events.TypeBuildStarted, BuildID: buildID, Project: s.cfg.Project, SHA: sha})

	rep, err := s.execute(ctx, opts, token, logger, sha)
	if err != nil {
		if opts.Job != nil && opts.Job.Superseded() {
			s.deps.Events.Publish(events.BuildEvent{Type: events.TypeBuildSuperseded, BuildID: buildID, Project: s.cfg.Project, SHA: sha})
			return nil, job.ErrSuperseded
		}
		s.deps.Events.Publish(events.BuildEvent{Type: events.TypeBuildFailed, BuildID: buildID, Project: s.cfg.Project, SHA: sha, Error: err.Error()})
		observability.ErrorContext(ctx, logger, "Run failed", slog.Any("error", err))
		if s.deps.History != nil {
			if herr := s.deps.History.RecordFailure(ctx, buildID, s.cfg.Project, sha); herr != nil {
				observability.WarnContext(ctx, logger, "Failed to record run history", slog.Any("error", herr))
			}
		}
		return nil, err
	}

	s.deps.Events.Publish(events.BuildEvent{Type: events.TypeBuildCompleted, BuildID: buildID, Project: s.cfg.Project, SHA: sha})
	if s.deps.History != nil {
		if herr := s.deps.History.RecordSuccess(ctx, buildID, rep); herr != nil {
			observability.WarnContext(ctx, logger, "Failed to record run history", slog.Any("error", herr))
		}
	}
	observability.InfoContext(ctx, logger, "Run completed",
		slog.String("sha", sha),
		slog.Int("targets", len(rep.Results)))
	return rep, nil
}

func (s *Service) execute(ctx context.Context, opts RunOptions, token *job.Token, logger *slog.Logger, sha string) (*report.Report, error) {
	pluginCSS, err := s.deps.Plugins.ResolveCSS(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := css.NewResolver(nil, pluginCSS).Resolve(ctx, s.cfg.Stylesheets)
	if err != nil {
		return nil, err
	}

	coordinator, err := target.NewCoordinator(target.Deps{
		Renderer: s.deps.Renderer,
		Remote:   s.deps.Remote,
		Uploader: s.deps.Uploader,
		Cache:    s.deps.Cache,
		Recorder: s.deps.Recorder,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	coordOpts := target.Options{
		Targets: s.cfg.Targets,
		Blocks:  blocks,
		Only:    opts.Only,
		Async:   opts.Async,
		Token:   token,
	}

	var results []target.Result
	if s.cfg.IsPrerender() {
		results, err = coordinator.RunPrerender(ctx, coordOpts)
	} else {
		var static *assets.Package
		static, err = assets.BuildStaticPackage(s.cfg.StaticDir)
		if err == nil {
			results, err = coordinator.RunDirect(ctx, coordOpts, static)
		}
	}
	if err != nil {
		return nil, err
	}

	return report.New(s.cfg.Project, sha, results), nil
}
