// Package watch drives continuous builds: it turns bundle-ready
// notifications into build jobs and supersedes an in-flight job whenever a
// newer bundle arrives, using cooperative cancellation rather than forced
// termination.
package watch

import (
	"context"
	"log/slog"

	"github.com/lowsky/happo.io/internal/bundler"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/report"
)

// Runner executes one build job and returns its report. The runner must
// observe the job's cancellation token at suspension points and return
// job.ErrSuperseded when it fires.
type Runner func(ctx context.Context, j *job.BuildJob) (*report.Report, error)

// AckWaiter gates the start of a superseding build on a human signal, so the
// user can inspect the current terminal output before it is overwritten.
// Wait blocks until acknowledged or ctx is done.
type AckWaiter interface {
	Wait(ctx context.Context) error
}

type state int

const (
	stateIdle state = iota
	stateBuilding
	stateAwaitingAck
)

// Options configures a Supervisor.
type Options struct {
	// Ack gates superseding builds on acknowledgment. Nil disables gating:
	// a new bundle starts building immediately.
	Ack AckWaiter

	// OnReady receives the report of every completed, non-superseded build.
	OnReady func(*report.Report)

	// Handler is the base slog handler job loggers derive from.
	Handler slog.Handler

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Supervisor owns the watch-mode build lifecycle. At most one job is current
// at any instant; older jobs are cooperatively cancelled, never killed
// mid-I/O, and their results are discarded silently.
type Supervisor struct {
	runner   Runner
	ack      AckWaiter
	onReady  func(*report.Report)
	handler  slog.Handler
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewSupervisor creates a supervisor running builds through runner.
func NewSupervisor(runner Runner, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler := opts.Handler
	if handler == nil {
		handler = logger.Handler()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Supervisor{
		runner:   runner,
		ack:      opts.Ack,
		onReady:  opts.OnReady,
		handler:  handler,
		logger:   logger,
		recorder: recorder,
	}
}

type completion struct {
	job    *job.BuildJob
	report *report.Report
	err    error
}

// Run consumes bundle notifications until ctx is done or the channel closes.
// It is the single goroutine mutating supervisor state; builds and ack waits
// run in child goroutines and report back over channels.
func (s *Supervisor) Run(ctx context.Context, bundles <-chan bundler.Bundle) error {
	completions := make(chan completion)
	acks := make(chan error)

	var (
		st         = stateIdle
		current    *job.BuildJob
		pending    *bundler.Bundle
		ackPending bool
		inFlight   int
	)

	start := func(b bundler.Bundle) {
		j := job.New(b.ID, s.handler)
		current = j
		st = stateBuilding
		inFlight++
		s.recorder.SetBuildsInFlight(inFlight)
		j.Logger.Info("Build started", "build.id", j.ID, "bundle", b.ID, "reason", b.Reason)
		go func() {
			rep, err := s.runner(ctx, j)
			select {
			case completions <- completion{job: j, report: rep, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case b, ok := <-bundles:
			if !ok {
				return nil
			}
			if st == stateIdle {
				start(b)
				continue
			}
			// A newer bundle supersedes whatever is current.
			if current != nil && !current.Superseded() {
				s.logger.Info("Superseding in-flight build", "build.id", current.ID, "bundle", b.ID)
				current.Supersede()
				s.recorder.IncBuildOutcome("superseded")
			}
			if s.ack == nil {
				start(b)
				continue
			}
			bundle := b
			pending = &bundle
			// Only one acknowledgment wait at a time: a bundle arriving
			// while a wait is pending replaces the pending bundle but does
			// not stack another prompt.
			if !ackPending {
				ackPending = true
				st = stateAwaitingAck
				go func() {
					err := s.ack.Wait(ctx)
					select {
					case acks <- err:
					case <-ctx.Done():
					}
				}()
			}

		case c := <-completions:
			inFlight--
			s.recorder.SetBuildsInFlight(inFlight)
			if c.job == current {
				current = nil
			}
			if c.job.Superseded() {
				// Discarded silently; the job's logger is already muted.
				continue
			}
			if c.err != nil {
				s.recorder.IncBuildOutcome("failed")
				s.logger.Error("Build failed", "build.id", c.job.ID, "error", c.err)
			} else {
				s.recorder.IncBuildOutcome("success")
				if s.onReady != nil {
					s.onReady(c.report)
				}
			}
			if st == stateBuilding {
				st = stateIdle
			}

		case err := <-acks:
			ackPending = false
			if err != nil {
				return err
			}
			if pending != nil {
				next := *pending
				pending = nil
				start(next)
			} else {
				st = stateIdle
			}
		}
	}
}
