package target

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lowsky/happo.io/internal/assets"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/observability"
	"github.com/lowsky/happo.io/internal/snap"
)

// targetCSSBlockID is the fixed id for the per-target CSS block. The id is
// deliberately not derived from the target name: two targets with identical
// CSS content must converge to the same package hash.
const targetCSSBlockID = "target-css"

// Deps are the collaborators a Coordinator drives.
type Deps struct {
	Renderer Renderer
	Remote   Remote
	Uploader assets.Uploader
	Cache    *assets.Cache
	ReadFile assets.FileReader
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Options select what one coordinator invocation runs.
type Options struct {
	Targets []config.Target
	Blocks  []css.Block

	// Only restricts rendering to a single component.
	Only string

	// Async submits executions without awaiting comparison outcomes.
	Async bool

	// Token is the run's cooperative cancellation token; nil for one-shot runs.
	Token *job.Token
}

// Coordinator implements the target execution phase of a run.
type Coordinator struct {
	deps Deps
}

// NewCoordinator validates and wires the collaborator set.
func NewCoordinator(deps Deps) (*Coordinator, error) {
	if deps.Remote == nil {
		return nil, errors.ValidationError("remote execution capability is required")
	}
	if deps.Cache == nil {
		return nil, errors.ValidationError("asset package cache is required")
	}
	if deps.Uploader == nil {
		return nil, errors.ValidationError("uploader is required")
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator{deps: deps}, nil
}

// RunPrerender processes targets strictly serially: one target's rendering
// and packaging completes before the next target's rendering begins. With
// Async set, remote executions are dispatched without being awaited and
// collected after the loop; rendering and packaging stay serial either way.
func (c *Coordinator) RunPrerender(ctx context.Context, opts Options) ([]Result, error) {
	if c.deps.Renderer == nil {
		return nil, errors.ValidationError("renderer is required in prerender mode")
	}

	results := make([]*Result, len(opts.Targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, t := range opts.Targets {
		if err := opts.Token.Err(); err != nil {
			return nil, err
		}

		tctx := observability.WithTarget(ctx, t.Name)

		renderStart := time.Now()
		payloads, err := c.deps.Renderer.Render(observability.WithStage(tctx, "render"), t, opts.Only)
		if err != nil {
			return nil, fmt.Errorf("rendering failed for target %s: %w", t.Name, err)
		}
		c.deps.Recorder.ObserveRenderDuration(t.Name, time.Since(renderStart))
		observability.DebugContext(tctx, c.deps.Logger, "Rendered target",
			slog.Int("examples", len(payloads)))

		if len(payloads) == 0 {
			observability.WarnContext(tctx, c.deps.Logger, "No examples rendered for target, skipping")
			continue
		}

		if err := renderFailures(t.Name, payloads); err != nil {
			return nil, err
		}

		pkg, err := c.packageTarget(t, opts.Blocks, payloads)
		if err != nil {
			return nil, err
		}

		if err := opts.Token.Err(); err != nil {
			return nil, err
		}

		location, err := c.deps.Cache.GetOrUpload(observability.WithStage(tctx, "upload"), pkg.Hash, func(ctx context.Context) (string, error) {
			observability.InfoContext(ctx, c.deps.Logger, "Uploading asset package",
				slog.String("hash", pkg.Hash), slog.Int("bytes", len(pkg.Buffer)))
			return c.deps.Uploader.Upload(ctx, pkg.Buffer, pkg.Hash)
		})
		if err != nil {
			return nil, err
		}

		// Payloads are reused across targets; this target's packaged
		// asset references must not leak into the next pass.
		snap.StripAssetPaths(payloads)

		if err := opts.Token.Err(); err != nil {
			return nil, err
		}

		req := ExecuteRequest{
			TargetName:     t.Name,
			Target:         t,
			AssetsLocation: location,
			CSSBlocks:      opts.Blocks,
			Payloads:       payloads,
			Async:          opts.Async,
		}

		if opts.Async {
			g.Go(func() error {
				ectx := observability.WithStage(observability.WithTarget(gctx, t.Name), "execute")
				value, err := c.deps.Remote.Execute(ectx, req)
				if err != nil {
					return errors.RemoteExecutionError(err, fmt.Sprintf("remote execution failed for target %s", t.Name))
				}
				results[i] = &Result{Name: t.Name, Value: value}
				return nil
			})
			continue
		}

		value, err := c.deps.Remote.Execute(observability.WithStage(tctx, "execute"), req)
		if err != nil {
			return nil, errors.RemoteExecutionError(err, fmt.Sprintf("remote execution failed for target %s", t.Name))
		}
		results[i] = &Result{Name: t.Name, Value: value}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compact(results), nil
}

// RunDirect uploads the shared static package once, then executes all
// targets concurrently against it. Result order matches declaration order
// regardless of completion order.
func (c *Coordinator) RunDirect(ctx context.Context, opts Options, static *assets.Package) ([]Result, error) {
	if static == nil {
		return nil, errors.ValidationError("direct mode requires a static package")
	}
	if err := opts.Token.Err(); err != nil {
		return nil, err
	}

	location, err := c.deps.Cache.GetOrUpload(observability.WithStage(ctx, "upload"), static.Hash, func(ctx context.Context) (string, error) {
		observability.InfoContext(ctx, c.deps.Logger, "Uploading static package",
			slog.String("hash", static.Hash), slog.Int("bytes", len(static.Buffer)))
		return c.deps.Uploader.Upload(ctx, static.Buffer, static.Hash)
	})
	if err != nil {
		return nil, err
	}

	if err := opts.Token.Err(); err != nil {
		return nil, err
	}

	results := make([]*Result, len(opts.Targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, t := range opts.Targets {
		g.Go(func() error {
			ectx := observability.WithStage(observability.WithTarget(gctx, t.Name), "execute")
			value, err := c.deps.Remote.Execute(ectx, ExecuteRequest{
				TargetName:     t.Name,
				Target:         t,
				AssetsLocation: location,
				CSSBlocks:      opts.Blocks,
				Async:          opts.Async,
			})
			if err != nil {
				return errors.RemoteExecutionError(err, fmt.Sprintf("remote execution failed for target %s", t.Name))
			}
			results[i] = &Result{Name: t.Name, Value: value}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compact(results), nil
}

// packageTarget merges the per-target CSS block with the base blocks and
// builds the content-addressed package.
func (c *Coordinator) packageTarget(t config.Target, base []css.Block, payloads []snap.Payload) (*assets.Package, error) {
	blocks := base
	if t.CSS != "" {
		blocks = make([]css.Block, len(base), len(base)+1)
		copy(blocks, base)
		blocks = append(blocks, css.Block{ID: targetCSSBlockID, CSS: t.CSS})
	}

	readFile := c.deps.ReadFile
	if readFile == nil {
		readFile = defaultReadFile
	}

	start := time.Now()
	pkg, err := assets.BuildPackage(blocks, payloads, readFile)
	if err != nil {
		return nil, err
	}
	c.deps.Recorder.ObservePackageDuration(t.Name, time.Since(start))
	return pkg, nil
}

// renderFailures applies the per-target error policy: exactly one failing
// example surfaces its error directly; two or more become one enumerable
// aggregate.
func renderFailures(targetName string, payloads []snap.Payload) error {
	failed := snap.Failures(payloads)
	if len(failed) == 0 {
		return nil
	}
	renderErrs := make([]*errors.RenderError, len(failed))
	for i, p := range failed {
		renderErrs[i] = &errors.RenderError{
			Component: p.Component,
			Variant:   p.Variant,
			Target:    targetName,
			Cause:     p.Cause,
		}
	}
	return errors.CombineRenderErrors(renderErrs)
}

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// compact drops skipped targets while preserving declaration order.
func compact(results []*Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
