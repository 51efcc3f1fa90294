package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/lowsky/happo.io/internal/assets"
	"github.com/lowsky/happo.io/internal/build"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/events"
	"github.com/lowsky/happo.io/internal/history"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/report"
	"github.com/lowsky/happo.io/internal/target"
	"github.com/lowsky/happo.io/internal/uploader"
)

// newService wires a build service from the configuration. The returned
// store is nil unless history is configured; the cleanup closes the optional
// history store and event publisher.
func newService(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (*build.Service, *history.Store, func(), error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, nil, nil, errors.AuthError("HAPPO_API_KEY and HAPPO_API_SECRET are required")
	}

	up, err := newUploader(ctx, cfg, recorder)
	if err != nil {
		return nil, nil, nil, err
	}

	deps := build.Deps{
		Remote:   target.NewHTTPRemote(cfg.Endpoint, cfg.APIKey, cfg.APISecret, nil),
		Uploader: up,
		Cache:    assets.NewCache(recorder),
		Recorder: recorder,
	}
	if cfg.IsPrerender() {
		deps.Renderer = target.FSRenderer{Root: cfg.ExamplesDir}
	}

	var cleanups []func()
	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		deps.History = store
		cleanups = append(cleanups, func() { _ = store.Close() })
	}
	if cfg.Events.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			for _, fn := range cleanups {
				fn()
			}
			return nil, nil, nil, err
		}
		deps.Events = pub
		cleanups = append(cleanups, pub.Close)
	}

	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}
	return build.NewService(cfg, deps), store, cleanup, nil
}

// newUploader selects the uploader for the configured destination kind.
func newUploader(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (assets.Uploader, error) {
	switch cfg.Upload.Kind {
	case "s3":
		return uploader.NewS3Uploader(ctx, cfg.Upload.Bucket, cfg.Upload.Prefix, cfg.Upload.Region, recorder)
	case "local":
		return uploader.NewLocalUploader(cfg.Upload.Dir, recorder)
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown upload kind %q", cfg.Upload.Kind))
	}
}

func runOnce(ctx context.Context, cfg *config.Config, only string, async bool) error {
	svc, _, cleanup, err := newService(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := svc.Run(ctx, build.RunOptions{Only: only, Async: async})
	if err != nil {
		return err
	}
	printSummary(rep, async)
	return nil
}

func printSummary(rep *report.Report, async bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Printf("\n%s @ %s\n", rep.Project, rep.SHA)
	for _, res := range rep.Results {
		green.Printf("  ✓ %s\n", res.Name)
	}
	if async {
		fmt.Printf("%d targets submitted; results will be reconciled remotely\n", len(rep.Results))
	} else {
		fmt.Printf("%d targets completed\n", len(rep.Results))
	}
}
