package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lowsky/happo.io/internal/build"
	"github.com/lowsky/happo.io/internal/bundler"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/report"
	"github.com/lowsky/happo.io/internal/server"
	"github.com/lowsky/happo.io/internal/watch"
)

func runWatch(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	svc, store, cleanup, err := newService(ctx, cfg, recorder)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Watch.ListenAddr != "" {
		srv := server.New(cfg.Watch.ListenAddr, store, registry, nil)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	dev := bundler.NewDevBundler(cfg.Watch.Entry, cfg.Watch.QuietWindow.Std(), cfg.Watch.MaxDelay.Std(), slog.Default())
	devBundles, err := dev.Watch(ctx)
	if err != nil {
		return err
	}

	// Scheduled rebuilds and filesystem bundles feed one channel.
	bundles := make(chan bundler.Bundle)
	go func() {
		defer close(bundles)
		for b := range devBundles {
			select {
			case bundles <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	if interval := cfg.Watch.FullRebuildEvery.Std(); interval > 0 {
		schedule, err := bundler.NewSchedule(interval, func() {
			b := bundler.Bundle{
				ID:     fmt.Sprintf("scheduled-%d", time.Now().Unix()),
				Reason: bundler.ReasonScheduled,
				At:     time.Now(),
			}
			select {
			case bundles <- b:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return err
		}
		schedule.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = schedule.Stop(stopCtx)
		}()
	}

	var ack watch.AckWaiter
	if cfg.Watch.RequireAck {
		ack = watch.NewKeyAck(os.Stdin)
	}

	runner := func(ctx context.Context, j *job.BuildJob) (*report.Report, error) {
		return svc.Run(ctx, build.RunOptions{Job: j})
	}

	supervisor := watch.NewSupervisor(runner, watch.Options{
		Ack:      ack,
		Handler:  slog.Default().Handler(),
		Recorder: recorder,
		OnReady: func(rep *report.Report) {
			printSummary(rep, false)
			if cfg.Watch.RequireAck {
				color.New(color.Faint).Println("Watching for changes (press Enter after a change to rebuild)")
			}
		},
	})

	slog.Info("Watching for changes", "entry", cfg.Watch.Entry)
	return supervisor.Run(ctx, bundles)
}
