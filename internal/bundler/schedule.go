package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule fires periodic forced rebuilds in watch mode, so long-lived
// sessions pick up drift (fonts, remote assets) even without local edits.
type Schedule struct {
	scheduler gocron.Scheduler
}

// NewSchedule creates a schedule invoking fire every interval.
func NewSchedule(interval time.Duration, fire func()) (*Schedule, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fire),
		gocron.WithName("full-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create rebuild job: %w", err)
	}

	return &Schedule{scheduler: s}, nil
}

// Start begins the schedule.
func (s *Schedule) Start() {
	slog.Info("Starting scheduled rebuilds")
	s.scheduler.Start()
}

// Stop shuts the schedule down, bounded by ctx.
func (s *Schedule) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.scheduler.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
