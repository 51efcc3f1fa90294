// Package job defines the build job: one orchestration run triggered by a
// bundle, carrying the cooperative cancellation token checked at suspension
// points.
package job

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lowsky/happo.io/internal/observability"
)

// ErrSuperseded is returned when a job observes its cancellation token at a
// suspension point. Results of a superseded job are discarded, never surfaced.
type superseded struct{}

func (superseded) Error() string { return "build superseded by a newer bundle" }

// ErrSuperseded is the sentinel for cooperative cancellation.
var ErrSuperseded error = superseded{}

// Token is a cooperative cancellation flag. It is checked at defined
// suspension points; work already dispatched when the flag is set is allowed
// to finish, but its result is discarded rather than delivered.
type Token struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. Safe to call concurrently and more than once.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
}

// Cancelled reports whether the flag has been set. A nil token is never
// cancelled, so one-shot runs need no token plumbing.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Err returns ErrSuperseded when cancelled, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return ErrSuperseded
	}
	return nil
}

// BuildJob represents one orchestration run. At most one job is "current" at
// a time in watch mode; superseding a job cancels its token and mutes its
// logger.
type BuildJob struct {
	ID     string
	Bundle string

	Token  *Token
	Logger *slog.Logger

	mute *observability.MuteableHandler
}

// New creates a job for a bundle with a muteable logger derived from handler.
// The build id travels as a context attr (observability.WithBuildID), not on
// the logger, so it is attached once per log line.
func New(bundle string, handler slog.Handler) *BuildJob {
	mute := observability.NewMuteableHandler(handler)
	return &BuildJob{
		ID:     uuid.NewString(),
		Bundle: bundle,
		Token:  &Token{},
		Logger: slog.New(mute),
		mute:   mute,
	}
}

// Supersede cancels the job's token and mutes its logger. In-flight I/O is
// not aborted; its result is discarded when the token is next observed.
func (j *BuildJob) Supersede() {
	j.Token.Cancel()
	j.mute.Mute()
}

// Superseded reports whether the job has been superseded.
func (j *BuildJob) Superseded() bool {
	return j.Token.Cancelled()
}
