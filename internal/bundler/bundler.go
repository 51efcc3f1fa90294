// Package bundler defines the bundler capability contract and the local dev
// bundler that turns filesystem change bursts into bundle-ready notifications.
package bundler

import (
	"context"
	"time"
)

// Bundle is one bundle-ready notification.
type Bundle struct {
	// ID identifies the bundle for logs and supersession decisions.
	ID string

	// Reason records what produced the bundle: initial, change, scheduled.
	Reason string

	At time.Time
}

// Reasons for bundle notifications.
const (
	ReasonInitial   = "initial"
	ReasonChange    = "change"
	ReasonScheduled = "scheduled"
)

// Bundler is the capability contract the orchestrator consumes. Build
// produces one bundle; Watch delivers repeated bundle notifications until
// ctx is cancelled.
type Bundler interface {
	Build(ctx context.Context) (Bundle, error)
	Watch(ctx context.Context) (<-chan Bundle, error)
}
