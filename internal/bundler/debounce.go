package bundler

import (
	"context"
	"time"
)

// Debouncer coalesces bursts of change notifications into single fires:
// a quiet window after the last change, bounded by a max delay so a steady
// stream of edits cannot postpone a build indefinitely.
type Debouncer struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// Run consumes change notifications until ctx is done, invoking fire with
// the debounce cause ("quiet" or "max_delay") once per coalesced burst.
// It is safe to run as a single goroutine.
func (d *Debouncer) Run(ctx context.Context, changes <-chan struct{}, fire func(cause string)) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var (
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		pending bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			resetTimer(quietTimer, d.QuietWindow)
			quietC = quietTimer.C
			if !pending {
				pending = true
				resetTimer(maxTimer, d.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			pending = false
			quietC = nil
			maxC = nil
			fire("quiet")

		case <-maxC:
			pending = false
			quietC = nil
			maxC = nil
			fire("max_delay")
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
