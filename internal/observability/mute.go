package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// MuteableHandler wraps a slog.Handler behind an atomic mute flag. A build
// job that has been superseded keeps its logger but stops producing output;
// work still in flight logs into the void instead of interleaving with the
// replacement build's output.
type MuteableHandler struct {
	inner slog.Handler
	muted *atomic.Bool
}

// NewMuteableHandler wraps inner in a handler that can be muted later.
func NewMuteableHandler(inner slog.Handler) *MuteableHandler {
	return &MuteableHandler{inner: inner, muted: &atomic.Bool{}}
}

// Mute silences all subsequent records. Safe to call concurrently.
func (h *MuteableHandler) Mute() {
	h.muted.Store(true)
}

// Muted reports whether the handler has been muted.
func (h *MuteableHandler) Muted() bool {
	return h.muted.Load()
}

// Enabled implements slog.Handler.
func (h *MuteableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.muted.Load() {
		return false
	}
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *MuteableHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.muted.Load() {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler. The derived handler shares the mute flag.
func (h *MuteableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MuteableHandler{inner: h.inner.WithAttrs(attrs), muted: h.muted}
}

// WithGroup implements slog.Handler. The derived handler shares the mute flag.
func (h *MuteableHandler) WithGroup(name string) slog.Handler {
	return &MuteableHandler{inner: h.inner.WithGroup(name), muted: h.muted}
}
