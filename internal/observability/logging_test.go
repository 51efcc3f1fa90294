package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogContextAccumulates(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "b-123")
	ctx = WithTarget(ctx, "chrome-large")
	ctx = WithStage(ctx, "package")

	lc := GetContext(ctx)
	assert.Equal(t, "b-123", lc.BuildID)
	assert.Equal(t, "chrome-large", lc.Target)
	assert.Equal(t, "package", lc.Stage)
}

func TestLogContextIsCopied(t *testing.T) {
	base := WithBuildID(context.Background(), "b-1")
	derived := WithTarget(base, "firefox")

	assert.Empty(t, GetContext(base).Target)
	assert.Equal(t, "firefox", GetContext(derived).Target)
}

func TestContextAttrsAppearInOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithTarget(WithBuildID(context.Background(), "b-9"), "ios-safari")
	InfoContext(ctx, logger, "uploading package", slog.String("hash", "abc"))

	out := buf.String()
	assert.Contains(t, out, "build.id=b-9")
	assert.Contains(t, out, "target=ios-safari")
	assert.Contains(t, out, "hash=abc")
}

func TestContextHelpersFallBackToDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	WarnContext(WithStage(context.Background(), "render"), nil, "slow render")
	assert.Contains(t, buf.String(), "stage=render")
}

func TestContextHelpersRespectMutedHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewMuteableHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(h)
	h.Mute()

	ctx := WithBuildID(context.Background(), "b-1")
	InfoContext(ctx, logger, "should be dropped")
	assert.Empty(t, buf.String())
}

func TestMuteableHandlerSilences(t *testing.T) {
	var buf bytes.Buffer
	h := NewMuteableHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(h)

	logger.Info("before mute")
	require.Contains(t, buf.String(), "before mute")

	h.Mute()
	logger.Info("after mute")
	assert.NotContains(t, buf.String(), "after mute")
	assert.True(t, h.Muted())
}

func TestMuteableHandlerSharedFlagAcrossWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewMuteableHandler(slog.NewTextHandler(&buf, nil))
	derived := slog.New(h).With("target", "chrome")

	h.Mute()
	derived.Info("should be dropped")
	assert.Empty(t, buf.String())
}
