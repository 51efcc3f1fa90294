package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/metrics"
	"github.com/lowsky/happo.io/internal/uploader"
)

func TestNewUploaderLocal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upload.Kind = "local"
	cfg.Upload.Dir = t.TempDir()

	up, err := newUploader(context.Background(), cfg, metrics.NoopRecorder{})
	require.NoError(t, err)
	assert.IsType(t, &uploader.LocalUploader{}, up)
}

func TestNewUploaderRejectsUnknownKind(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upload.Kind = "ftp"

	_, err := newUploader(context.Background(), cfg, metrics.NoopRecorder{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "ftp")
}
