package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/metrics"
)

// LocalUploader writes asset packages into a directory. Used for dev runs
// and tests where no remote storage is configured.
type LocalUploader struct {
	dir      string
	recorder metrics.Recorder
}

// NewLocalUploader creates the destination directory if needed.
func NewLocalUploader(dir string, recorder metrics.Recorder) (*LocalUploader, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.UploadError(err, fmt.Sprintf("failed to create upload directory %s", dir))
	}
	return &LocalUploader{dir: dir, recorder: recorder}, nil
}

// Upload implements assets.Uploader.
func (u *LocalUploader) Upload(_ context.Context, buffer []byte, hash string) (string, error) {
	dest := filepath.Join(u.dir, hash+".zip")
	start := time.Now()

	if err := os.WriteFile(dest, buffer, 0o644); err != nil {
		return "", errors.UploadError(err, fmt.Sprintf("failed to write asset package %s", dest))
	}

	u.recorder.ObserveUploadDuration(time.Since(start))
	u.recorder.ObserveUploadBytes(len(buffer))

	return dest, nil
}
