package bundler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lowsky/happo.io/internal/errors"
)

// DevBundler is the local development bundler: it watches the project entry
// directory and emits a bundle-ready notification per coalesced change
// burst. The real bundling work happens remotely; the bundle here is a
// sequenced marker the supervisor uses to start and supersede runs.
type DevBundler struct {
	entry       string
	quietWindow time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger

	seq atomic.Int64
}

// NewDevBundler watches entry with the given debounce settings.
func NewDevBundler(entry string, quietWindow, maxDelay time.Duration, logger *slog.Logger) *DevBundler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevBundler{
		entry:       entry,
		quietWindow: quietWindow,
		maxDelay:    maxDelay,
		logger:      logger,
	}
}

// Build implements Bundler for one-shot runs.
func (b *DevBundler) Build(_ context.Context) (Bundle, error) {
	return b.next(ReasonInitial), nil
}

// Watch implements Bundler. The returned channel delivers an initial bundle
// immediately, then one bundle per debounced change burst until ctx is done.
func (b *DevBundler) Watch(ctx context.Context) (<-chan Bundle, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.BundlerError(err, "failed to create file watcher")
	}

	if err := addRecursive(watcher, b.entry); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan Bundle, 1)
	changes := make(chan struct{}, 64)

	// Event pump: filesystem events feed the debouncer; new directories
	// are added to the watch set as they appear.
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) {
					// Best effort; a vanished path is not an error here.
					_ = addRecursive(watcher, event.Name)
				}
				if isRelevant(event) {
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				b.logger.Warn("File watcher error", "error", err)
			}
		}
	}()

	go func() {
		defer close(out)

		// Initial bundle so a watch session always builds once up front.
		emit(ctx, out, b.next(ReasonInitial))

		d := &Debouncer{QuietWindow: b.quietWindow, MaxDelay: b.maxDelay}
		d.Run(ctx, changes, func(cause string) {
			bundle := b.next(ReasonChange)
			b.logger.Debug("Bundle ready", "bundle", bundle.ID, "cause", cause)
			emit(ctx, out, bundle)
		})
	}()

	return out, nil
}

func (b *DevBundler) next(reason string) Bundle {
	return Bundle{
		ID:     fmt.Sprintf("bundle-%d", b.seq.Add(1)),
		Reason: reason,
		At:     time.Now(),
	}
}

func emit(ctx context.Context, out chan<- Bundle, bundle Bundle) {
	select {
	case out <- bundle:
	case <-ctx.Done():
	}
}

// isRelevant filters out noise that should not trigger rebuilds.
func isRelevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return true
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root must exist; anything below it may race with deletion.
			if path == root {
				return errors.BundlerError(err, fmt.Sprintf("failed to watch %s", root))
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return errors.BundlerError(err, fmt.Sprintf("failed to watch %s", path))
		}
		return nil
	})
}
