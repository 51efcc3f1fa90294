package assets

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lowsky/happo.io/internal/metrics"
)

// Uploader pushes an asset package to remote storage and returns its location.
type Uploader interface {
	Upload(ctx context.Context, buffer []byte, hash string) (location string, err error)
}

// Cache is the process-lifetime asset package cache: a content-addressed,
// append-only map from package hash to its uploaded location. Entries are
// never invalidated during a run. Concurrent callers for the same unseen
// hash are collapsed into one in-flight upload via singleflight; this is an
// optimization, not a correctness requirement.
type Cache struct {
	mu       sync.RWMutex
	known    map[string]string
	flight   singleflight.Group
	recorder metrics.Recorder
}

// NewCache creates an empty cache.
func NewCache(recorder metrics.Recorder) *Cache {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Cache{
		known:    make(map[string]string),
		recorder: recorder,
	}
}

// GetOrUpload returns the uploaded location for hash, invoking upload at
// most once per hash within the process lifetime.
func (c *Cache) GetOrUpload(ctx context.Context, hash string, upload func(ctx context.Context) (string, error)) (string, error) {
	c.mu.RLock()
	location, ok := c.known[hash]
	c.mu.RUnlock()
	if ok {
		c.recorder.IncCacheHit()
		slog.Debug("Asset package already uploaded", "hash", hash, "location", location)
		return location, nil
	}

	c.recorder.IncCacheMiss()

	v, err, _ := c.flight.Do(hash, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// completed the upload between the read above and here.
		c.mu.RLock()
		location, ok := c.known[hash]
		c.mu.RUnlock()
		if ok {
			return location, nil
		}

		location, err := upload(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.known[hash] = location
		c.mu.Unlock()
		return location, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of cached hashes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}
