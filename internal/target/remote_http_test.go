package target

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/retry"
	"github.com/lowsky/happo.io/internal/snap"
)

func fastRemote(endpoint string) *HTTPRemote {
	r := NewHTTPRemote(endpoint, "key", "secret", nil)
	r.policy = retry.Policy{Mode: retry.BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	return r
}

func TestHTTPRemoteSubmitsSnapRequest(t *testing.T) {
	var got snapRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/snap-requests", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"requestId": "req-1", "status": "accepted"})
	}))
	defer srv.Close()

	remote := fastRemote(srv.URL)
	value, err := remote.Execute(context.Background(), ExecuteRequest{
		TargetName:     "desktop",
		Target:         config.Target{Name: "desktop", Browser: "chrome", ViewportWidth: 1280, ViewportHeight: 800},
		AssetsLocation: "s3://bucket/abc.zip",
		CSSBlocks:      []css.Block{{ID: "main", CSS: "body{}"}},
		Payloads:       []snap.Payload{{Component: "Button", Variant: "default", HTML: "<button/>"}},
		Async:          true,
	})
	require.NoError(t, err)

	assert.Equal(t, "desktop", got.TargetName)
	assert.Equal(t, "chrome", got.Browser)
	assert.Equal(t, "1280x800", got.Viewport)
	assert.Equal(t, "s3://bucket/abc.zip", got.AssetsLocation)
	assert.True(t, got.Async)
	require.Len(t, got.Snaps, 1)

	result, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", result["requestId"])
}

func TestHTTPRemoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	remote := fastRemote(srv.URL)
	_, err := remote.Execute(context.Background(), ExecuteRequest{TargetName: "mobile"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRemoteDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	remote := fastRemote(srv.URL)
	_, err := remote.Execute(context.Background(), ExecuteRequest{TargetName: "mobile"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAuth))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRemoteRejectionIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown target browser", http.StatusBadRequest)
	}))
	defer srv.Close()

	remote := fastRemote(srv.URL)
	_, err := remote.Execute(context.Background(), ExecuteRequest{TargetName: "mobile"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryRemote))
	assert.Contains(t, err.Error(), "unknown target browser")
}
