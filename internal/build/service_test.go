package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowsky/happo.io/internal/assets"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/history"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/plugin"
	"github.com/lowsky/happo.io/internal/snap"
	"github.com/lowsky/happo.io/internal/target"
)

type stubRenderer struct {
	payloads map[string][]snap.Payload
}

func (r stubRenderer) Render(_ context.Context, t config.Target, only string) ([]snap.Payload, error) {
	out := r.payloads[t.Name]
	if only == "" {
		return out, nil
	}
	var filtered []snap.Payload
	for _, p := range out {
		if p.Component == only {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

type stubRemote struct {
	mu   sync.Mutex
	reqs []target.ExecuteRequest
}

func (r *stubRemote) Execute(_ context.Context, req target.ExecuteRequest) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return map[string]any{"target": req.TargetName}, nil
}

type stubUploader struct {
	mu      sync.Mutex
	uploads int
}

func (u *stubUploader) Upload(_ context.Context, _ []byte, hash string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads++
	return "local://" + hash, nil
}

func prerenderConfig() *config.Config {
	return &config.Config{
		Project: "acme-ui",
		Targets: []config.Target{
			{Name: "mobile", ViewportWidth: 320, ViewportHeight: 640},
			{Name: "desktop", ViewportWidth: 1280, ViewportHeight: 800},
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, renderer target.Renderer, remote target.Remote) (*Service, *history.Store) {
	t.Helper()
	store, err := history.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(cfg, Deps{
		Renderer: renderer,
		Remote:   remote,
		Uploader: &stubUploader{},
		Cache:    assets.NewCache(nil),
		History:  store,
		Logger:   slog.Default(),
	})
	svc.sha = func() string { return "sha-test" }
	return svc, store
}

func TestRunPrerenderProducesOrderedReport(t *testing.T) {
	renderer := stubRenderer{payloads: map[string][]snap.Payload{
		"mobile":  {{Component: "Button", Variant: "default", HTML: "<button/>"}},
		"desktop": {{Component: "Button", Variant: "default", HTML: "<button/>"}},
	}}
	remote := &stubRemote{}
	svc, store := newTestService(t, prerenderConfig(), renderer, remote)

	rep, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "acme-ui", rep.Project)
	assert.Equal(t, "sha-test", rep.SHA)
	assert.Equal(t, []string{"mobile", "desktop"}, rep.TargetNames())

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, []string{"mobile", "desktop"}, entries[0].Targets)
}

func TestRunOnlyRestrictsComponents(t *testing.T) {
	renderer := stubRenderer{payloads: map[string][]snap.Payload{
		"mobile": {
			{Component: "Button", Variant: "default", HTML: "<button/>"},
			{Component: "Card", Variant: "plain", HTML: "<div/>"},
		},
		"desktop": {
			{Component: "Button", Variant: "default", HTML: "<button/>"},
		},
	}}
	remote := &stubRemote{}
	svc, _ := newTestService(t, prerenderConfig(), renderer, remote)

	_, err := svc.Run(context.Background(), RunOptions{Only: "Card"})
	require.NoError(t, err)

	// Desktop has no Card examples, so only mobile executed.
	require.Len(t, remote.reqs, 1)
	assert.Equal(t, "mobile", remote.reqs[0].TargetName)
	require.Len(t, remote.reqs[0].Payloads, 1)
	assert.Equal(t, "Card", remote.reqs[0].Payloads[0].Component)
}

func TestRunDirectModeUsesStaticPackage(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html/>"), 0o644))

	prerender := false
	cfg := prerenderConfig()
	cfg.Prerender = &prerender
	cfg.StaticDir = staticDir

	remote := &stubRemote{}
	svc, _ := newTestService(t, cfg, nil, remote)

	rep, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mobile", "desktop"}, rep.TargetNames())

	require.Len(t, remote.reqs, 2)
	assert.Equal(t, remote.reqs[0].AssetsLocation, remote.reqs[1].AssetsLocation)
	assert.Nil(t, remote.reqs[0].Payloads)
}

func TestRunAppendsPluginCSSAfterStylesheets(t *testing.T) {
	cssDir := t.TempDir()
	cssPath := filepath.Join(cssDir, "main.css")
	require.NoError(t, os.WriteFile(cssPath, []byte("body{}"), 0o644))

	cfg := prerenderConfig()
	cfg.Targets = cfg.Targets[:1]
	cfg.Stylesheets = []config.StylesheetDecl{{Source: cssPath}}

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(plugin.InlineCSS{PluginName: "theme", Text: ":root{--c:red}"}))

	renderer := stubRenderer{payloads: map[string][]snap.Payload{
		"mobile": {{Component: "Button", Variant: "default", HTML: "<button/>"}},
	}}
	remote := &stubRemote{}
	svc, _ := newTestService(t, cfg, renderer, remote)
	svc.deps.Plugins = registry

	_, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, remote.reqs, 1)
	blocks := remote.reqs[0].CSSBlocks
	require.Len(t, blocks, 2)
	assert.Equal(t, cssPath, blocks[0].Source)
	assert.Equal(t, "theme", blocks[1].ID)
}

func TestRunFailureRecordsHistory(t *testing.T) {
	renderer := stubRenderer{payloads: map[string][]snap.Payload{
		"mobile": {{Component: "Button", Variant: "default", IsError: true, Cause: fmt.Errorf("boom")}},
	}}
	svc, store := newTestService(t, prerenderConfig(), renderer, &stubRemote{})

	_, err := svc.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
}

func TestRunSupersededJobReturnsSentinel(t *testing.T) {
	renderer := stubRenderer{payloads: map[string][]snap.Payload{
		"mobile": {{Component: "Button", Variant: "default", HTML: "<button/>"}},
	}}
	svc, store := newTestService(t, prerenderConfig(), renderer, &stubRemote{})

	j := job.New("bundle-1", slog.Default().Handler())
	j.Supersede()

	_, err := svc.Run(context.Background(), RunOptions{Job: j})
	assert.ErrorIs(t, err, job.ErrSuperseded)

	// Superseded runs are not history failures.
	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
