package target

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowsky/happo.io/internal/assets"
	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/job"
	"github.com/lowsky/happo.io/internal/observability"
	"github.com/lowsky/happo.io/internal/snap"
)

// eventLog records the order of render/execute calls across fakes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeRenderer struct {
	log      *eventLog
	payloads map[string][]snap.Payload
}

func (r *fakeRenderer) Render(_ context.Context, t config.Target, only string) ([]snap.Payload, error) {
	if r.log != nil {
		r.log.add("render:" + t.Name)
	}
	return r.payloads[t.Name], nil
}

type fakeRemote struct {
	log   *eventLog
	delay map[string]time.Duration
	err   map[string]error

	mu   sync.Mutex
	reqs []ExecuteRequest
}

func (r *fakeRemote) Execute(ctx context.Context, req ExecuteRequest) (any, error) {
	if d, ok := r.delay[req.TargetName]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.log != nil {
		r.log.add("execute:" + req.TargetName)
	}
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if err := r.err[req.TargetName]; err != nil {
		return nil, err
	}
	return "ok:" + req.TargetName, nil
}

type countingUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *countingUploader) Upload(_ context.Context, buffer []byte, hash string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.calls++
	return "uploaded/" + hash, nil
}

func newTestCoordinator(t *testing.T, renderer Renderer, remote Remote, up assets.Uploader) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Deps{
		Renderer: renderer,
		Remote:   remote,
		Uploader: up,
		Cache:    assets.NewCache(nil),
		ReadFile: func(path string) ([]byte, error) { return []byte(path), nil },
	})
	require.NoError(t, err)
	return c
}

func targetsNamed(names ...string) []config.Target {
	out := make([]config.Target, len(names))
	for i, n := range names {
		out[i] = config.Target{Name: n, ViewportWidth: 1024, ViewportHeight: 768}
	}
	return out
}

func okPayloads(component string) []snap.Payload {
	return []snap.Payload{{Component: component, Variant: "default", HTML: "<div>" + component + "</div>"}}
}

func TestPrerenderSerialOrdering(t *testing.T) {
	log := &eventLog{}
	renderer := &fakeRenderer{log: log, payloads: map[string][]snap.Payload{
		"mobile":  okPayloads("A"),
		"desktop": okPayloads("B"),
	}}
	remote := &fakeRemote{log: log}
	c := newTestCoordinator(t, renderer, remote, &countingUploader{})

	results, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("mobile", "desktop"),
	})
	require.NoError(t, err)

	// Synchronous mode: each target completes fully before the next renders.
	assert.Equal(t, []string{
		"render:mobile", "execute:mobile",
		"render:desktop", "execute:desktop",
	}, log.list())

	require.Len(t, results, 2)
	assert.Equal(t, "mobile", results[0].Name)
	assert.Equal(t, "desktop", results[1].Name)
	assert.Equal(t, "ok:mobile", results[0].Value)
}

func TestPrerenderAsyncKeepsRenderingSerial(t *testing.T) {
	log := &eventLog{}
	renderer := &fakeRenderer{log: log, payloads: map[string][]snap.Payload{
		"a": okPayloads("A"),
		"b": okPayloads("B"),
	}}
	// Target a's execution outlasts target b's entire pass.
	remote := &fakeRemote{log: log, delay: map[string]time.Duration{"a": 80 * time.Millisecond}}
	c := newTestCoordinator(t, renderer, remote, &countingUploader{})

	results, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("a", "b"),
		Async:   true,
	})
	require.NoError(t, err)

	events := log.list()
	// Rendering stays serial and ordered even though a's execute finishes last.
	assert.Equal(t, "render:a", events[0])
	assert.Equal(t, "render:b", events[1])
	assert.Equal(t, "execute:a", events[len(events)-1])

	// Result order matches declared target order, not completion order.
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)
}

func TestPrerenderSingleRenderFailure(t *testing.T) {
	cause := fmt.Errorf("undefined is not a function")
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"mobile": okPayloads("A"),
		"desktop": {
			{Component: "example1", Variant: "default", HTML: "<div/>"},
			{Component: "example2", Variant: "default", IsError: true, Cause: cause},
		},
	}}
	log := &eventLog{}
	renderer.log = log
	remote := &fakeRemote{log: log}
	c := newTestCoordinator(t, renderer, remote, &countingUploader{})

	_, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("mobile", "desktop"),
	})
	require.Error(t, err)

	// The single failing example surfaces its original error, tagged to
	// example2/desktop, not a composite.
	var re *errors.RenderError
	require.True(t, stderrors.As(err, &re))
	assert.Equal(t, "example2", re.Component)
	assert.Equal(t, "desktop", re.Target)
	assert.True(t, stderrors.Is(err, cause))
	var agg *errors.AggregateRenderError
	assert.False(t, stderrors.As(err, &agg))

	// mobile precedes desktop, so it completed fully before the abort.
	assert.Equal(t, []string{"render:mobile", "execute:mobile", "render:desktop"}, log.list())
}

func TestPrerenderMultipleRenderFailures(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"chrome": {
			{Component: "A", Variant: "v", IsError: true, Cause: fmt.Errorf("a")},
			{Component: "B", Variant: "v", HTML: "<div/>"},
			{Component: "C", Variant: "v", IsError: true, Cause: fmt.Errorf("c")},
			{Component: "D", Variant: "v", IsError: true, Cause: fmt.Errorf("d")},
		},
	}}
	c := newTestCoordinator(t, renderer, &fakeRemote{}, &countingUploader{})

	_, err := c.RunPrerender(context.Background(), Options{Targets: targetsNamed("chrome")})
	require.Error(t, err)

	var agg *errors.AggregateRenderError
	require.True(t, stderrors.As(err, &agg))
	assert.Len(t, agg.Errors, 3)
}

func TestPrerenderZeroExamplesSkipsTarget(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"empty": nil,
		"full":  okPayloads("A"),
	}}
	c := newTestCoordinator(t, renderer, &fakeRemote{}, &countingUploader{})

	results, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("empty", "full"),
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "full", results[0].Name)
}

func TestPrerenderSharedContentUploadsOnce(t *testing.T) {
	// Both targets render identical content and declare no target CSS, so
	// their packages hash identically and the uploader runs once.
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"mobile":  okPayloads("Same"),
		"desktop": okPayloads("Same"),
	}}
	up := &countingUploader{}
	c := newTestCoordinator(t, renderer, &fakeRemote{}, up)

	results, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("mobile", "desktop"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, up.calls)
}

func TestPrerenderTargetCSSChangesHash(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"plain":  okPayloads("Same"),
		"themed": okPayloads("Same"),
	}}
	up := &countingUploader{}
	c := newTestCoordinator(t, renderer, &fakeRemote{}, up)

	targets := targetsNamed("plain", "themed")
	targets[1].CSS = ".themed { color: red }"

	_, err := c.RunPrerender(context.Background(), Options{Targets: targets})
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestPrerenderStripsAssetRefsBeforeExecute(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"t": {{Component: "A", Variant: "v", HTML: "<img src=\"a.png\">", AssetPaths: []string{"a.png"}}},
	}}
	remote := &fakeRemote{}
	c := newTestCoordinator(t, renderer, remote, &countingUploader{})

	_, err := c.RunPrerender(context.Background(), Options{Targets: targetsNamed("t")})
	require.NoError(t, err)

	require.Len(t, remote.reqs, 1)
	for _, p := range remote.reqs[0].Payloads {
		assert.Nil(t, p.AssetPaths, "asset refs must not leak past packaging")
	}
}

func TestPrerenderUploadFailureAbortsRun(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{
		"a": okPayloads("A"),
		"b": okPayloads("B"),
	}}
	up := &countingUploader{err: fmt.Errorf("bucket gone")}
	remote := &fakeRemote{}
	c := newTestCoordinator(t, renderer, remote, up)

	results, err := c.RunPrerender(context.Background(), Options{Targets: targetsNamed("a", "b")})
	require.Error(t, err)
	assert.Nil(t, results, "no partial results on failure")
	assert.Empty(t, remote.reqs)
}

func TestPrerenderRemoteFailureAbortsRun(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{"a": okPayloads("A")}}
	remote := &fakeRemote{err: map[string]error{"a": fmt.Errorf("402 payment required")}}
	c := newTestCoordinator(t, renderer, remote, &countingUploader{})

	_, err := c.RunPrerender(context.Background(), Options{Targets: targetsNamed("a")})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryRemote))
}

func TestPrerenderObservesCancellation(t *testing.T) {
	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{"a": okPayloads("A")}}
	c := newTestCoordinator(t, renderer, &fakeRemote{}, &countingUploader{})

	token := &job.Token{}
	token.Cancel()

	_, err := c.RunPrerender(context.Background(), Options{
		Targets: targetsNamed("a"),
		Token:   token,
	})
	assert.ErrorIs(t, err, job.ErrSuperseded)
}

func TestDirectModeConcurrentOrderedResults(t *testing.T) {
	// First target resolves last; order must still match declaration.
	remote := &fakeRemote{delay: map[string]time.Duration{"first": 60 * time.Millisecond}}
	up := &countingUploader{}
	c := newTestCoordinator(t, nil, remote, up)

	static := &assets.Package{Buffer: []byte("static"), Hash: "static-hash"}
	results, err := c.RunDirect(context.Background(), Options{
		Targets: targetsNamed("first", "second", "third"),
	}, static)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Name)
	assert.Equal(t, "second", results[1].Name)
	assert.Equal(t, "third", results[2].Name)

	// The shared static package is uploaded exactly once.
	assert.Equal(t, 1, up.calls)
	for _, req := range remote.reqs {
		assert.Equal(t, "uploaded/static-hash", req.AssetsLocation)
	}
}

func TestDirectModeRequiresStaticPackage(t *testing.T) {
	c := newTestCoordinator(t, nil, &fakeRemote{}, &countingUploader{})
	_, err := c.RunDirect(context.Background(), Options{Targets: targetsNamed("a")}, nil)
	require.Error(t, err)
}

func TestRunPrerenderLogsCarryContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{"desktop": okPayloads("Button")}}
	c, err := NewCoordinator(Deps{
		Renderer: renderer,
		Remote:   &fakeRemote{},
		Uploader: &countingUploader{},
		Cache:    assets.NewCache(nil),
		ReadFile: func(path string) ([]byte, error) { return []byte(path), nil },
		Logger:   logger,
	})
	require.NoError(t, err)

	ctx := observability.WithBuildID(context.Background(), "b-42")
	_, err = c.RunPrerender(ctx, Options{Targets: targetsNamed("desktop")})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "build.id=b-42")
	assert.Contains(t, out, "target=desktop")
	assert.Contains(t, out, "stage=upload")
}

func TestZeroExampleWarningCarriesTargetAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	renderer := &fakeRenderer{payloads: map[string][]snap.Payload{}}
	c, err := NewCoordinator(Deps{
		Renderer: renderer,
		Remote:   &fakeRemote{},
		Uploader: &countingUploader{},
		Cache:    assets.NewCache(nil),
		Logger:   logger,
	})
	require.NoError(t, err)

	results, err := c.RunPrerender(context.Background(), Options{Targets: targetsNamed("empty")})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Contains(t, buf.String(), "target=empty")
}
