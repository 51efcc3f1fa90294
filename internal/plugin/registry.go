// Package plugin hosts extensions that contribute inline CSS to every run,
// appended after all declared stylesheets in registration order.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/lowsky/happo.io/internal/css"
)

// Plugin contributes one inline CSS block per run. CSS is invoked at run
// time, so a plugin may produce different output across runs.
type Plugin interface {
	Name() string
	CSS(ctx context.Context) (string, error)
}

// Registry holds plugins in registration order. Registration order is
// significant: it determines block order in the packaged bundle.
type Registry struct {
	mu      sync.Mutex
	plugins []Plugin
	names   map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a plugin. Duplicate names are rejected.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name must not be empty")
	}
	if r.names[name] {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.names[name] = true
	r.plugins = append(r.plugins, p)
	return nil
}

// ResolveCSS collects each plugin's CSS in registration order. Any plugin
// failure fails the resolution. A nil registry resolves to nothing.
func (r *Registry) ResolveCSS(ctx context.Context) ([]css.PluginCSS, error) {
	if r == nil {
		return nil, nil
	}
	r.mu.Lock()
	plugins := append([]Plugin(nil), r.plugins...)
	r.mu.Unlock()

	out := make([]css.PluginCSS, 0, len(plugins))
	for _, p := range plugins {
		text, err := p.CSS(ctx)
		if err != nil {
			return nil, fmt.Errorf("plugin %s failed to produce css: %w", p.Name(), err)
		}
		out = append(out, css.PluginCSS{Plugin: p.Name(), CSS: text})
	}
	return out, nil
}

// InlineCSS is a static plugin carrying a fixed CSS string.
type InlineCSS struct {
	PluginName string
	Text       string
}

// Name implements Plugin.
func (p InlineCSS) Name() string { return p.PluginName }

// CSS implements Plugin.
func (p InlineCSS) CSS(context.Context) (string, error) { return p.Text, nil }
