package css

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lowsky/happo.io/internal/config"
)

// SourceLoader loads the text of one stylesheet source.
type SourceLoader interface {
	Load(ctx context.Context, source string) (string, error)
}

// FileLoader reads stylesheet sources from disk.
type FileLoader struct{}

// Load implements SourceLoader.
func (FileLoader) Load(_ context.Context, source string) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to load stylesheet %s: %w", source, err)
	}
	return string(data), nil
}

// Resolver turns stylesheet declarations plus plugin CSS into ordered blocks.
type Resolver struct {
	loader  SourceLoader
	plugins []PluginCSS
}

// NewResolver creates a resolver. A nil loader defaults to FileLoader.
func NewResolver(loader SourceLoader, plugins []PluginCSS) *Resolver {
	if loader == nil {
		loader = FileLoader{}
	}
	return &Resolver{loader: loader, plugins: plugins}
}

// Resolve loads all declared sources concurrently and returns blocks in
// declaration order, followed by plugin blocks in registration order.
// Any load failure fails the whole resolution: a partial CSS set would
// silently change what the remote side renders.
func (r *Resolver) Resolve(ctx context.Context, decls []config.StylesheetDecl) ([]Block, error) {
	blocks := make([]Block, len(decls), len(decls)+len(r.plugins))

	g, gctx := errgroup.WithContext(ctx)
	for i, decl := range decls {
		g.Go(func() error {
			text, err := r.loader.Load(gctx, decl.Source)
			if err != nil {
				return err
			}
			id := decl.ID
			if id == "" {
				id = decl.Source
			}
			// Each goroutine writes only its own slot, so declaration
			// order holds no matter which load finishes first.
			blocks[i] = Block{
				Source:      decl.Source,
				ID:          id,
				Conditional: decl.Conditional,
				CSS:         text,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range r.plugins {
		blocks = append(blocks, Block{ID: p.Plugin, CSS: p.CSS})
	}

	return blocks, nil
}
