package target

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/snap"
)

// FSRenderer renders examples from prerendered markup on disk, laid out as
// <root>/<component>/<variant>.html. Output order is deterministic
// (component, then variant) so packaging hashes are stable across runs.
type FSRenderer struct {
	Root string
}

// Render implements Renderer. The viewport does not change prerendered
// markup; it travels with the execute request for the remote comparison.
func (r FSRenderer) Render(_ context.Context, _ config.Target, only string) ([]snap.Payload, error) {
	components, err := os.ReadDir(r.Root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			fmt.Sprintf("failed to read examples dir %s", r.Root))
	}

	var payloads []snap.Payload
	for _, comp := range components {
		if !comp.IsDir() || strings.HasPrefix(comp.Name(), ".") {
			continue
		}
		if only != "" && comp.Name() != only {
			continue
		}

		variants, err := os.ReadDir(filepath.Join(r.Root, comp.Name()))
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
				fmt.Sprintf("failed to read examples for %s", comp.Name()))
		}
		sort.Slice(variants, func(i, j int) bool { return variants[i].Name() < variants[j].Name() })

		for _, v := range variants {
			if v.IsDir() || !strings.HasSuffix(v.Name(), ".html") {
				continue
			}
			payload, err := r.load(comp.Name(), strings.TrimSuffix(v.Name(), ".html"))
			if err != nil {
				return nil, err
			}
			payloads = append(payloads, payload)
		}
	}

	sort.SliceStable(payloads, func(i, j int) bool {
		if payloads[i].Component != payloads[j].Component {
			return payloads[i].Component < payloads[j].Component
		}
		return payloads[i].Variant < payloads[j].Variant
	})
	return payloads, nil
}

func (r FSRenderer) load(component, variant string) (snap.Payload, error) {
	data, err := os.ReadFile(filepath.Join(r.Root, component, variant+".html"))
	if err != nil {
		return snap.Payload{}, errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			fmt.Sprintf("failed to read example %s/%s", component, variant))
	}

	markup := string(data)
	paths, err := snap.ExtractAssetPaths(markup)
	if err != nil {
		// Unparseable markup is an example failure, not a run failure: the
		// coordinator's error policy decides how it surfaces.
		return snap.Payload{
			Component: component,
			Variant:   variant,
			IsError:   true,
			Cause:     err,
		}, nil
	}

	return snap.Payload{
		Component:  component,
		Variant:    variant,
		HTML:       markup,
		AssetPaths: paths,
	}, nil
}
