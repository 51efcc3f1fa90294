// Package assets builds content-addressed asset packages and caches their
// uploaded locations so identical payloads are never uploaded twice.
package assets

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/snap"
)

// Package is a bundled, content-hashed set of static files before upload.
// Identity is the content hash of the bundle, never a target name: two
// targets that converge to the same packaged content share one upload.
type Package struct {
	Buffer []byte
	Hash   string
}

// FileReader resolves a referenced asset path to its content.
type FileReader func(path string) ([]byte, error)

// snapEntry is the packaged form of a payload. Error payloads never reach
// packaging, and asset references live in the bundle itself.
type snapEntry struct {
	Component string `json:"component"`
	Variant   string `json:"variant"`
	HTML      string `json:"html"`
}

// BuildPackage bundles CSS blocks, snapshot payloads, and the files the
// payloads reference into a deterministic zip, and computes the bundle's
// content hash. The hash covers the logical content (block ids and text,
// payload markup, asset bytes), so it is stable across zip encoder details.
func BuildPackage(blocks []css.Block, payloads []snap.Payload, readFile FileReader) (*Package, error) {
	assetPaths := collectAssetPaths(payloads)

	assetData := make(map[string][]byte, len(assetPaths))
	for _, path := range assetPaths {
		data, err := readFile(path)
		if err != nil {
			return nil, errors.PackagingError(err, fmt.Sprintf("failed to read referenced asset %s", path))
		}
		assetData[path] = data
	}

	entries := make([]snapEntry, len(payloads))
	for i, p := range payloads {
		entries[i] = snapEntry{Component: p.Component, Variant: p.Variant, HTML: p.HTML}
	}
	snapsJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.PackagingError(err, "failed to encode snapshot payloads")
	}

	hasher := sha256.New()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writeEntry := func(name string, data []byte) error {
		fmt.Fprintf(hasher, "%s\x00%d\x00", name, len(data))
		hasher.Write(data)

		// Bare CreateHeader keeps timestamps zeroed so identical content
		// produces identical archives.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for i, block := range blocks {
		name := fmt.Sprintf("css/%04d-%s.css", i, sanitizeName(block.ID))
		if err := writeEntry(name, []byte(block.CSS)); err != nil {
			return nil, errors.PackagingError(err, "failed to package css block")
		}
	}
	if err := writeEntry("snaps.json", snapsJSON); err != nil {
		return nil, errors.PackagingError(err, "failed to package snapshot payloads")
	}
	for _, path := range assetPaths {
		if err := writeEntry("assets/"+path, assetData[path]); err != nil {
			return nil, errors.PackagingError(err, fmt.Sprintf("failed to package asset %s", path))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.PackagingError(err, "failed to finalize asset package")
	}

	return &Package{
		Buffer: buf.Bytes(),
		Hash:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// collectAssetPaths dedupes and sorts asset references across payloads.
func collectAssetPaths(payloads []snap.Payload) []string {
	seen := make(map[string]bool)
	for _, p := range payloads {
		for _, path := range p.AssetPaths {
			seen[path] = true
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func sanitizeName(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
