package assets

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/lowsky/happo.io/internal/errors"
)

// BuildStaticPackage bundles an entire static directory into one
// content-addressed package. Used in direct mode, where the remote side
// renders from a single shared package instead of prerendered payloads.
func BuildStaticPackage(dir string) (*Package, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.PackagingError(err, fmt.Sprintf("failed to scan static dir %s", dir))
	}
	if len(paths) == 0 {
		return nil, errors.PackagingError(nil, fmt.Sprintf("static dir %s contains no files", dir))
	}
	sort.Strings(paths)

	hasher := sha256.New()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.PackagingError(err, fmt.Sprintf("failed to read static file %s", rel))
		}

		fmt.Fprintf(hasher, "%s\x00%d\x00", rel, len(data))
		hasher.Write(data)

		w, err := zw.CreateHeader(&zip.FileHeader{Name: rel, Method: zip.Deflate})
		if err != nil {
			return nil, errors.PackagingError(err, fmt.Sprintf("failed to package static file %s", rel))
		}
		if _, err := w.Write(data); err != nil {
			return nil, errors.PackagingError(err, fmt.Sprintf("failed to package static file %s", rel))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.PackagingError(err, "failed to finalize static package")
	}

	return &Package{
		Buffer: buf.Bytes(),
		Hash:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
