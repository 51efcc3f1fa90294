package assets

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStatic(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildStaticPackageDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeStatic(t, dir, "index.html", "<html/>")
	writeStatic(t, dir, "assets/app.css", "body{}")

	first, err := BuildStaticPackage(dir)
	require.NoError(t, err)
	second, err := BuildStaticPackage(dir)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Buffer, second.Buffer)

	zr, err := zip.NewReader(bytes.NewReader(first.Buffer), int64(len(first.Buffer)))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"assets/app.css", "index.html"}, names)
}

func TestBuildStaticPackageHashReflectsContent(t *testing.T) {
	dir := t.TempDir()
	writeStatic(t, dir, "index.html", "<html/>")
	first, err := BuildStaticPackage(dir)
	require.NoError(t, err)

	writeStatic(t, dir, "index.html", "<html lang=\"en\"/>")
	second, err := BuildStaticPackage(dir)
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestBuildStaticPackageRejectsEmptyDir(t *testing.T) {
	_, err := BuildStaticPackage(t.TempDir())
	assert.Error(t, err)
}
