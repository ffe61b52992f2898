package fetch

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"areas.shp": "geometry",
		"areas.dbf": "attributes",
	})
	dest := t.TempDir()

	extracted, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, extracted, 2)

	data, err := os.ReadFile(filepath.Join(dest, "areas.shp"))
	require.NoError(t, err)
	assert.Equal(t, "geometry", string(data))
}

func TestExtractZIPNestedDirs(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"export/areas.shp": "geometry",
	})
	dest := t.TempDir()

	extracted, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	require.Len(t, extracted, 1)
	assert.FileExists(t, filepath.Join(dest, "export", "areas.shp"))
}

func TestExtractZIPFile(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"areas.shp": "geometry",
		"areas.dbf": "attributes",
	})
	dest := t.TempDir()

	path, err := ExtractZIPFile(zipPath, "areas.dbf", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "attributes", string(data))

	_, err = ExtractZIPFile(zipPath, "missing.prj", dest)
	assert.Error(t, err)
}

func TestExtractZIPSlip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../escape.txt": "bad",
	})
	dest := t.TempDir()

	_, err := ExtractZIP(zipPath, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestFindByExt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "areas.SHP"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "areas.dbf"), []byte("x"), 0o644))

	path, err := FindByExt(dir, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "areas.SHP", filepath.Base(path))

	_, err = FindByExt(dir, ".prj")
	assert.Error(t, err)
}
