package confluence

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for member, content := range files {
		mw, err := w.Create(member)
		require.NoError(t, err)
		_, err = mw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return p
}

func TestFolderName(t *testing.T) {
	t.Run("normalises Confluence export names", func(t *testing.T) {
		assert.Equal(t, "Export-135853", FolderName("zips/Confluence-space-export-135853.html.zip"))
	})

	t.Run("sanitises arbitrary names", func(t *testing.T) {
		assert.Equal(t, "my-export_v2", FolderName("my export_v2.zip"))
	})
}

func TestExtractor_ExtractArchive(t *testing.T) {
	t.Run("unpacks members into the export folder", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		archive := writeArchive(t, zips, "Confluence-space-export-135853.html.zip", map[string]string{
			"IS/index.html":                       "<html></html>",
			"IS/attachments/100000003/diagram.png": "png",
		})
		e := NewExtractor(zips, input, DefaultExtractLimits())

		res := e.ExtractArchive(archive)

		require.NoError(t, res.Err)
		assert.Equal(t, "Export-135853", res.Folder)
		assert.Equal(t, 2, res.Extracted)
		assert.Zero(t, res.Blocked)
		assert.FileExists(t, filepath.Join(input, "Export-135853", "IS", "index.html"))
		assert.FileExists(t, filepath.Join(input, "Export-135853", "IS", "attachments", "100000003", "diagram.png"))
	})

	t.Run("blocks traversal paths without failing the archive", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		archive := writeArchive(t, zips, "evil.zip", map[string]string{
			"ok.html":            "fine",
			"../escape.html":     "blocked",
			"nested/../up.html":  "blocked",
		})
		e := NewExtractor(zips, input, DefaultExtractLimits())

		res := e.ExtractArchive(archive)

		require.NoError(t, res.Err)
		assert.Equal(t, 1, res.Extracted)
		assert.Equal(t, 2, res.Blocked)
		assert.NoFileExists(t, filepath.Join(filepath.Dir(input), "escape.html"))
	})

	t.Run("rejects archives with too many members", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		archive := writeArchive(t, zips, "many.zip", map[string]string{
			"a.html": "a", "b.html": "b", "c.html": "c",
		})
		limits := DefaultExtractLimits()
		limits.MaxFiles = 2
		e := NewExtractor(zips, input, limits)

		res := e.ExtractArchive(archive)

		assert.Error(t, res.Err)
		assert.Zero(t, res.Extracted)
	})

	t.Run("rejects archives over the total size limit", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		archive := writeArchive(t, zips, "big.zip", map[string]string{
			"big.bin": "0123456789",
		})
		limits := DefaultExtractLimits()
		limits.MaxTotalSize = 5
		e := NewExtractor(zips, input, limits)

		res := e.ExtractArchive(archive)

		assert.Error(t, res.Err)
	})

	t.Run("replaces a previous extraction", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		stale := filepath.Join(input, "Export-1", "stale.html")
		require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
		archive := writeArchive(t, zips, "Export-1.zip", map[string]string{"fresh.html": "new"})
		e := NewExtractor(zips, input, DefaultExtractLimits())

		res := e.ExtractArchive(archive)

		require.NoError(t, res.Err)
		assert.NoFileExists(t, stale)
		assert.FileExists(t, filepath.Join(input, "Export-1", "fresh.html"))
	})

	t.Run("reports an invalid archive", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		bad := filepath.Join(zips, "bad.zip")
		require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))
		e := NewExtractor(zips, input, DefaultExtractLimits())

		res := e.ExtractArchive(bad)

		assert.Error(t, res.Err)
	})
}

func TestExtractor_ExtractAll(t *testing.T) {
	t.Run("extracts every archive in the zips directory", func(t *testing.T) {
		zips, input := t.TempDir(), t.TempDir()
		writeArchive(t, zips, "one.zip", map[string]string{"a.html": "a"})
		writeArchive(t, zips, "two.zip", map[string]string{"b.html": "b"})
		e := NewExtractor(zips, input, DefaultExtractLimits())

		results, err := e.ExtractAll()

		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("empty zips directory yields no results", func(t *testing.T) {
		e := NewExtractor(t.TempDir(), t.TempDir(), DefaultExtractLimits())

		results, err := e.ExtractAll()

		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
