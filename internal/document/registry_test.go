package document

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office-tools-server/internal/filesystem"
)

func newTestRegistry() *Registry {
	fs := filesystem.NewOSAdapter()
	return NewRegistry(NewTextHost(fs, 0), NewDocxHost(fs, 0))
}

func TestRegistryHostFor(t *testing.T) {
	r := newTestRegistry()

	h, err := r.HostFor("/tmp/Report.DOCX")
	require.NoError(t, err)
	assert.Equal(t, "docx", h.Name())

	h, err = r.HostFor("/tmp/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "text", h.Name())

	_, err = r.HostFor("/tmp/sheet.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, r.Supports("/tmp/noext"))
}

func TestRegistryExtensionsSorted(t *testing.T) {
	assert.Equal(t, []string{".csv", ".docx", ".log", ".md", ".text", ".txt"}, newTestRegistry().Extensions())
}

func TestRegistryCreateAndOpen(t *testing.T) {
	r := newTestRegistry()
	dir := t.TempDir()

	for _, name := range []string{"a.docx", "b.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, r.Create(path))

		s, err := r.Open(path)
		require.NoError(t, err)
		assert.Equal(t, path, s.Path())
		assert.Equal(t, 1, s.LineCount())
		require.NoError(t, s.Close())
	}
}
