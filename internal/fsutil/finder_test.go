package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.hcl", "nested/b.hcl", "nested/c.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("#"), 0o644))
	}
	single := filepath.Join(dir, "a.hcl")

	files, err := FindFiles([]string{dir, single, filepath.Join(dir, "missing")}, ".hcl")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{single, filepath.Join(dir, "nested", "b.hcl")}, files)
}

func TestFindFiles_PanicsOnEmptyExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFiles(nil, "") })
}
