package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"aura/internal/aerr"
)

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	def := "---\nname: reviewer\n---\nReview the diff.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewer.md"), []byte(def), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadDir(dir))

	got, err := r.Get("reviewer")
	require.NoError(t, err)
	require.Equal(t, "reviewer", got.Name)

	require.Len(t, r.All(), 1)
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	require.ErrorIs(t, err, aerr.ErrNotFound)
}
