package store

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"aura/internal/db"
	"aura/internal/index/chunk"
	"aura/internal/index/ingest"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	d, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Conn.Exec(`INSERT INTO workspaces (id, path, tags, created_at, updated_at) VALUES ('ws1', '/tmp/ws1', '[]', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	return New(d), "ws1"
}

func TestReplaceFileIsAtomicAndOverwrites(t *testing.T) {
	st, wsID := newTestStore(t)
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	src := `package p

func A() int { return 1 }
`
	require.NoError(t, afero.WriteFile(fs, "a.go", []byte(src), 0o644))
	res, err := ingest.ForPath("a.go").Ingest(fs, "a.go", chunk.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, st.ReplaceFile(ctx, wsID, "a.go", res))

	chunks, err := st.ChunksForWorkspace(ctx, wsID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// Re-ingest with a different function body — old chunk/node should disappear.
	src2 := `package p

func B() int { return 2 }
`
	require.NoError(t, afero.WriteFile(fs, "a.go", []byte(src2), 0o644))
	res2, err := ingest.ForPath("a.go").Ingest(fs, "a.go", chunk.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, st.ReplaceFile(ctx, wsID, "a.go", res2))

	chunks, err = st.ChunksForWorkspace(ctx, wsID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "func B")
}

func TestEmbeddingRoundTrip(t *testing.T) {
	st, wsID := newTestStore(t)
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "doc.md", []byte("hello world"), 0o644))
	res, err := ingest.ForPath("doc.md").Ingest(fs, "doc.md", chunk.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, st.ReplaceFile(ctx, wsID, "doc.md", res))

	chunks, err := st.ChunksForWorkspace(ctx, wsID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, st.SetEmbedding(ctx, chunks[0].ID, vec))

	chunks, err = st.ChunksForWorkspace(ctx, wsID)
	require.NoError(t, err)
	require.InDeltaSlice(t, vec, chunks[0].Embedding, 1e-6)
}

func TestFreshnessRoundTrip(t *testing.T) {
	st, wsID := newTestStore(t)
	ctx := context.Background()

	f, err := st.GetFreshness(ctx, wsID)
	require.NoError(t, err)
	require.True(t, f.LastIndexedAt.IsZero())

	require.NoError(t, st.SetFreshness(ctx, wsID, "deadbeef", "text-embedding-3-small"))

	f, err = st.GetFreshness(ctx, wsID)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", f.LastGitHead)
	require.False(t, f.LastIndexedAt.IsZero())
}
