package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"aura/internal/aerr"
	"aura/internal/db"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	d, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return NewRegistry(d)
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	ws1, err := r.Register(ctx, "/tmp/example-repo", "example", []string{"go"})
	require.NoError(t, err)

	ws2, err := r.Register(ctx, "/tmp/example-repo", "", nil)
	require.NoError(t, err)

	require.Equal(t, ws1.ID, ws2.ID)
	require.Equal(t, "example", ws2.Alias)
}

func TestCanonicalIDStableAcrossRelativeSegments(t *testing.T) {
	id1, err := CanonicalID("/tmp/a/b/../b")
	require.NoError(t, err)
	id2, err := CanonicalID("/tmp/a/b")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, aerr.ErrNotFound)
}

func TestRemove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	ws, err := r.Register(ctx, "/tmp/removable", "", nil)
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, ws.ID))

	_, err = r.Get(ctx, ws.ID)
	require.ErrorIs(t, err, aerr.ErrNotFound)
}

func TestRegisterDuplicateAliasFailsAlreadyExists(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "/tmp/repo-one", "shared-alias", nil)
	require.NoError(t, err)

	_, err = r.Register(ctx, "/tmp/repo-two", "shared-alias", nil)
	require.ErrorIs(t, err, aerr.ErrAlreadyExists)
}
