package query

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"aura/internal/db"
	"aura/internal/index/chunk"
	"aura/internal/index/ingest"
	"aura/internal/index/store"
)

func setup(t *testing.T) (*Query, *store.Store, string) {
	t.Helper()
	d, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Conn.Exec(`INSERT INTO workspaces (id, path, tags, created_at, updated_at) VALUES ('ws1', '/tmp/ws1', '[]', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	st := store.New(d)
	fs := afero.NewMemMapFs()
	src := `package widgets

type Gadget struct {
	Name string
}

func (g *Gadget) Spin() string { return g.Name }
func NewGadget() *Gadget { return &Gadget{} }
`
	require.NoError(t, afero.WriteFile(fs, "widget.go", []byte(src), 0o644))
	res, err := ingest.ForPath("widget.go").Ingest(fs, "widget.go", chunk.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, st.ReplaceFile(context.Background(), "ws1", "widget.go", res))

	return New(d), st, "ws1"
}

func TestSearchLexicalFallback(t *testing.T) {
	q, st, wsID := setup(t)
	results, err := q.Search(context.Background(), st, wsID, "Spin", nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestFindNodesExactAndFuzzy(t *testing.T) {
	q, _, wsID := setup(t)

	exact, err := q.FindNodes(context.Background(), wsID, "Gadget", 10)
	require.NoError(t, err)
	require.NotEmpty(t, exact)

	fuzzy, err := q.FindNodes(context.Background(), wsID, "Gdgt", 10)
	require.NoError(t, err)
	require.NotEmpty(t, fuzzy)
}

func TestTypeMembers(t *testing.T) {
	q, _, wsID := setup(t)
	members, err := q.TypeMembers(context.Background(), wsID, "widgets.Gadget")
	require.NoError(t, err)

	var names []string
	for _, m := range members {
		names = append(names, m.Name)
	}
	require.Contains(t, names, "Name")
	require.Contains(t, names, "Spin")
}
