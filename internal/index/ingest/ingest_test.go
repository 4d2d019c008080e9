package ingest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"aura/internal/index/chunk"
)

func TestGoIngestorEmitsNodesPerDecl(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := `package widgets

type Gadget struct {
	Name string
}

func (g *Gadget) Spin() string {
	return g.Name
}

func NewGadget(name string) *Gadget {
	return &Gadget{Name: name}
}
`
	require.NoError(t, afero.WriteFile(fs, "widget.go", []byte(src), 0o644))

	ing := ForPath("widget.go")
	res, err := ing.Ingest(fs, "widget.go", chunk.DefaultOptions())
	require.NoError(t, err)

	var kinds []string
	for _, n := range res.Nodes {
		kinds = append(kinds, n.Kind)
	}
	require.Contains(t, kinds, "Struct")
	require.Contains(t, kinds, "Method")
	require.Contains(t, kinds, "Func")
	require.Contains(t, kinds, "Field")

	require.NotEmpty(t, res.Edges)
	require.Len(t, res.Chunks, len(res.Nodes)-1) // fields don't get their own chunk
}

func TestGoIngestorDegradesOnParseError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.go", []byte("this is not valid go {{{"), 0o644))

	ing := ForPath("broken.go")
	res, err := ing.Ingest(fs, "broken.go", chunk.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	require.Equal(t, "text", res.Chunks[0].Ingestor)
}

func TestFallbackIngestorForUnknownExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "asset.bin", []byte{0x00, 0x01, 0x02}, 0o644))

	ing := ForPath("asset.bin")
	res, err := ing.Ingest(fs, "asset.bin", chunk.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	require.NotEmpty(t, res.Warning)
}

func TestTextIngestorChunksMarkdown(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "README.md", []byte("# Title\n\nbody text\n"), 0o644))

	ing := ForPath("README.md")
	res, err := ing.Ingest(fs, "README.md", chunk.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	require.Equal(t, "text", res.Chunks[0].Ingestor)
}
