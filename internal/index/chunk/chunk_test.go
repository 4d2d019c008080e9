package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkNoEmptySpans(t *testing.T) {
	spans := Chunk("", DefaultOptions())
	require.Empty(t, spans)
}

func TestChunkPreservesOrderAndOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 runes
	spans := Chunk(text, Options{Size: 100, Overlap: 20})
	require.True(t, len(spans) > 1)

	for i := 1; i < len(spans); i++ {
		require.True(t, spans[i].StartLine >= spans[i-1].StartLine)
	}

	// Every chunk boundary overlaps with the previous chunk's tail.
	for i := 1; i < len(spans); i++ {
		prev := spans[i-1].Text
		cur := spans[i].Text
		overlapLen := 20
		if len(prev) < overlapLen {
			overlapLen = len(prev)
		}
		require.Equal(t, prev[len(prev)-overlapLen:], cur[:overlapLen])
	}
}

func TestChunkSingleSpanWhenSmallerThanSize(t *testing.T) {
	spans := Chunk("short text", Options{Size: 1000, Overlap: 100})
	require.Len(t, spans, 1)
	require.Equal(t, "short text", spans[0].Text)
	require.Equal(t, 1, spans[0].StartLine)
	require.Equal(t, 1, spans[0].EndLine)
}

func TestChunkTracksLineNumbers(t *testing.T) {
	text := "line1\nline2\nline3\nline4\n"
	spans := Chunk(text, Options{Size: 12, Overlap: 0})
	require.NotEmpty(t, spans)
	require.Equal(t, 1, spans[0].StartLine)
}

func TestChunkMarkdownSplitsOnHeaderBoundaries(t *testing.T) {
	text := "## Header1\ntext1\n\n## Header2\ntext2\n\n## Header3\ntext3\n"
	spans := ChunkMarkdown(text, DefaultOptions())
	require.Len(t, spans, 3)
	require.Equal(t, 1, spans[0].StartLine)
	for _, s := range spans {
		require.True(t, s.StartLine < s.EndLine)
	}
	require.Contains(t, spans[0].Text, "Header1")
	require.Contains(t, spans[1].Text, "Header2")
	require.Contains(t, spans[2].Text, "Header3")
}

func TestChunkMarkdownFallsBackWithoutHeaders(t *testing.T) {
	spans := ChunkMarkdown("just a paragraph, no headers here", DefaultOptions())
	require.Len(t, spans, 1)
}

func TestChunkMarkdownSplitsOversizedSection(t *testing.T) {
	text := "# Small\nshort\n\n# Big\n" + strings.Repeat("word ", 500)
	spans := ChunkMarkdown(text, Options{Size: 200, Overlap: 20})
	require.True(t, len(spans) > 2, "the oversized second section should itself split into multiple spans")
	require.Equal(t, 1, spans[0].StartLine)
}

func TestChunkParagraphsMergesSmallParagraphs(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	spans := ChunkParagraphs(text, DefaultOptions())
	require.Len(t, spans, 1)
	require.Contains(t, spans[0].Text, "first paragraph")
	require.Contains(t, spans[0].Text, "third paragraph")
}

func TestChunkParagraphsStartsNewChunkPastSize(t *testing.T) {
	big := strings.Repeat("x", 90)
	text := big + "\n\n" + big + "\n\n" + big
	spans := ChunkParagraphs(text, Options{Size: 100, Overlap: 10})
	require.True(t, len(spans) > 1)
	for i := 1; i < len(spans); i++ {
		require.True(t, spans[i].StartLine > spans[i-1].StartLine)
	}
}
