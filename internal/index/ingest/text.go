package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"aura/internal/index/chunk"
)

var markdownExtensions = map[string]bool{
	".md": true, ".markdown": true,
}

// textIngestor handles prose and structured-text files: markdown, rst,
// plain text, logs, and configuration formats. It also serves as the
// degrade target when the language-aware ingestor fails to parse a file.
// Markdown files split on header boundaries; everything else splits on
// paragraph boundaries, per spec.md §4.3's "splits by headers when
// markdown-like, otherwise by paragraph boundaries".
type textIngestor struct{}

func (textIngestor) Supports(path string) bool {
	return isTextExt(path)
}

func (textIngestor) Ingest(fs afero.Fs, path string, opts chunk.Options) (Result, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest(text): read %s: %w", path, err)
	}

	var spans []chunk.Span
	if markdownExtensions[strings.ToLower(filepath.Ext(path))] {
		spans = chunk.ChunkMarkdown(string(data), opts)
	} else {
		spans = chunk.ChunkParagraphs(string(data), opts)
	}

	var result Result
	for i, s := range spans {
		result.Chunks = append(result.Chunks, ChunkRecord{
			SourcePath: path, Seq: i, Text: s.Text,
			StartLine: s.StartLine, EndLine: s.EndLine, Ingestor: "text",
		})
	}
	return result, nil
}
