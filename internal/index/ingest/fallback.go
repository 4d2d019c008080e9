package ingest

import (
	"fmt"

	"github.com/spf13/afero"

	"aura/internal/index/chunk"
)

// fallbackIngestor handles anything no other ingestor claims: binary
// assets and unrecognized extensions (unparseable Go source goes to the text
// ingestor instead). It emits a single placeholder chunk naming the file and
// its size, not the file's contents, and a warning rather than failing the
// run, per
// spec.md's "never abort the whole index because one file is unrecognized"
// requirement.
type fallbackIngestor struct{}

func (fallbackIngestor) Supports(string) bool { return true }

func (fallbackIngestor) Ingest(fs afero.Fs, path string, _ chunk.Options) (Result, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest(fallback): stat %s: %w", path, err)
	}

	text := fmt.Sprintf("[unindexed file: %s, %d bytes]", path, info.Size())
	return Result{
		Chunks: []ChunkRecord{{
			SourcePath: path, Seq: 0, Text: text,
			StartLine: 1, EndLine: 1, Ingestor: "fallback",
		}},
		Warning: "no language-aware or text ingestor claimed this file",
	}, nil
}
