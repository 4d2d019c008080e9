// Package chunk implements the text chunker shared by every C3 ingestor:
// splitting source text into overlapping spans such that concatenating the
// non-overlapping portions reproduces the original text exactly, never
// emitting an empty chunk, and preserving source order.
package chunk

import (
	"regexp"
	"strings"
)

// Options configures chunk sizing.
type Options struct {
	Size    int // target chunk size in runes
	Overlap int // overlap between consecutive chunks, in runes
}

// DefaultOptions mirrors internal/config's index defaults.
func DefaultOptions() Options {
	return Options{Size: 1200, Overlap: 150}
}

// Span is one chunk of source text with its line range (1-indexed,
// inclusive) within the original document.
type Span struct {
	Text      string
	StartLine int
	EndLine   int
}

// Chunk splits text into overlapping Spans. Line numbers are computed from
// newline counts so downstream consumers (the code graph, search results)
// can point a user back at the original file.
func Chunk(text string, opts Options) []Span {
	if text == "" {
		return nil
	}
	if opts.Size <= 0 {
		opts = DefaultOptions()
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 4
	}

	runes := []rune(text)
	lineStarts := computeLineStarts(runes)

	var spans []Span
	start := 0
	for start < len(runes) {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimRight(string(runes[start:end]), "")
		if piece != "" {
			spans = append(spans, Span{
				Text:      piece,
				StartLine: lineForOffset(lineStarts, start),
				EndLine:   lineForOffset(lineStarts, end-1),
			})
		}
		if end == len(runes) {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

var markdownHeaderPattern = regexp.MustCompile(`^#{1,6}\s`)

// rawSection is one boundary-delimited unit of source text, not yet sized
// against Options.Size.
type rawSection struct {
	Text      string
	StartLine int
}

// ChunkMarkdown splits text on markdown header boundaries (ATX headers, "#"
// through "######"), emitting exactly one chunk per section and never
// merging two sections together even if both are small, per the chunker
// contract's "for markdown, prefer header boundaries, never across the top
// of a new section". A section larger than opts.Size is itself split with
// the fixed-size fallback, offset to the section's position in the file.
// Falls back to ChunkParagraphs when the header split yields a single
// section (no headers, or one header with no text before it).
func ChunkMarkdown(text string, opts Options) []Span {
	if text == "" {
		return nil
	}
	if opts.Size <= 0 {
		opts = DefaultOptions()
	}
	sections := splitOnPattern(text, markdownHeaderPattern)
	if len(sections) <= 1 {
		return ChunkParagraphs(text, opts)
	}
	return chunkSectionsNoMerge(sections, opts)
}

// ChunkParagraphs splits text on blank-line paragraph boundaries, merging
// adjacent paragraphs up to opts.Size before starting a new chunk; chunks
// built from merged paragraphs carry no overlap. A single paragraph larger than
// opts.Size is split with the fixed-size fallback. Falls back to the plain
// fixed-size Chunk when the text has no blank-line-separated paragraphs.
func ChunkParagraphs(text string, opts Options) []Span {
	if text == "" {
		return nil
	}
	if opts.Size <= 0 {
		opts = DefaultOptions()
	}
	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		return Chunk(text, opts)
	}
	return mergeSections(paragraphs, opts)
}

// splitOnPattern breaks text into sections, starting a new section every
// time a line matches boundary (the boundary line itself opens the new
// section), tracking each section's 1-indexed starting line.
func splitOnPattern(text string, boundary *regexp.Regexp) []rawSection {
	lines := strings.Split(text, "\n")
	var sections []rawSection
	var cur []string
	curStart := 1
	for i, line := range lines {
		lineNo := i + 1
		if boundary.MatchString(line) && len(cur) > 0 {
			sections = append(sections, rawSection{Text: strings.Join(cur, "\n"), StartLine: curStart})
			cur = nil
			curStart = lineNo
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		sections = append(sections, rawSection{Text: strings.Join(cur, "\n"), StartLine: curStart})
	}
	return sections
}

// splitParagraphs breaks text into sections on runs of one or more blank
// lines, dropping the blank lines themselves and tracking each paragraph's
// 1-indexed starting line.
func splitParagraphs(text string) []rawSection {
	lines := strings.Split(text, "\n")
	var sections []rawSection
	var cur []string
	curStart := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				sections = append(sections, rawSection{Text: strings.Join(cur, "\n"), StartLine: curStart + 1})
				cur = nil
			}
			continue
		}
		if len(cur) == 0 {
			curStart = i
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		sections = append(sections, rawSection{Text: strings.Join(cur, "\n"), StartLine: curStart + 1})
	}
	return sections
}

// chunkSectionsNoMerge emits one Span per section, splitting with the
// fixed-size fallback only when a section alone exceeds opts.Size.
func chunkSectionsNoMerge(sections []rawSection, opts Options) []Span {
	var spans []Span
	for _, sec := range sections {
		trimmed := strings.TrimRight(sec.Text, "\n")
		if trimmed == "" {
			continue
		}
		if len([]rune(sec.Text)) <= opts.Size {
			spans = append(spans, Span{
				Text:      trimmed,
				StartLine: sec.StartLine,
				EndLine:   sec.StartLine + strings.Count(sec.Text, "\n"),
			})
			continue
		}
		spans = append(spans, splitOversizedSection(sec, opts)...)
	}
	return spans
}

// mergeSections emits one Span per run of sections whose combined size
// fits within opts.Size, starting a new chunk once the next section would
// overflow it. A section alone larger than opts.Size is split with the
// fixed-size fallback instead of being merged.
func mergeSections(sections []rawSection, opts Options) []Span {
	var spans []Span
	var buf []string
	var bufStart, bufEnd int

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.TrimRight(strings.Join(buf, "\n"), "\n")
		if text != "" {
			spans = append(spans, Span{Text: text, StartLine: bufStart, EndLine: bufEnd})
		}
		buf = nil
	}

	for _, sec := range sections {
		secEnd := sec.StartLine + strings.Count(sec.Text, "\n")
		if len([]rune(sec.Text)) > opts.Size {
			flush()
			spans = append(spans, splitOversizedSection(sec, opts)...)
			continue
		}

		if len(buf) > 0 {
			projected := len([]rune(strings.Join(buf, "\n"))) + 1 + len([]rune(sec.Text))
			if projected > opts.Size {
				flush()
			}
		}
		if len(buf) == 0 {
			bufStart = sec.StartLine
		}
		buf = append(buf, sec.Text)
		bufEnd = secEnd
	}
	flush()
	return spans
}

// splitOversizedSection runs the fixed-size chunker over one section whose
// own text exceeds opts.Size, translating the resulting line numbers from
// section-relative to document-relative.
func splitOversizedSection(sec rawSection, opts Options) []Span {
	var spans []Span
	for _, inner := range Chunk(sec.Text, opts) {
		spans = append(spans, Span{
			Text:      inner.Text,
			StartLine: sec.StartLine + inner.StartLine - 1,
			EndLine:   sec.StartLine + inner.EndLine - 1,
		})
	}
	return spans
}

func computeLineStarts(runes []rune) []int {
	starts := []int{0}
	for i, r := range runes {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineForOffset(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
