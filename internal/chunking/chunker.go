// Package chunking splits document text into bounded, overlapping
// passages used as the unit of embedding and retrieval.
package chunking

import (
	"regexp"
	"strings"
)

// Chunk is a bounded, possibly overlapping span of a document's cleaned
// text. Offsets refer to the whitespace-normalized text, not the raw
// upload.
type Chunk struct {
	Text        string `json:"text"`
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	PageNumber  int    `json:"page_number,omitempty"`
	DocumentID  string `json:"document_id,omitempty"`
}

// Config configures chunk size limits and the separator cascade.
type Config struct {
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	MinChunkSize int      `json:"min_chunk_size"`
	Separators   []string `json:"separators,omitempty"`
}

// DefaultConfig returns the default chunking configuration. Separators
// run coarse to fine; the empty separator forces a character-level split.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:    512,
		ChunkOverlap: 50,
		MinChunkSize: 100,
		Separators:   []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""},
	}
}

var (
	spaceRuns   = regexp.MustCompile(` +`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// RecursiveChunker splits text at natural boundaries, falling back to
// progressively finer separators for pieces that still exceed the size
// limit, then merges pieces greedily with a word-boundary overlap.
type RecursiveChunker struct {
	config *Config
}

// NewRecursiveChunker creates a recursive chunker. A nil config uses
// defaults; an overlap >= chunk size is clamped to a quarter of the
// chunk size so the stride stays positive.
func NewRecursiveChunker(config *Config) *RecursiveChunker {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultConfig().Separators
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 4
	}
	return &RecursiveChunker{config: config}
}

// Chunk splits text into chunks with sequential indices and offsets
// located in the cleaned text. Empty or whitespace-only input yields nil.
func (c *RecursiveChunker) Chunk(text, documentID string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := CleanText(text)
	splits := c.splitText(cleaned, c.config.Separators)
	merged := c.mergeSplits(splits)

	return c.locate(cleaned, merged, documentID)
}

// CleanText normalizes whitespace: runs of spaces collapse to one, runs
// of three or more newlines collapse to a paragraph break, and the ends
// are trimmed.
func CleanText(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitText recursively splits text with the separator cascade. Any
// piece still exceeding the chunk size is split again with the
// next-finer separator.
func (c *RecursiveChunker) splitText(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.config.ChunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return c.splitByCharacters(text)
	}

	separator := separators[0]
	remaining := separators[1:]

	if separator == "" {
		return c.splitByCharacters(text)
	}

	// Re-attach every separator so the pieces concatenate back to the
	// input and merged chunks stay verbatim slices of the cleaned text.
	// Separators in front of empty parts carry over to the next piece.
	var result []string
	pending := ""
	for i, part := range strings.Split(text, separator) {
		if i > 0 {
			pending += separator
		}
		if part == "" {
			continue
		}
		piece := pending + part
		pending = ""
		if len(piece) <= c.config.ChunkSize {
			result = append(result, piece)
		} else {
			result = append(result, c.splitText(piece, remaining)...)
		}
	}
	if pending != "" && len(result) > 0 {
		result[len(result)-1] += pending
	}
	return result
}

// splitByCharacters is the last resort: a stride split with step
// chunkSize - chunkOverlap.
func (c *RecursiveChunker) splitByCharacters(text string) []string {
	step := c.config.ChunkSize - c.config.ChunkOverlap
	var chunks []string
	for i := 0; i < len(text); i += step {
		end := i + c.config.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		if chunk := text[i:end]; chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// mergeSplits accumulates successive pieces into a growing buffer and
// flushes when the next piece would exceed the chunk size. The next
// buffer is seeded with an overlap tail from the flushed chunk.
func (c *RecursiveChunker) mergeSplits(splits []string) []string {
	if len(splits) == 0 {
		return nil
	}

	var merged []string
	current := ""

	for _, split := range splits {
		if len(current)+len(split) > c.config.ChunkSize {
			if current != "" {
				merged = append(merged, strings.TrimSpace(current))
				if c.config.ChunkOverlap > 0 {
					// The seed must leave room for the piece that
					// triggered the flush, or the next flush would
					// emit an oversized chunk.
					tail := c.overlapTail(current)
					for tail != "" && len(tail)+len(split) > c.config.ChunkSize {
						if idx := strings.Index(tail, " "); idx >= 0 {
							tail = tail[idx+1:]
						} else {
							tail = ""
						}
					}
					current = tail + split
				} else {
					current = split
				}
			} else {
				current = split
			}
		} else {
			current += split
		}
	}

	if strings.TrimSpace(current) != "" {
		merged = append(merged, strings.TrimSpace(current))
	}
	return merged
}

// overlapTail returns up to ChunkOverlap trailing characters of text,
// trimmed forward to the nearest word boundary so the next chunk does
// not start mid-word.
func (c *RecursiveChunker) overlapTail(text string) string {
	if len(text) <= c.config.ChunkOverlap {
		return text
	}
	overlap := text[len(text)-c.config.ChunkOverlap:]
	if idx := strings.Index(overlap, " "); idx > 0 {
		overlap = overlap[idx+1:]
	}
	return overlap
}

// locate assigns indices and finds each chunk's offset in the cleaned
// text by searching for its leading 50 characters from the previous
// chunk's end minus overlap. Identical leading substrings can recur, so
// a miss falls back to the running offset.
func (c *RecursiveChunker) locate(cleaned string, merged []string, documentID string) []Chunk {
	result := make([]Chunk, 0, len(merged))
	offset := 0

	for i, text := range merged {
		probe := text
		if len(probe) > 50 {
			probe = probe[:50]
		}

		start := offset
		if idx := strings.Index(cleaned[min(offset, len(cleaned)):], probe); idx >= 0 {
			start = offset + idx
		}

		result = append(result, Chunk{
			Text:        text,
			Index:       i,
			StartOffset: start,
			EndOffset:   start + len(text),
			DocumentID:  documentID,
		})

		offset = start + len(text) - c.config.ChunkOverlap
		if offset < 0 {
			offset = 0
		}
	}
	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
