package chunking

import (
	"strings"
)

// SentenceAwareChunker accumulates whole sentences up to the chunk size,
// extending chunks below the minimum size instead of emitting them, and
// defers to the recursive algorithm only when a single sentence alone
// exceeds the chunk size.
type SentenceAwareChunker struct {
	config    *Config
	recursive *RecursiveChunker
}

// NewSentenceAwareChunker creates a sentence-aware chunker. A nil config
// uses defaults.
func NewSentenceAwareChunker(config *Config) *SentenceAwareChunker {
	recursive := NewRecursiveChunker(config)
	return &SentenceAwareChunker{
		config:    recursive.config,
		recursive: recursive,
	}
}

// Chunk splits text on sentence boundaries and packs sentences into
// chunks. Empty or whitespace-only input yields nil.
func (c *SentenceAwareChunker) Chunk(text, documentID string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := CleanText(text)
	sentences := SplitSentences(cleaned)

	var chunks []Chunk
	current := ""
	index := 0
	start := 0

	emit := func(text string) {
		end := start + len(text)
		chunks = append(chunks, Chunk{
			Text:        text,
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
			DocumentID:  documentID,
		})
		index++
		start = end - c.config.ChunkOverlap
		if start < 0 {
			start = 0
		}
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		potential := sentence
		if current != "" {
			potential = current + " " + sentence
		}

		if len(potential) <= c.config.ChunkSize {
			current = potential
			continue
		}

		if len(current) >= c.config.MinChunkSize {
			emit(current)
			current = c.recursive.overlapTail(current) + " " + sentence
		} else {
			// Below the floor: extend rather than emit.
			current = potential
		}

		// A single oversized sentence falls back to recursive splitting.
		// Sub-chunk offsets are rebased onto the document position.
		if len(current) > c.config.ChunkSize {
			for _, sub := range c.recursive.Chunk(current, documentID) {
				sub.Index = index
				sub.StartOffset += start
				sub.EndOffset += start
				chunks = append(chunks, sub)
				index++
			}
			if n := len(chunks); n > 0 {
				start = chunks[n-1].EndOffset - c.config.ChunkOverlap
				if start < 0 {
					start = 0
				}
			}
			current = ""
		}
	}

	// The trailing remainder is dropped below the floor unless it is the
	// only content the document produced.
	current = strings.TrimSpace(current)
	if current != "" && (len(current) >= c.config.MinChunkSize || len(chunks) == 0) {
		emit(current)
	}

	return chunks
}

// SplitSentences splits text after sentence-ending punctuation followed
// by whitespace. The punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	begin := 0

	for i := 0; i < len(text)-1; i++ {
		ch := text[i]
		if (ch == '.' || ch == '!' || ch == '?') && isSpace(text[i+1]) {
			sentences = append(sentences, text[begin:i+1])
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			begin = j
			i = j - 1
		}
	}

	if begin < len(text) {
		sentences = append(sentences, text[begin:])
	}
	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
