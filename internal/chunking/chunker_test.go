package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 512, config.ChunkSize)
	assert.Equal(t, 50, config.ChunkOverlap)
	assert.Equal(t, "\n\n", config.Separators[0])
	assert.Equal(t, "", config.Separators[len(config.Separators)-1])
}

func TestNewRecursiveChunker_ClampsBadOverlap(t *testing.T) {
	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 100})
	assert.Equal(t, 25, chunker.config.ChunkOverlap)
}

func TestCleanText(t *testing.T) {
	cleaned := CleanText("  a    b\n\n\n\n\nc  ")

	assert.Equal(t, "a b\n\nc", cleaned)
}

func TestRecursiveChunker_EmptyInput(t *testing.T) {
	chunker := NewRecursiveChunker(nil)

	assert.Empty(t, chunker.Chunk("", "doc"))
	assert.Empty(t, chunker.Chunk("   \n\t  ", "doc"))
}

func TestRecursiveChunker_SmallTextSingleChunk(t *testing.T) {
	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 20})

	chunks := chunker.Chunk("A short paragraph that fits.", "doc-1")

	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph that fits.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(chunks[0].Text), chunks[0].EndOffset)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestRecursiveChunker_SplitsAtParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("alpha bravo ", 10) // 120 chars
	para2 := strings.Repeat("delta echos ", 10) // 120 chars
	text := para1 + "\n\n" + para2

	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 20})
	chunks := chunker.Chunk(text, "doc")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100, "chunk %d exceeds size: %q", c.Index, c.Text)
	}
	// The second paragraph's content must not share a chunk with the
	// first beyond the overlap tail.
	assert.GreaterOrEqual(t, len(chunks), 2)
}

func TestRecursiveChunker_SizeBoundHolds(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	cases := []struct {
		size    int
		overlap int
	}{
		{50, 0},
		{100, 20},
		{128, 64},
		{512, 50},
	}

	for _, tc := range cases {
		chunker := NewRecursiveChunker(&Config{ChunkSize: tc.size, ChunkOverlap: tc.overlap})
		for _, c := range chunker.Chunk(text, "doc") {
			assert.LessOrEqual(t, len(c.Text), tc.size,
				"size=%d overlap=%d produced oversized chunk", tc.size, tc.overlap)
		}
	}
}

func TestRecursiveChunker_IndicesAndOffsetsMonotonic(t *testing.T) {
	text := strings.Repeat("Sentence number one here. Another follows right after. ", 30)

	chunker := NewRecursiveChunker(&Config{ChunkSize: 120, ChunkOverlap: 30})
	chunks := chunker.Chunk(text, "doc")

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Less(t, c.StartOffset, c.EndOffset)
		if i > 0 {
			assert.GreaterOrEqual(t, c.StartOffset, chunks[i-1].StartOffset)
		}
	}
}

func TestRecursiveChunker_OverlapBounded(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit sed do ", 20)

	overlap := 25
	chunker := NewRecursiveChunker(&Config{ChunkSize: 150, ChunkOverlap: overlap})
	chunks := chunker.Chunk(text, "doc")

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		gap := chunks[i].StartOffset - chunks[i-1].EndOffset
		// Consecutive chunks may overlap by at most the configured
		// overlap (a negative gap is the overlap region).
		assert.GreaterOrEqual(t, gap, -overlap)
	}
}

func TestRecursiveChunker_OverlapStartsAtWordBoundary(t *testing.T) {
	para1 := strings.Repeat("alpha bravo ", 10)
	para2 := strings.Repeat("delta echos ", 10)
	text := para1 + "\n\n" + para2

	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 20})
	chunks := chunker.Chunk(text, "doc")

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		first := strings.SplitN(chunks[i].Text, " ", 2)[0]
		// The seeded overlap was trimmed to a word boundary, so the
		// chunk must open with a word that appears in the text.
		assert.Contains(t, CleanText(text), first)
		assert.False(t, strings.HasPrefix(chunks[i].Text, " "))
	}
}

func TestRecursiveChunker_WordSplitKeepsSpaces(t *testing.T) {
	para1 := strings.Repeat("alpha bravo ", 10)
	para2 := strings.Repeat("delta echos ", 10)
	text := para1 + "\n\n" + para2
	cleaned := CleanText(text)

	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 20})
	chunks := chunker.Chunk(text, "doc")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		// Word-level splits must re-join with their separator, so every
		// chunk stays a verbatim slice of the cleaned text.
		assert.Contains(t, cleaned, c.Text, "chunk %d lost its word boundaries: %q", c.Index, c.Text)
		assert.Contains(t, c.Text, " ")
	}
}

func TestRecursiveChunker_SingleLongTokenForceSplit(t *testing.T) {
	token := strings.Repeat("x", 350)

	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 20})
	chunks := chunker.Chunk(token, "doc")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
	}
	// Stride is size - overlap, so the force split covers the token.
	total := 0
	for _, c := range chunks {
		total += len(c.Text)
	}
	assert.GreaterOrEqual(t, total, 350)
}

func TestRecursiveChunker_ZeroOverlap(t *testing.T) {
	text := strings.Repeat("word ", 200)

	chunker := NewRecursiveChunker(&Config{ChunkSize: 100, ChunkOverlap: 0})
	chunks := chunker.Chunk(text, "doc")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
	}
}
