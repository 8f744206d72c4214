package pipeline

import (
	"fmt"
	"strings"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/rerank"
)

func apperrNoDocuments() error {
	return apperr.NotFound("no relevant documents found, upload documents first")
}

// extractiveAnswer stitches the top passages into a readable reply when
// no completion provider is credentialed.
func extractiveAnswer(ranked []rerank.RankedDocument) string {
	if len(ranked) == 0 {
		return "No relevant information found in the documents."
	}

	var b strings.Builder
	b.WriteString("Based on the documents, here's what I found:\n")
	for i, doc := range ranked {
		if i == 3 {
			break
		}
		excerpt := doc.Text
		if len(excerpt) > fallbackExcerptLimit {
			excerpt = excerpt[:fallbackExcerptLimit]
		}
		fmt.Fprintf(&b, "\n[Source %d]: %s...", i+1, excerpt)
	}
	b.WriteString("\n\n(Note: answer generation is not available. This is a fallback response showing relevant excerpts.)")
	return b.String()
}
