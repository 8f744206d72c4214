package assembler

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/rerank"
)

const (
	// templateReserve leaves headroom for the prompt scaffolding around
	// the packed context.
	templateReserve = 100

	defaultSystemPrompt = `You are a helpful assistant that answers questions based on the provided context.
Your answers should be:
1. Accurate - only use information from the provided context
2. Well-cited - reference the source numbers when using information
3. Concise - provide clear, focused answers
4. Honest - if the context doesn't contain enough information, say so

When citing sources, use the format [Source N] where N is the source number.`
)

// ContextChunk is a passage admitted into the context window, with the
// attribution needed to cite it.
type ContextChunk struct {
	Text           string  `json:"text"`
	DocumentID     string  `json:"document_id"`
	ChunkIndex     int     `json:"chunk_index"`
	PageNumber     int     `json:"page_number,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AssembledContext is the packed context plus the final prompt.
type AssembledContext struct {
	ContextText string         `json:"context_text"`
	Chunks      []ContextChunk `json:"chunks"`
	TotalTokens int            `json:"total_tokens"`
	Truncated   bool           `json:"truncated"`
	Prompt      string         `json:"prompt"`
}

// Assembler packs ranked passages into a token budget and renders the
// generation prompt.
type Assembler struct {
	maxContextTokens int
	counter          TokenCounter
	logger           *logrus.Logger
}

func New(maxContextTokens int, counter TokenCounter, logger *logrus.Logger) *Assembler {
	if counter == nil {
		counter = NewTokenCounter("cl100k_base")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Assembler{
		maxContextTokens: maxContextTokens,
		counter:          counter,
		logger:           logger,
	}
}

func (a *Assembler) CountTokens(text string) int {
	return a.counter.Count(text)
}

// Assemble packs documents in rank order until the next one would exceed
// the remaining budget, then stops. Documents are never reordered or
// partially included. An empty systemPrompt selects the default.
func (a *Assembler) Assemble(query string, docs []rerank.RankedDocument, systemPrompt string) AssembledContext {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	budget := a.maxContextTokens - a.counter.Count(systemPrompt) - a.counter.Count(query) - templateReserve

	var (
		chunks       []ContextChunk
		contextParts []string
		usedTokens   int
		truncated    bool
	)

	for _, doc := range docs {
		formatted := formatChunk(doc, len(chunks)+1)
		tokens := a.counter.Count(formatted)
		if usedTokens+tokens > budget {
			truncated = true
			break
		}

		chunks = append(chunks, ContextChunk{
			Text:           doc.Text,
			DocumentID:     metaString(doc.Metadata, "document_id"),
			ChunkIndex:     metaInt(doc.Metadata, "chunk_index"),
			PageNumber:     metaInt(doc.Metadata, "page_number"),
			RelevanceScore: doc.Score,
		})
		contextParts = append(contextParts, formatted)
		usedTokens += tokens
	}

	contextText := strings.Join(contextParts, "\n\n")
	prompt := buildPrompt(systemPrompt, contextText, query)

	a.logger.WithFields(logrus.Fields{
		"candidates": len(docs),
		"included":   len(chunks),
		"truncated":  truncated,
	}).Debug("Assembled context")

	return AssembledContext{
		ContextText: contextText,
		Chunks:      chunks,
		TotalTokens: a.counter.Count(prompt),
		Truncated:   truncated,
		Prompt:      prompt,
	}
}

func formatChunk(doc rerank.RankedDocument, index int) string {
	var sourceInfo []string
	if id := metaString(doc.Metadata, "document_id"); id != "" {
		sourceInfo = append(sourceInfo, "Document: "+id)
	}
	if page := metaInt(doc.Metadata, "page_number"); page > 0 {
		sourceInfo = append(sourceInfo, fmt.Sprintf("Page: %d", page))
	}

	source := "Unknown source"
	if len(sourceInfo) > 0 {
		source = strings.Join(sourceInfo, " | ")
	}
	return fmt.Sprintf("[Source %d: %s]\n%s", index, source, doc.Text)
}

func buildPrompt(systemPrompt, context, query string) string {
	return fmt.Sprintf(`%s

## Context
The following are relevant excerpts from the documents:

%s

## Question
%s

## Answer
Based on the provided context, `, systemPrompt, context, query)
}

func metaString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

func metaInt(metadata map[string]interface{}, key string) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case int:
		return v
	case float64: // json.Unmarshal decodes numbers as float64
		return int(v)
	}
	return 0
}
