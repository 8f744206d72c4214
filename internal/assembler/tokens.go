package assembler

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens the way the downstream model's tokenizer would.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a BPE encoding. cl100k_base matches
// OpenAI-compatible models and is a reasonable approximation for the rest.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter for the named encoding, falling back
// to a heuristic counter when the encoding data cannot be loaded (for
// example on an offline host that has never cached the BPE files).
func NewTokenCounter(encodingName string) TokenCounter {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return HeuristicCounter{}
	}
	return &TiktokenCounter{encoding: encoding}
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// HeuristicCounter estimates roughly four characters per token, never
// undercounting below the word count. Deterministic and dependency free,
// used in tests and as the offline fallback.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	estimate := (len(text) + 3) / 4
	words := len(strings.Fields(text))
	if words > estimate {
		return words
	}
	return estimate
}
