package llm

import (
	"context"
)

// GenerationResult is the outcome of a single completion call.
type GenerationResult struct {
	Text             string  `json:"text"`
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	LatencyMS        float64 `json:"latency_ms"`
}

// GenerateOptions are per-call generation parameters.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Provider is a single upstream completion service.
type Provider interface {
	// Name identifies the provider in responses and logs.
	Name() string
	// Available reports whether the provider is credentialed well enough
	// to attempt a call. It does not probe the network.
	Available() bool
	// Generate runs one completion. A failed call returns an error; the
	// caller decides whether to try another provider.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerationResult, error)
}
