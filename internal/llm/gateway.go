package llm

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/config"
)

// Gateway selects a completion provider by credential presence and runs
// generation against it. Selection happens before the call; a provider
// that fails mid-call is not retried elsewhere, since a partial answer
// from a second model would not be coherent with the first attempt.
type Gateway struct {
	providers []Provider
	opts      GenerateOptions
	logger    *logrus.Logger
}

// NewGateway builds the provider chain in priority order. Groq first for
// latency, then Gemini and Perplexity, with HuggingFace as the terminal
// fallback that needs no credentials.
func NewGateway(cfg config.LLMConfig, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		providers: []Provider{
			NewGroqProvider(cfg.GroqAPIKey, cfg.GroqModel, cfg.Timeout),
			NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout),
			NewPerplexityProvider(cfg.PerplexityAPIKey, cfg.PerplexityModel, cfg.Timeout),
			NewHuggingFaceProvider(cfg.HuggingFaceToken, cfg.HuggingFaceModel, cfg.Timeout),
		},
		opts: GenerateOptions{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		logger: logger,
	}
}

// NewGatewayWithProviders wires an explicit provider chain. Used by tests
// and by deployments that disable providers.
func NewGatewayWithProviders(providers []Provider, opts GenerateOptions, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{providers: providers, opts: opts, logger: logger}
}

// SelectAvailable returns the first credentialed provider in priority
// order, or nil when every provider is unavailable.
func (g *Gateway) SelectAvailable() Provider {
	for _, p := range g.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

// Generate runs one completion against the selected provider. A nil
// result with a nil error means no provider was available; callers fall
// back to extractive answers.
func (g *Gateway) Generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	provider := g.SelectAvailable()
	if provider == nil {
		g.logger.Warn("No completion provider available")
		return nil, nil
	}

	g.logger.WithField("provider", provider.Name()).Debug("Dispatching generation")
	result, err := provider.Generate(ctx, prompt, g.opts)
	if err != nil {
		g.logger.WithError(err).WithField("provider", provider.Name()).Error("Generation failed")
		return nil, err
	}
	return result, nil
}
