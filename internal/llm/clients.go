package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/documind/documind/internal/apperr"
)

const (
	groqBaseURL        = "https://api.groq.com/openai/v1"
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	perplexityBaseURL  = "https://api.perplexity.ai"
	huggingFaceBaseURL = "https://api-inference.huggingface.co"

	// Keys shorter than this are placeholders, not credentials.
	minKeyLength = 10
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func postJSON(ctx context.Context, client *http.Client, name, url, bearer string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Processing("marshal %s request: %v", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Upstream(name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Upstream(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Upstream(name, fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream(name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// GroqProvider calls Groq's OpenAI-compatible chat completion API.
type GroqProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGroqProvider(apiKey, model string, timeout time.Duration) *GroqProvider {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    groqBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *GroqProvider) Name() string    { return "groq" }
func (p *GroqProvider) Available() bool { return len(p.apiKey) > minKeyLength }

func (p *GroqProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerationResult, error) {
	start := time.Now()

	var out chatResponse
	err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/chat/completions", p.apiKey, chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, apperr.Upstream(p.Name(), fmt.Errorf("response contained no choices"))
	}

	return &GenerationResult{
		Text:             out.Choices[0].Message.Content,
		Provider:         p.Name(),
		Model:            p.model,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		LatencyMS:        float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// GeminiProvider calls the Google Generative Language API. The key is
// passed as a query parameter, not a bearer token.
type GeminiProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey, model string, timeout time.Duration) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Name() string    { return "gemini" }
func (p *GeminiProvider) Available() bool { return len(p.apiKey) > minKeyLength }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerationResult, error) {
	start := time.Now()

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	payload.GenerationConfig.MaxOutputTokens = opts.MaxTokens
	payload.GenerationConfig.Temperature = opts.Temperature

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)

	var out geminiResponse
	if err := postJSON(ctx, p.httpClient, p.Name(), url, "", payload, &out); err != nil {
		return nil, err
	}

	var text string
	if len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0 {
		text = out.Candidates[0].Content.Parts[0].Text
	}

	// Gemini does not report token usage in this envelope.
	return &GenerationResult{
		Text:      text,
		Provider:  p.Name(),
		Model:     p.model,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// PerplexityProvider calls Perplexity's OpenAI-compatible API.
type PerplexityProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewPerplexityProvider(apiKey, model string, timeout time.Duration) *PerplexityProvider {
	if model == "" {
		model = "llama-3.1-sonar-small-128k-online"
	}
	return &PerplexityProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    perplexityBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *PerplexityProvider) Name() string    { return "perplexity" }
func (p *PerplexityProvider) Available() bool { return len(p.apiKey) > minKeyLength }

func (p *PerplexityProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerationResult, error) {
	start := time.Now()

	var out chatResponse
	err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/chat/completions", p.apiKey, chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, apperr.Upstream(p.Name(), fmt.Errorf("response contained no choices"))
	}

	return &GenerationResult{
		Text:             out.Choices[0].Message.Content,
		Provider:         p.Name(),
		Model:            p.model,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		LatencyMS:        float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// HuggingFaceProvider calls the HuggingFace Inference API. It works
// without a token (rate limited) and therefore always reports available.
type HuggingFaceProvider struct {
	token      string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewHuggingFaceProvider(token, model string, timeout time.Duration) *HuggingFaceProvider {
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.1"
	}
	return &HuggingFaceProvider{
		token:      token,
		model:      model,
		baseURL:    huggingFaceBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HuggingFaceProvider) Name() string    { return "huggingface" }
func (p *HuggingFaceProvider) Available() bool { return true }

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int     `json:"max_new_tokens"`
		Temperature    float64 `json:"temperature"`
		ReturnFullText bool    `json:"return_full_text"`
	} `json:"parameters"`
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerationResult, error) {
	start := time.Now()

	payload := hfRequest{Inputs: prompt}
	payload.Parameters.MaxNewTokens = opts.MaxTokens
	payload.Parameters.Temperature = opts.Temperature
	payload.Parameters.ReturnFullText = false

	// The inference API answers with either a bare object or a
	// one-element array depending on the model.
	var raw json.RawMessage
	url := fmt.Sprintf("%s/models/%s", p.baseURL, p.model)
	if err := postJSON(ctx, p.httpClient, p.Name(), url, p.token, payload, &raw); err != nil {
		return nil, err
	}

	type generated struct {
		GeneratedText string `json:"generated_text"`
	}
	var text string
	var list []generated
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		text = list[0].GeneratedText
	} else {
		var single generated
		if err := json.Unmarshal(raw, &single); err == nil {
			text = single.GeneratedText
		}
	}

	return &GenerationResult{
		Text:      text,
		Provider:  p.Name(),
		Model:     p.model,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}
