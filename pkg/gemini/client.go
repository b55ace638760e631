// Package gemini wraps the Gemini generateContent API for single-prompt text
// generation.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sells-group/estimate-cli/internal/resilience"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the response has no candidate text.
var ErrEmptyResponse = eris.New("gemini: response has no candidate text")

// Client generates text from a prompt.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (*TextResponse, error)
}

// TextResponse is the first candidate's text and token usage.
type TextResponse struct {
	Text  string
	Model string
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens    int32
	CandidateTokens int32
	TotalTokens     int32
}

// LogCost logs token usage for a stage.
func (u TokenUsage) LogCost(model, stage string) {
	zap.L().Info("cost attribution",
		zap.String("provider", "gemini"),
		zap.String("model", model),
		zap.String("stage", stage),
		zap.Int32("input_tokens", u.PromptTokens),
		zap.Int32("output_tokens", u.CandidateTokens),
	)
}

// Option configures the client.
type Option func(*options)

type options struct {
	model       string
	baseURL     string
	httpClient  *http.Client
	temperature *float32
}

// WithModel overrides DefaultModel.
func WithModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.model = m
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = &t }
}

type genaiClient struct {
	models      *genai.Models
	model       string
	temperature *float32
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	o := options{model: DefaultModel}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &genaiClient{models: cli.Models, model: o.model, temperature: o.temperature}, nil
}

func (c *genaiClient) GenerateText(ctx context.Context, prompt string) (*TextResponse, error) {
	var cfg *genai.GenerateContentConfig
	if c.temperature != nil {
		cfg = &genai.GenerateContentConfig{Temperature: c.temperature}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, classify(err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	out := &TextResponse{Text: text, Model: c.model}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			PromptTokens:    resp.UsageMetadata.PromptTokenCount,
			CandidateTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:     resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var parts []string
	for _, p := range content.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// classify marks retryable API failures as transient.
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	wrapped := eris.Wrap(err, "gemini: generate content")
	if resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(wrapped, code)
	}
	return wrapped
}
