package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/resilience"
	"github.com/sells-group/estimate-cli/pkg/anthropic"
	"github.com/sells-group/estimate-cli/pkg/gemini"
)

// ErrEmptyCompletion is returned when a provider answers without text.
var ErrEmptyCompletion = eris.New("summary: completion has no text")

// Completer sends a prompt to an AI provider and returns the first
// candidate's text.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter adapts a gemini.Client.
type GeminiCompleter struct {
	Client gemini.Client
}

func (g GeminiCompleter) Provider() string { return "gemini" }

func (g GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Client.GenerateText(ctx, prompt)
	if err != nil {
		if errors.Is(err, gemini.ErrEmptyResponse) {
			return "", ErrEmptyCompletion
		}
		return "", err
	}
	resp.Usage.LogCost(resp.Model, "summary")
	return resp.Text, nil
}

// AnthropicCompleter adapts an anthropic.Client.
type AnthropicCompleter struct {
	Client    anthropic.Client
	Model     string
	MaxTokens int64
}

func (a AnthropicCompleter) Provider() string { return "anthropic" }

func (a AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	resp, err := a.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(a.Model, "summary")
	return resp.Text(), nil
}

// GeneratorConfig tunes retries and the provider circuit breaker.
type GeneratorConfig struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Generator renders prompts and calls the configured Completer with retry
// and a per-provider circuit breaker.
type Generator struct {
	completer Completer
	retry     resilience.RetryConfig
	breakers  *resilience.ServiceBreakers
}

// NewGenerator creates a Generator for completer.
func NewGenerator(completer Completer, cfg GeneratorConfig) *Generator {
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}
	retry.OnRetry = resilience.RetryLogger(completer.Provider(), "summary")

	cb := resilience.DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		cb.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeout > 0 {
		cb.ResetTimeout = cfg.ResetTimeout
	}
	// Only provider-side failures count against the breaker.
	cb.ShouldTrip = resilience.IsTransient
	cb.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("summary: provider circuit changed",
			zap.String("provider", completer.Provider()),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	return &Generator{
		completer: completer,
		retry:     retry,
		breakers:  resilience.NewServiceBreakers(cb),
	}
}

// Provider names the underlying completion provider.
func (g *Generator) Provider() string { return g.completer.Provider() }

// CircuitStates reports the breaker state of every provider called so far.
func (g *Generator) CircuitStates() map[string]string {
	out := make(map[string]string)
	for name, st := range g.breakers.States() {
		out[name] = st.String()
	}
	return out
}

// Generate sends prompt and returns the completion text. Every failure is
// a *model.AIGenerationError.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	provider := g.completer.Provider()
	cb := g.breakers.Get(provider)

	text, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
			return g.completer.Complete(ctx, prompt)
		})
	})
	if err != nil {
		return "", &model.AIGenerationError{Provider: provider, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &model.AIGenerationError{Provider: provider, Err: ErrEmptyCompletion}
	}
	return text, nil
}

// Render builds the prompt for in from tmpl.
func (g *Generator) Render(tmpl string, in Input) string {
	return Render(tmpl, in.Data())
}
