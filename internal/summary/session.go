package summary

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/model"
)

// FailedPlaceholder is shown when generation fails after provisioning
// succeeded.
const FailedPlaceholder = "Executive summary could not be generated. Use regenerate to try again."

// ErrRegenerating is returned when a regeneration is already in flight.
var ErrRegenerating = eris.New("summary: regeneration already in progress")

// Session holds the summary for one submission. The automatic trigger fires
// at most once; Regenerate bypasses that latch.
type Session struct {
	gen *Generator

	mu      sync.Mutex
	state   model.SummaryState
	summary string
}

// NewSession starts a session in the not-generated state.
func NewSession(gen *Generator) *Session {
	return &Session{gen: gen, state: model.SummaryNotGenerated}
}

// State returns the current summary state.
func (s *Session) State() model.SummaryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// current returns the text currently shown.
func (s *Session) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Auto is the automatic trigger after provisioning. Only the first call
// generates; later calls return the current summary unchanged. With no
// services the placeholder is used and the provider is not called. On
// failure the failed placeholder is kept and the error is returned.
func (s *Session) Auto(ctx context.Context, tmpl string, in Input) (string, error) {
	s.mu.Lock()
	if s.state != model.SummaryNotGenerated {
		current := s.summary
		s.mu.Unlock()
		zap.L().Debug("summary: automatic trigger suppressed")
		return current, nil
	}
	s.state = model.SummaryRegenerating
	s.mu.Unlock()

	text, err := s.produce(ctx, tmpl, in)
	s.finish(text)
	return text, err
}

// Regenerate re-renders and re-generates regardless of the latch, replacing
// the shown summary. Concurrent regenerations are rejected.
func (s *Session) Regenerate(ctx context.Context, tmpl string, in Input) (string, error) {
	s.mu.Lock()
	if s.state == model.SummaryRegenerating {
		s.mu.Unlock()
		return "", ErrRegenerating
	}
	s.state = model.SummaryRegenerating
	s.mu.Unlock()

	text, err := s.produce(ctx, tmpl, in)
	s.finish(text)
	return text, err
}

func (s *Session) produce(ctx context.Context, tmpl string, in Input) (string, error) {
	if len(in.Services) == 0 {
		return NoServicesPlaceholder, nil
	}
	if s.gen == nil {
		return FailedPlaceholder, &model.AIGenerationError{Provider: "none", Err: eris.New("summary: no provider configured")}
	}
	text, err := s.gen.Generate(ctx, s.gen.Render(tmpl, in))
	if err != nil {
		zap.L().Warn("summary: generation failed", zap.String("provider", s.gen.Provider()), zap.Error(err))
		return FailedPlaceholder, err
	}
	return text, nil
}

func (s *Session) finish(text string) {
	s.mu.Lock()
	s.state = model.SummaryGenerated
	s.summary = text
	s.mu.Unlock()
}
