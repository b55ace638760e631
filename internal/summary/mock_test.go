package summary

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estimate-cli/pkg/anthropic"
	"github.com/sells-group/estimate-cli/pkg/gemini"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Provider() string { return "mock" }

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) GenerateText(ctx context.Context, prompt string) (*gemini.TextResponse, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.TextResponse), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type memoryTemplateStore struct {
	mu    sync.Mutex
	tmpl  string
	saved bool
}

func (m *memoryTemplateStore) LoadTemplate(context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tmpl, m.saved, nil
}

func (m *memoryTemplateStore) SaveTemplate(_ context.Context, tmpl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tmpl, m.saved = tmpl, true
	return nil
}

func (m *memoryTemplateStore) ResetTemplate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tmpl, m.saved = "", false
	return nil
}
