package testutil

import (
	"context"
	"fmt"
	"sync"

	"notepilot/model"
)

// MockProvider implements model.Provider for testing.
type MockProvider struct {
	CompleteFunc   func(ctx context.Context, messages []model.Message) (string, error)
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	currentModel string
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.CompleteFunc = mock.defaultComplete
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultComplete(ctx context.Context, messages []model.Message) (string, error) {
	if len(messages) > 0 {
		return "Mock response", nil
	}
	return "", model.ErrEmptyCompletion
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", Size: 1000, Provider: "mock"},
		{Name: "mock-model-2", Size: 2000, Provider: "mock"},
	}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	return m.CompleteFunc(ctx, messages)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// ScriptedCompleter replays canned replies in order and records every request.
// Once the script is exhausted the last reply repeats.
type ScriptedCompleter struct {
	mu       sync.Mutex
	replies  []string
	errs     map[int]error
	requests [][]model.Message

	// BeforeReply runs inside Complete before the reply is returned, with the
	// zero-based request index. Tests use it to cancel mid-request.
	BeforeReply func(index int)
}

// NewScriptedCompleter creates a completer replying with replies in order.
func NewScriptedCompleter(replies ...string) *ScriptedCompleter {
	return &ScriptedCompleter{replies: replies, errs: map[int]error{}}
}

// FailAt makes request index fail with err.
func (s *ScriptedCompleter) FailAt(index int, err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[index] = err
	return s
}

func (s *ScriptedCompleter) Complete(ctx context.Context, messages []model.Message) (string, error) {
	s.mu.Lock()
	index := len(s.requests)
	copied := make([]model.Message, len(messages))
	copy(copied, messages)
	s.requests = append(s.requests, copied)
	hook := s.BeforeReply
	err := s.errs[index]
	s.mu.Unlock()

	if hook != nil {
		hook(index)
	}
	if err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("scripted completer has no replies")
	}
	if index >= len(s.replies) {
		return s.replies[len(s.replies)-1], nil
	}
	return s.replies[index], nil
}

// Calls returns how many requests were issued.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Request returns the messages of request index.
func (s *ScriptedCompleter) Request(index int) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[index]
}
