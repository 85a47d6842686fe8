package testutil

import (
	"context"
	"sync"

	"notepilot/model"
)

// TranscriptStore is an in-memory model.TranscriptStore preserving insertion order.
type TranscriptStore struct {
	mu       sync.Mutex
	order    []string
	messages map[string]model.ChatMessage
	upserts  int

	// Err, when set, is returned by every operation.
	Err error
}

// NewTranscriptStore returns a store seeded with messages.
func NewTranscriptStore(messages ...model.ChatMessage) *TranscriptStore {
	s := &TranscriptStore{messages: make(map[string]model.ChatMessage)}
	for _, m := range messages {
		s.order = append(s.order, m.ID)
		s.messages[m.ID] = m
	}
	return s
}

func (s *TranscriptStore) ListMessages(ctx context.Context) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]model.ChatMessage, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.messages[id])
	}
	return out, nil
}

func (s *TranscriptStore) UpsertMessage(ctx context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.Err != nil {
		return s.Err
	}

	if _, ok := s.messages[msg.ID]; !ok {
		s.order = append(s.order, msg.ID)
	}
	s.messages[msg.ID] = msg
	return nil
}

func (s *TranscriptStore) ClearMessages(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	s.order = nil
	s.messages = make(map[string]model.ChatMessage)
	return nil
}

// Upserts counts UpsertMessage calls, failed ones included.
func (s *TranscriptStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// SetErr changes the injected failure.
func (s *TranscriptStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
