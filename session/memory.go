package session

import (
	"sync"

	"notepilot/model"
)

// DefaultMemorySize caps the remembered turns.
const DefaultMemorySize = 20

// Memory is the bounded window of prior turns fed back into prompts. The
// oldest turns are dropped first once the cap is exceeded.
type Memory struct {
	mu       sync.Mutex
	turns    []model.ConversationTurn
	capacity int
}

// NewMemory returns an empty Memory. A non-positive capacity uses
// DefaultMemorySize.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemorySize
	}
	return &Memory{capacity: capacity}
}

// Add appends turns, evicting from the front past the cap.
func (m *Memory) Add(turns ...model.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turns...)
	if over := len(m.turns) - m.capacity; over > 0 {
		m.turns = append([]model.ConversationTurn(nil), m.turns[over:]...)
	}
}

// AddExchange records one completed user/assistant pair.
func (m *Memory) AddExchange(user, assistant string) {
	m.Add(
		model.ConversationTurn{Role: model.RoleUser, Content: user},
		model.ConversationTurn{Role: model.RoleAssistant, Content: assistant},
	)
}

// Turns returns a copy of the remembered turns, oldest first.
func (m *Memory) Turns() []model.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

func (m *Memory) Cap() int {
	return m.capacity
}

// Reset forgets every turn.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Restore replaces the window with turns, keeping only the newest that fit.
func (m *Memory) Restore(turns []model.ConversationTurn) {
	m.Reset()
	m.Add(turns...)
}
