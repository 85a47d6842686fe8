package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"notepilot/model"
)

// NoteStore is an in-memory model.NoteStore.
type NoteStore struct {
	mu    sync.Mutex
	notes map[string]model.Note
	seq   int
	clock time.Time

	// Err, when set, is returned by every operation.
	Err error
	// Panic, when set, makes every operation panic with this value.
	Panic any

	calls map[string]int
}

// NewNoteStore returns a store seeded with notes.
func NewNoteStore(notes ...model.Note) *NoteStore {
	s := &NoteStore{
		notes: make(map[string]model.Note),
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
	}
	for _, n := range notes {
		s.notes[n.ID] = n
	}
	return s
}

func (s *NoteStore) enter(op string) error {
	s.calls[op]++
	if s.Panic != nil {
		panic(s.Panic)
	}
	return s.Err
}

func (s *NoteStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

// Calls reports how often op ("List", "Get", ...) was invoked.
func (s *NoteStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Note returns a stored note by id.
func (s *NoteStore) Note(id string) (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	return n, ok
}

// Len returns the number of stored notes.
func (s *NoteStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *NoteStore) List(ctx context.Context) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("List"); err != nil {
		return nil, err
	}

	notes := make([]model.Note, 0, len(s.notes))
	for _, n := range s.notes {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].IsPinned != notes[j].IsPinned {
			return notes[i].IsPinned
		}
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

func (s *NoteStore) Get(ctx context.Context, id string) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Get"); err != nil {
		return nil, err
	}

	n, ok := s.notes[id]
	if !ok {
		return nil, model.ErrNoteNotFound
	}
	return &n, nil
}

func (s *NoteStore) Create(ctx context.Context, title, content string) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Create"); err != nil {
		return nil, err
	}

	s.seq++
	n := model.Note{
		ID:        fmt.Sprintf("note-%d", s.seq),
		Title:     title,
		Content:   content,
		UpdatedAt: s.tick(),
	}
	s.notes[n.ID] = n
	return &n, nil
}

func (s *NoteStore) Update(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Update"); err != nil {
		return nil, err
	}

	n, ok := s.notes[id]
	if !ok {
		return nil, model.ErrNoteNotFound
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	n.UpdatedAt = s.tick()
	s.notes[id] = n
	return &n, nil
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Delete"); err != nil {
		return err
	}

	if _, ok := s.notes[id]; !ok {
		return model.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

func (s *NoteStore) Append(ctx context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Append"); err != nil {
		return err
	}

	n, ok := s.notes[id]
	if !ok {
		return model.ErrNoteNotFound
	}
	if n.Content == "" {
		n.Content = content
	} else {
		n.Content = n.Content + "\n\n" + content
	}
	n.UpdatedAt = s.tick()
	s.notes[id] = n
	return nil
}
