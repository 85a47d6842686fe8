package model

import (
	"context"
	"errors"
	"time"
)

// ErrNoteNotFound is returned by note stores when an id does not resolve.
var ErrNoteNotFound = errors.New("note not found")

// Note is a user note. Content is Markdown or a legacy JSON block tree; an
// empty string stands for no content.
type Note struct {
	ID        string
	Title     string
	Content   string
	UpdatedAt time.Time
	IsPinned  bool
}

// NotePatch carries the optional fields of an update.
type NotePatch struct {
	Title   *string
	Content *string
}

// NoteStore is the persistence collaborator holding notes.
type NoteStore interface {
	List(ctx context.Context) ([]Note, error)
	// Get returns ErrNoteNotFound when no note has the id.
	Get(ctx context.Context, id string) (*Note, error)
	Create(ctx context.Context, title, content string) (*Note, error)
	Update(ctx context.Context, id string, patch NotePatch) (*Note, error)
	Delete(ctx context.Context, id string) error
	Append(ctx context.Context, id, content string) error
}

// TranscriptStore persists the visible chat transcript.
type TranscriptStore interface {
	ListMessages(ctx context.Context) ([]ChatMessage, error)
	UpsertMessage(ctx context.Context, msg ChatMessage) error
	ClearMessages(ctx context.Context) error
}
