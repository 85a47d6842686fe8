package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notepilot/model"
)

// NoteStore implements model.NoteStore on SQLite.
type NoteStore struct {
	db  *sql.DB
	now func() time.Time
}

const noteColumns = `id, title, content, pinned, updated_at`

// List returns all notes, pinned first, then most recently modified.
func (s *NoteStore) List(ctx context.Context) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes ORDER BY pinned DESC, updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func (s *NoteStore) Get(ctx context.Context, id string) (*model.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoteNotFound
	}
	return note, err
}

func (s *NoteStore) Create(ctx context.Context, title, content string) (*model.Note, error) {
	now := s.now()
	note := &model.Note{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, pinned, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		note.ID, note.Title, note.Content, toUnix(now), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// Update applies the non-nil fields of patch.
func (s *NoteStore) Update(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		note.Title = *patch.Title
	}
	if patch.Content != nil {
		note.Content = *patch.Content
	}
	note.UpdatedAt = s.now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		note.Title, note.Content, toUnix(note.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return requireRow(res)
}

// Append adds content to the end of the note, separated by a blank line
// when the note already has content.
func (s *NoteStore) Append(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET content = CASE WHEN content = '' THEN ? ELSE content || char(10) || char(10) || ? END,
		    updated_at = ?
		WHERE id = ?`,
		content, content, toUnix(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to append to note: %w", err)
	}
	return requireRow(res)
}

// SetPinned pins or unpins a note.
func (s *NoteStore) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notes SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to pin note: %w", err)
	}
	return requireRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (*model.Note, error) {
	var (
		note    model.Note
		updated int64
	)
	if err := sc.Scan(&note.ID, &note.Title, &note.Content, &note.IsPinned, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}
	note.UpdatedAt = fromUnix(updated)
	return &note, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrNoteNotFound
	}
	return nil
}
