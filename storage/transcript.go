package storage

import (
	"context"
	"database/sql"
	"fmt"

	"notepilot/model"
)

// TranscriptStore implements model.TranscriptStore on SQLite. Messages keep
// the order of their first upsert.
type TranscriptStore struct {
	db *sql.DB
}

func (s *TranscriptStore) ListMessages(ctx context.Context) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, text, command, created_at FROM chat_messages ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var (
			msg     model.ChatMessage
			kind    string
			created int64
		)
		if err := rows.Scan(&msg.ID, &kind, &msg.Text, &msg.Command, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Kind = model.MessageKind(kind)
		msg.CreatedAt = fromUnix(created)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *TranscriptStore) UpsertMessage(ctx context.Context, msg model.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, kind, text, command, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, text = excluded.text, command = excluded.command`,
		msg.ID, string(msg.Kind), msg.Text, msg.Command, toUnix(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *TranscriptStore) ClearMessages(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}
