package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepilot/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "notepilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notepilot.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}

func TestNoteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Notes()

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	a, err := store.Create(ctx, "Groceries", "- milk")
	require.NoError(t, err)
	b, err := store.Create(ctx, "Apollo", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "- milk", got.Content)
	assert.True(t, got.UpdatedAt.Equal(a.UpdatedAt))

	notes, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, b.ID, notes[0].ID, "newest first")

	require.NoError(t, store.SetPinned(ctx, a.ID, true))
	notes, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, notes[0].ID, "pinned first")
	assert.True(t, notes[0].IsPinned)

	title := "Apollo 11"
	updated, err := store.Update(ctx, b.ID, model.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Apollo 11", updated.Title)
	assert.Equal(t, "", updated.Content)

	require.NoError(t, store.Append(ctx, b.ID, "first line"))
	require.NoError(t, store.Append(ctx, b.ID, "second line"))
	got, err = store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "first line\n\nsecond line", got.Content)

	require.NoError(t, store.Delete(ctx, a.ID))
	_, err = store.Get(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrNoteNotFound)
}

func TestNoteStoreMissingNote(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Notes()

	content := "x"
	_, err := store.Update(ctx, "nope", model.NotePatch{Content: &content})
	assert.ErrorIs(t, err, model.ErrNoteNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "nope"), model.ErrNoteNotFound)
	assert.ErrorIs(t, store.Append(ctx, "nope", "x"), model.ErrNoteNotFound)
	assert.ErrorIs(t, store.SetPinned(ctx, "nope", true), model.ErrNoteNotFound)
}

func TestTranscriptStoreUpsertKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Transcript()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertMessage(ctx, model.ChatMessage{ID: "u1", Kind: model.KindUser, Text: "hi", CreatedAt: now}))
	require.NoError(t, store.UpsertMessage(ctx, model.ChatMessage{ID: "a1", Kind: model.KindAssistant, Text: "He", CreatedAt: now}))
	require.NoError(t, store.UpsertMessage(ctx, model.ChatMessage{ID: "a1", Kind: model.KindAssistant, Text: "Hello", Command: "summarize", CreatedAt: now}))

	msgs, err := store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "u1", msgs[0].ID)
	assert.Equal(t, "Hello", msgs[1].Text)
	assert.Equal(t, "summarize", msgs[1].Command)
	assert.Equal(t, model.KindAssistant, msgs[1].Kind)
	assert.True(t, msgs[0].CreatedAt.Equal(now))

	require.NoError(t, store.ClearMessages(ctx))
	msgs, err = store.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	cache := NewMemoryFile(path)

	turns, err := cache.LoadMemory()
	require.NoError(t, err)
	assert.Empty(t, turns)

	want := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}
	require.NoError(t, cache.SaveMemory(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	turns, err = cache.LoadMemory()
	require.NoError(t, err)
	assert.Equal(t, want, turns)

	require.NoError(t, cache.SaveMemory(nil))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewMemoryFile(path).LoadMemory()
	assert.Error(t, err)
}

func TestExportTranscript(t *testing.T) {
	dir := t.TempDir()
	path := GenerateExportPath(filepath.Join(dir, "exports"), "my chat: notes?", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, "notepilot-my-chat--notes-20240301-093000.json", filepath.Base(path))

	require.NoError(t, ExportTranscript([]model.ChatMessage{{ID: "m1", Kind: model.KindUser, Text: "hi"}}, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text": "hi"`)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello world", "hello-world"},
		{"a/b\\c", "a-b-c"},
		{"...", "transcript"},
		{"", "transcript"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}
