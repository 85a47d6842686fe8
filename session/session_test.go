package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"notepilot/engine"
	"notepilot/model"
	"notepilot/testutil"
	"notepilot/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryCache struct {
	turns []model.ConversationTurn
	saves int
	err   error
}

func (c *memoryCache) LoadMemory() ([]model.ConversationTurn, error) {
	return c.turns, c.err
}

func (c *memoryCache) SaveMemory(turns []model.ConversationTurn) error {
	c.saves++
	c.turns = turns
	return c.err
}

func newSession(t *testing.T, store *testutil.TranscriptStore, opts ...Option) *Session {
	t.Helper()
	s := New(store, opts...)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func newEngine(replies ...string) *engine.Engine {
	d := tools.NewDispatcher(testutil.NewNoteStore(testutil.SampleNotes()...))
	return engine.New(testutil.NewScriptedCompleter(replies...), d)
}

func kinds(messages []model.ChatMessage) []model.MessageKind {
	out := make([]model.MessageKind, len(messages))
	for i, m := range messages {
		out[i] = m.Kind
	}
	return out
}

func TestMemoryBounded(t *testing.T) {
	m := NewMemory(DefaultMemorySize)

	for i := 0; i < 15; i++ {
		m.AddExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		assert.LessOrEqual(t, m.Len(), DefaultMemorySize)
	}

	turns := m.Turns()
	require.Len(t, turns, DefaultMemorySize)
	assert.Equal(t, "q5", turns[0].Content, "oldest turns are evicted first")
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "a14", turns[len(turns)-1].Content)
}

func TestMemoryRestoreKeepsNewest(t *testing.T) {
	m := NewMemory(2)
	m.Restore([]model.ConversationTurn{
		{Role: model.RoleUser, Content: "1"},
		{Role: model.RoleAssistant, Content: "2"},
		{Role: model.RoleUser, Content: "3"},
	})

	assert.Equal(t, []model.ConversationTurn{
		{Role: model.RoleAssistant, Content: "2"},
		{Role: model.RoleUser, Content: "3"},
	}, m.Turns())
	assert.Equal(t, DefaultMemorySize, NewMemory(0).Cap())
}

func TestChatTurnRecorded(t *testing.T) {
	store := testutil.NewTranscriptStore()
	cache := &memoryCache{}
	s := newSession(t, store, WithMemoryCache(cache))
	e := newEngine("Let me check.\n```tool_call\n{\"name\":\"list_notes\"}\n```", "You have 3 notes.")

	out := s.Chat(context.Background(), e, "How many notes?", nil)
	require.Equal(t, engine.StatusCompleted, out.Status)
	require.NoError(t, s.Flush(context.Background()))

	messages := s.Messages()
	assert.Equal(t, []model.MessageKind{model.KindUser, model.KindToolCall, model.KindAssistant}, kinds(messages))
	assert.Equal(t, "How many notes?", messages[0].Text)
	assert.Equal(t, tools.ToolListNotes, messages[1].Command)
	assert.Contains(t, messages[1].Text, "list notes")
	assert.Equal(t, "You have 3 notes.", messages[2].Text)

	stored, err := store.ListMessages(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, messages, stored, "every final message is persisted")

	assert.Equal(t, []model.ConversationTurn{
		{Role: model.RoleUser, Content: "How many notes?"},
		{Role: model.RoleAssistant, Content: "You have 3 notes."},
	}, s.Memory())
	assert.Equal(t, 1, cache.saves)
}

func TestChatFailureNotRemembered(t *testing.T) {
	store := testutil.NewTranscriptStore()
	s := newSession(t, store)
	completer := testutil.NewScriptedCompleter("x").FailAt(0, errors.New("backend down"))
	e := engine.New(completer, tools.NewDispatcher(testutil.NewNoteStore()))

	out := s.Chat(context.Background(), e, "hello", nil)

	assert.Equal(t, engine.StatusFailed, out.Status)
	messages := s.Messages()
	require.Equal(t, []model.MessageKind{model.KindUser, model.KindError}, kinds(messages))
	assert.Contains(t, messages[1].Text, "backend down")
	assert.Empty(t, s.Memory())
}

func TestChatCancelled(t *testing.T) {
	s := newSession(t, testutil.NewTranscriptStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := s.Chat(ctx, newEngine("never"), "hello", nil)

	assert.Equal(t, engine.StatusCancelled, out.Status)
	messages := s.Messages()
	require.Equal(t, []model.MessageKind{model.KindUser, model.KindError}, kinds(messages))
	assert.Equal(t, engine.CancelledText, messages[1].Text)
	assert.Empty(t, s.Memory())
}

func TestCommandNotRemembered(t *testing.T) {
	s := newSession(t, testutil.NewTranscriptStore())
	note := testutil.SampleNotes()[0]

	out := s.Command(context.Background(), newEngine("Buy milk, eggs and coffee."), "summarize", "", &note)

	require.Equal(t, engine.StatusCompleted, out.Status)
	messages := s.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "/summarize", messages[0].Text)
	assert.Equal(t, "summarize", messages[0].Command)
	assert.Equal(t, "Buy milk, eggs and coffee.", messages[1].Text)
	assert.Empty(t, s.Memory())
}

func TestCommandWithoutNote(t *testing.T) {
	s := newSession(t, testutil.NewTranscriptStore())

	out := s.Command(context.Background(), newEngine("x"), "translate", "", nil)

	assert.ErrorIs(t, out.Err, engine.ErrNoNoteContext)
	messages := s.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, model.KindError, messages[1].Kind)
}

func TestUpdateContentAndFinalize(t *testing.T) {
	store := testutil.NewTranscriptStore()
	s := newSession(t, store)

	msg := s.Append(model.ChatMessage{Kind: model.KindAssistant})
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	assert.True(t, s.UpdateContent(msg.ID, "Hel"))
	assert.True(t, s.UpdateContent(msg.ID, "lo"))
	assert.False(t, s.UpdateContent("missing", "x"))
	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, store.Upserts(), "partial content is not persisted")

	assert.True(t, s.Finalize(msg.ID))
	require.NoError(t, s.Flush(context.Background()))

	stored, err := store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Hello", stored[0].Text)
}

func TestPersistenceFailureIsNotSurfaced(t *testing.T) {
	store := testutil.NewTranscriptStore()
	store.SetErr(errors.New("disk full"))
	s := newSession(t, store)

	out := s.Chat(context.Background(), newEngine("Hi there"), "hello", nil)

	assert.Equal(t, engine.StatusCompleted, out.Status)
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, s.Messages(), 2)
	assert.Equal(t, 2, store.Upserts())
}

func TestClear(t *testing.T) {
	store := testutil.NewTranscriptStore()
	cache := &memoryCache{}
	s := newSession(t, store, WithMemoryCache(cache))
	s.Chat(context.Background(), newEngine("Hi there"), "hello", nil)

	require.NoError(t, s.Clear(context.Background()))

	assert.Empty(t, s.Messages())
	assert.Empty(t, s.Memory())
	assert.Empty(t, cache.turns)
	stored, err := store.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored, "purge runs after the pending upserts")
}

func TestClearReportsPurgeError(t *testing.T) {
	store := testutil.NewTranscriptStore()
	s := newSession(t, store)
	store.SetErr(errors.New("locked"))

	err := s.Clear(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestLoad(t *testing.T) {
	saved := []model.ChatMessage{
		{ID: "1", Kind: model.KindUser, Text: "hi"},
		{ID: "2", Kind: model.KindAssistant, Text: "hello"},
	}
	cache := &memoryCache{turns: []model.ConversationTurn{{Role: model.RoleUser, Content: "hi"}}}
	s := newSession(t, testutil.NewTranscriptStore(saved...), WithMemoryCache(cache), WithMemorySize(4))

	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, saved, s.Messages())
	assert.Equal(t, cache.turns, s.Memory())
}

func TestLoadError(t *testing.T) {
	store := testutil.NewTranscriptStore()
	store.SetErr(errors.New("corrupt"))
	s := newSession(t, store)

	err := s.Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestWriterClosed(t *testing.T) {
	s := New(testutil.NewTranscriptStore())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Flush(context.Background()), errWriterClosed)
	assert.NotPanics(t, func() { s.Append(model.ChatMessage{Kind: model.KindUser, Text: "late"}) })
}
