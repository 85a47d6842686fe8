// Package session holds the visible chat transcript and the bounded
// conversation memory, and persists both in the background.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notepilot/config"
	"notepilot/engine"
	"notepilot/model"
)

// Runner executes turns. *engine.Engine implements it.
type Runner interface {
	Chat(ctx context.Context, req engine.Request, hooks engine.Hooks) engine.Outcome
	Command(ctx context.Context, command, noteText, args string) engine.Outcome
}

// MemoryCache stores the bounded memory between runs.
type MemoryCache interface {
	LoadMemory() ([]model.ConversationTurn, error)
	SaveMemory(turns []model.ConversationTurn) error
}

// Session is the chat state of one chat surface.
type Session struct {
	mu       sync.RWMutex
	messages []model.ChatMessage

	memory     *Memory
	transcript model.TranscriptStore
	cache      MemoryCache
	writer     *writer

	now func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithMemorySize overrides DefaultMemorySize.
func WithMemorySize(n int) Option {
	return func(s *Session) {
		s.memory = NewMemory(n)
	}
}

// WithMemoryCache persists memory across restarts.
func WithMemoryCache(c MemoryCache) Option {
	return func(s *Session) {
		s.cache = c
	}
}

// New creates a Session persisting to transcript. Call Close when done.
func New(transcript model.TranscriptStore, opts ...Option) *Session {
	s := &Session{
		memory:     NewMemory(DefaultMemorySize),
		transcript: transcript,
		writer:     newWriter(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the transcript and, when a cache is configured, the memory.
func (s *Session) Load(ctx context.Context) error {
	messages, err := s.transcript.ListMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()

	if s.cache != nil {
		turns, err := s.cache.LoadMemory()
		if err != nil {
			// A lost memory cache only shortens context.
			config.Log.Warnf("[Session] failed to load memory cache: %v", err)
		} else {
			s.memory.Restore(turns)
		}
	}

	config.Log.Debugf("[Session] loaded %d messages, %d memory turns", len(messages), s.memory.Len())
	return nil
}

// Messages returns a copy of the visible transcript.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Memory returns the remembered turns.
func (s *Session) Memory() []model.ConversationTurn {
	return s.memory.Turns()
}

// Append adds msg to the transcript, filling in ID and CreatedAt when unset,
// and persists it unless it is an empty assistant placeholder.
func (s *Session) Append(msg model.ChatMessage) model.ChatMessage {
	msg = s.stamp(msg)

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if !(msg.Kind == model.KindAssistant && msg.Text == "") {
		s.persist(msg)
	}
	return msg
}

// insertBefore places msg in front of the message with id, or appends it
// when id is gone.
func (s *Session) insertBefore(id string, msg model.ChatMessage) model.ChatMessage {
	msg = s.stamp(msg)

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.messages = append(s.messages, msg)
	} else {
		s.messages = append(s.messages, model.ChatMessage{})
		copy(s.messages[idx+1:], s.messages[idx:])
		s.messages[idx] = msg
	}
	s.mu.Unlock()

	s.persist(msg)
	return msg
}

// UpdateContent appends delta to the text of message id. It reports false
// when the message does not exist.
func (s *Session) UpdateContent(id, delta string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.messages[idx].Text += delta
	return true
}

// Finalize persists the current state of message id.
func (s *Session) Finalize(id string) bool {
	s.mu.RLock()
	idx := s.indexOf(id)
	var msg model.ChatMessage
	if idx >= 0 {
		msg = s.messages[idx]
	}
	s.mu.RUnlock()

	if idx < 0 {
		return false
	}
	s.persist(msg)
	return true
}

func (s *Session) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(id); idx >= 0 {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
}

// Clear empties the transcript and the memory and purges stored messages.
// The purge runs after every pending write; its error is returned.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.memory.Reset()

	err := s.writer.do(ctx, "purge transcript", func(ctx context.Context) error {
		if err := s.transcript.ClearMessages(ctx); err != nil {
			return fmt.Errorf("failed to clear transcript: %w", err)
		}
		if s.cache != nil {
			if err := s.cache.SaveMemory(nil); err != nil {
				return fmt.Errorf("failed to clear memory cache: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		config.Log.Errorf("[Session] clear failed: %v", err)
	}
	return err
}

// Chat runs a free-form turn through runner and records it.
func (s *Session) Chat(ctx context.Context, runner Runner, input string, note *model.Note) engine.Outcome {
	s.Append(model.ChatMessage{Kind: model.KindUser, Text: input})
	placeholder := s.Append(model.ChatMessage{Kind: model.KindAssistant})

	req := engine.Request{
		Input:   input,
		History: s.memory.Turns(),
		Note:    note,
	}
	out := runner.Chat(ctx, req, engine.Hooks{
		OnToolResult: func(call model.ToolCall, result model.ToolResult) {
			s.insertBefore(placeholder.ID, model.ChatMessage{
				Kind:    model.KindToolCall,
				Text:    badgeText(call, result),
				Command: call.Name,
			})
		},
	})

	s.finish(placeholder.ID, out)
	if out.OK() {
		s.memory.AddExchange(input, out.Text)
		s.saveMemory()
	}
	return out
}

// Command runs a slash command and records it. Slash turns are one-off
// transformations and are not added to memory.
func (s *Session) Command(ctx context.Context, runner Runner, command, args string, note *model.Note) engine.Outcome {
	text := "/" + command
	if args != "" {
		text += " " + args
	}
	s.Append(model.ChatMessage{Kind: model.KindUser, Text: text, Command: command})
	placeholder := s.Append(model.ChatMessage{Kind: model.KindAssistant, Command: command})

	noteText := ""
	if note != nil {
		noteText = note.Content
	}
	out := runner.Command(ctx, command, noteText, args)

	s.finish(placeholder.ID, out)
	return out
}

func (s *Session) finish(placeholderID string, out engine.Outcome) {
	if out.OK() {
		s.UpdateContent(placeholderID, out.Text)
		s.Finalize(placeholderID)
		return
	}

	s.remove(placeholderID)
	s.Append(model.ChatMessage{Kind: model.KindError, Text: ErrorText(out)})
}

// Flush waits until every write queued so far has been applied.
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.do(ctx, "flush", func(context.Context) error { return nil })
}

// Close flushes pending writes and stops the background writer.
func (s *Session) Close() error {
	return s.writer.close()
}

func (s *Session) persist(msg model.ChatMessage) {
	s.writer.enqueue("upsert message "+msg.ID, func(ctx context.Context) error {
		return s.transcript.UpsertMessage(ctx, msg)
	})
}

func (s *Session) saveMemory() {
	if s.cache == nil {
		return
	}
	turns := s.memory.Turns()
	s.writer.enqueue("save memory", func(context.Context) error {
		return s.cache.SaveMemory(turns)
	})
}

func (s *Session) stamp(msg model.ChatMessage) model.ChatMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	return msg
}

// indexOf must be called with mu held.
func (s *Session) indexOf(id string) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// ErrorText is the user-visible text for a failed or cancelled outcome.
func ErrorText(out engine.Outcome) string {
	switch {
	case out.Status == engine.StatusCancelled:
		return engine.CancelledText
	case errors.Is(out.Err, engine.ErrNoNoteContext):
		return "Open a note with some text to use this command."
	case out.Err != nil:
		return "Error: " + out.Err.Error()
	default:
		return "Error: the request failed"
	}
}

func badgeText(call model.ToolCall, result model.ToolResult) string {
	label := strings.ReplaceAll(call.Name, "_", " ")
	if result.IsError {
		return fmt.Sprintf("Tool %s failed: %s", label, firstLine(result.Result))
	}
	return fmt.Sprintf("Tool %s: %s", label, firstLine(result.Result))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
