// Package controller is the thin layer between a chat surface and the
// session: it owns the input buffer, command suggestions, the processing
// gate and per-submission cancellation.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"notepilot/config"
	"notepilot/engine"
	"notepilot/model"
	"notepilot/prompt"
	"notepilot/session"
)

var (
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("a message is already being processed")
	// ErrEmptyInput is returned when there is nothing to send.
	ErrEmptyInput = errors.New("nothing to send")
)

type Controller struct {
	session *session.Session
	runner  session.Runner

	mu         sync.Mutex
	input      string
	note       *model.Note
	processing bool
	cancel     context.CancelFunc
	onChange   func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnChange registers a callback fired when processing starts or ends.
func WithOnChange(fn func()) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

func New(s *session.Session, runner session.Runner, opts ...Option) *Controller {
	c := &Controller{session: s, runner: runner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) SetInput(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = input
}

func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetNote sets the note open in the editor. nil means no note.
func (c *Controller) SetNote(note *model.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if note == nil {
		c.note = nil
		return
	}
	n := *note
	c.note = &n
}

// NoteChanged refreshes the open note when n is the same note, so the next
// turn sees its stored content.
func (c *Controller) NoteChanged(n model.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.note != nil && c.note.ID == n.ID {
		c.note = &n
	}
}

// NoteDeleted closes the open note when it has id. It reports whether it did.
func (c *Controller) NoteDeleted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.note == nil || c.note.ID != id {
		return false
	}
	c.note = nil
	return true
}

func (c *Controller) Note() *model.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.note == nil {
		return nil
	}
	n := *c.note
	return &n
}

func (c *Controller) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

func (c *Controller) Messages() []model.ChatMessage {
	return c.session.Messages()
}

// Suggestions filters slash commands by the typed prefix. When nothing
// matches the prefix, fuzzy matches are offered instead. Input that is not
// a bare "/command" yields none.
func (c *Controller) Suggestions() []model.Command {
	return Suggest(c.Input())
}

// Suggest is the pure form of Suggestions.
func Suggest(input string) []model.Command {
	if !strings.HasPrefix(input, "/") || strings.ContainsAny(input, " \t") {
		return nil
	}
	prefix := strings.ToLower(strings.TrimPrefix(input, "/"))

	commands := prompt.Commands()
	var matches []model.Command
	for _, cmd := range commands {
		if strings.HasPrefix(cmd.Name, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) > 0 || prefix == "" {
		return matches
	}

	names := make([]string, len(commands))
	for i, cmd := range commands {
		names[i] = cmd.Name
	}
	for _, m := range fuzzy.Find(prefix, names) {
		matches = append(matches, commands[m.Index])
	}
	return matches
}

// SelectCommand fills the input with cmd, ready for arguments.
func (c *Controller) SelectCommand(cmd model.Command) {
	c.SetInput("/" + cmd.Name + " ")
}

// Submit sends the input buffer. Slash input runs the command path, anything
// else a free-form chat turn that Abort can cancel. Submit blocks until the
// turn ends; the returned error is only ErrBusy or ErrEmptyInput, turn
// failures are reported in the Outcome and the transcript.
func (c *Controller) Submit(ctx context.Context) (engine.Outcome, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return engine.Outcome{}, ErrBusy
	}
	text := strings.TrimSpace(c.input)
	if text == "" {
		c.mu.Unlock()
		return engine.Outcome{}, ErrEmptyInput
	}
	turnCtx, cancel := context.WithCancel(ctx)
	c.processing = true
	c.cancel = cancel
	c.input = ""
	note := c.note
	c.mu.Unlock()
	c.notify()

	defer func() {
		cancel()
		c.mu.Lock()
		c.processing = false
		c.cancel = nil
		c.mu.Unlock()
		c.notify()
	}()

	if command, args, ok := prompt.ParseSlash(text); ok {
		config.Log.Debugf("[Controller] slash command %s", command)
		return c.session.Command(turnCtx, c.runner, command, args, note), nil
	}

	config.Log.Debugf("[Controller] chat message (%d chars)", len(text))
	return c.session.Chat(turnCtx, c.runner, text, note), nil
}

// Abort cancels the in-flight chat turn. It reports whether there was one.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Clear wipes the transcript and memory. It refuses while a turn runs so the
// turn cannot write into the cleared transcript.
func (c *Controller) Clear(ctx context.Context) error {
	if c.Processing() {
		return ErrBusy
	}
	return c.session.Clear(ctx)
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
