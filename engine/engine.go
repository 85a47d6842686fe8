// Package engine runs the copilot's conversation loop: it sends the working
// message list to the model, executes the tool directive in each reply and
// feeds the result back until the model answers or the round cap is hit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"notepilot/config"
	"notepilot/extract"
	"notepilot/model"
	"notepilot/prompt"
	"notepilot/tools"
)

// DefaultMaxRounds caps model requests per free-form turn. A round sends
// the conversation and executes at most one tool, except the last: a tool
// call in the final reply is not executed and the turn ends with
// StatusRoundLimit. A turn therefore makes at most DefaultMaxRounds
// requests and DefaultMaxRounds-1 tool calls.
const DefaultMaxRounds = 5

// CancelledText is shown when the user aborts a turn.
const CancelledText = "Generation cancelled"

// ErrNoNoteContext is returned when a slash command needs note text but none
// is available.
var ErrNoNoteContext = errors.New("this command needs an open note with some text")

// Status is the terminal state of a turn.
type Status int

const (
	StatusCompleted Status = iota
	StatusRoundLimit
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusRoundLimit:
		return "round_limit"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Dispatcher executes tool calls. *tools.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, call model.ToolCall) model.ToolResult
	Catalog() []mcptypes.Tool
}

// Request is one free-form user submission.
type Request struct {
	Input   string
	History []model.ConversationTurn
	// Note is the note open in the editor, if any.
	Note *model.Note
}

// Hooks observe a turn while it runs. Nil hooks are skipped.
type Hooks struct {
	// OnToolCall fires before a parsed directive is dispatched.
	OnToolCall func(call model.ToolCall)
	// OnToolResult fires after the dispatcher returns.
	OnToolResult func(call model.ToolCall, result model.ToolResult)
}

func (h Hooks) toolCall(call model.ToolCall) {
	if h.OnToolCall != nil {
		h.OnToolCall(call)
	}
}

func (h Hooks) toolResult(call model.ToolCall, result model.ToolResult) {
	if h.OnToolResult != nil {
		h.OnToolResult(call, result)
	}
}

// Outcome is the typed result of a turn. Engine methods never return errors
// or panic; failures are reported through Status and Err.
type Outcome struct {
	Text        string
	Status      Status
	Err         error
	Rounds      int
	ToolResults []model.ToolResult
}

// OK reports whether Text is an answer worth keeping in memory.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted || o.Status == StatusRoundLimit
}

// Engine drives conversation turns. It holds no per-turn state and is safe
// for concurrent use, although a chat surface runs one turn at a time.
type Engine struct {
	completer  model.Completer
	dispatcher Dispatcher
	extractor  *extract.Extractor
	metrics    *Metrics
	persona    string
	maxRounds  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRounds overrides DefaultMaxRounds. Values below 1 are ignored.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithExtractor shares a memoizing extractor.
func WithExtractor(x *extract.Extractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithMetrics records turn metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPersona appends user-supplied instructions to the system prompt.
func WithPersona(persona string) Option {
	return func(e *Engine) {
		e.persona = persona
	}
}

// New creates an Engine.
func New(completer model.Completer, dispatcher Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		completer:  completer,
		dispatcher: dispatcher,
		maxRounds:  DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = extract.New(extract.DefaultCacheSize)
	}
	return e
}

// MaxRounds returns the configured round cap.
func (e *Engine) MaxRounds() int {
	return e.maxRounds
}

// Messages builds the initial message list for req.
func (e *Engine) Messages(req Request) []model.Message {
	messages := []model.Message{{
		Role:    model.RoleSystem,
		Content: SystemPrompt(e.persona, catalogText(e.dispatcher)),
	}}
	messages = append(messages, historyMessages(req.History)...)

	if req.Note != nil {
		messages = append(messages, model.Message{
			Role:    model.RoleUser,
			Content: noteContext(req.Note, e.extractor.PlainText(req.Note.Content)),
		})
	}

	return append(messages, model.Message{
		Role:      model.RoleUser,
		Content:   req.Input,
		Timestamp: time.Now(),
	})
}

// Chat runs one free-form turn.
//
// ctx is checked before every model request. Requests and tool calls already
// in flight run to completion under a context detached from ctx; if ctx was
// cancelled meanwhile their results are discarded and no further round
// starts.
func (e *Engine) Chat(ctx context.Context, req Request, hooks Hooks) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			config.Log.Errorf("[Engine] chat panicked: %v", r)
			out = Outcome{Status: StatusFailed, Err: fmt.Errorf("chat failed: %v", r), Rounds: out.Rounds, ToolResults: out.ToolResults}
		}
		e.metrics.turn("chat", out.Status)
	}()

	messages := e.Messages(req)
	detached := context.WithoutCancel(ctx)

	var reply string
	for round := 1; round <= e.maxRounds; round++ {
		if ctx.Err() != nil {
			config.Log.Debugf("[Engine] cancelled before round %d", round)
			return e.cancelled(out)
		}

		out.Rounds = round
		config.Log.Debugf("[Engine] round %d: sending %d messages", round, len(messages))

		started := time.Now()
		r, err := e.completer.Complete(detached, messages)
		e.metrics.request(started, err)

		if ctx.Err() != nil {
			config.Log.Debugf("[Engine] discarding round %d reply after cancel", round)
			return e.cancelled(out)
		}
		if err != nil {
			config.Log.Errorf("[Engine] model request failed in round %d: %v", round, err)
			out.Status = StatusFailed
			out.Err = fmt.Errorf("failed to get model response: %w", err)
			return out
		}

		reply = r
		call, ok := ParseDirective(reply)
		if !ok {
			return e.finalize(out, reply, StatusCompleted)
		}
		if round == e.maxRounds {
			break
		}

		config.Log.Debugf("[Engine] round %d: tool directive %s", round, call.Name)
		hooks.toolCall(call)
		result := e.dispatcher.Dispatch(detached, call)
		e.metrics.toolCall(metricToolName(call.Name), result.IsError)
		out.ToolResults = append(out.ToolResults, result)
		hooks.toolResult(call, result)

		messages = append(messages,
			model.Message{Role: model.RoleAssistant, Content: reply},
			model.Message{Role: model.RoleUser, Content: toolResultTurn(result)},
		)
	}

	config.Log.Warnf("[Engine] stopped after %d rounds with an unresolved tool directive", out.Rounds)
	return e.finalize(out, reply, StatusRoundLimit)
}

// Command runs a slash command: one request built by the prompt package, the
// raw reply returned as is. No tools, no rounds, no cancellation.
func (e *Engine) Command(ctx context.Context, command, noteText, args string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			config.Log.Errorf("[Engine] command %s panicked: %v", command, r)
			out = Outcome{Status: StatusFailed, Err: fmt.Errorf("command failed: %v", r), Rounds: out.Rounds}
		}
		e.metrics.turn("command", out.Status)
	}()

	text := e.extractor.PlainText(noteText)
	if prompt.NeedsNote(command) && text == "" {
		out.Status = StatusFailed
		out.Err = ErrNoNoteContext
		return out
	}

	messages := []model.Message{
		{Role: model.RoleSystem, Content: slashPersona},
		{Role: model.RoleUser, Content: prompt.Build(command, text, args), Timestamp: time.Now()},
	}

	out.Rounds = 1
	started := time.Now()
	reply, err := e.completer.Complete(context.WithoutCancel(ctx), messages)
	e.metrics.request(started, err)
	if err != nil {
		config.Log.Errorf("[Engine] command %s failed: %v", command, err)
		out.Status = StatusFailed
		out.Err = fmt.Errorf("failed to get model response: %w", err)
		return out
	}

	out.Status = StatusCompleted
	out.Text = strings.TrimSpace(reply)
	if out.Text == "" {
		out.Text = PlaceholderText
	}
	return out
}

func (e *Engine) finalize(out Outcome, reply string, status Status) Outcome {
	out.Status = status
	out.Text = StripDirectives(reply)
	if out.Text == "" {
		out.Text = PlaceholderText
	}
	return out
}

func (e *Engine) cancelled(out Outcome) Outcome {
	out.Status = StatusCancelled
	out.Text = CancelledText
	out.Err = context.Canceled
	return out
}

func metricToolName(name string) string {
	if _, ok := tools.Lookup(name); ok {
		return name
	}
	return "unknown"
}
