package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepilot/model"
	"notepilot/testutil"
	"notepilot/tools"
)

const listDirective = "Let me look.\n```tool_call\n{\"name\": \"list_notes\", \"arguments\": {}}\n```"

// recordingDispatcher wraps a real dispatcher and counts calls.
type recordingDispatcher struct {
	*tools.Dispatcher
	mu    sync.Mutex
	calls []model.ToolCall
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, call model.ToolCall) model.ToolResult {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	return r.Dispatcher.Dispatch(ctx, call)
}

func newDispatcher(notes ...model.Note) *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: tools.NewDispatcher(testutil.NewNoteStore(notes...))}
}

func TestChatSingleToolRound(t *testing.T) {
	completer := testutil.NewScriptedCompleter(listDirective, "You have 3 notes.")
	dispatcher := newDispatcher(testutil.SampleNotes()...)
	e := New(completer, dispatcher)

	var badges []string
	out := e.Chat(context.Background(), Request{Input: "What notes do I have?"}, Hooks{
		OnToolResult: func(call model.ToolCall, result model.ToolResult) {
			badges = append(badges, call.Name)
		},
	})

	require.Equal(t, StatusCompleted, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, "You have 3 notes.", out.Text)
	assert.Equal(t, 2, out.Rounds)
	assert.Equal(t, 2, completer.Calls())
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, tools.ToolListNotes, dispatcher.calls[0].Name)
	assert.Equal(t, []string{tools.ToolListNotes}, badges)
	require.Len(t, out.ToolResults, 1)
	assert.False(t, out.ToolResults[0].IsError)

	first := completer.Request(0)
	second := completer.Request(1)
	require.Len(t, second, len(first)+2, "exactly one assistant and one tool turn appended")
	assert.Equal(t, model.RoleAssistant, second[len(first)].Role)
	assert.Equal(t, listDirective, second[len(first)].Content)
	toolTurn := second[len(first)+1]
	assert.Equal(t, model.RoleUser, toolTurn.Role)
	assert.True(t, strings.HasPrefix(toolTurn.Content, "[Tool Result: list_notes]"))
	assert.Contains(t, toolTurn.Content, "Found 3 notes")
}

func TestChatRoundLimit(t *testing.T) {
	completer := testutil.NewScriptedCompleter(listDirective)
	dispatcher := newDispatcher()
	e := New(completer, dispatcher)

	out := e.Chat(context.Background(), Request{Input: "loop forever"}, Hooks{})

	assert.Equal(t, StatusRoundLimit, out.Status)
	assert.Equal(t, DefaultMaxRounds, out.Rounds)
	assert.Equal(t, DefaultMaxRounds, completer.Calls())
	assert.Len(t, dispatcher.calls, DefaultMaxRounds-1, "the last directive stays unresolved")
	assert.Equal(t, "Let me look.", out.Text)
	assert.True(t, out.OK())
}

func TestChatRoundLimitConfigurable(t *testing.T) {
	completer := testutil.NewScriptedCompleter("```tool_call\n{\"name\":\"list_notes\"}\n```")
	e := New(completer, newDispatcher(), WithMaxRounds(2))

	out := e.Chat(context.Background(), Request{Input: "x"}, Hooks{})

	assert.Equal(t, StatusRoundLimit, out.Status)
	assert.Equal(t, 2, completer.Calls())
	assert.Equal(t, PlaceholderText, out.Text)
}

func TestChatCancelledBeforeRequest(t *testing.T) {
	completer := testutil.NewScriptedCompleter("never sent")
	e := New(completer, newDispatcher())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := e.Chat(ctx, Request{Input: "hi"}, Hooks{})

	assert.Equal(t, StatusCancelled, out.Status)
	assert.Equal(t, CancelledText, out.Text)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Zero(t, completer.Calls())
	assert.False(t, out.OK())
}

func TestChatCancelledDuringRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completer := testutil.NewScriptedCompleter(listDirective, "final")
	var sawCancelled bool
	completer.BeforeReply = func(index int) {
		cancel()
		sawCancelled = ctx.Err() != nil
	}
	dispatcher := newDispatcher()
	e := New(completer, dispatcher)

	out := e.Chat(ctx, Request{Input: "hi"}, Hooks{})

	assert.True(t, sawCancelled)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Equal(t, 1, completer.Calls(), "the in-flight request completes but no round follows")
	assert.Empty(t, dispatcher.calls)
}

func TestChatCancelledDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completer := testutil.NewScriptedCompleter(listDirective, "final")
	dispatcher := newDispatcher()
	e := New(completer, dispatcher)

	out := e.Chat(ctx, Request{Input: "hi"}, Hooks{
		OnToolCall: func(model.ToolCall) { cancel() },
	})

	assert.Equal(t, StatusCancelled, out.Status)
	assert.Len(t, dispatcher.calls, 1, "the in-flight tool call is not aborted")
	assert.Equal(t, 1, completer.Calls())
	assert.Len(t, out.ToolResults, 1)
}

func TestChatModelFailure(t *testing.T) {
	boom := errors.New("connection refused")
	completer := testutil.NewScriptedCompleter(listDirective).FailAt(1, boom)
	e := New(completer, newDispatcher())

	out := e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, boom)
	assert.Empty(t, out.Text)
	assert.Equal(t, 2, out.Rounds)
	assert.False(t, out.OK())
}

func TestChatRecoversPanic(t *testing.T) {
	mock := testutil.NewMockProvider("m")
	mock.CompleteFunc = func(ctx context.Context, messages []model.Message) (string, error) {
		panic("provider bug")
	}
	e := New(mock, newDispatcher())

	var out Outcome
	require.NotPanics(t, func() {
		out = e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})
	})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Err.Error(), "provider bug")
}

func TestChatEmptyReplyUsesPlaceholder(t *testing.T) {
	e := New(testutil.NewScriptedCompleter("   "), newDispatcher())

	out := e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, PlaceholderText, out.Text)
}

func TestChatMalformedDirectiveIsFinalAnswer(t *testing.T) {
	completer := testutil.NewScriptedCompleter("```tool_call\nnot json at all\n```")
	dispatcher := newDispatcher()
	e := New(completer, dispatcher)

	out := e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "not json at all", out.Text)
	assert.Empty(t, dispatcher.calls)
	assert.Equal(t, 1, completer.Calls())
}

func TestChatDirectiveWithFencedContent(t *testing.T) {
	reply := "Saving it.\n```tool_call\n{\"name\":\"create_note\",\"arguments\":{\"title\":\"Snippet\",\"content\":\"```go\\nfmt.Println(1)\\n```\"}}\n```"
	completer := testutil.NewScriptedCompleter(reply, "Saved.")
	store := testutil.NewNoteStore()
	dispatcher := &recordingDispatcher{Dispatcher: tools.NewDispatcher(store)}
	e := New(completer, dispatcher)

	out := e.Chat(context.Background(), Request{Input: "save this snippet"}, Hooks{})

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "Saved.", out.Text)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, tools.ToolCreateNote, dispatcher.calls[0].Name)
	require.Equal(t, 1, store.Len())
	notes, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "```go\nfmt.Println(1)\n```", notes[0].Content)
}

func TestChatUnknownToolFedBack(t *testing.T) {
	completer := testutil.NewScriptedCompleter("```tool_call\n{\"name\":\"bogus_tool\"}\n```", "Sorry.")
	e := New(completer, newDispatcher())

	out := e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})

	require.Equal(t, StatusCompleted, out.Status)
	require.Len(t, out.ToolResults, 1)
	assert.True(t, out.ToolResults[0].IsError)
	last := completer.Request(1)
	assert.True(t, strings.HasPrefix(last[len(last)-1].Content, "[Tool Error: bogus_tool]"))
}

func TestMessagesLayout(t *testing.T) {
	note := testutil.SampleNotes()[1]
	e := New(testutil.NewScriptedCompleter("ok"), newDispatcher(), WithPersona("Always answer in haiku."))

	messages := e.Messages(Request{
		Input: "Summarize please",
		History: []model.ConversationTurn{
			{Role: model.RoleUser, Content: "earlier question"},
			{Role: model.RoleAssistant, Content: "earlier answer"},
			{Role: model.RoleTool, Content: "Found 1 notes", ToolName: "list_notes"},
		},
		Note: &note,
	})

	require.Len(t, messages, 6)
	system := messages[0]
	assert.Equal(t, model.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Always answer in haiku.")
	assert.Contains(t, system.Content, "- read_note(note_id)")
	assert.Contains(t, system.Content, "```tool_call")

	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, model.RoleAssistant, messages[2].Role)
	assert.Equal(t, "[Tool Result: list_notes]\nFound 1 notes", messages[3].Content)

	assert.Contains(t, messages[4].Content, "Note id: n2")
	assert.Contains(t, messages[4].Content, "Launch window opens in March")
	assert.NotContains(t, messages[4].Content, `"type"`)

	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "Summarize please", Timestamp: messages[5].Timestamp}, messages[5])
}

func TestCommand(t *testing.T) {
	completer := testutil.NewScriptedCompleter("  Bonjour means hello.  ")
	e := New(completer, newDispatcher())

	out := e.Command(context.Background(), "translate", "Bonjour", "")

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "Bonjour means hello.", out.Text)
	require.Equal(t, 1, completer.Calls())
	req := completer.Request(0)
	require.Len(t, req, 2)
	assert.Contains(t, req[1].Content, "Bonjour")
	assert.Contains(t, req[1].Content, "English")
	assert.NotContains(t, req[0].Content, "tool_call", "slash mode offers no tools")
}

func TestCommandDoesNotRunTools(t *testing.T) {
	completer := testutil.NewScriptedCompleter(listDirective)
	dispatcher := newDispatcher()
	e := New(completer, dispatcher)

	out := e.Command(context.Background(), "ask", "", "What is X?")

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, listDirective, out.Text, "the raw reply is shown")
	assert.Empty(t, dispatcher.calls)
	assert.Equal(t, 1, completer.Calls())
}

func TestCommandNeedsNote(t *testing.T) {
	completer := testutil.NewScriptedCompleter("x")
	e := New(completer, newDispatcher())

	out := e.Command(context.Background(), "summarize", "   ", "")

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrNoNoteContext)
	assert.Zero(t, completer.Calls())
}

func TestCommandIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(testutil.NewScriptedCompleter("done"), newDispatcher())

	out := e.Command(ctx, "ask", "", "q")

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "done", out.Text)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	completer := testutil.NewScriptedCompleter(listDirective, "```tool_call\n{\"name\":\"bogus_tool\"}\n```", "done")
	e := New(completer, newDispatcher(), WithMetrics(metrics))
	e.Chat(context.Background(), Request{Input: "hi"}, Hooks{})

	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.rounds))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.toolCalls.WithLabelValues("list_notes", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.toolCalls.WithLabelValues("unknown", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.turns.WithLabelValues("chat", "completed")))
	assert.Zero(t, promtest.ToFloat64(metrics.modelFailures))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration is reported")
}
