// Package ui is the terminal chat surface. It renders the controller's
// transcript and forwards input; all conversation state lives in the
// controller and session.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"notepilot/config"
	"notepilot/controller"
	"notepilot/engine"
	"notepilot/model"
	"notepilot/tools"
)

const maxSuggestions = 6

// NoteLister supplies the notes offered as chat context.
type NoteLister interface {
	List(ctx context.Context) ([]model.Note, error)
}

type turnDoneMsg struct {
	out engine.Outcome
	err error
}

type clearedMsg struct{ err error }

type notesLoadedMsg struct {
	notes []model.Note
	err   error
}

type copiedMsg struct{ err error }

// ChatView is the bubbletea model of the chat screen.
type ChatView struct {
	ctrl  *controller.Controller
	notes NoteLister
	title string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     keyMap
	cache    *renderCache

	width, height int
	ready         bool
	busy          bool
	showHelp      bool
	status        string

	suggestions []model.Command
	selected    int

	noteList []model.Note
	noteIdx  int

	copy func(string) error
}

// Option configures a ChatView.
type Option func(*ChatView)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(v *ChatView) {
		v.copy = fn
	}
}

// WithTitle sets the header text, typically provider and model.
func WithTitle(title string) Option {
	return func(v *ChatView) {
		v.title = title
	}
}

// NewChatView creates the chat screen over ctrl. notes may be nil, which
// disables note context selection.
func NewChatView(ctrl *controller.Controller, notes NoteLister, opts ...Option) ChatView {
	ti := textinput.New()
	ti.Placeholder = "Ask about your notes, or / for commands"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	v := ChatView{
		ctrl:    ctrl,
		notes:   notes,
		title:   "notepilot",
		input:   ti,
		spinner: sp,
		keys:    defaultKeyMap(),
		cache:   newRenderCache(),
		noteIdx: -1,
		copy:    clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

func (v ChatView) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, v.spinner.Tick, v.loadNotes())
}

func (v ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.input.Width = msg.Width - 4
		if !v.ready {
			v.viewport = viewport.New(msg.Width, v.viewportHeight())
			v.ready = true
		} else {
			v.viewport.Width = msg.Width
			v.viewport.Height = v.viewportHeight()
		}
		v.refresh(true)
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		if v.busy {
			v.refresh(true)
		}
		return v, cmd

	case turnDoneMsg:
		v.busy = false
		v.status = turnStatus(msg.out, msg.err)
		v.refresh(true)
		if changedNotes(msg.out) {
			return v, v.loadNotes()
		}
		return v, nil

	case clearedMsg:
		if msg.err != nil {
			v.status = "Clear failed: " + msg.err.Error()
		} else {
			v.cache.reset()
			v.status = "Chat cleared"
		}
		v.refresh(true)
		return v, nil

	case notesLoadedMsg:
		if msg.err != nil {
			config.Log.Warnf("[UI] failed to load notes: %v", msg.err)
			return v, nil
		}
		v.noteList = msg.notes
		v.syncOpenNote()
		return v, nil

	case copiedMsg:
		if msg.err != nil {
			v.status = "Copy failed: " + msg.err.Error()
		} else {
			v.status = "Copied last answer"
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v ChatView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		v.ctrl.Abort()
		return v, tea.Quit

	case key.Matches(msg, v.keys.Help):
		v.showHelp = !v.showHelp
		return v, nil

	case key.Matches(msg, v.keys.Stop):
		if v.busy {
			if v.ctrl.Abort() {
				v.status = "Stopping..."
			}
			return v, nil
		}
		v.setInput("")
		return v, nil

	case key.Matches(msg, v.keys.Prev) && len(v.suggestions) > 0:
		v.selected = (v.selected - 1 + len(v.suggestions)) % len(v.suggestions)
		return v, nil

	case key.Matches(msg, v.keys.Next) && len(v.suggestions) > 0:
		v.selected = (v.selected + 1) % len(v.suggestions)
		return v, nil

	case key.Matches(msg, v.keys.Complete):
		v.completeSuggestion()
		return v, nil

	case key.Matches(msg, v.keys.Send):
		if len(v.suggestions) > 0 && !strings.Contains(v.input.Value(), " ") {
			v.completeSuggestion()
			return v, nil
		}
		return v.submit()

	case key.Matches(msg, v.keys.Clear):
		if v.busy {
			v.status = "Wait for the reply before clearing"
			return v, nil
		}
		return v, v.clear()

	case key.Matches(msg, v.keys.Note):
		v.cycleNote()
		return v, nil

	case key.Matches(msg, v.keys.Copy):
		return v, v.copyLastAnswer()

	case key.Matches(msg, v.keys.PageUp), key.Matches(msg, v.keys.PageDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	v.syncInput()
	return v, cmd
}

func (v ChatView) submit() (tea.Model, tea.Cmd) {
	if v.busy {
		v.status = "Still working on the last message"
		return v, nil
	}
	if strings.TrimSpace(v.input.Value()) == "" {
		return v, nil
	}

	v.ctrl.SetInput(v.input.Value())
	v.input.Reset()
	v.suggestions = nil
	v.busy = true
	v.status = ""

	ctrl := v.ctrl
	return v, tea.Batch(v.spinner.Tick, func() tea.Msg {
		out, err := ctrl.Submit(context.Background())
		return turnDoneMsg{out: out, err: err}
	})
}

func (v ChatView) clear() tea.Cmd {
	ctrl := v.ctrl
	return func() tea.Msg {
		return clearedMsg{err: ctrl.Clear(context.Background())}
	}
}

func (v ChatView) loadNotes() tea.Cmd {
	if v.notes == nil {
		return nil
	}
	notes := v.notes
	return func() tea.Msg {
		list, err := notes.List(context.Background())
		return notesLoadedMsg{notes: list, err: err}
	}
}

func (v ChatView) copyLastAnswer() tea.Cmd {
	answer := lastAnswer(v.ctrl.Messages())
	if answer == "" {
		return nil
	}
	copyFn := v.copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(answer)}
	}
}

// cycleNote steps the note context through none and each loaded note.
func (v *ChatView) cycleNote() {
	if len(v.noteList) == 0 {
		v.status = "No notes available"
		return
	}
	v.noteIdx++
	if v.noteIdx >= len(v.noteList) {
		v.noteIdx = -1
		v.ctrl.SetNote(nil)
		v.status = "Note context cleared"
		return
	}
	note := v.noteList[v.noteIdx]
	v.ctrl.SetNote(&note)
	v.status = "Using note: " + noteTitle(note)
}

// syncOpenNote points the note context at the reloaded copy of the open
// note, or closes it when the note is gone.
func (v *ChatView) syncOpenNote() {
	open := v.ctrl.Note()
	v.noteIdx = -1
	if open == nil {
		return
	}
	for i, n := range v.noteList {
		if n.ID == open.ID {
			v.noteIdx = i
			v.ctrl.SetNote(&v.noteList[i])
			return
		}
	}
	v.ctrl.SetNote(nil)
	v.status = "Open note was deleted"
}

func (v *ChatView) completeSuggestion() {
	if len(v.suggestions) == 0 {
		return
	}
	v.ctrl.SelectCommand(v.suggestions[v.selected])
	v.input.SetValue(v.ctrl.Input())
	v.input.CursorEnd()
	v.suggestions = nil
	v.selected = 0
}

func (v *ChatView) setInput(s string) {
	v.input.SetValue(s)
	v.syncInput()
}

func (v *ChatView) syncInput() {
	v.ctrl.SetInput(v.input.Value())
	v.suggestions = v.ctrl.Suggestions()
	if len(v.suggestions) > maxSuggestions {
		v.suggestions = v.suggestions[:maxSuggestions]
	}
	if v.selected >= len(v.suggestions) {
		v.selected = 0
	}
}

func (v *ChatView) refresh(gotoBottom bool) {
	if !v.ready {
		return
	}
	v.viewport.SetContent(renderTranscript(v.ctrl.Messages(), v.cache, v.width, v.spinner.View()))
	if gotoBottom {
		v.viewport.GotoBottom()
	}
}

func (v ChatView) viewportHeight() int {
	// header, input, status and footer lines
	h := v.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (v ChatView) View() string {
	if !v.ready {
		return "Loading..."
	}
	if v.showHelp {
		return v.renderHelp()
	}

	var sb strings.Builder
	sb.WriteString(v.header())
	sb.WriteString("\n")
	sb.WriteString(v.viewport.View())
	sb.WriteString("\n")
	if s := v.renderSuggestions(); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString(v.input.View())
	sb.WriteString("\n")
	sb.WriteString(StatusStyle.Render(v.status))
	sb.WriteString("\n")
	sb.WriteString(v.keys.footer(v.busy))
	return sb.String()
}

func (v ChatView) header() string {
	noteLabel := DimStyle.Render("no note selected")
	if note := v.ctrl.Note(); note != nil {
		noteLabel = SelectedStyle.Render(runewidth.Truncate(noteTitle(*note), 40, "..."))
	}
	line := TitleStyle.Render(v.title) + "  " + noteLabel
	return lipgloss.NewStyle().MaxWidth(v.width).Render(line)
}

func (v ChatView) renderSuggestions() string {
	if len(v.suggestions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(v.suggestions))
	for i, cmd := range v.suggestions {
		line := fmt.Sprintf("/%-10s %s", cmd.Name, cmd.Description)
		if i == v.selected {
			lines = append(lines, SelectedStyle.Render("▸ "+line))
		} else {
			lines = append(lines, DimStyle.Render("  "+line))
		}
	}
	return BorderStyle.Render(strings.Join(lines, "\n"))
}

func (v ChatView) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(UserStyle.Render("notepilot - Keyboard Shortcuts"))
	sb.WriteString("\n\n")
	for _, b := range v.keys.all() {
		fmt.Fprintf(&sb, "• %-8s %s\n", b.Help().Key, b.Help().Desc)
	}
	sb.WriteString("\n")
	sb.WriteString(AssistantStyle.Render("## Commands"))
	sb.WriteString("\n")
	for _, cmd := range controller.Suggest("/") {
		fmt.Fprintf(&sb, "• /%-10s %s\n", cmd.Name, cmd.Description)
	}
	sb.WriteString("\n")
	sb.WriteString(HelpStyle.Render("Press F1 to close"))
	return sb.String()
}

func turnStatus(out engine.Outcome, err error) string {
	switch {
	case errors.Is(err, controller.ErrBusy):
		return "Still working on the last message"
	case errors.Is(err, controller.ErrEmptyInput):
		return ""
	case err != nil:
		return err.Error()
	}

	switch out.Status {
	case engine.StatusRoundLimit:
		return fmt.Sprintf("Stopped after %d rounds", out.Rounds)
	case engine.StatusCancelled:
		return "Cancelled"
	case engine.StatusFailed:
		return "Request failed"
	default:
		return ""
	}
}

func changedNotes(out engine.Outcome) bool {
	for _, r := range out.ToolResults {
		if !r.IsError && tools.ChangesNotes(r.Tool) {
			return true
		}
	}
	return false
}

func noteTitle(n model.Note) string {
	if strings.TrimSpace(n.Title) == "" {
		return "Untitled"
	}
	return n.Title
}

// Run starts the full-screen chat program.
func Run(v ChatView) error {
	p := tea.NewProgram(v, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
