package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mattn/go-runewidth"

	"notepilot/config"
	"notepilot/extract"
	"notepilot/model"
)

const (
	timeLayout     = "2006-01-02 15:04"
	maxReadWidth   = 8000
	snippetWidth   = 100
	snippetContext = 40
)

// Observer receives note change notifications after successful mutations.
// Nil callbacks are skipped.
type Observer struct {
	OnNoteCreated func(model.Note)
	OnNoteUpdated func(model.Note)
	OnNoteDeleted func(id string)
}

func (o Observer) created(n model.Note) {
	if o.OnNoteCreated != nil {
		o.OnNoteCreated(n)
	}
}

func (o Observer) updated(n model.Note) {
	if o.OnNoteUpdated != nil {
		o.OnNoteUpdated(n)
	}
}

func (o Observer) deleted(id string) {
	if o.OnNoteDeleted != nil {
		o.OnNoteDeleted(id)
	}
}

// Dispatcher executes tool calls against a NoteStore. It is the error
// boundary between store failures and the model-facing conversation: every
// outcome, including panics in the store, comes back as a ToolResult.
type Dispatcher struct {
	store     model.NoteStore
	extractor *extract.Extractor
	observer  Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithExtractor shares a memoizing extractor with other components.
func WithExtractor(e *extract.Extractor) Option {
	return func(d *Dispatcher) {
		d.extractor = e
	}
}

// WithObserver installs note change callbacks.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// NewDispatcher creates a Dispatcher over store.
func NewDispatcher(store model.NoteStore, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}
	if d.extractor == nil {
		d.extractor = extract.New(extract.DefaultCacheSize)
	}
	return d
}

// Catalog returns the tools this dispatcher can execute.
func (d *Dispatcher) Catalog() []mcptypes.Tool {
	return Catalog()
}

// Dispatch validates and executes call.
func (d *Dispatcher) Dispatch(ctx context.Context, call model.ToolCall) (result model.ToolResult) {
	result.Tool = call.Name

	defer func() {
		if r := recover(); r != nil {
			config.Log.Errorf("[Tools] %s panicked: %v", call.Name, r)
			result = model.ToolResult{
				Tool:    call.Name,
				Result:  fmt.Sprintf("%s failed: %v", call.Name, r),
				IsError: true,
			}
		}
	}()

	typed, err := Decode(call)
	if err != nil {
		config.Log.Debugf("[Tools] rejected call %q: %v", call.Name, err)
		result.Result = err.Error()
		result.IsError = true
		return result
	}

	text, err := d.execute(ctx, typed)
	if err != nil {
		config.Log.Debugf("[Tools] %s failed: %v", call.Name, err)
		result.Result = fmt.Sprintf("%s failed: %v", call.Name, err)
		result.IsError = true
		return result
	}

	config.Log.Debugf("[Tools] %s ok (%d chars)", call.Name, len(text))
	result.Result = text
	return result
}

func (d *Dispatcher) execute(ctx context.Context, call Call) (string, error) {
	switch c := call.(type) {
	case ListNotes:
		return d.listNotes(ctx)
	case ReadNote:
		return d.readNote(ctx, c)
	case CreateNote:
		return d.createNote(ctx, c)
	case UpdateNote:
		return d.updateNote(ctx, c)
	case DeleteNote:
		return d.deleteNote(ctx, c)
	case AppendToNote:
		return d.appendToNote(ctx, c)
	case SearchNotes:
		return d.searchNotes(ctx, c)
	default:
		return "", fmt.Errorf("no handler for %s", call.ToolName())
	}
}

func (d *Dispatcher) listNotes(ctx context.Context) (string, error) {
	notes, err := d.store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "No notes found.", nil
	}
	return FormatNoteList(notes), nil
}

func (d *Dispatcher) readNote(ctx context.Context, c ReadNote) (string, error) {
	note, err := d.getNote(ctx, c.NoteID)
	if err != nil {
		return "", err
	}

	text := d.extractor.PlainText(note.Content)
	if text == "" {
		text = "(empty)"
	}
	text = runewidth.Truncate(text, maxReadWidth, "\n...(truncated)")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Note [%s]: %s\n", note.ID, displayTitle(note.Title))
	fmt.Fprintf(&sb, "Modified: %s\n", formatTime(note.UpdatedAt))
	if note.IsPinned {
		sb.WriteString("Pinned: yes\n")
	}
	sb.WriteString("\n")
	sb.WriteString(text)
	return sb.String(), nil
}

func (d *Dispatcher) createNote(ctx context.Context, c CreateNote) (string, error) {
	note, err := d.store.Create(ctx, c.Title, c.Content)
	if err != nil {
		return "", err
	}
	d.observer.created(*note)
	return fmt.Sprintf("Created note [%s]: %q", note.ID, note.Title), nil
}

func (d *Dispatcher) updateNote(ctx context.Context, c UpdateNote) (string, error) {
	note, err := d.store.Update(ctx, c.NoteID, model.NotePatch{Title: c.Title, Content: c.Content})
	if err != nil {
		return "", notFound(c.NoteID, err)
	}
	d.observer.updated(*note)
	return fmt.Sprintf("Updated note [%s]: %q", note.ID, note.Title), nil
}

func (d *Dispatcher) deleteNote(ctx context.Context, c DeleteNote) (string, error) {
	note, err := d.getNote(ctx, c.NoteID)
	if err != nil {
		return "", err
	}
	if err := d.store.Delete(ctx, c.NoteID); err != nil {
		return "", notFound(c.NoteID, err)
	}
	d.observer.deleted(c.NoteID)
	return fmt.Sprintf("Deleted note [%s]: %q", note.ID, note.Title), nil
}

func (d *Dispatcher) appendToNote(ctx context.Context, c AppendToNote) (string, error) {
	if err := d.store.Append(ctx, c.NoteID, c.Content); err != nil {
		return "", notFound(c.NoteID, err)
	}

	note, err := d.store.Get(ctx, c.NoteID)
	if err != nil || note == nil {
		// The append itself succeeded; report it without a title.
		return fmt.Sprintf("Appended to note [%s]", c.NoteID), nil
	}
	d.observer.updated(*note)
	return fmt.Sprintf("Appended to note [%s]: %q", note.ID, note.Title), nil
}

func (d *Dispatcher) searchNotes(ctx context.Context, c SearchNotes) (string, error) {
	notes, err := d.store.List(ctx)
	if err != nil {
		return "", err
	}

	query := strings.TrimSpace(c.Query)
	var sb strings.Builder
	matches := 0
	for _, note := range notes {
		text := d.extractor.PlainText(note.Content)
		inTitle := indexFold(note.Title, query) >= 0
		idx := indexFold(text, query)
		if !inTitle && idx < 0 {
			continue
		}

		matches++
		fmt.Fprintf(&sb, "%d. [%s] %s", matches, note.ID, displayTitle(note.Title))
		if snippet := snippetAround(text, idx); snippet != "" {
			fmt.Fprintf(&sb, " - %s", snippet)
		}
		sb.WriteString("\n")
	}

	if matches == 0 {
		return fmt.Sprintf("No notes match %q.", c.Query), nil
	}
	return fmt.Sprintf("Found %d notes matching %q:\n%s", matches, c.Query, strings.TrimRight(sb.String(), "\n")), nil
}

func (d *Dispatcher) getNote(ctx context.Context, id string) (*model.Note, error) {
	note, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	if note == nil {
		return nil, fmt.Errorf("note %s not found", id)
	}
	return note, nil
}

// FormatNoteList renders notes as an enumerated, model-readable list.
func FormatNoteList(notes []model.Note) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d notes:\n", len(notes))
	for i, note := range notes {
		fmt.Fprintf(&sb, "%d. [%s] %s (modified %s", i+1, note.ID, displayTitle(note.Title), formatTime(note.UpdatedAt))
		if note.IsPinned {
			sb.WriteString(", pinned")
		}
		sb.WriteString(")\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func notFound(id string, err error) error {
	if errors.Is(err, model.ErrNoteNotFound) {
		return fmt.Errorf("note %s not found", id)
	}
	return err
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(timeLayout)
}

// indexFold returns the rune offset of the first case-insensitive match of
// query in text, or -1. Offsets count runes of text itself, so they stay
// valid when lowercasing would change byte lengths.
func indexFold(text, query string) int {
	hay, needle := lowerRunes(text), lowerRunes(query)
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func lowerRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

// snippetAround returns a single-line excerpt of text starting a little
// before rune offset idx. A negative idx excerpts from the start.
func snippetAround(text string, idx int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if idx > len(runes) {
		idx = 0
	}
	start := max(idx-snippetContext, 0)
	snippet := strings.Join(strings.Fields(string(runes[start:])), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	return runewidth.Truncate(snippet, snippetWidth, "...")
}
