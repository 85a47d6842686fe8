package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepilot/extract"
	"notepilot/model"
)

func newTestExtractor() *extract.Extractor {
	return extract.New(16)
}

func TestDecode(t *testing.T) {
	title := "New title"
	tests := []struct {
		name string
		call model.ToolCall
		want Call
	}{
		{
			name: "list",
			call: model.ToolCall{Name: ToolListNotes},
			want: ListNotes{},
		},
		{
			name: "read",
			call: model.ToolCall{Name: ToolReadNote, Arguments: map[string]any{"note_id": "n1"}},
			want: ReadNote{NoteID: "n1"},
		},
		{
			name: "create without content",
			call: model.ToolCall{Name: ToolCreateNote, Arguments: map[string]any{"title": "T"}},
			want: CreateNote{Title: "T"},
		},
		{
			name: "update title only",
			call: model.ToolCall{Name: ToolUpdateNote, Arguments: map[string]any{"note_id": "n1", "title": title, "content": nil}},
			want: UpdateNote{NoteID: "n1", Title: &title},
		},
		{
			name: "append",
			call: model.ToolCall{Name: ToolAppendToNote, Arguments: map[string]any{"note_id": "n1", "content": "more"}},
			want: AppendToNote{NoteID: "n1", Content: "more"},
		},
		{
			name: "search",
			call: model.ToolCall{Name: ToolSearchNotes, Arguments: map[string]any{"query": "x"}},
			want: SearchNotes{Query: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.call)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.call.Name, got.ToolName())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(model.ToolCall{Name: "bogus_tool"})
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bogus_tool", unknown.Name)

	_, err = Decode(model.ToolCall{Name: ToolUpdateNote, Arguments: map[string]any{"note_id": "abc"}})
	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, ToolUpdateNote, argErr.Tool)

	_, err = Decode(model.ToolCall{Name: ToolReadNote, Arguments: map[string]any{"note_id": true}})
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "note_id", argErr.Argument)
}

func TestCatalog(t *testing.T) {
	names := make([]string, 0)
	for _, tool := range Catalog() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		ToolListNotes, ToolReadNote, ToolCreateNote, ToolUpdateNote,
		ToolDeleteNote, ToolAppendToNote, ToolSearchNotes,
	}, names)

	tool, ok := Lookup(ToolAppendToNote)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"note_id", "content"}, tool.InputSchema.Required)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	text := Describe(Catalog())

	assert.Contains(t, text, "- list_notes(): ")
	assert.Contains(t, text, "- read_note(note_id): Read the full text of a note.")
	assert.Contains(t, text, "- update_note(note_id, content?, title?)")
}
