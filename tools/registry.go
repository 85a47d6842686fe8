// Package tools defines the note tools the copilot may call and dispatches
// parsed calls against a model.NoteStore.
package tools

import (
	"fmt"
	"sort"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	ToolListNotes    = "list_notes"
	ToolReadNote     = "read_note"
	ToolCreateNote   = "create_note"
	ToolUpdateNote   = "update_note"
	ToolDeleteNote   = "delete_note"
	ToolAppendToNote = "append_to_note"
	ToolSearchNotes  = "search_notes"
)

// ChangesNotes reports whether the named tool writes to the note store.
func ChangesNotes(name string) bool {
	switch name {
	case ToolCreateNote, ToolUpdateNote, ToolDeleteNote, ToolAppendToNote:
		return true
	}
	return false
}

var catalog = []mcptypes.Tool{
	mcptypes.NewTool(ToolListNotes,
		mcptypes.WithDescription("List all notes with their id, title, last modified date and pinned flag."),
	),
	mcptypes.NewTool(ToolReadNote,
		mcptypes.WithDescription("Read the full text of a note."),
		mcptypes.WithString("note_id", mcptypes.Required(), mcptypes.Description("Id of the note to read")),
	),
	mcptypes.NewTool(ToolCreateNote,
		mcptypes.WithDescription("Create a new note."),
		mcptypes.WithString("title", mcptypes.Required(), mcptypes.Description("Title of the new note")),
		mcptypes.WithString("content", mcptypes.Description("Markdown body of the new note")),
	),
	mcptypes.NewTool(ToolUpdateNote,
		mcptypes.WithDescription("Replace the title and/or content of a note. At least one of title or content is required."),
		mcptypes.WithString("note_id", mcptypes.Required(), mcptypes.Description("Id of the note to update")),
		mcptypes.WithString("title", mcptypes.Description("New title")),
		mcptypes.WithString("content", mcptypes.Description("New Markdown body, replaces the old one")),
	),
	mcptypes.NewTool(ToolDeleteNote,
		mcptypes.WithDescription("Delete a note permanently."),
		mcptypes.WithString("note_id", mcptypes.Required(), mcptypes.Description("Id of the note to delete")),
	),
	mcptypes.NewTool(ToolAppendToNote,
		mcptypes.WithDescription("Append Markdown text to the end of a note."),
		mcptypes.WithString("note_id", mcptypes.Required(), mcptypes.Description("Id of the note to extend")),
		mcptypes.WithString("content", mcptypes.Required(), mcptypes.Description("Markdown text to append")),
	),
	mcptypes.NewTool(ToolSearchNotes,
		mcptypes.WithDescription("Search notes whose title or text contains the query (case-insensitive)."),
		mcptypes.WithString("query", mcptypes.Required(), mcptypes.Description("Text to look for")),
	),
}

// Catalog returns the tool definitions in a stable order.
func Catalog() []mcptypes.Tool {
	out := make([]mcptypes.Tool, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a tool definition by name.
func Lookup(name string) (mcptypes.Tool, bool) {
	for _, tool := range catalog {
		if tool.Name == name {
			return tool, true
		}
	}
	return mcptypes.Tool{}, false
}

// Describe renders the catalog as plain text for the system prompt, e.g.
//
//	- read_note(note_id): Read the full text of a note.
func Describe(tools []mcptypes.Tool) string {
	var sb strings.Builder
	for _, tool := range tools {
		sb.WriteString("- ")
		sb.WriteString(tool.Name)
		sb.WriteString("(")
		sb.WriteString(strings.Join(argumentList(tool), ", "))
		sb.WriteString("): ")
		sb.WriteString(tool.Description)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func argumentList(tool mcptypes.Tool) []string {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	// Required first, then alphabetical, so the prompt is deterministic.
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	args := make([]string, len(names))
	for i, name := range names {
		args[i] = name
		if !required[name] {
			args[i] = fmt.Sprintf("%s?", name)
		}
	}
	return args
}
