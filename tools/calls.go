package tools

import (
	"fmt"
	"strconv"
	"strings"

	"notepilot/model"
)

// Call is a validated tool invocation. Each tool has its own argument type;
// Dispatcher.execute switches over all of them.
type Call interface {
	ToolName() string
}

type ListNotes struct{}

type ReadNote struct {
	NoteID string
}

type CreateNote struct {
	Title   string
	Content string
}

type UpdateNote struct {
	NoteID  string
	Title   *string
	Content *string
}

type DeleteNote struct {
	NoteID string
}

type AppendToNote struct {
	NoteID  string
	Content string
}

type SearchNotes struct {
	Query string
}

func (ListNotes) ToolName() string    { return ToolListNotes }
func (ReadNote) ToolName() string     { return ToolReadNote }
func (CreateNote) ToolName() string   { return ToolCreateNote }
func (UpdateNote) ToolName() string   { return ToolUpdateNote }
func (DeleteNote) ToolName() string   { return ToolDeleteNote }
func (AppendToNote) ToolName() string { return ToolAppendToNote }
func (SearchNotes) ToolName() string  { return ToolSearchNotes }

// UnknownToolError reports a call to a name missing from the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %s", e.Name)
}

// ArgumentError reports a missing or malformed argument.
type ArgumentError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Argument, e.Reason)
}

// Decode validates untyped model output against the catalog and converts it
// to the tool's typed arguments.
func Decode(call model.ToolCall) (Call, error) {
	tool, ok := Lookup(call.Name)
	if !ok {
		return nil, &UnknownToolError{Name: call.Name}
	}

	args := arguments{tool: call.Name, values: call.Arguments}
	for _, name := range tool.InputSchema.Required {
		if _, err := args.required(name); err != nil {
			return nil, err
		}
	}

	switch call.Name {
	case ToolListNotes:
		return ListNotes{}, nil

	case ToolReadNote:
		id, err := args.required("note_id")
		if err != nil {
			return nil, err
		}
		return ReadNote{NoteID: id}, nil

	case ToolCreateNote:
		title, err := args.required("title")
		if err != nil {
			return nil, err
		}
		content, err := args.optional("content")
		if err != nil {
			return nil, err
		}
		c := CreateNote{Title: title}
		if content != nil {
			c.Content = *content
		}
		return c, nil

	case ToolUpdateNote:
		id, err := args.required("note_id")
		if err != nil {
			return nil, err
		}
		title, err := args.optional("title")
		if err != nil {
			return nil, err
		}
		content, err := args.optional("content")
		if err != nil {
			return nil, err
		}
		if title == nil && content == nil {
			return nil, &ArgumentError{Tool: call.Name, Argument: "title", Reason: "or \"content\" is required"}
		}
		return UpdateNote{NoteID: id, Title: title, Content: content}, nil

	case ToolDeleteNote:
		id, err := args.required("note_id")
		if err != nil {
			return nil, err
		}
		return DeleteNote{NoteID: id}, nil

	case ToolAppendToNote:
		id, err := args.required("note_id")
		if err != nil {
			return nil, err
		}
		content, err := args.required("content")
		if err != nil {
			return nil, err
		}
		return AppendToNote{NoteID: id, Content: content}, nil

	case ToolSearchNotes:
		query, err := args.required("query")
		if err != nil {
			return nil, err
		}
		return SearchNotes{Query: query}, nil
	}

	return nil, &UnknownToolError{Name: call.Name}
}

type arguments struct {
	tool   string
	values map[string]any
}

// required returns a non-blank string argument.
func (a arguments) required(name string) (string, error) {
	value, err := a.optional(name)
	if err != nil {
		return "", err
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", &ArgumentError{Tool: a.tool, Argument: name, Reason: "is required"}
	}
	return *value, nil
}

// optional returns nil when the argument is absent or null.
func (a arguments) optional(name string) (*string, error) {
	raw, ok := a.values[name]
	if !ok || raw == nil {
		return nil, nil
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		// Models sometimes emit numeric ids unquoted.
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return nil, &ArgumentError{Tool: a.tool, Argument: name, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	return &s, nil
}
