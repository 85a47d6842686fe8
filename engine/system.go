package engine

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"notepilot/model"
	"notepilot/tools"
)

const (
	// PlaceholderText replaces an empty final answer.
	PlaceholderText = "(No response)"

	notePreviewWidth = 4000

	defaultPersona = "You are a helpful writing copilot inside a note-taking app. " +
		"Answer concisely, in the language the user writes in, and use Markdown where it helps."

	slashPersona = "You are a helpful writing assistant. Follow the instruction exactly and reply with the result only."
)

const directiveContract = `To call a tool, reply with exactly one fenced block tagged tool_call whose body is a single JSON object, and nothing else:

` + "```tool_call" + `
{"name": "<tool>", "arguments": {...}}
` + "```" + `

After the tool runs you will receive its result and can answer or call another tool. Call at most one tool per reply. Never invent note ids: use list_notes or search_notes to find them. When no tool is needed, answer normally without a tool_call block.`

// SystemPrompt assembles the persona, tool catalog and call contract.
func SystemPrompt(persona string, catalog string) string {
	var sb strings.Builder
	sb.WriteString(defaultPersona)
	if p := strings.TrimSpace(persona); p != "" {
		sb.WriteString("\n\n")
		sb.WriteString(p)
	}
	sb.WriteString("\n\nYou can manage the user's notes with these tools:\n")
	sb.WriteString(catalog)
	sb.WriteString("\n\n")
	sb.WriteString(directiveContract)
	return sb.String()
}

// noteContext renders the open note as a context block for the model.
func noteContext(note *model.Note, text string) string {
	title := strings.TrimSpace(note.Title)
	if title == "" {
		title = "Untitled"
	}
	if text == "" {
		text = "(empty)"
	}
	text = runewidth.Truncate(text, notePreviewWidth, "\n...(truncated, use read_note for the full text)")

	return fmt.Sprintf("The user currently has this note open.\nNote id: %s\nTitle: %s\nContent:\n%s", note.ID, title, text)
}

// toolResultTurn is the synthetic user turn that feeds a tool result back.
func toolResultTurn(result model.ToolResult) string {
	if result.IsError {
		return fmt.Sprintf("[Tool Error: %s]\n%s", result.Tool, result.Result)
	}
	return fmt.Sprintf("[Tool Result: %s]\n%s", result.Tool, result.Result)
}

// historyMessages converts remembered turns to provider messages. Tool turns
// are replayed as user messages the same way fresh results are.
func historyMessages(history []model.ConversationTurn) []model.Message {
	messages := make([]model.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case model.RoleUser, model.RoleAssistant:
			messages = append(messages, model.Message{Role: turn.Role, Content: turn.Content})
		case model.RoleTool:
			messages = append(messages, model.Message{
				Role:    model.RoleUser,
				Content: toolResultTurn(model.ToolResult{Tool: turn.ToolName, Result: turn.Content}),
			})
		}
	}
	return messages
}

func catalogText(d Dispatcher) string {
	return tools.Describe(d.Catalog())
}
