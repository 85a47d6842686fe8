// Package prompt builds single-shot instructions for slash commands.
package prompt

import (
	"fmt"
	"strings"

	"notepilot/model"
)

const (
	CommandSummarize = "summarize"
	CommandTranslate = "translate"
	CommandCorrect   = "correct"
	CommandExplain   = "explain"
	CommandIdeas     = "ideas"
	CommandTags      = "tags"
	CommandAsk       = "ask"
)

var commands = []model.Command{
	{Name: CommandSummarize, Description: "Summarize the current note", Action: "Summarize"},
	{Name: CommandTranslate, Description: "Translate the current note to English", Action: "Translate"},
	{Name: CommandCorrect, Description: "Fix spelling and grammar", Action: "Correct"},
	{Name: CommandExplain, Description: "Explain the note in simple terms", Action: "Explain"},
	{Name: CommandIdeas, Description: "Suggest related ideas", Action: "Brainstorm"},
	{Name: CommandTags, Description: "Suggest tags for the note", Action: "Tag"},
	{Name: CommandAsk, Description: "Ask a question about the note", Action: "Ask"},
}

// Commands returns the slash command registry in display order.
func Commands() []model.Command {
	out := make([]model.Command, len(commands))
	copy(out, commands)
	return out
}

// Lookup finds a registered command by name.
func Lookup(name string) (model.Command, bool) {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return model.Command{}, false
}

// NeedsNote reports whether a command operates on the open note's text.
// Unknown commands and ask can run without one.
func NeedsNote(command string) bool {
	switch command {
	case CommandSummarize, CommandTranslate, CommandCorrect, CommandExplain, CommandIdeas, CommandTags:
		return true
	}
	return false
}

// ParseSlash splits "/ask What is X?" into ("ask", "What is X?").
func ParseSlash(input string) (command, args string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(input, "/")
	command, args, _ = strings.Cut(body, " ")
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		return "", "", false
	}
	return command, strings.TrimSpace(args), true
}

// Build maps a command, the note text and an optional argument to the final
// instruction sent to the model.
func Build(command, text, args string) string {
	switch command {
	case CommandSummarize:
		return fmt.Sprintf("Summarize the following note in a few concise bullet points. Keep the key facts and decisions.\n\nNote:\n%s", text)
	case CommandTranslate:
		return fmt.Sprintf("Translate the following text to English. Preserve the formatting and reply with the translation only.\n\nText:\n%s", text)
	case CommandCorrect:
		return fmt.Sprintf("Correct the spelling, grammar and punctuation of the following text. Keep the original meaning and tone, and reply with the corrected text only.\n\nText:\n%s", text)
	case CommandExplain:
		return fmt.Sprintf("Explain the following note in simple terms, as if to someone new to the topic.\n\nNote:\n%s", text)
	case CommandIdeas:
		return fmt.Sprintf("Based on the following note, suggest 5 related ideas or next steps as a numbered list.\n\nNote:\n%s", text)
	case CommandTags:
		return fmt.Sprintf("Suggest 3 to 5 short, lowercase tags for the following note. Reply with a comma-separated list only.\n\nNote:\n%s", text)
	case CommandAsk:
		return fmt.Sprintf("Answer the question using the note below as context. If the note does not contain the answer, say so.\n\nNote:\n%s\n\nQuestion: %s", text, args)
	default:
		request := "Analyze this and share useful observations."
		if strings.TrimSpace(args) != "" {
			request = args
		}
		if strings.TrimSpace(text) == "" {
			return request
		}
		return fmt.Sprintf("%s\n\nNote:\n%s", request, text)
	}
}
