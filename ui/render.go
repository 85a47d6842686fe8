package ui

import (
	"fmt"
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"notepilot/model"
)

const codeBar = "┃"

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
)

// renderCache memoizes rendered assistant markdown by message id. An entry is
// reused only while the message text and width are unchanged.
type renderCache struct {
	entries map[string]renderEntry
}

type renderEntry struct {
	text     string
	width    int
	rendered string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]renderEntry)}
}

func (c *renderCache) markdown(msg model.ChatMessage, width int) string {
	if e, ok := c.entries[msg.ID]; ok && e.text == msg.Text && e.width == width {
		return e.rendered
	}
	rendered := renderMarkdown(msg.Text, width)
	c.entries[msg.ID] = renderEntry{text: msg.Text, width: width, rendered: rendered}
	return rendered
}

func (c *renderCache) reset() {
	c.entries = make(map[string]renderEntry)
}

// renderTranscript lays out the chat transcript for the viewport. The
// assistant placeholder of a running turn shows the spinner.
func renderTranscript(msgs []model.ChatMessage, cache *renderCache, width int, spinner string) string {
	if len(msgs) == 0 {
		return DimStyle.Render("No messages yet. Ask about your notes or type / for commands.")
	}

	var sb strings.Builder
	for _, msg := range msgs {
		timestamp := DimStyle.Render(msg.CreatedAt.Format("[15:04]"))

		switch msg.Kind {
		case model.KindUser:
			sb.WriteString(formatUserMessage(timestamp, UserStyle.Render("You"), msg.Text))
		case model.KindToolCall:
			fmt.Fprintf(&sb, "%s %s\n\n", timestamp, ToolStyle.Render(msg.Text))
		case model.KindError:
			fmt.Fprintf(&sb, "%s %s\n%s\n\n", timestamp, ErrorStyle.Render("Error"), msg.Text)
		default:
			role := "Copilot"
			if msg.Command != "" {
				role = "Copilot /" + msg.Command
			}
			body := spinner
			if msg.Text != "" {
				body = cache.markdown(msg, width)
			}
			fmt.Fprintf(&sb, "%s %s\n%s\n\n", timestamp, AssistantStyle.Render(role), body)
		}
	}
	return sb.String()
}

func formatUserMessage(timestamp, role, content string) string {
	bar := UserStyle.Render(codeBar)

	var result strings.Builder
	fmt.Fprintf(&result, "%s %s %s\n", bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")
	return result.String()
}

// renderMarkdown renders content for the terminal with autolinks disabled so
// the terminal emulator handles URL detection.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	r := markdown.NewRenderer(width-4, 0)
	rendered := gomarkdown.Render(p.Parse([]byte(content)), r)

	out := inlineCodeRegex.ReplaceAllString(string(rendered), "\x1b[31m$1\x1b[0m")
	return strings.TrimRight(frameCodeBlocks(out, width), "\n")
}

// frameCodeBlocks replaces the renderer's left bar on code lines with
// horizontal rules above and below the block.
func frameCodeBlocks(s string, width int) string {
	rule := func(label string) string {
		n := width - 4 - len(label)
		if n < 0 {
			n = 0
		}
		left := n / 2
		return DimStyle.Render(strings.Repeat("━", left)) + label + DimStyle.Render(strings.Repeat("━", n-left))
	}

	var result []string
	inCode := false
	for _, line := range strings.Split(s, "\n") {
		if idx := strings.Index(line, codeBar); idx >= 0 {
			if !inCode {
				inCode = true
				result = append(result, rule("[code]"))
			}
			line = strings.TrimPrefix(line[idx+len(codeBar):], " ")
			result = append(result, line)
			continue
		}
		if inCode {
			inCode = false
			result = append(result, rule(""))
		}
		result = append(result, line)
	}
	if inCode {
		result = append(result, rule(""))
	}
	return strings.Join(result, "\n")
}

// lastAnswer returns the newest non-empty assistant message text.
func lastAnswer(msgs []model.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == model.KindAssistant && msgs[i].Text != "" {
			return msgs[i].Text
		}
	}
	return ""
}
