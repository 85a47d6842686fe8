// Package extract turns note content (Markdown or the legacy JSON block tree)
// into plain text suitable for prompts and search.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	trailingWsRe = regexp.MustCompile(`[ \t]+\n`)
	taskMarkerRe = regexp.MustCompile(`(?m)^\[[ xX]\][ \t]+`)
)

// PlainText converts note content to plain text. It never fails: malformed
// input degrades to a rougher approximation, empty input yields "".
func PlainText(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "[") {
		if text, ok := blockText(trimmed); ok {
			return text
		}
	}

	return markdownText(content)
}

// blockText walks a legacy block tree. ok is false when the input is not a
// JSON array.
func blockText(content string) (string, bool) {
	var blocks []any
	if err := json.Unmarshal([]byte(content), &blocks); err != nil {
		return "", false
	}

	var parts []string
	collectText(blocks, &parts)
	return strings.TrimSpace(strings.Join(parts, " ")), true
}

func collectText(node any, parts *[]string) {
	switch n := node.(type) {
	case []any:
		for _, child := range n {
			collectText(child, parts)
		}
	case map[string]any:
		if text, ok := n["text"].(string); ok && text != "" {
			*parts = append(*parts, text)
		}
		if content, ok := n["content"]; ok {
			collectText(content, parts)
		}
		if children, ok := n["children"]; ok {
			collectText(children, parts)
		}
	}
}

func markdownText(content string) (result string) {
	defer func() {
		// The parser is third-party code fed arbitrary user text.
		if r := recover(); r != nil {
			result = collapse(content)
		}
	}()

	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(content), p)

	var sb strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.CodeBlock, *ast.HorizontalRule, *ast.HTMLBlock:
			return ast.SkipChildren
		case *ast.Image:
			return ast.SkipChildren
		case *ast.HTMLSpan:
			return ast.GoToNext
		case *ast.Text:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Softbreak, *ast.Hardbreak:
			if entering {
				sb.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TableRow:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.TableCell:
			if !entering {
				sb.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})

	return collapse(taskMarkerRe.ReplaceAllString(sb.String(), ""))
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingWsRe.ReplaceAllString(s, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
