package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"notepilot/model"
)

// DirectiveTag is the info string of the fenced block carrying a tool call.
const DirectiveTag = "tool_call"

var (
	directiveOpenRe  = regexp.MustCompile("```" + DirectiveTag + "[ \t]*\r?\n")
	fenceAfterBodyRe = regexp.MustCompile("^[ \t]*\r?\n?[ \t]*```")
	closingLineRe    = regexp.MustCompile("(?m)^[ \t]*```[ \t]*\r?$")
	danglingOpenRe   = regexp.MustCompile("(?m)^[ \t]*```" + DirectiveTag + "[ \t]*\r?$\n?")
	blankLinesRe     = regexp.MustCompile(`\n{3,}`)

	// Tool calls some models emit outside of the fence.
	leakedJSONArrayRe = regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}\s*\]`)
	leakedJSONObjRe   = regexp.MustCompile(`\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}`)
	leakedXMLRe       = regexp.MustCompile(`<(?:tool_call|function_call)>\s*<name>[^<]+</name>\s*<arguments>[^<]*</arguments>\s*</(?:tool_call|function_call)>`)
	leakedQwenXMLRe   = regexp.MustCompile(`(?s)<function=[^>]+><parameter=[^>]+>.*?</parameter></function>(?:</tool_call>)?`)
)

type directive struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// decodeDirective parses a directive body. The body must be exactly one JSON
// object with a non-empty name; arguments may be omitted or null.
func decodeDirective(body string) (model.ToolCall, bool) {
	var d directive
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &d); err != nil {
		return model.ToolCall{}, false
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return model.ToolCall{}, false
	}
	if d.Arguments == nil {
		d.Arguments = map[string]any{}
	}
	return model.ToolCall{Name: name, Arguments: d.Arguments}, true
}

// block is one fenced directive found in a reply.
type block struct {
	start, end int
	body       string
}

// nextBlock finds the first terminated directive block at or after from.
// The body is read as one JSON value first so that fences inside string
// values do not end the block; a body that is not JSON runs to the first
// line holding only a closing fence.
func nextBlock(reply string, from int) (block, bool) {
	for from < len(reply) {
		loc := directiveOpenRe.FindStringIndex(reply[from:])
		if loc == nil {
			return block{}, false
		}
		start, bodyStart := from+loc[0], from+loc[1]
		rest := reply[bodyStart:]

		if n, blockLen, ok := jsonBody(rest); ok {
			return block{start: start, end: bodyStart + blockLen, body: rest[:n]}, true
		}
		if m := closingLineRe.FindStringIndex(rest); m != nil {
			return block{start: start, end: bodyStart + m[1], body: rest[:m[0]]}, true
		}
		from = bodyStart
	}
	return block{}, false
}

// jsonBody reports the length of the JSON value opening rest and of the
// block through its closing fence.
func jsonBody(rest string) (n, blockLen int, ok bool) {
	dec := json.NewDecoder(strings.NewReader(rest))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return 0, 0, false
	}
	n = int(dec.InputOffset())
	m := fenceAfterBodyRe.FindStringIndex(rest[n:])
	if m == nil {
		return 0, 0, false
	}
	return n, n + m[1], true
}

// ParseDirective returns the tool call requested by reply. Only the first
// directive block is considered; if its body is malformed the reply carries
// no tool call.
func ParseDirective(reply string) (model.ToolCall, bool) {
	b, ok := nextBlock(reply, 0)
	if !ok {
		return model.ToolCall{}, false
	}
	return decodeDirective(b.body)
}

// StripDirectives removes tool-call markup from text meant for display.
// Well-formed directive blocks disappear entirely; malformed ones lose their
// fence but keep the body, which is treated as prose.
func StripDirectives(reply string) string {
	var sb strings.Builder
	pos := 0
	for {
		b, ok := nextBlock(reply, pos)
		if !ok {
			break
		}
		sb.WriteString(reply[pos:b.start])
		if _, ok := decodeDirective(b.body); !ok {
			sb.WriteString(b.body)
		}
		pos = b.end
	}
	sb.WriteString(reply[pos:])
	text := danglingOpenRe.ReplaceAllString(sb.String(), "")

	text = leakedJSONArrayRe.ReplaceAllString(text, "")
	text = leakedJSONObjRe.ReplaceAllString(text, "")
	text = leakedXMLRe.ReplaceAllString(text, "")
	text = leakedQwenXMLRe.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// FormatDirective renders call in the wire format models are asked to use.
func FormatDirective(call model.ToolCall) string {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(directive{Name: call.Name, Arguments: args})
	if err != nil {
		body = []byte(`{"name":"` + call.Name + `","arguments":{}}`)
	}
	return "```" + DirectiveTag + "\n" + string(body) + "\n```"
}
