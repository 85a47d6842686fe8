package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "  \n\t",
			expected: "",
		},
		{
			name:     "legacy block paragraph",
			input:    `[{"type":"paragraph","content":[{"type":"text","text":"Hello world"}]}]`,
			expected: "Hello world",
		},
		{
			name:     "legacy blocks with children",
			input:    `[{"type":"heading","content":[{"type":"text","text":"Title"}],"children":[{"type":"paragraph","content":[{"type":"text","text":"nested"}]}]},{"type":"paragraph","content":[{"type":"text","text":"last"}]}]`,
			expected: "Title nested last",
		},
		{
			name:     "empty block array",
			input:    `[]`,
			expected: "",
		},
		{
			name:     "plain sentence",
			input:    "Just a sentence.",
			expected: "Just a sentence.",
		},
		{
			name:     "emphasis markers",
			input:    "Some **bold**, *italic* and ~~gone~~ words",
			expected: "Some bold, italic and gone words",
		},
		{
			name:     "inline code keeps text",
			input:    "Run `go test` now",
			expected: "Run go test now",
		},
		{
			name:     "link keeps text",
			input:    "See [the docs](https://example.com) for more",
			expected: "See the docs for more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.expected {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPlainTextMarkdownStructure(t *testing.T) {
	got := PlainText("## Heading\nSome text here")
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "Some text here")
	assert.NotContains(t, got, "#")
}

func TestPlainTextDropsCodeBlocksAndImages(t *testing.T) {
	input := "Intro\n\n```go\nfmt.Println(\"hidden\")\n```\n\n![alt text](pic.png)\n\nOutro"
	got := PlainText(input)

	assert.Contains(t, got, "Intro")
	assert.Contains(t, got, "Outro")
	assert.NotContains(t, got, "hidden")
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "pic.png")
}

func TestPlainTextListsAndQuotes(t *testing.T) {
	input := "> quoted line\n\n- first\n- second\n\n1. one\n2. two\n\n---\n\nend"
	got := PlainText(input)

	for _, want := range []string{"quoted line", "first", "second", "one", "two", "end"} {
		assert.Contains(t, got, want)
	}
	for _, marker := range []string{"> ", "- ", "1. ", "---"} {
		assert.NotContains(t, got, marker)
	}
	assert.NotContains(t, got, "\n\n\n")
}

func TestPlainTextInvalidJSONFallsBackToMarkdown(t *testing.T) {
	require.NotPanics(t, func() {
		got := PlainText(`[{"type": "paragraph", "content": [`)
		assert.NotEmpty(t, got)
	})

	got := PlainText("[a link](https://example.com) at the start")
	assert.Equal(t, "a link at the start", got)
}

func TestExtractorMemoizes(t *testing.T) {
	e := New(10)
	content := "# Title\n\nBody"

	first := e.PlainText(content)
	require.True(t, e.Contains(content))
	assert.Equal(t, first, e.PlainText(content))
	assert.Equal(t, 1, e.Len())

	assert.Equal(t, "", e.PlainText(""))
	assert.Equal(t, 1, e.Len())
}

func TestExtractorEvictsOldestInserted(t *testing.T) {
	e := New(3)
	for i := 0; i < 3; i++ {
		e.PlainText(fmt.Sprintf("note %d", i))
	}

	// Reading the oldest entry must not protect it from eviction.
	e.PlainText("note 0")
	e.PlainText("note 3")

	assert.Equal(t, 3, e.Len())
	assert.False(t, e.Contains("note 0"))
	for i := 1; i <= 3; i++ {
		assert.True(t, e.Contains(fmt.Sprintf("note %d", i)))
	}
}

func TestNewDefaultsCapacity(t *testing.T) {
	e := New(0)
	for i := 0; i < DefaultCacheSize+10; i++ {
		e.PlainText(strings.Repeat("x", i+1))
	}
	assert.Equal(t, DefaultCacheSize, e.Len())
}
