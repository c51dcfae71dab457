package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gema/internal/permission"
	"gema/internal/tools"
)

func TestRendererToolLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil, "notty", true, true)

	r.ToolCallStart("id", "run_terminal", map[string]any{"command": "ls -la"})
	r.ToolCallEnd("id", "run_terminal", tools.NewSuccessResult("file1\nfile2"))
	r.ToolCallEnd("id", "run_terminal", tools.NewErrorResult("command failed (exit 1)"))

	out := buf.String()
	assert.Contains(t, out, "run_terminal ls -la")
	assert.Contains(t, out, "file1")
	assert.NotContains(t, out, "file2")
	assert.Contains(t, out, "command failed (exit 1)")
}

func TestRendererHidesToolCallsWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil, "notty", true, false)

	r.ToolCallStart("id", "read_file", map[string]any{"file_path": "a.txt"})
	r.ToolCallEnd("id", "read_file", tools.NewSuccessResult("contents"))
	assert.Empty(t, buf.String())
}

func TestRendererSkipsBlankText(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil, "notty", true, true)
	r.ModelText("   \n  ")
	assert.Empty(t, buf.String())
}

func TestRendererPlainTextWhenMarkdownDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil, "dark", false, true)
	r.ModelText("# heading")
	assert.Equal(t, "# heading\n", buf.String())
}

func TestRendererTurnTruncated(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil, "notty", true, true)
	r.TurnTruncated(10)
	assert.Contains(t, buf.String(), "Stopped after 10 tool rounds")
}

func TestConfirmPromptAnswers(t *testing.T) {
	cases := []struct {
		input string
		want  permission.Decision
	}{
		{"y\n", permission.DecisionAllow},
		{"yes\n", permission.DecisionAllow},
		{"a\n", permission.DecisionAllowSession},
		{"x\n", permission.DecisionDenySession},
		{"n\n", permission.DecisionDeny},
		{"whatever\n", permission.DecisionDeny},
	}

	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			var buf bytes.Buffer
			p := NewConfirmPrompt(strings.NewReader(tc.input), &buf, nil)
			req := permission.NewRequest("run_terminal", tools.OriginNative, map[string]any{"command": "rm -rf /tmp/x"})

			decision, err := p.Ask(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decision)
			assert.Contains(t, buf.String(), "Confirmation required")
		})
	}
}

func TestConfirmPromptEOFDenies(t *testing.T) {
	var buf bytes.Buffer
	p := NewConfirmPrompt(strings.NewReader(""), &buf, nil)
	req := permission.NewRequest("write_file", tools.OriginNative, map[string]any{"file_path": "a.txt"})

	decision, err := p.Ask(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, permission.DecisionDeny, decision)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "abc", truncateLine("abc", 10))
	assert.Equal(t, "abcde...", truncateLine("abcdefgh", 5))
	assert.Equal(t, "first", truncateLine("first\nsecond", 40))
}
