package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"gema/internal/tools"
)

const toolResultPreviewLen = 120

// Renderer writes agent events to the terminal. It satisfies the agent's
// event interface so the loop never touches the rendering layer directly.
type Renderer struct {
	out           io.Writer
	styles        *Styles
	markdown      *glamour.TermRenderer
	showToolCalls bool
	mu            sync.Mutex
}

// NewRenderer creates a renderer. Markdown rendering degrades to plain text
// when disabled in config or when glamour cannot initialize (e.g. no TTY).
func NewRenderer(out io.Writer, styles *Styles, theme string, markdownRendering, showToolCalls bool) *Renderer {
	if styles == nil {
		styles = NewStyles()
	}
	var markdown *glamour.TermRenderer
	if markdownRendering {
		var err error
		markdown, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(theme),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			markdown = nil
		}
	}
	return &Renderer{
		out:           out,
		styles:        styles,
		markdown:      markdown,
		showToolCalls: showToolCalls,
	}
}

// ModelText renders a model answer, as markdown when possible.
func (r *Renderer) ModelText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.markdown != nil {
		if rendered, err := r.markdown.Render(text); err == nil {
			fmt.Fprint(r.out, rendered)
			return
		}
	}
	fmt.Fprintln(r.out, text)
}

// ToolCallStart prints a one-line notice that a tool is running.
func (r *Renderer) ToolCallStart(id, name string, args map[string]any) {
	if !r.showToolCalls {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.ToolCall.Render("→ "+name+argSummary(name, args)))
}

// ToolCallEnd prints the outcome of a tool call.
func (r *Renderer) ToolCallEnd(id, name string, result tools.ToolResult) {
	if !r.showToolCalls {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !result.Success {
		fmt.Fprintln(r.out, r.styles.Error.Render("  ✗ "+name+": "+truncateLine(result.Error, toolResultPreviewLen)))
		return
	}
	preview := truncateLine(result.Content, toolResultPreviewLen)
	if preview == "" {
		preview = "done"
	}
	fmt.Fprintln(r.out, r.styles.ToolResult.Render("  ✓ "+preview))
}

// TurnTruncated warns that the iteration bound stopped the turn.
func (r *Renderer) TurnTruncated(iterations int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.Warning.Render(
		fmt.Sprintf("⚠ Stopped after %d tool rounds. Send another message to continue.", iterations)))
}

// Error prints an error message.
func (r *Renderer) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.Error.Render("✗ "+msg))
}

// Info prints an informational message.
func (r *Renderer) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.Info.Render(msg))
}

// System prints command output in a muted style.
func (r *Renderer) System(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.Muted.Render(msg))
}

// argSummary picks the most descriptive argument for the tool line.
func argSummary(name string, args map[string]any) string {
	for _, key := range []string{"command", "file_path", "path", "pattern", "query", "url"} {
		if v, ok := args[key].(string); ok && v != "" {
			return " " + truncateLine(v, 80)
		}
	}
	return ""
}

func truncateLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
