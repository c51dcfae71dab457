package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"gema/internal/permission"
)

// ConfirmPrompt asks the user to approve a sensitive tool call over the
// terminal. It satisfies permission.PromptHandler.
type ConfirmPrompt struct {
	in     *bufio.Reader
	out    io.Writer
	styles *Styles
}

// NewConfirmPrompt creates a prompt reading answers from in. An existing
// *bufio.Reader is used as-is so the caller's buffered input isn't lost.
func NewConfirmPrompt(in io.Reader, out io.Writer, styles *Styles) *ConfirmPrompt {
	if styles == nil {
		styles = NewStyles()
	}
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &ConfirmPrompt{
		in:     br,
		out:    out,
		styles: styles,
	}
}

// Ask presents the request and blocks for an answer. A read failure (EOF,
// closed stdin) is reported as an error so the gate denies the call.
func (p *ConfirmPrompt) Ask(ctx context.Context, req *permission.Request) (permission.Decision, error) {
	if err := ctx.Err(); err != nil {
		return permission.DecisionDeny, err
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.styles.Confirm.Render("⚠ Confirmation required"))
	fmt.Fprintln(p.out, "  "+req.Reason)
	fmt.Fprint(p.out, p.styles.Muted.Render("  [y]es  [n]o  [a]lways for session  [x] never for session: "))

	line, err := p.in.ReadString('\n')
	if err != nil {
		return permission.DecisionDeny, fmt.Errorf("confirmation aborted: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return permission.DecisionAllow, nil
	case "a", "always":
		return permission.DecisionAllowSession, nil
	case "x", "never":
		return permission.DecisionDenySession, nil
	default:
		return permission.DecisionDeny, nil
	}
}
