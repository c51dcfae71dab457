package agent

import (
	"gema/internal/tools"
)

// Events receives notifications as a turn progresses. The REPL uses it to
// render text and tool activity; tests use it to observe ordering. All
// methods are called from the turn's goroutine except ToolCallEnd, which may
// come from an executor worker.
type Events interface {
	// ModelText is called with each model turn's text, which may be empty
	// when the turn is only tool calls.
	ModelText(text string)

	// ToolCallStart fires after a call passes the gate, before execution.
	ToolCallStart(id, name string, args map[string]any)

	// ToolCallEnd fires when a call finishes, succeeded or not.
	ToolCallEnd(id, name string, result tools.ToolResult)

	// TurnTruncated fires when the iteration bound cuts a turn short.
	TurnTruncated(iterations int)
}

// NoopEvents ignores everything. Embed it to implement only what you need.
type NoopEvents struct{}

func (NoopEvents) ModelText(string)                              {}
func (NoopEvents) ToolCallStart(string, string, map[string]any)  {}
func (NoopEvents) ToolCallEnd(string, string, tools.ToolResult)  {}
func (NoopEvents) TurnTruncated(int)                             {}
