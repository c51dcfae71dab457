package permission

import (
	"context"
	"fmt"

	"gema/internal/tools"
)

// Request represents a confirmation request for a tool execution.
type Request struct {
	ToolName string         // Name of the tool
	Origin   tools.Origin   // Where the tool is hosted
	Args     map[string]any // Arguments passed to the tool
	Reason   string         // Human-readable summary of what will happen
}

// NewRequest creates a new confirmation request.
func NewRequest(toolName string, origin tools.Origin, args map[string]any) *Request {
	return &Request{
		ToolName: toolName,
		Origin:   origin,
		Args:     args,
		Reason:   buildReason(toolName, origin, args),
	}
}

// Decision represents the user's decision on a confirmation request.
type Decision int

const (
	// DecisionPending means the user hasn't decided yet.
	DecisionPending Decision = iota
	// DecisionAllow allows this specific execution.
	DecisionAllow
	// DecisionAllowSession allows this tool for the rest of the session.
	DecisionAllowSession
	// DecisionDeny denies this specific execution.
	DecisionDeny
	// DecisionDenySession denies this tool for the rest of the session.
	DecisionDenySession
)

// Response represents the result of a confirmation check.
type Response struct {
	Allowed  bool
	Decision Decision
	Reason   string
}

// PromptHandler is called when a sensitive tool needs user confirmation.
// The agent loop suspends on this call; the handler returns the decision.
type PromptHandler func(ctx context.Context, req *Request) (Decision, error)

// buildReason creates a human-readable summary for the confirmation prompt.
func buildReason(toolName string, origin tools.Origin, args map[string]any) string {
	switch toolName {
	case "run_terminal":
		if cmd, ok := args["command"].(string); ok {
			if len(cmd) > 150 {
				cmd = cmd[:147] + "..."
			}
			return fmt.Sprintf("Execute command: %s", cmd)
		}
		return "Execute shell command"

	case "write_file":
		if path, ok := args["file_path"].(string); ok {
			return fmt.Sprintf("Write to file: %s", path)
		}
		return "Write to file"
	}

	if origin != tools.OriginNative {
		return fmt.Sprintf("Run external tool %s (%s)", toolName, origin)
	}
	return fmt.Sprintf("Run tool %s", toolName)
}
