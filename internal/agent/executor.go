package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"gema/internal/logging"
	"gema/internal/permission"
	"gema/internal/tools"
)

// DefaultConcurrency bounds how many tool calls run at once.
const DefaultConcurrency = 4

// Executor runs a batch of tool calls from one model turn. Confirmation
// happens sequentially in call order so prompts never interleave; allowed
// calls then execute concurrently. Results come back in issue order
// regardless of completion order.
type Executor struct {
	registry    *tools.Registry
	gate        *permission.Manager
	concurrency int
	events      Events
}

// NewExecutor creates an executor over the registry and gate.
func NewExecutor(registry *tools.Registry, gate *permission.Manager, concurrency int, events Events) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if events == nil {
		events = NoopEvents{}
	}
	return &Executor{
		registry:    registry,
		gate:        gate,
		concurrency: concurrency,
		events:      events,
	}
}

// Execute resolves, gates, and runs every call, returning one response per
// call in the same order. Tool failures of any kind become error-shaped
// responses; the only Go error returned is context cancellation.
func (e *Executor) Execute(ctx context.Context, calls []*genai.FunctionCall) ([]*genai.FunctionResponse, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	type plannedCall struct {
		index int
		call  *genai.FunctionCall
		tool  tools.Tool
	}

	responses := make([]*genai.FunctionResponse, len(calls))
	var toRun []plannedCall

	// Resolve, validate, and gate in call order. A failure here settles the
	// call's response without touching the others.
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tool, err := e.registry.Resolve(call.Name)
		if err != nil {
			responses[i] = errorResponse(call, fmt.Sprintf("unknown tool: %s", call.Name))
			continue
		}

		if err := tool.Validate(call.Args); err != nil {
			msg := fmt.Sprintf("invalid arguments: %s", err)
			if !tools.IsValidationError(err) {
				logging.Warn("tool precheck failed", "tool", call.Name, "error", err)
				msg = fmt.Sprintf("tool unavailable: %s", err)
			}
			responses[i] = errorResponse(call, msg)
			continue
		}

		resp, err := e.gate.Check(ctx, call.Name, tool.Origin(), call.Args)
		if err != nil {
			// The prompt itself failed (interrupt mid-confirmation). The
			// call is denied and the rest of the batch continues.
			logging.Warn("confirmation prompt failed", "tool", call.Name, "error", err)
		}
		if !resp.Allowed {
			reason := resp.Reason
			if reason == "" {
				reason = "denied"
			}
			responses[i] = errorResponse(call, fmt.Sprintf("permission denied: %s", reason))
			e.events.ToolCallEnd(call.ID, call.Name, tools.NewErrorResult(reason))
			continue
		}

		toRun = append(toRun, plannedCall{index: i, call: call, tool: tool})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, pc := range toRun {
		pc := pc
		e.events.ToolCallStart(pc.call.ID, pc.call.Name, pc.call.Args)
		g.Go(func() error {
			result := e.runTool(gctx, pc.tool, pc.call)
			responses[pc.index] = &genai.FunctionResponse{
				ID:       pc.call.ID,
				Name:     pc.call.Name,
				Response: result.ToMap(),
			}
			e.events.ToolCallEnd(pc.call.ID, pc.call.Name, result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return responses, nil
}

// runTool executes one tool, converting panics and Go errors into error
// results so a single bad tool cannot take down the turn.
func (e *Executor) runTool(ctx context.Context, tool tools.Tool, call *genai.FunctionCall) (result tools.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("tool panicked", "tool", call.Name, "panic", r)
			result = tools.NewErrorResult(fmt.Sprintf("tool %s panicked: %v", call.Name, r))
		}
	}()

	res, err := tool.Execute(ctx, call.Args)
	if err != nil {
		logging.Warn("tool execution failed", "tool", call.Name, "error", err)
		return tools.NewErrorResult(fmt.Sprintf("execution failed: %s", err))
	}
	return res
}

func errorResponse(call *genai.FunctionCall, msg string) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: tools.NewErrorResult(msg).ToMap(),
	}
}
