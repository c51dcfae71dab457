// Package agent drives the conversation: it sends history to the model,
// extracts tool calls from the reply, runs them through the confirmation
// gate and executor, feeds results back, and repeats until the model stops
// asking for tools or the iteration bound trips.
package agent

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"gema/internal/chat"
	"gema/internal/client"
	"gema/internal/logging"
	"gema/internal/tools"
)

// DefaultMaxIterations bounds model round-trips within one user turn.
const DefaultMaxIterations = 10

// ErrBusy is returned when a user turn arrives while another is running.
var ErrBusy = errors.New("a turn is already in progress")

// Outcome describes how a turn ended.
type Outcome int

const (
	// OutcomeComplete means the model finished without requesting more tools.
	OutcomeComplete Outcome = iota
	// OutcomeTruncated means the iteration bound stopped the turn while the
	// model was still requesting tools.
	OutcomeTruncated
)

// TurnResult summarizes a completed user turn.
type TurnResult struct {
	Outcome    Outcome
	FinalText  string
	Iterations int
	ToolCalls  int
}

// Loop owns one conversation's orchestration.
type Loop struct {
	client        client.Client
	registry      *tools.Registry
	session       *chat.Session
	executor      *Executor
	events        Events
	maxIterations int

	busy atomic.Bool
}

// NewLoop wires the loop together.
func NewLoop(c client.Client, registry *tools.Registry, session *chat.Session, executor *Executor, events Events, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if events == nil {
		events = NoopEvents{}
	}
	return &Loop{
		client:        c,
		registry:      registry,
		session:       session,
		executor:      executor,
		events:        events,
		maxIterations: maxIterations,
	}
}

// Session returns the session this loop mutates.
func (l *Loop) Session() *chat.Session {
	return l.session
}

// HandleUserTurn runs one full user turn. Only one turn may run at a time;
// concurrent calls fail fast with ErrBusy and leave the session untouched.
//
// On a transport error the turn aborts with that error. Everything appended
// so far stays in history, so a retry continues from a consistent state.
func (l *Loop) HandleUserTurn(ctx context.Context, message string) (*TurnResult, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer l.busy.Store(false)

	l.session.AddUserMessage(message)
	l.client.SetTools(l.registry.GeminiTools())

	result := &TurnResult{}

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		result.Iterations = iteration

		resp, err := l.client.Generate(ctx, l.session.History())
		if err != nil {
			logging.Warn("model call failed", "iteration", iteration, "error", err)
			return nil, err
		}

		assignCallIDs(resp.FunctionCalls)
		l.session.AddModelContent(resp.Content)
		l.events.ModelText(resp.Text)

		if !resp.HasFunctionCalls() {
			result.Outcome = OutcomeComplete
			result.FinalText = resp.Text
			return result, nil
		}

		result.ToolCalls += len(resp.FunctionCalls)

		responses, err := l.executor.Execute(ctx, resp.FunctionCalls)
		if err != nil {
			return nil, err
		}
		l.session.AddToolResults(toFunctionResponses(responses))
	}

	// The bound tripped while the model was still requesting tools. The
	// last batch of results is in history; the user decides whether to
	// continue with another message.
	result.Outcome = OutcomeTruncated
	l.events.TurnTruncated(result.Iterations)
	logging.Info("turn truncated at iteration bound", "iterations", result.Iterations)
	return result, nil
}

// Busy reports whether a turn is currently running.
func (l *Loop) Busy() bool {
	return l.busy.Load()
}

// assignCallIDs fills in IDs for calls the API returned without one, so
// results can always be matched to their originating call.
func assignCallIDs(calls []*genai.FunctionCall) {
	for _, call := range calls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
	}
}

func toFunctionResponses(responses []*genai.FunctionResponse) []*genai.FunctionResponse {
	out := make([]*genai.FunctionResponse, 0, len(responses))
	for _, r := range responses {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
