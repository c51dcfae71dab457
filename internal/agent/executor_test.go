package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gema/internal/permission"
	"gema/internal/tools"
)

// recordingEvents captures the event stream for assertions.
type recordingEvents struct {
	mu     sync.Mutex
	starts []string
	ends   []string
}

func (r *recordingEvents) ModelText(string) {}
func (r *recordingEvents) ToolCallStart(id, name string, args map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, name)
}
func (r *recordingEvents) ToolCallEnd(id, name string, result tools.ToolResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, name)
}
func (r *recordingEvents) TurnTruncated(int) {}

func (r *recordingEvents) endedTools() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ends...)
}

func gateWithHandler(handler permission.PromptHandler) *permission.Manager {
	rules := permission.DefaultRules()
	rules.MarkSensitive("guarded")
	gate := permission.NewManager(rules)
	gate.SetPromptHandler(handler)
	return gate
}

func TestExecutorDeniedCallBecomesErrorResult(t *testing.T) {
	registry := tools.NewRegistry()
	guarded := &recordingTool{name: "guarded"}
	open := &recordingTool{name: "open"}
	require.NoError(t, registry.Register(guarded))
	require.NoError(t, registry.Register(open))

	gate := gateWithHandler(func(ctx context.Context, req *permission.Request) (permission.Decision, error) {
		return permission.DecisionDeny, nil
	})
	events := &recordingEvents{}
	executor := NewExecutor(registry, gate, 0, events)

	responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
		{ID: "g", Name: "guarded"},
		{ID: "o", Name: "open"},
	})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	assert.Equal(t, false, responses[0].Response["success"])
	assert.Contains(t, responses[0].Response["error"], "permission denied")
	assert.Equal(t, 0, guarded.executions())

	// The rest of the batch still runs.
	assert.Equal(t, true, responses[1].Response["success"])
	assert.Equal(t, 1, open.executions())
	assert.Contains(t, events.endedTools(), "guarded")
	assert.Contains(t, events.endedTools(), "open")
}

func TestExecutorSessionAllowPromptsOnce(t *testing.T) {
	registry := tools.NewRegistry()
	guarded := &recordingTool{name: "guarded"}
	require.NoError(t, registry.Register(guarded))

	prompts := 0
	gate := gateWithHandler(func(ctx context.Context, req *permission.Request) (permission.Decision, error) {
		prompts++
		return permission.DecisionAllowSession, nil
	})
	executor := NewExecutor(registry, gate, 0, nil)

	for i := 0; i < 3; i++ {
		responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
			{Name: "guarded"},
		})
		require.NoError(t, err)
		assert.Equal(t, true, responses[0].Response["success"])
	}
	assert.Equal(t, 1, prompts)
	assert.Equal(t, 3, guarded.executions())
}

func TestExecutorPromptErrorDeniesCall(t *testing.T) {
	registry := tools.NewRegistry()
	guarded := &recordingTool{name: "guarded"}
	require.NoError(t, registry.Register(guarded))

	gate := gateWithHandler(func(ctx context.Context, req *permission.Request) (permission.Decision, error) {
		return permission.DecisionPending, errors.New("prompt interrupted")
	})
	executor := NewExecutor(registry, gate, 0, nil)

	responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
		{Name: "guarded"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, responses[0].Response["success"])
	assert.Equal(t, 0, guarded.executions())
}

func TestExecutorNoHandlerDeniesSensitiveTool(t *testing.T) {
	registry := tools.NewRegistry()
	guarded := &recordingTool{name: "guarded"}
	require.NoError(t, registry.Register(guarded))

	rules := permission.DefaultRules()
	rules.MarkSensitive("guarded")
	gate := permission.NewManager(rules)
	executor := NewExecutor(registry, gate, 0, nil)

	responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
		{Name: "guarded"},
	})
	require.NoError(t, err)
	assert.Contains(t, responses[0].Response["error"], "permission denied")
	assert.Equal(t, 0, guarded.executions())
}

func TestExecutorToolErrorBecomesErrorResult(t *testing.T) {
	registry := tools.NewRegistry()
	broken := &recordingTool{name: "broken", failErr: errors.New("disk on fire")}
	require.NoError(t, registry.Register(broken))

	gate := permission.NewManager(nil)
	gate.SetSafeMode(false)
	executor := NewExecutor(registry, gate, 0, nil)

	responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
		{Name: "broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, responses[0].Response["success"])
	assert.Contains(t, responses[0].Response["error"], "execution failed")
	assert.Contains(t, responses[0].Response["error"], "disk on fire")
}

func TestExecutorDistinguishesValidationFromPrecheckErrors(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&recordingTool{name: "picky"}))
	require.NoError(t, registry.Register(&recordingTool{name: "offline", validateErr: errors.New("backend gone")}))

	gate := permission.NewManager(nil)
	gate.SetSafeMode(false)
	executor := NewExecutor(registry, gate, 0, nil)

	responses, err := executor.Execute(context.Background(), []*genai.FunctionCall{
		{Name: "picky", Args: map[string]any{"__invalid": true}},
		{Name: "offline"},
	})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	assert.Contains(t, responses[0].Response["error"], "invalid arguments")
	assert.Contains(t, responses[1].Response["error"], "tool unavailable")
	assert.Contains(t, responses[1].Response["error"], "backend gone")
}

func TestExecutorEmptyBatch(t *testing.T) {
	executor := NewExecutor(tools.NewRegistry(), permission.NewManager(nil), 0, nil)
	responses, err := executor.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, responses)
}

func TestExecutorCancelledContext(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&recordingTool{name: "lookup"}))

	gate := permission.NewManager(nil)
	gate.SetSafeMode(false)
	executor := NewExecutor(registry, gate, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, []*genai.FunctionCall{{Name: "lookup"}})
	assert.ErrorIs(t, err, context.Canceled)
}
