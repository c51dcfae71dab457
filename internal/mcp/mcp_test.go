package mcp

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gema/internal/tools"
)

// fakeTransport answers JSON-RPC requests in-process. Each method gets a
// handler; notifications are recorded.
type fakeTransport struct {
	handlers      map[string]func(msg *JSONRPCMessage) *JSONRPCMessage
	notifications []string
	recv          chan *JSONRPCMessage
	closed        bool
	mu            sync.Mutex
}

func newFakeTransport() *fakeTransport {
	t := &fakeTransport{
		handlers: make(map[string]func(msg *JSONRPCMessage) *JSONRPCMessage),
		recv:     make(chan *JSONRPCMessage, 10),
	}
	t.handlers[MethodInitialize] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: InitializeResult{
				ProtocolVersion: ProtocolVersion,
				ServerInfo:      &ServerInfo{Name: "fake", Version: "0.1"},
			},
		}
	}
	return t
}

func (t *fakeTransport) Send(msg *JSONRPCMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return io.ErrClosedPipe
	}

	if msg.IsNotification() {
		t.notifications = append(t.notifications, msg.Method)
		return nil
	}

	handler, ok := t.handlers[msg.Method]
	if !ok {
		t.recv <- &JSONRPCMessage{ID: msg.ID, Error: &Error{Code: ErrCodeMethodNotFound, Message: "method not found"}}
		return nil
	}
	t.recv <- handler(msg)
	return nil
}

func (t *fakeTransport) Receive() (*JSONRPCMessage, error) {
	msg, ok := <-t.recv
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.recv)
	}
	return nil
}

func (t *fakeTransport) sentNotifications() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.notifications...)
}

func fakeClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c := newClientWithTransport(&ServerConfig{Name: "fake", Timeout: 2 * time.Second}, ft)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientHandshake(t *testing.T) {
	ft := newFakeTransport()
	c := fakeClient(t, ft)

	require.NoError(t, c.Initialize(context.Background()))
	assert.True(t, c.IsInitialized())
	assert.Contains(t, ft.sentNotifications(), MethodInitialized)

	// Idempotent.
	require.NoError(t, c.Initialize(context.Background()))
}

func TestClientRequestsRequireHandshake(t *testing.T) {
	ft := newFakeTransport()
	c := fakeClient(t, ft)

	_, err := c.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.CallTool(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestClientListTools(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsList] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: ListToolsResult{Tools: []*ToolInfo{
				{Name: "lookup", Description: "Looks things up"},
			}},
		}
	}
	c := fakeClient(t, ft)
	require.NoError(t, c.Initialize(context.Background()))

	infos, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "lookup", infos[0].Name)
}

func TestClientCallToolServerError(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsCall] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{ID: msg.ID, Error: &Error{Code: ErrCodeInternalError, Message: "boom"}}
	}
	c := fakeClient(t, ft)
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.CallTool(context.Background(), "lookup", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestClientCancellationSendsNotification(t *testing.T) {
	ft := newFakeTransport()
	// tools/call answers with an ID nobody is waiting on, so the real
	// request stays pending until the context is cancelled.
	ft.handlers[MethodToolsCall] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{ID: float64(-999)}
	}
	c := fakeClient(t, ft)
	require.NoError(t, c.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.CallTool(ctx, "lookup", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, ft.sentNotifications(), MethodCancelled)
}

func TestSchemaConversion(t *testing.T) {
	in := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"city":  {Type: "string", Description: "City name", Enum: []string{"here", "there"}},
			"days":  {Type: "integer"},
			"flags": {Type: "array", Items: &JSONSchema{Type: "boolean"}},
			"weird": {Type: "vendor-custom"},
		},
		Required: []string{"city"},
	}

	out := ToGeminiSchema(in)
	require.NotNil(t, out)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"city"}, out.Required)
	assert.Equal(t, genai.TypeString, out.Properties["city"].Type)
	assert.Equal(t, []string{"here", "there"}, out.Properties["city"].Enum)
	assert.Equal(t, genai.TypeInteger, out.Properties["days"].Type)
	assert.Equal(t, genai.TypeBoolean, out.Properties["flags"].Items.Type)
	// Unknown types degrade to string.
	assert.Equal(t, genai.TypeString, out.Properties["weird"].Type)

	assert.Nil(t, ToGeminiSchema(nil))
}

func TestNamespacedName(t *testing.T) {
	assert.Equal(t, "weather_lookup", NamespacedName("weather", "lookup"))
	assert.Equal(t, "my_server_get_data", NamespacedName("my-server", "get.data"))
	assert.Equal(t, "_1srv_x", NamespacedName("1srv", "x"))
}

func TestMCPToolValidate(t *testing.T) {
	info := &ToolInfo{
		Name: "lookup",
		InputSchema: &JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"city": {Type: "string"},
				"days": {Type: "integer"},
			},
			Required: []string{"city"},
		},
	}
	tool := NewMCPTool(nil, "weather", info)

	assert.Equal(t, "weather_lookup", tool.Name())
	assert.Equal(t, tools.MCPOrigin("weather"), tool.Origin())

	assert.NoError(t, tool.Validate(map[string]any{"city": "Oslo"}))
	assert.NoError(t, tool.Validate(map[string]any{"city": "Oslo", "days": float64(3)}))

	err := tool.Validate(map[string]any{"days": float64(3)})
	require.Error(t, err)
	assert.True(t, tools.IsValidationError(err))

	err = tool.Validate(map[string]any{"city": 42})
	require.Error(t, err)
	assert.True(t, tools.IsValidationError(err))
}

func TestMCPToolExecute(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsCall] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: CallToolResult{Content: []*ContentBlock{
				{Type: "text", Text: "sunny"},
				{Type: "image", MIMEType: "image/png"},
			}},
		}
	}
	c := fakeClient(t, ft)
	require.NoError(t, c.Initialize(context.Background()))

	tool := NewMCPTool(c, "weather", &ToolInfo{Name: "lookup"})
	res, err := tool.Execute(context.Background(), map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Content, "sunny")
	assert.Contains(t, res.Content, "[image: image/png]")
}

func TestMCPToolExecuteIsErrorResult(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsCall] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: CallToolResult{
				IsError: true,
				Content: []*ContentBlock{{Type: "text", Text: "no such city"}},
			},
		}
	}
	c := fakeClient(t, ft)
	require.NoError(t, c.Initialize(context.Background()))

	tool := NewMCPTool(c, "weather", &ToolInfo{Name: "lookup"})
	res, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no such city", res.Error)
}

func managerWithFake(t *testing.T, ft *fakeTransport) (*Manager, *tools.Registry) {
	t.Helper()
	registry := tools.NewRegistry()
	m := NewManager(registry, []*ServerConfig{
		{Name: "weather", Transport: "stdio", Timeout: 2 * time.Second},
	})
	m.dial = func(cfg *ServerConfig) (*Client, error) {
		return newClientWithTransport(cfg, ft), nil
	}
	return m, registry
}

func TestManagerConnectRegistersNamespacedTools(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsList] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: ListToolsResult{Tools: []*ToolInfo{
				{Name: "lookup"},
				{Name: "forecast"},
			}},
		}
	}
	m, registry := managerWithFake(t, ft)
	defer m.Shutdown()

	require.NoError(t, m.Connect(context.Background(), "weather"))
	assert.Equal(t, []string{"weather_forecast", "weather_lookup"}, registry.Names())

	statuses := m.Status()
	require.Len(t, statuses, 1)
	assert.Equal(t, StateReady, statuses[0].State)
	assert.Equal(t, []string{"weather_forecast", "weather_lookup"}, statuses[0].Tools)
}

func TestManagerConnectRejectsDoubleConnect(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsList] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{ID: msg.ID, Result: ListToolsResult{}}
	}
	m, _ := managerWithFake(t, ft)
	defer m.Shutdown()

	require.NoError(t, m.Connect(context.Background(), "weather"))
	assert.Error(t, m.Connect(context.Background(), "weather"))
}

func TestManagerDisconnectRemovesTools(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsList] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID:     msg.ID,
			Result: ListToolsResult{Tools: []*ToolInfo{{Name: "lookup"}}},
		}
	}
	m, registry := managerWithFake(t, ft)

	require.NoError(t, m.Connect(context.Background(), "weather"))
	require.Len(t, registry.Names(), 1)

	require.NoError(t, m.Disconnect("weather"))
	assert.Empty(t, registry.Names())

	statuses := m.Status()
	assert.Equal(t, StateDisconnected, statuses[0].State)
}

func TestManagerConnectFailureLeavesRegistryClean(t *testing.T) {
	registry := tools.NewRegistry()
	m := NewManager(registry, []*ServerConfig{
		{Name: "broken", Transport: "stdio", MaxRetries: 1, RetryDelay: time.Millisecond},
	})
	m.dial = func(cfg *ServerConfig) (*Client, error) {
		return nil, io.ErrUnexpectedEOF
	}

	err := m.Connect(context.Background(), "broken")
	require.Error(t, err)
	assert.Empty(t, registry.Names())

	statuses := m.Status()
	assert.Equal(t, StateFailed, statuses[0].State)
	assert.NotEmpty(t, statuses[0].LastError)
}

func TestManagerNativeCollisionSkipsMCPTool(t *testing.T) {
	ft := newFakeTransport()
	ft.handlers[MethodToolsList] = func(msg *JSONRPCMessage) *JSONRPCMessage {
		return &JSONRPCMessage{
			ID: msg.ID,
			Result: ListToolsResult{Tools: []*ToolInfo{
				{Name: "lookup"},
			}},
		}
	}
	m, registry := managerWithFake(t, ft)
	defer m.Shutdown()

	// Occupy the namespaced name before connecting.
	require.NoError(t, registry.Register(&collidingTool{name: "weather_lookup"}))

	require.NoError(t, m.Connect(context.Background(), "weather"))

	got, err := registry.Resolve("weather_lookup")
	require.NoError(t, err)
	assert.Equal(t, tools.OriginNative, got.Origin())
}

type collidingTool struct {
	name string
}

func (c *collidingTool) Name() string        { return c.name }
func (c *collidingTool) Description() string { return "occupies a name" }
func (c *collidingTool) Origin() tools.Origin {
	return tools.OriginNative
}
func (c *collidingTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: c.name}
}
func (c *collidingTool) Validate(args map[string]any) error { return nil }
func (c *collidingTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	return tools.NewSuccessResult("native"), nil
}
