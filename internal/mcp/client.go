package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gema/internal/logging"
)

// ErrNotInitialized is returned when a request is made before the handshake
// completed.
var ErrNotInitialized = errors.New("mcp client not initialized")

// Client handles JSON-RPC communication with one MCP server.
type Client struct {
	transport  Transport
	serverName string
	config     *ServerConfig

	serverInfo  *ServerInfo
	initialized bool
	mu          sync.RWMutex

	nextID    int64
	pending   map[int64]chan *JSONRPCMessage
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a client over the transport named in the config and
// starts its receive loop.
func NewClient(cfg *ServerConfig) (*Client, error) {
	var transport Transport
	var err error

	switch cfg.Transport {
	case "stdio":
		transport, err = NewStdioTransport(cfg.Command, cfg.Args, cfg.Env)
	case "http":
		transport, err = NewHTTPTransport(cfg.URL, cfg.Headers, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return newClientWithTransport(cfg, transport), nil
}

func newClientWithTransport(cfg *ServerConfig, transport Transport) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:  transport,
		serverName: cfg.Name,
		config:     cfg,
		pending:    make(map[int64]chan *JSONRPCMessage),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// receiveLoop reads messages from the transport and routes them to waiting
// requests.
func (c *Client) receiveLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		msg, err := c.transport.Receive()
		if err != nil {
			if c.ctx.Err() == nil {
				logging.Warn("MCP receive error", "server", c.serverName, "error", err)
			}
			return
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg *JSONRPCMessage) {
	switch {
	case msg.IsResponse():
		id, ok := jsonRPCID(msg.ID)
		if !ok {
			logging.Warn("MCP response with invalid ID type", "id", msg.ID)
			return
		}

		c.pendingMu.Lock()
		ch, exists := c.pending[id]
		if exists {
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		if !exists {
			logging.Warn("MCP response for unknown request", "server", c.serverName, "id", id)
			return
		}
		select {
		case ch <- msg:
		default:
		}

	case msg.IsNotification():
		logging.Debug("MCP notification received", "server", c.serverName, "method", msg.Method)
	}
}

// jsonRPCID normalizes a decoded message ID. JSON numbers decode as float64.
func jsonRPCID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// request sends a request and waits for its response, honoring ctx. On
// cancellation a notifications/cancelled is sent so the server can stop work.
func (c *Client) request(ctx context.Context, method string, params any) (*JSONRPCMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)

	respCh := make(chan *JSONRPCMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.transport.Send(&JSONRPCMessage{ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("request timeout after %v", timeout)
	case <-ctx.Done():
		c.notify(MethodCancelled, map[string]any{"requestId": id})
		return nil, ctx.Err()
	}
}

// notify sends a notification (no response expected).
func (c *Client) notify(method string, params any) error {
	return c.transport.Send(&JSONRPCMessage{Method: method, Params: params})
}

// decodeResult unmarshals a response result into out.
func decodeResult(resp *JSONRPCMessage, out any) error {
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}

// Initialize performs the MCP handshake: initialize request followed by the
// initialized notification.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	resp, err := c.request(ctx, MethodInitialize, &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo: &ClientInfo{
			Name:    "gema",
			Version: "1.0.0",
		},
		Capabilities: map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	var result InitializeResult
	if err := decodeResult(resp, &result); err != nil {
		return err
	}
	c.serverInfo = result.ServerInfo

	if err := c.notify(MethodInitialized, nil); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	c.initialized = true

	serverLabel := "unknown"
	if c.serverInfo != nil {
		serverLabel = c.serverInfo.Name
	}
	logging.Info("MCP server initialized", "name", c.serverName, "server", serverLabel)
	return nil
}

// ListTools retrieves the tools advertised by the server.
func (c *Client) ListTools(ctx context.Context) ([]*ToolInfo, error) {
	if !c.IsInitialized() {
		return nil, ErrNotInitialized
	}

	resp, err := c.request(ctx, MethodToolsList, nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	var result ListToolsResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}

	logging.Debug("MCP tools listed", "server", c.serverName, "count", len(result.Tools))
	return result.Tools, nil
}

// CallTool invokes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	if !c.IsInitialized() {
		return nil, ErrNotInitialized
	}

	resp, err := c.request(ctx, MethodToolsCall, &CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("tools/call failed: %w", err)
	}

	var result CallToolResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsInitialized() {
		return ErrNotInitialized
	}
	_, err := c.request(ctx, MethodPing, nil)
	return err
}

// ServerName returns the configured server name.
func (c *Client) ServerName() string {
	return c.serverName
}

// IsInitialized reports whether the handshake has completed.
func (c *Client) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Close stops the receive loop and closes the transport. Pending requests
// fail with their timeouts.
func (c *Client) Close() error {
	c.cancel()

	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		logging.Warn("MCP client receive loop did not stop in time", "server", c.serverName)
	}

	logging.Debug("MCP client closed", "server", c.serverName)
	return nil
}
