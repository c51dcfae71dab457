package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gema/internal/logging"
	"gema/internal/tools"
)

// ConnState describes where a server connection is in its lifecycle.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateReady        ConnState = "ready"
	StateFailed       ConnState = "failed"
)

// ServerStatus is a point-in-time snapshot for display.
type ServerStatus struct {
	Name      string
	Transport string
	State     ConnState
	Tools     []string
	LastError string
}

type connection struct {
	config    *ServerConfig
	client    *Client
	state     ConnState
	toolNames []string
	lastError error
}

// Manager owns all MCP server connections and keeps the tool registry in
// sync with them: tools are registered when a server becomes ready and
// removed the moment it leaves that state.
type Manager struct {
	registry *tools.Registry
	conns    map[string]*connection

	// dial is swapped in tests to connect against a fake transport.
	dial func(cfg *ServerConfig) (*Client, error)

	healthCancel context.CancelFunc

	mu sync.Mutex
}

// NewManager creates a manager that registers discovered tools into registry.
func NewManager(registry *tools.Registry, servers []*ServerConfig) *Manager {
	conns := make(map[string]*connection, len(servers))
	for _, cfg := range servers {
		conns[cfg.Name] = &connection{
			config: cfg,
			state:  StateDisconnected,
		}
	}
	return &Manager{
		registry: registry,
		conns:    conns,
		dial:     NewClient,
	}
}

// AddServer registers a new server configuration without connecting.
func (m *Manager) AddServer(cfg *ServerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conns[cfg.Name]; exists {
		return fmt.Errorf("server %q already configured", cfg.Name)
	}
	m.conns[cfg.Name] = &connection{config: cfg, state: StateDisconnected}
	return nil
}

// ConnectAll connects every server marked auto_connect. Individual failures
// are logged, not fatal; the rest of the servers still come up.
func (m *Manager) ConnectAll(ctx context.Context) {
	m.mu.Lock()
	var names []string
	for name, conn := range m.conns {
		if conn.config.AutoConnect {
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		if err := m.Connect(ctx, name); err != nil {
			logging.Warn("MCP auto-connect failed", "server", name, "error", err)
		}
	}
}

// Connect brings one server to the ready state: start the transport, run the
// handshake with bounded retries, discover tools, and register them.
func (m *Manager) Connect(ctx context.Context, name string) error {
	m.mu.Lock()
	conn, ok := m.conns[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown server %q", name)
	}
	if conn.state == StateReady || conn.state == StateConnecting {
		m.mu.Unlock()
		return fmt.Errorf("server %q is already %s", name, conn.state)
	}
	conn.state = StateConnecting
	conn.lastError = nil
	cfg := conn.config
	m.mu.Unlock()

	client, err := m.establish(ctx, cfg)
	if err != nil {
		m.setFailed(name, err)
		return err
	}

	toolInfos, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		m.setFailed(name, err)
		return err
	}

	var registered []string
	for _, info := range toolInfos {
		tool := NewMCPTool(client, name, info)
		if err := m.registry.Register(tool); err != nil {
			logging.Warn("skipping MCP tool", "server", name, "tool", info.Name, "error", err)
			continue
		}
		registered = append(registered, tool.Name())
	}
	sort.Strings(registered)

	m.mu.Lock()
	conn.client = client
	conn.state = StateReady
	conn.toolNames = registered
	m.mu.Unlock()

	logging.Info("MCP server connected", "server", name, "tools", len(registered))
	return nil
}

// establish creates the client and runs the handshake, retrying transient
// failures with backoff up to the configured bound.
func (m *Manager) establish(ctx context.Context, cfg *ServerConfig) (*Client, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay * time.Duration(1<<(attempt-1))
			logging.Info("retrying MCP connection", "server", cfg.Name, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		client, err := m.dial(cfg)
		if err != nil {
			lastErr = err
			continue
		}

		if err := client.Initialize(ctx); err != nil {
			client.Close()
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		return client, nil
	}

	return nil, fmt.Errorf("connection to %q failed after %d attempts: %w", cfg.Name, maxRetries+1, lastErr)
}

func (m *Manager) setFailed(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.conns[name]; ok {
		conn.state = StateFailed
		conn.lastError = err
	}
}

// Disconnect removes a server's tools from the registry and closes the
// connection. Unregistration happens first so no new calls can resolve the
// tools while the client shuts down.
func (m *Manager) Disconnect(name string) error {
	m.mu.Lock()
	conn, ok := m.conns[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown server %q", name)
	}
	client := conn.client
	conn.client = nil
	conn.state = StateDisconnected
	conn.toolNames = nil
	m.mu.Unlock()

	removed := m.registry.RemoveOrigin(tools.MCPOrigin(name))
	if len(removed) > 0 {
		logging.Debug("MCP tools unregistered", "server", name, "count", len(removed))
	}

	if client != nil {
		return client.Close()
	}
	return nil
}

// Shutdown disconnects all servers and stops health checking.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.healthCancel != nil {
		m.healthCancel()
		m.healthCancel = nil
	}
	var names []string
	for name := range m.conns {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if err := m.Disconnect(name); err != nil {
			logging.Warn("MCP disconnect failed during shutdown", "server", name, "error", err)
		}
	}
}

// ServerNames returns all configured server names, sorted.
func (m *Manager) ServerNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns a snapshot of every configured server, sorted by name.
func (m *Manager) Status() []*ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]*ServerStatus, 0, len(m.conns))
	for name, conn := range m.conns {
		st := &ServerStatus{
			Name:      name,
			Transport: conn.config.Transport,
			State:     conn.state,
			Tools:     append([]string(nil), conn.toolNames...),
		}
		if conn.lastError != nil {
			st.LastError = conn.lastError.Error()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// StartHealthCheck pings ready servers on the given interval. A server that
// fails its ping is disconnected and moved to the failed state; its tools
// leave the registry with it.
func (m *Manager) StartHealthCheck(ctx context.Context, interval time.Duration) {
	hctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.healthCancel != nil {
		m.healthCancel()
	}
	m.healthCancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hctx.Done():
				return
			case <-ticker.C:
				m.checkHealth(hctx)
			}
		}
	}()
}

func (m *Manager) checkHealth(ctx context.Context) {
	m.mu.Lock()
	type probe struct {
		name   string
		client *Client
	}
	var probes []probe
	for name, conn := range m.conns {
		if conn.state == StateReady && conn.client != nil {
			probes = append(probes, probe{name, conn.client})
		}
	}
	m.mu.Unlock()

	for _, p := range probes {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := p.client.Ping(pingCtx)
		cancel()
		if err == nil {
			continue
		}

		logging.Warn("MCP server unhealthy", "server", p.name, "error", err)
		if derr := m.Disconnect(p.name); derr != nil {
			logging.Warn("MCP disconnect of unhealthy server failed", "server", p.name, "error", derr)
		}
		m.setFailed(p.name, err)
	}
}
