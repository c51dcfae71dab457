package permission

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"gema/internal/logging"
	"gema/internal/tools"
)

// Manager is the confirmation gate. It sits between tool-call extraction and
// tool execution: sensitive tools are held until the user decides, and the
// decision may be cached for the rest of the session.
type Manager struct {
	rules    *Rules
	safeMode bool

	sessionCache  map[string]Decision
	promptHandler PromptHandler

	maxCacheEntries int

	mu sync.RWMutex
}

const (
	// DefaultMaxCacheEntries caps the session decision cache.
	DefaultMaxCacheEntries = 1000
)

// NewManager creates a new confirmation gate. Safe mode starts enabled.
func NewManager(rules *Rules) *Manager {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Manager{
		rules:           rules,
		safeMode:        true,
		sessionCache:    make(map[string]Decision),
		maxCacheEntries: DefaultMaxCacheEntries,
	}
}

// SetPromptHandler sets the function to call when user confirmation is needed.
func (m *Manager) SetPromptHandler(handler PromptHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptHandler = handler
}

// SetSafeMode toggles safe mode at runtime. Turning it off bypasses all
// confirmation. Cached session decisions survive the toggle.
func (m *Manager) SetSafeMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.safeMode = enabled
}

// SafeMode reports whether safe mode is currently on.
func (m *Manager) SafeMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.safeMode
}

// Rules exposes the sensitivity rules for configuration.
func (m *Manager) Rules() *Rules {
	return m.rules
}

// ClearSession drops all cached session decisions.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCache = make(map[string]Decision)
}

// cacheKey generates a cache key for a tool invocation. Commands and file
// writes key on their arguments so different targets prompt separately.
func (m *Manager) cacheKey(toolName string, args map[string]any) string {
	switch toolName {
	case "run_terminal":
		if cmd, ok := args["command"].(string); ok {
			hash := sha256.Sum256([]byte(cmd))
			return fmt.Sprintf("%s:%x", toolName, hash[:8])
		}
	case "write_file":
		if path, ok := args["file_path"].(string); ok {
			return fmt.Sprintf("%s:%s", toolName, path)
		}
	}
	return toolName
}

// Check decides whether a tool call may execute. Non-sensitive tools and
// safe-mode-off pass straight through. Sensitive tools consult the session
// cache, then suspend on the prompt handler.
func (m *Manager) Check(ctx context.Context, toolName string, origin tools.Origin, args map[string]any) (*Response, error) {
	m.mu.RLock()
	safeMode := m.safeMode
	m.mu.RUnlock()

	if !safeMode {
		return &Response{Allowed: true, Decision: DecisionAllow}, nil
	}

	if !m.rules.IsSensitive(toolName, origin) {
		return &Response{Allowed: true, Decision: DecisionAllow}, nil
	}

	key := m.cacheKey(toolName, args)

	m.mu.RLock()
	decision, cached := m.sessionCache[key]
	m.mu.RUnlock()
	if cached {
		switch decision {
		case DecisionAllowSession:
			return &Response{Allowed: true, Decision: decision}, nil
		case DecisionDenySession:
			return &Response{
				Allowed:  false,
				Decision: decision,
				Reason:   "Denied for session",
			}, nil
		}
	}

	return m.askUser(ctx, toolName, origin, args)
}

// askUser suspends on the prompt handler. Without a handler the safe answer
// is deny: a sensitive tool must never run unconfirmed.
func (m *Manager) askUser(ctx context.Context, toolName string, origin tools.Origin, args map[string]any) (*Response, error) {
	m.mu.RLock()
	handler := m.promptHandler
	m.mu.RUnlock()

	if handler == nil {
		return &Response{
			Allowed:  false,
			Decision: DecisionDeny,
			Reason:   "No confirmation handler available",
		}, nil
	}

	req := NewRequest(toolName, origin, args)

	decision, err := handler(ctx, req)
	if err != nil {
		return &Response{
			Allowed:  false,
			Decision: DecisionDeny,
			Reason:   err.Error(),
		}, err
	}

	key := m.cacheKey(toolName, args)

	switch decision {
	case DecisionAllow:
		return &Response{Allowed: true, Decision: decision}, nil

	case DecisionAllowSession:
		m.rememberKey(key, decision)
		return &Response{Allowed: true, Decision: decision}, nil

	case DecisionDeny:
		return &Response{
			Allowed:  false,
			Decision: decision,
			Reason:   "Denied by user",
		}, nil

	case DecisionDenySession:
		m.rememberKey(key, decision)
		return &Response{
			Allowed:  false,
			Decision: decision,
			Reason:   "Denied by user for session",
		}, nil
	}

	return &Response{
		Allowed:  false,
		Decision: DecisionDeny,
		Reason:   "Unrecognized decision",
	}, nil
}

// rememberKey stores a session decision, evicting nothing fancy: once the
// cache is full new decisions simply aren't cached.
func (m *Manager) rememberKey(key string, decision Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessionCache) >= m.maxCacheEntries {
		logging.Warn("permission cache full, decision not cached", "key", key)
		return
	}
	m.sessionCache[key] = decision
}
