package permission

import (
	"sync"

	"gema/internal/tools"
)

// Rules decides which tools count as sensitive. Sensitive tools require
// user confirmation while safe mode is on.
type Rules struct {
	sensitive      map[string]bool
	trustedServers map[string]bool
	mu             sync.RWMutex
}

// DefaultRules returns the built-in sensitivity classification: commands
// and file writes are sensitive, everything else native is not.
func DefaultRules() *Rules {
	return &Rules{
		sensitive: map[string]bool{
			"run_terminal": true,
			"write_file":   true,
		},
		trustedServers: make(map[string]bool),
	}
}

// MarkSensitive adds a tool name to the sensitive set.
func (r *Rules) MarkSensitive(toolName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitive[toolName] = true
}

// TrustServer exempts an MCP server's tools from the sensitive-by-default rule.
func (r *Rules) TrustServer(serverName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trustedServers[serverName] = true
}

// IsSensitive reports whether a tool requires confirmation in safe mode.
// Tools from MCP servers are sensitive unless the server is trusted.
func (r *Rules) IsSensitive(toolName string, origin tools.Origin) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.sensitive[toolName] {
		return true
	}
	if server, ok := mcpServer(origin); ok {
		return !r.trustedServers[server]
	}
	return false
}

func mcpServer(origin tools.Origin) (string, bool) {
	const prefix = "mcp:"
	s := string(origin)
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}
