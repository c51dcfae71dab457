package tools

import (
	"sort"
	"sync"

	"gema/internal/logging"

	"google.golang.org/genai"
)

// Registry manages the collection of available tools, native and MCP-origin.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. A name collision fails with
// ErrDuplicateTool and leaves the registry unchanged; nothing is shadowed.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return DuplicateError(name)
	}

	r.tools[name] = tool
	return nil
}

// MustRegister adds a tool to the registry and logs a warning on error.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		logging.Warn("tool registration failed", "tool", tool.Name(), "error", err)
	}
}

// Resolve retrieves a tool by name, failing with ErrToolNotFound.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, NotFoundError(name)
	}
	return tool, nil
}

// Get retrieves a tool by name (read-optimized with RLock).
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Unregister removes a tool by name. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// RemoveOrigin removes every tool with the given origin and returns the
// removed names. Used when an MCP connection leaves the ready state.
func (r *Registry) RemoveOrigin(origin Origin) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for name, tool := range r.tools {
		if tool.Origin() == origin {
			delete(r.tools, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declarations returns all tool declarations for the model.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declarations := make([]*genai.FunctionDeclaration, 0, len(r.tools))
	for _, tool := range r.tools {
		declarations = append(declarations, tool.Declaration())
	}
	return declarations
}

// GeminiTools returns the registered tools in Gemini request format.
func (r *Registry) GeminiTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: r.Declarations(),
		},
	}
}

// DefaultRegistry creates a registry with all native tools registered.
func DefaultRegistry(workDir string) *Registry {
	r := NewRegistry()

	r.MustRegister(NewReadFileTool(workDir))
	r.MustRegister(NewWriteFileTool(workDir))
	r.MustRegister(NewListDirectoryTool(workDir))
	r.MustRegister(NewRunTerminalTool(workDir))
	r.MustRegister(NewSearchFilesTool(workDir))
	r.MustRegister(NewWebSearchTool())
	r.MustRegister(NewWebFetchTool())

	return r
}
