package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gema/internal/chat"
	"gema/internal/mcp"
	"gema/internal/persona"
)

// ErrExit signals that the user asked to quit.
var ErrExit = errors.New("exit requested")

// Command represents a slash command.
type Command interface {
	Name() string
	Description() string
	Usage() string
	Execute(ctx context.Context, args []string, app AppInterface) (string, error)
}

// AppInterface defines what commands need from the application.
type AppInterface interface {
	GetSession() *chat.Session
	GetWorkDir() string
	GetVersion() string

	GetModel() string
	SetModel(name string) error

	GetAPIKey() string

	GetPersonas() *persona.Store
	SetPersona(name string) error

	SafeMode() bool
	SetSafeMode(enabled bool)

	GetMCPManager() *mcp.Manager
	AddMCPServer(cfg *mcp.ServerConfig) error
	ConnectMCP(ctx context.Context, name string) error
	DisconnectMCP(name string) error

	LastAnswer() string
}

// Handler manages slash commands.
type Handler struct {
	commands map[string]Command
}

// NewHandler creates a new command handler with built-in commands.
func NewHandler() *Handler {
	h := &Handler{
		commands: make(map[string]Command),
	}

	h.Register(&HelpCommand{handler: h})
	h.Register(&ExitCommand{})
	h.Register(&ClearCommand{})
	h.Register(&SafeCommand{})
	h.Register(&AuthCommand{})
	h.Register(&ModelCommand{})
	h.Register(&PersonaCommand{})
	h.Register(&MCPCommand{})
	h.Register(&CopyCommand{})
	h.Register(&SaveCommand{})
	h.Register(&LoadCommand{})
	h.Register(&ImageCommand{})
	h.Register(&VideoCommand{})

	return h
}

// Register adds a command to the handler.
func (h *Handler) Register(cmd Command) {
	h.commands[cmd.Name()] = cmd
}

// Parse checks if input is a slash command and extracts name and args.
// Returns (name, args, isCommand). Paths like /home/user/... are NOT
// treated as commands.
func (h *Handler) Parse(input string) (string, []string, bool) {
	input = strings.TrimSpace(input)

	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil, false
	}

	name := strings.TrimPrefix(parts[0], "/")
	if _, exists := h.commands[name]; !exists {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return name, args, true
}

// Execute runs a command by name.
func (h *Handler) Execute(ctx context.Context, name string, args []string, app AppInterface) (string, error) {
	cmd, exists := h.commands[name]
	if !exists {
		return "", fmt.Errorf("unknown command: /%s", name)
	}
	return cmd.Execute(ctx, args, app)
}

// ListCommands returns all registered commands.
func (h *Handler) ListCommands() []Command {
	cmds := make([]Command, 0, len(h.commands))
	for _, cmd := range h.commands {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// GetCommand returns a command by name.
func (h *Handler) GetCommand(name string) (Command, bool) {
	cmd, exists := h.commands[name]
	return cmd, exists
}
