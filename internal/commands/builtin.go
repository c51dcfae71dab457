package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"gema/internal/auth"
	"gema/internal/client"
	"gema/internal/mcp"
)

// HelpCommand shows help for commands.
type HelpCommand struct {
	handler *Handler
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show help for commands" }
func (c *HelpCommand) Usage() string       { return "/help [command]" }

func (c *HelpCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) > 0 {
		cmd, exists := c.handler.GetCommand(args[0])
		if !exists {
			return fmt.Sprintf("Unknown command: /%s\nUse /help to see all commands.", args[0]), nil
		}
		return fmt.Sprintf("/%s - %s\nUsage: %s", cmd.Name(), cmd.Description(), cmd.Usage()), nil
	}

	cmds := c.handler.ListCommands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, cmd := range cmds {
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", cmd.Usage(), cmd.Description()))
	}
	sb.WriteString("\nAnything else is sent to the model.")
	return sb.String(), nil
}

// ExitCommand quits the application.
type ExitCommand struct{}

func (c *ExitCommand) Name() string        { return "exit" }
func (c *ExitCommand) Description() string { return "Exit gema" }
func (c *ExitCommand) Usage() string       { return "/exit" }

func (c *ExitCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	return "", ErrExit
}

// ClearCommand clears the conversation history.
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Clear conversation history" }
func (c *ClearCommand) Usage() string       { return "/clear" }

func (c *ClearCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	app.GetSession().Clear()
	return "Conversation cleared.", nil
}

// SafeCommand toggles safe mode.
type SafeCommand struct{}

func (c *SafeCommand) Name() string        { return "safe" }
func (c *SafeCommand) Description() string { return "Toggle confirmation for sensitive tools" }
func (c *SafeCommand) Usage() string       { return "/safe [on|off]" }

func (c *SafeCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	enabled := !app.SafeMode()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return "", fmt.Errorf("usage: %s", c.Usage())
		}
	}
	app.SetSafeMode(enabled)
	if enabled {
		return "Safe mode on: sensitive tools require confirmation.", nil
	}
	return "Safe mode off: tools run without confirmation.", nil
}

// AuthCommand shows the active API key and manages the stored credentials
// file. Environment variables always win over stored credentials, so a new
// key saved here only takes effect when no env key is set.
type AuthCommand struct{}

func (c *AuthCommand) Name() string        { return "auth" }
func (c *AuthCommand) Description() string { return "Show or update API credentials" }
func (c *AuthCommand) Usage() string       { return "/auth [login <key>|logout]" }

func (c *AuthCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("Active API key: %s", auth.MaskKey(app.GetAPIKey())), nil
	}

	switch args[0] {
	case "login":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /auth login <key>")
		}
		creds := &auth.Credentials{GeminiKey: args[1]}
		if err := creds.Save(); err != nil {
			return "", err
		}
		return fmt.Sprintf("Saved key %s to %s. Restart to use it.",
			auth.MaskKey(args[1]), auth.CredentialsPath()), nil

	case "logout":
		if err := auth.ClearCredentials(); err != nil {
			return "", err
		}
		return "Stored credentials removed.", nil

	default:
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
}

// ModelCommand shows or switches the active model.
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Description() string { return "Show or switch the active model" }
func (c *ModelCommand) Usage() string       { return "/model [name]" }

func (c *ModelCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) == 0 {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Current model: %s\n\nAvailable:\n", app.GetModel()))
		for _, m := range client.AvailableModels {
			marker := "  "
			if m.ID == app.GetModel() {
				marker = "* "
			}
			sb.WriteString(fmt.Sprintf("%s%-20s %s\n", marker, m.ID, m.Description))
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	}

	name := args[0]
	if err := app.SetModel(name); err != nil {
		return "", err
	}
	if info, ok := client.GetModelInfo(name); ok {
		return fmt.Sprintf("Switched to %s (%s).", name, info.Name), nil
	}
	return fmt.Sprintf("Switched to %s.", name), nil
}

// PersonaCommand shows or switches the active persona. Switching clears the
// conversation so the new system instruction applies from a clean slate.
type PersonaCommand struct{}

func (c *PersonaCommand) Name() string        { return "persona" }
func (c *PersonaCommand) Description() string { return "Show or switch the persona (clears history)" }
func (c *PersonaCommand) Usage() string       { return "/persona [name]" }

func (c *PersonaCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) == 0 {
		names := app.GetPersonas().Names()
		current := app.GetSession().Persona()
		var sb strings.Builder
		sb.WriteString("Personas:\n")
		for _, name := range names {
			marker := "  "
			if name == current {
				marker = "* "
			}
			sb.WriteString(marker + name + "\n")
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	}

	name := args[0]
	if err := app.SetPersona(name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Persona set to %s. Conversation cleared.", name), nil
}

// MCPCommand manages MCP server connections.
type MCPCommand struct{}

func (c *MCPCommand) Name() string        { return "mcp" }
func (c *MCPCommand) Description() string { return "Manage MCP servers" }
func (c *MCPCommand) Usage() string {
	return "/mcp [list|add <name> <stdio|http> <command-or-url>|connect <name>|disconnect <name>]"
}

func (c *MCPCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	if sub == "add" {
		return c.add(args[1:], app)
	}

	manager := app.GetMCPManager()
	if manager == nil {
		return "No MCP servers configured. Use /mcp add to register one.", nil
	}

	switch sub {
	case "list":
		statuses := manager.Status()
		if len(statuses) == 0 {
			return "No MCP servers configured.", nil
		}
		var sb strings.Builder
		sb.WriteString("MCP servers:\n")
		for _, st := range statuses {
			sb.WriteString(fmt.Sprintf("  %-16s %-8s %s", st.Name, st.Transport, st.State))
			if st.State == mcp.StateReady && len(st.Tools) > 0 {
				sb.WriteString(fmt.Sprintf("  tools: %s", strings.Join(st.Tools, ", ")))
			}
			if st.LastError != "" {
				sb.WriteString("  error: " + st.LastError)
			}
			sb.WriteString("\n")
		}
		return strings.TrimRight(sb.String(), "\n"), nil

	case "connect":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /mcp connect <name>")
		}
		if err := app.ConnectMCP(ctx, args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Connected to %s.", args[1]), nil

	case "disconnect":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: /mcp disconnect <name>")
		}
		if err := app.DisconnectMCP(args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Disconnected from %s.", args[1]), nil

	default:
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
}

func (c *MCPCommand) add(args []string, app AppInterface) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("usage: /mcp add <name> <stdio|http> <command-or-url> [args...]")
	}

	cfg := &mcp.ServerConfig{
		Name:      args[0],
		Transport: args[1],
	}
	switch cfg.Transport {
	case "stdio":
		cfg.Command = args[2]
		cfg.Args = args[3:]
	case "http":
		cfg.URL = args[2]
	default:
		return "", fmt.Errorf("unknown transport %q, want stdio or http", args[1])
	}

	if err := app.AddMCPServer(cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Registered %s. Use /mcp connect %s to bring it up.", cfg.Name, cfg.Name), nil
}

// CopyCommand copies the last model answer to the clipboard.
type CopyCommand struct{}

func (c *CopyCommand) Name() string        { return "copy" }
func (c *CopyCommand) Description() string { return "Copy the last answer to the clipboard" }
func (c *CopyCommand) Usage() string       { return "/copy" }

func (c *CopyCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	answer := app.LastAnswer()
	if answer == "" {
		return "Nothing to copy yet.", nil
	}
	if err := clipboard.WriteAll(answer); err != nil {
		return "", fmt.Errorf("clipboard unavailable: %w", err)
	}
	return fmt.Sprintf("Copied %d characters.", len(answer)), nil
}

// SaveCommand writes the session to a file. The .md extension selects
// markdown, anything else gets JSON.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Description() string { return "Save the conversation to a file" }
func (c *SaveCommand) Usage() string       { return "/save [path]" }

func (c *SaveCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	session := app.GetSession()
	if session.MessageCount() == 0 {
		return "Nothing to save yet.", nil
	}

	path := fmt.Sprintf("gema-session-%s.json", time.Now().Format("20060102-150405"))
	if len(args) > 0 {
		path = args[0]
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(app.GetWorkDir(), path)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".md") {
		data = []byte(session.ExportMarkdown())
	} else {
		var err error
		data, err = session.ExportJSON()
		if err != nil {
			return "", fmt.Errorf("failed to export session: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return fmt.Sprintf("Saved %d messages to %s.", session.MessageCount(), path), nil
}

// LoadCommand injects a file's content into the conversation as context.
type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Description() string { return "Load a file into the conversation context" }
func (c *LoadCommand) Usage() string       { return "/load <path>" }

const maxLoadFileSize = 512 * 1024

func (c *LoadCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(app.GetWorkDir(), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot load %s: %w", args[0], err)
	}
	if info.Size() > maxLoadFileSize {
		return "", fmt.Errorf("file too large to load: %d bytes (max %d)", info.Size(), maxLoadFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot load %s: %w", args[0], err)
	}

	app.GetSession().AddContextExchange(
		fmt.Sprintf("Here is the content of %s for context:\n\n%s", args[0], string(data)),
		fmt.Sprintf("Loaded %s into context.", args[0]),
	)
	return fmt.Sprintf("Loaded %s (%d bytes) into context.", args[0], len(data)), nil
}
