package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gema/internal/agent"
	"gema/internal/auth"
	"gema/internal/chat"
	"gema/internal/client"
	"gema/internal/commands"
	"gema/internal/config"
	"gema/internal/logging"
	"gema/internal/mcp"
	"gema/internal/permission"
	"gema/internal/persona"
	"gema/internal/tools"
	"gema/internal/ui"
)

var (
	_ commands.AppInterface = (*App)(nil)
	_ agent.Events          = (*ui.Renderer)(nil)
)

// App wires the whole assistant together and owns its lifecycle.
type App struct {
	cfg      *config.Config
	workDir  string
	version  string
	client   client.Client
	registry *tools.Registry
	gate     *permission.Manager
	session  *chat.Session
	loop     *agent.Loop
	mcp      *mcp.Manager
	personas *persona.Store
	renderer *ui.Renderer
	handler  *commands.Handler
	styles   *ui.Styles

	mu         sync.RWMutex
	lastAnswer string
}

// New builds an application from configuration. The context bounds client
// construction only, not the application lifetime.
func New(ctx context.Context, cfg *config.Config, workDir, version string) (*App, error) {
	if cfg.Logging.FileLogging {
		if dir := config.ConfigDir(); dir != "" {
			if err := os.MkdirAll(dir, 0700); err == nil {
				if err := logging.EnableFileLogging(dir, logging.ParseLevel(cfg.Logging.Level)); err != nil {
					fmt.Fprintf(os.Stderr, "file logging unavailable: %v\n", err)
				}
			}
		}
	}

	apiKey := auth.ResolveGeminiKey(cfg.API.GeminiKey)
	cfg.API.GeminiKey = apiKey
	geminiClient, err := client.NewGeminiClient(ctx, client.Options{
		APIKey:          apiKey,
		Model:           cfg.Model.Name,
		Temperature:     cfg.Model.Temperature,
		MaxOutputTokens: cfg.Model.MaxOutputTokens,
		MaxRetries:      cfg.API.Retry.MaxRetries,
		RetryDelay:      cfg.API.Retry.RetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	registry := tools.DefaultRegistry(workDir)
	configureTools(registry, cfg)

	rules := permission.DefaultRules()
	for _, name := range cfg.Permission.ExtraSensitive {
		rules.MarkSensitive(name)
	}
	gate := permission.NewManager(rules)
	gate.SetSafeMode(cfg.Permission.SafeMode)

	personas := persona.NewStore()
	if path := config.PersonasPath(); path != "" {
		if err := personas.LoadFile(path); err != nil {
			logging.Warn("failed to load user personas", "path", path, "error", err)
		}
	}

	session := chat.NewSession(workDir)
	session.SetModel(geminiClient.Model())

	styles := ui.NewStyles()
	renderer := ui.NewRenderer(os.Stdout, styles, cfg.UI.Theme, cfg.UI.MarkdownRendering, cfg.UI.ShowToolCalls)

	executor := agent.NewExecutor(registry, gate, cfg.Agent.Concurrency, renderer)
	loop := agent.NewLoop(geminiClient, registry, session, executor, renderer, cfg.Agent.MaxIterations)

	var serverConfigs []*mcp.ServerConfig
	for _, sc := range cfg.MCP.Servers {
		serverConfigs = append(serverConfigs, &mcp.ServerConfig{
			Name:        sc.Name,
			Transport:   sc.Transport,
			Command:     sc.Command,
			Args:        sc.Args,
			Env:         sc.Env,
			URL:         sc.URL,
			Timeout:     sc.Timeout,
			MaxRetries:  sc.MaxRetries,
			AutoConnect: sc.AutoConnect,
			Trusted:     sc.Trusted,
		})
		if sc.Trusted {
			rules.TrustServer(sc.Name)
		}
	}
	var mcpManager *mcp.Manager
	if len(serverConfigs) > 0 {
		mcpManager = mcp.NewManager(registry, serverConfigs)
	}

	a := &App{
		cfg:      cfg,
		workDir:  workDir,
		version:  version,
		client:   geminiClient,
		registry: registry,
		gate:     gate,
		session:  session,
		loop:     loop,
		mcp:      mcpManager,
		personas: personas,
		renderer: renderer,
		handler:  commands.NewHandler(),
		styles:   styles,
	}

	if err := a.SetPersona(cfg.Agent.Persona); err != nil {
		logging.Warn("unknown persona in config, using default", "persona", cfg.Agent.Persona)
		_ = a.SetPersona(persona.DefaultName)
	}

	return a, nil
}

// configureTools passes tool settings from config down to the built-in tools.
func configureTools(registry *tools.Registry, cfg *config.Config) {
	if tool, err := registry.Resolve("run_terminal"); err == nil {
		if shell, ok := tool.(*tools.RunTerminalTool); ok && cfg.Tools.CommandTimeout > 0 {
			shell.SetTimeout(cfg.Tools.CommandTimeout)
		}
	}

	tool, err := registry.Resolve("web_search")
	if err != nil {
		return
	}
	search, ok := tool.(*tools.WebSearchTool)
	if !ok {
		return
	}
	search.SetAPIKey(cfg.Web.SearchAPIKey)
	if cfg.Web.SearchProvider != "" {
		search.SetProvider(tools.SearchProvider(cfg.Web.SearchProvider))
	}
	search.SetGoogleCX(cfg.Web.GoogleCX)
}

// Close releases every long-lived resource.
func (a *App) Close() {
	if a.mcp != nil {
		a.mcp.Shutdown()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	logging.Close()
}

// GetSession returns the chat session.
func (a *App) GetSession() *chat.Session { return a.session }

// GetWorkDir returns the working directory.
func (a *App) GetWorkDir() string { return a.workDir }

// GetVersion returns the build version.
func (a *App) GetVersion() string { return a.version }

// GetModel returns the active model ID.
func (a *App) GetModel() string { return a.client.Model() }

// GetAPIKey returns the resolved API key in use.
func (a *App) GetAPIKey() string { return a.cfg.API.GeminiKey }

// SetModel switches the active model.
func (a *App) SetModel(name string) error {
	if !client.IsValidModel(name) {
		return fmt.Errorf("unknown model: %s (see /model for the list)", name)
	}
	a.client.SetModel(name)
	a.session.SetModel(name)
	return nil
}

// GetPersonas returns the persona store.
func (a *App) GetPersonas() *persona.Store { return a.personas }

// SetPersona switches the system instruction and clears the conversation.
func (a *App) SetPersona(name string) error {
	if !a.personas.Exists(name) {
		return fmt.Errorf("unknown persona: %s (see /persona for the list)", name)
	}
	a.client.SetSystemInstruction(a.personas.Get(name))
	a.session.SetPersona(name)
	a.session.Clear()
	return nil
}

// SafeMode reports whether sensitive tools require confirmation.
func (a *App) SafeMode() bool { return a.gate.SafeMode() }

// SetSafeMode toggles confirmation for sensitive tools.
func (a *App) SetSafeMode(enabled bool) {
	a.gate.SetSafeMode(enabled)
}

// GetMCPManager returns the MCP manager, nil when no servers are configured.
func (a *App) GetMCPManager() *mcp.Manager { return a.mcp }

// AddMCPServer registers an MCP server at runtime. The manager is created
// lazily when the first server is added this way.
func (a *App) AddMCPServer(cfg *mcp.ServerConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mcp == nil {
		a.mcp = mcp.NewManager(a.registry, nil)
	}
	return a.mcp.AddServer(cfg)
}

// ConnectMCP connects a configured MCP server by name.
func (a *App) ConnectMCP(ctx context.Context, name string) error {
	if a.mcp == nil {
		return fmt.Errorf("no MCP servers configured")
	}
	return a.mcp.Connect(ctx, name)
}

// DisconnectMCP disconnects an MCP server and removes its tools.
func (a *App) DisconnectMCP(name string) error {
	if a.mcp == nil {
		return fmt.Errorf("no MCP servers configured")
	}
	return a.mcp.Disconnect(name)
}

// LastAnswer returns the final text of the most recent completed turn.
func (a *App) LastAnswer() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastAnswer
}

func (a *App) setLastAnswer(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAnswer = text
}
