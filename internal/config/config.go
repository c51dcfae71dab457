package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Model      ModelConfig      `yaml:"model"`
	Agent      AgentConfig      `yaml:"agent"`
	Tools      ToolsConfig      `yaml:"tools"`
	Permission PermissionConfig `yaml:"permission"`
	Web        WebConfig        `yaml:"web"`
	UI         UIConfig         `yaml:"ui"`
	Logging    LoggingConfig    `yaml:"logging"`
	MCP        MCPConfig        `yaml:"mcp"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	// Gemini API key. Environment variables take priority over this field.
	GeminiKey string `yaml:"gemini_key,omitempty"`

	// Retry configuration for API calls
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig holds retry settings for API calls.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"` // Maximum number of retry attempts (default: 3)
	RetryDelay time.Duration `yaml:"retry_delay"` // Initial delay between retries (default: 1s)
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// AgentConfig holds orchestration loop settings.
type AgentConfig struct {
	// MaxIterations caps model round-trips per user turn (default: 10)
	MaxIterations int `yaml:"max_iterations"`
	// Concurrency bounds parallel tool execution per batch (default: 4)
	Concurrency int `yaml:"concurrency"`
	// Persona selects the system instruction template (default: "default")
	Persona string `yaml:"persona"`
}

// ToolsConfig holds tool-related settings.
type ToolsConfig struct {
	// CommandTimeout bounds run_terminal executions (default: 30s)
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// PermissionConfig holds confirmation gate settings.
type PermissionConfig struct {
	// SafeMode gates sensitive tools behind confirmation (default: true)
	SafeMode bool `yaml:"safe_mode"`
	// ExtraSensitive marks additional native tools as requiring confirmation
	ExtraSensitive []string `yaml:"extra_sensitive,omitempty"`
}

// WebConfig holds web tool settings.
type WebConfig struct {
	// SearchProvider: serpapi or google (default: serpapi)
	SearchProvider string `yaml:"search_provider"`
	SearchAPIKey   string `yaml:"search_api_key,omitempty"`
	// GoogleCX is the Custom Search Engine ID, required for the google provider
	GoogleCX string `yaml:"google_cx,omitempty"`
}

// UIConfig holds UI-related settings.
type UIConfig struct {
	MarkdownRendering bool   `yaml:"markdown_rendering"`
	ShowToolCalls     bool   `yaml:"show_tool_calls"`
	Theme             string `yaml:"theme"` // glamour style: dark, light, notty
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	// FileLogging writes JSON logs to gema.log in the config dir
	FileLogging bool `yaml:"file_logging"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers,omitempty"`
}

// MCPServerConfig describes one MCP server connection.
type MCPServerConfig struct {
	Name        string            `yaml:"name"`
	Transport   string            `yaml:"transport"` // stdio or http
	Command     string            `yaml:"command,omitempty"`
	Args        []string          `yaml:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	URL         string            `yaml:"url,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	MaxRetries  int               `yaml:"max_retries,omitempty"`
	AutoConnect bool              `yaml:"auto_connect"`
	// Trusted exempts the server's tools from confirmation
	Trusted bool `yaml:"trusted,omitempty"`
}
