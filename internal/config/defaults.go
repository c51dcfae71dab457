package config

import "time"

// Default configuration values.
const (
	DefaultModel           = "gemini-2.5-flash"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 8192

	DefaultMaxIterations = 10
	DefaultConcurrency   = 4

	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 1 * time.Second
	DefaultCommandTimeout = 30 * time.Second

	DefaultSearchProvider = "serpapi"
	DefaultTheme          = "dark"
	DefaultLogLevel       = "info"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Retry: RetryConfig{
				MaxRetries: DefaultMaxRetries,
				RetryDelay: DefaultRetryDelay,
			},
		},
		Model: ModelConfig{
			Name:            DefaultModel,
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		Agent: AgentConfig{
			MaxIterations: DefaultMaxIterations,
			Concurrency:   DefaultConcurrency,
			Persona:       "default",
		},
		Tools: ToolsConfig{
			CommandTimeout: DefaultCommandTimeout,
		},
		Permission: PermissionConfig{
			SafeMode: true,
		},
		Web: WebConfig{
			SearchProvider: DefaultSearchProvider,
		},
		UI: UIConfig{
			MarkdownRendering: true,
			ShowToolCalls:     true,
			Theme:             DefaultTheme,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}
