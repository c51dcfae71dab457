package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Credentials holds stored API credentials.
type Credentials struct {
	GeminiKey string    `json:"gemini_key,omitempty"`
	SavedAt   time.Time `json:"saved_at,omitempty"`
}

// CredentialsPath returns the path to the credentials file.
func CredentialsPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gema", "credentials.json")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "gema", "credentials.json")
}

// LoadCredentials reads the credentials file. A missing file is not an
// error; it returns empty credentials.
func LoadCredentials() (*Credentials, error) {
	path := CredentialsPath()
	if path == "" {
		return &Credentials{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func (c *Credentials) Save() error {
	path := CredentialsPath()
	if path == "" {
		return fmt.Errorf("could not determine credentials path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// ClearCredentials removes the credentials file. A missing file is not an
// error.
func ClearCredentials() error {
	path := CredentialsPath()
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// ResolveGeminiKey finds the Gemini API key in priority order: environment
// variables, then config value, then the credentials file.
func ResolveGeminiKey(configValue string) string {
	for _, envVar := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}

	if configValue != "" {
		return configValue
	}

	creds, err := LoadCredentials()
	if err != nil {
		return ""
	}
	return creds.GeminiKey
}

// MaskKey masks an API key for safe display. Shows the first 4 and last 4
// characters with asterisks in between.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
