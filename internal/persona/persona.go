// Package persona manages the system instructions the agent can run under.
// Built-in personas ship with the binary; users can add or override them via
// a personas.yaml file in the config directory.
package persona

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"gema/internal/logging"
)

// DefaultName is the persona used when none is selected.
const DefaultName = "default"

var builtins = map[string]string{
	"default": `You are Gema, a helpful and capable AI assistant.
You are running in a terminal environment with access to local files and tools.
Always be concise and helpful.`,

	"coder": `You are an expert senior software engineer.
- Your code is clean, efficient, and follows the conventions of the language at hand.
- You prefer modern solutions and libraries.
- When writing code, briefly explain the why before the how.
- You are concise and to the point. Less talk, more code.`,

	"teacher": `You are a patient and knowledgeable computer science teacher.
- Explain concepts simply, using analogies where appropriate.
- Break down complex problems into smaller steps.
- Encourage the user to think and learn.
- If the user makes a mistake, gently correct them and explain why.`,

	"reviewer": `You are a strict code reviewer.
- Analyze the user's code for bugs, security vulnerabilities, and performance issues.
- Be critical but constructive.
- Suggest refactoring where appropriate.
- Rate the code quality from 1 to 10 at the end.`,
}

// Store holds the available personas.
type Store struct {
	personas map[string]string
	mu       sync.RWMutex
}

// NewStore creates a store with the built-in personas.
func NewStore() *Store {
	personas := make(map[string]string, len(builtins))
	for name, text := range builtins {
		personas[name] = text
	}
	return &Store{personas: personas}
}

// LoadFile merges personas from a YAML file of name-to-instruction pairs.
// User entries override built-ins of the same name. A missing file is not an
// error.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read personas file: %w", err)
	}

	var custom map[string]string
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return fmt.Errorf("failed to parse personas file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, text := range custom {
		if name == "" || text == "" {
			continue
		}
		s.personas[name] = text
	}
	logging.Debug("loaded custom personas", "path", path, "count", len(custom))
	return nil
}

// Get returns the instruction for a persona, falling back to the default.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if text, ok := s.personas[name]; ok {
		return text
	}
	return s.personas[DefaultName]
}

// Exists reports whether a persona is defined.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.personas[name]
	return ok
}

// Names returns the sorted persona names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.personas))
	for name := range s.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
