package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"gema/internal/logging"
)

// Session holds the conversation state for one run of the agent: the
// append-only history, media attachments queued for the next turn, and the
// IDs of tool calls issued in the current turn. History entries are never
// mutated after append; a turn either extends history or leaves it alone.
type Session struct {
	ID        string
	StartTime time.Time
	WorkDir   string

	history     []*genai.Content
	version     int64
	attachments []*genai.Part
	issuedCalls map[string]bool

	persona string
	model   string

	mu sync.RWMutex
}

// NewSession creates a new chat session.
func NewSession(workDir string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		StartTime:   time.Now(),
		WorkDir:     workDir,
		history:     make([]*genai.Content, 0),
		issuedCalls: make(map[string]bool),
	}
}

// AddUserMessage appends a user message, attaching and consuming any queued
// media parts.
func (s *Session) AddUserMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]*genai.Part, 0, 1+len(s.attachments))
	parts = append(parts, genai.NewPartFromText(message))
	parts = append(parts, s.attachments...)
	s.attachments = nil

	s.history = append(s.history, &genai.Content{
		Role:  genai.RoleUser,
		Parts: parts,
	})
	s.version++
}

// AddContextExchange appends a canned user/model pair. Used to inject file
// content as context without a model round-trip.
func (s *Session) AddContextExchange(userText, modelText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history,
		genai.NewContentFromText(userText, genai.RoleUser),
		genai.NewContentFromText(modelText, genai.RoleModel),
	)
	s.version++
}

// AddModelContent appends a model turn to the history and records the IDs of
// any tool calls it carries, so later results can be checked against them.
func (s *Session) AddModelContent(content *genai.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, content)
	s.version++

	if content == nil {
		return
	}
	for _, part := range content.Parts {
		if part != nil && part.FunctionCall != nil && part.FunctionCall.ID != "" {
			s.issuedCalls[part.FunctionCall.ID] = true
		}
	}
}

// AddToolResults appends tool results as a single user-role content, in the
// order given. A result whose ID was never issued by a model turn in this
// session is a protocol error; it is logged and dropped rather than sent to
// the model.
func (s *Session) AddToolResults(results []*genai.FunctionResponse) {
	if len(results) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]*genai.Part, 0, len(results))
	for _, r := range results {
		if !s.issuedCalls[r.ID] {
			logging.Warn("dropping tool result for unissued call", "id", r.ID, "tool", r.Name)
			continue
		}
		part := genai.NewPartFromFunctionResponse(r.Name, r.Response)
		part.FunctionResponse.ID = r.ID
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return
	}

	s.history = append(s.history, &genai.Content{
		Role:  genai.RoleUser,
		Parts: parts,
	})
	s.version++
}

// WasIssued reports whether a tool-call ID was issued by a model turn in
// this session.
func (s *Session) WasIssued(callID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issuedCalls[callID]
}

// History returns a copy of the history slice.
func (s *Session) History() []*genai.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]*genai.Content, len(s.history))
	copy(history, s.history)
	return history
}

// Version returns the current history version.
func (s *Session) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// MessageCount returns the number of history entries.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Clear drops the history, issued-call records, and queued attachments.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make([]*genai.Content, 0)
	s.issuedCalls = make(map[string]bool)
	s.attachments = nil
	s.version++
}

// QueueAttachment adds a media part to be sent with the next user message.
func (s *Session) QueueAttachment(part *genai.Part) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, part)
}

// PendingAttachments returns the number of queued media parts.
func (s *Session) PendingAttachments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attachments)
}

// Persona returns the active persona name.
func (s *Session) Persona() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

// SetPersona records the active persona name.
func (s *Session) SetPersona(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = name
}

// Model returns the active model name.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel records the active model name.
func (s *Session) SetModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = name
}

// sessionExport is the serialized form used by ExportJSON.
type sessionExport struct {
	ID        string           `json:"id"`
	StartTime time.Time        `json:"start_time"`
	WorkDir   string           `json:"work_dir,omitempty"`
	Persona   string           `json:"persona,omitempty"`
	Model     string           `json:"model,omitempty"`
	History   []*genai.Content `json:"history"`
}

// ExportJSON serializes the session for saving to disk.
func (s *Session) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return json.MarshalIndent(sessionExport{
		ID:        s.ID,
		StartTime: s.StartTime,
		WorkDir:   s.WorkDir,
		Persona:   s.persona,
		Model:     s.model,
		History:   s.history,
	}, "", "  ")
}

// ExportMarkdown renders the conversation as a markdown transcript.
func (s *Session) ExportMarkdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation %s\n\n", s.ID)
	fmt.Fprintf(&b, "Started: %s\n\n", s.StartTime.Format(time.RFC3339))

	for _, content := range s.history {
		if content == nil {
			continue
		}
		switch content.Role {
		case genai.RoleUser:
			b.WriteString("## User\n\n")
		case genai.RoleModel:
			b.WriteString("## Assistant\n\n")
		default:
			fmt.Fprintf(&b, "## %s\n\n", content.Role)
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.Text != "":
				b.WriteString(part.Text + "\n\n")
			case part.FunctionCall != nil:
				fmt.Fprintf(&b, "*Tool call: %s*\n\n", part.FunctionCall.Name)
			case part.FunctionResponse != nil:
				fmt.Fprintf(&b, "*Tool result: %s*\n\n", part.FunctionResponse.Name)
			case part.InlineData != nil:
				fmt.Fprintf(&b, "*Attachment: %s*\n\n", part.InlineData.MIMEType)
			}
		}
	}

	return b.String()
}
