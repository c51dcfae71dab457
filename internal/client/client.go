package client

import (
	"context"

	"google.golang.org/genai"
)

// ModelInfo contains information about an available model.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "gemini-2.5-flash")
	Name        string // Human-readable name
	Description string // Short description
}

// AvailableModels is the list of supported models.
var AvailableModels = []ModelInfo{
	{
		ID:          "gemini-2.5-flash",
		Name:        "Gemini 2.5 Flash",
		Description: "Fast and inexpensive, good default",
	},
	{
		ID:          "gemini-2.5-pro",
		Name:        "Gemini 2.5 Pro",
		Description: "Most capable, slower and pricier",
	},
	{
		ID:          "gemini-2.0-flash",
		Name:        "Gemini 2.0 Flash",
		Description: "Previous generation fast model",
	},
}

// IsValidModel checks if a model ID is valid.
func IsValidModel(modelID string) bool {
	for _, m := range AvailableModels {
		if m.ID == modelID {
			return true
		}
	}
	return false
}

// GetModelInfo returns information about a specific model.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	for _, m := range AvailableModels {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Client defines the interface for model interactions. The agent loop only
// needs complete responses, so the surface is a single Generate call plus
// configuration setters.
type Client interface {
	// Generate sends the full conversation history and returns the model's
	// next turn. Transport failures are classified into the package's
	// sentinel errors.
	Generate(ctx context.Context, history []*genai.Content) (*Response, error)

	// SetTools sets the tools available for the model to use.
	SetTools(tools []*genai.Tool)

	// SetSystemInstruction sets the system-level instruction, passed via the
	// API's system instruction parameter rather than as a history message.
	SetSystemInstruction(instruction string)

	// Model returns the current model name.
	Model() string

	// SetModel changes the model for subsequent calls.
	SetModel(modelName string)

	// Close releases client resources.
	Close() error
}

// Response is a complete model turn.
type Response struct {
	// Content is the model content exactly as returned, ready to append to
	// history.
	Content *genai.Content

	// Text is the concatenated text of all text parts.
	Text string

	// FunctionCalls are the tool calls the model requested, in response order.
	FunctionCalls []*genai.FunctionCall

	// FinishReason indicates why the model stopped.
	FinishReason genai.FinishReason

	// InputTokens and OutputTokens come from usage metadata when available.
	InputTokens  int
	OutputTokens int
}

// HasFunctionCalls reports whether the model requested any tool calls.
func (r *Response) HasFunctionCalls() bool {
	return len(r.FunctionCalls) > 0
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}
