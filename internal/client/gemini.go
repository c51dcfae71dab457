package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"gema/internal/logging"
)

// GeminiClient wraps the Google Gemini API.
type GeminiClient struct {
	client            *genai.Client
	model             string
	config            *genai.GenerateContentConfig
	tools             []*genai.Tool
	systemInstruction string
	maxRetries        int
	retryDelay        time.Duration

	mu sync.Mutex
}

// Options configures a GeminiClient.
type Options struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	MaxRetries      int
	RetryDelay      time.Duration
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key required, get one at https://aistudio.google.com/apikey", ErrUnauthorized)
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		genConfig.Temperature = Ptr(opts.Temperature)
	}
	if opts.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = opts.MaxOutputTokens
	}

	return &GeminiClient{
		client:     gc,
		model:      opts.Model,
		config:     genConfig,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}, nil
}

// SetTools sets the tools available for function calling.
func (c *GeminiClient) SetTools(tools []*genai.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = tools
}

// SetSystemInstruction sets the system-level instruction for the model.
func (c *GeminiClient) SetSystemInstruction(instruction string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemInstruction = instruction
}

// Model returns the current model name.
func (c *GeminiClient) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model for subsequent calls.
func (c *GeminiClient) SetModel(modelName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = modelName
}

// Close releases client resources. The genai client holds no open
// connections, so this is a no-op kept for the interface.
func (c *GeminiClient) Close() error {
	return nil
}

// Generate sends the conversation history and returns the model's next turn,
// retrying transient failures with exponential backoff.
func (c *GeminiClient) Generate(ctx context.Context, history []*genai.Content) (*Response, error) {
	contents := sanitizeContents(history)

	const maxDelay = 30 * time.Second
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.retryDelay, attempt-1, maxDelay)
			logging.Info("retrying Gemini request", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doGenerate(ctx, contents)
		if err == nil {
			return resp, nil
		}

		classified := ClassifyError(err)
		lastErr = classified
		if !IsRetryable(classified) {
			return nil, classified
		}
		logging.Warn("Gemini request failed, will retry", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// doGenerate performs a single request attempt.
func (c *GeminiClient) doGenerate(ctx context.Context, contents []*genai.Content) (*Response, error) {
	c.mu.Lock()
	config := *c.config
	if c.systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(c.systemInstruction, genai.RoleUser)
	}
	if len(c.tools) > 0 {
		config.Tools = c.tools
	}
	model := c.model
	c.mu.Unlock()

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, &config)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

// parseResponse converts a raw API response into a Response.
func parseResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}

	cand := resp.Candidates[0]
	out := &Response{
		FinishReason: cand.FinishReason,
	}

	if cand.Content != nil {
		out.Content = cand.Content
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" && !part.Thought {
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				out.FunctionCalls = append(out.FunctionCalls, part.FunctionCall)
			}
		}
	}

	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return out, nil
}

// sanitizeContents drops nil and empty parts so the API never sees a content
// with no payload. Each surviving part has text, media, a function call, or a
// function response.
func sanitizeContents(contents []*genai.Content) []*genai.Content {
	var result []*genai.Content

	for _, content := range contents {
		if content == nil {
			continue
		}

		var validParts []*genai.Part
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil || part.FunctionResponse != nil || part.Text != "" || part.InlineData != nil || part.FileData != nil {
				validParts = append(validParts, part)
			}
		}

		if len(validParts) == 0 {
			validParts = []*genai.Part{genai.NewPartFromText(" ")}
		}

		result = append(result, &genai.Content{
			Role:  content.Role,
			Parts: validParts,
		})
	}

	if len(result) == 0 {
		result = []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(" ")},
		}}
	}

	return result
}
