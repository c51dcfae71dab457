package mcp

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"gema/internal/tools"
)

// MCPTool wraps a server-hosted tool behind the tools.Tool interface, so the
// executor dispatches it exactly like a native tool.
type MCPTool struct {
	client      *Client
	serverName  string
	toolName    string
	displayName string
	description string
	inputSchema *JSONSchema
	declaration *genai.FunctionDeclaration
}

// NewMCPTool creates a wrapper for one discovered tool. The registry name is
// the server name and tool name joined with an underscore, which keeps tools
// from different servers apart.
func NewMCPTool(client *Client, serverName string, info *ToolInfo) *MCPTool {
	displayName := NamespacedName(serverName, info.Name)

	return &MCPTool{
		client:      client,
		serverName:  serverName,
		toolName:    info.Name,
		displayName: displayName,
		description: info.Description,
		inputSchema: info.InputSchema,
		declaration: &genai.FunctionDeclaration{
			Name:        displayName,
			Description: info.Description,
			Parameters:  ToGeminiSchema(info.InputSchema),
		},
	}
}

func (t *MCPTool) Name() string {
	return t.displayName
}

func (t *MCPTool) Description() string {
	return t.description
}

func (t *MCPTool) Declaration() *genai.FunctionDeclaration {
	return t.declaration
}

func (t *MCPTool) Origin() tools.Origin {
	return tools.MCPOrigin(t.serverName)
}

// Validate checks the arguments against the server's input schema before
// anything crosses the wire.
func (t *MCPTool) Validate(args map[string]any) error {
	if t.inputSchema == nil {
		return nil
	}

	for _, required := range t.inputSchema.Required {
		if _, ok := args[required]; !ok {
			return tools.NewValidationError(required, "is required")
		}
	}

	for name, schema := range t.inputSchema.Properties {
		if val, ok := args[name]; ok {
			if err := validateValue(name, val, schema); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateValue(name string, val any, schema *JSONSchema) error {
	if schema == nil || val == nil {
		return nil
	}

	switch schema.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return tools.NewValidationError(name, "must be a string")
		}
	case "number", "integer":
		switch val.(type) {
		case int, int64, float64:
		default:
			return tools.NewValidationError(name, "must be a number")
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return tools.NewValidationError(name, "must be a boolean")
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return tools.NewValidationError(name, "must be an array")
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return tools.NewValidationError(name, "must be an object")
		}
	}

	return nil
}

// Execute calls the tool on the server and flattens the result content.
// A server-side isError result becomes an error tool result, not a Go error.
func (t *MCPTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	result, err := t.client.CallTool(ctx, t.toolName, args)
	if err != nil {
		return tools.ToolResult{}, fmt.Errorf("mcp tool %s: %w", t.displayName, err)
	}

	content := flattenContent(result.Content)

	if result.IsError {
		if content == "" {
			content = "tool reported an error"
		}
		return tools.NewErrorResult(content), nil
	}

	return tools.NewSuccessResult(content), nil
}

// flattenContent joins the text of all content blocks. Non-text blocks
// become short placeholders.
func flattenContent(blocks []*ContentBlock) string {
	var parts []string
	for _, block := range blocks {
		if block == nil {
			continue
		}
		switch block.Type {
		case "text":
			parts = append(parts, block.Text)
		case "image":
			parts = append(parts, fmt.Sprintf("[image: %s]", block.MIMEType))
		case "resource":
			parts = append(parts, fmt.Sprintf("[resource: %s]", block.URI))
		}
	}
	return strings.Join(parts, "\n")
}
