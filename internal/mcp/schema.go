package mcp

import (
	"google.golang.org/genai"
)

// ToGeminiSchema converts an MCP JSON Schema to a Gemini Schema.
func ToGeminiSchema(s *JSONSchema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Description: s.Description,
	}

	switch s.Type {
	case "string":
		out.Type = genai.TypeString
		if len(s.Enum) > 0 {
			out.Enum = s.Enum
		}
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if s.Items != nil {
			out.Items = ToGeminiSchema(s.Items)
		}
	case "object":
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
			for name, prop := range s.Properties {
				out.Properties[name] = ToGeminiSchema(prop)
			}
		}
		out.Required = s.Required
	default:
		// Unknown types degrade to string rather than failing discovery
		out.Type = genai.TypeString
	}

	return out
}

// NamespacedName builds the registry name for a server's tool.
func NamespacedName(serverName, toolName string) string {
	return sanitizeFunctionName(serverName + "_" + toolName)
}

// sanitizeFunctionName ensures the name is valid for Gemini function
// declarations: [a-zA-Z_][a-zA-Z0-9_]*.
func sanitizeFunctionName(name string) string {
	if name == "" {
		return "unnamed_tool"
	}

	result := make([]byte, 0, len(name))
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			result = append(result, byte(c))
		case c >= '0' && c <= '9':
			if i == 0 {
				result = append(result, '_')
			}
			result = append(result, byte(c))
		case c == '-' || c == '.' || c == ' ':
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "unnamed_tool"
	}
	return string(result)
}
