package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

const (
	// maxReadFileSize limits reads to keep tool results within API payload limits.
	maxReadFileSize = 512 * 1024
)

// ReadFileTool reads the contents of a file inside the working directory.
type ReadFileTool struct {
	workDir string
}

// NewReadFileTool creates a new ReadFileTool instance.
func NewReadFileTool(workDir string) *ReadFileTool {
	return &ReadFileTool{workDir: workDir}
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Reads the contents of a text file. Supports optional line offset and limit for large files."
}

func (t *ReadFileTool) Origin() Origin {
	return OriginNative
}

func (t *ReadFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to read, relative to the working directory or absolute",
				},
				"offset": {
					Type:        genai.TypeInteger,
					Description: "Line number to start reading from (1-based, optional)",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum number of lines to return (optional)",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

func (t *ReadFileTool) Validate(args map[string]any) error {
	filePath, ok := GetString(args, "file_path")
	if !ok || filePath == "" {
		return NewValidationError("file_path", "is required")
	}
	if offset, ok := GetInt(args, "offset"); ok && offset < 1 {
		return NewValidationError("offset", "must be 1 or greater")
	}
	if limit, ok := GetInt(args, "limit"); ok && limit < 1 {
		return NewValidationError("limit", "must be 1 or greater")
	}
	return nil
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	filePath, _ := GetString(args, "file_path")

	absPath, err := resolvePath(t.workDir, filePath)
	if err != nil {
		return NewErrorResult(err.Error()), nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult(fmt.Sprintf("file not found: %s", filePath)), nil
		}
		return NewErrorResult(fmt.Sprintf("failed to stat file: %s", err)), nil
	}
	if info.IsDir() {
		return NewErrorResult(fmt.Sprintf("%s is a directory, use list_directory instead", filePath)), nil
	}
	if info.Size() > maxReadFileSize {
		return NewErrorResult(fmt.Sprintf("file too large (%d bytes, limit %d)", info.Size(), maxReadFileSize)), nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("failed to read file: %s", err)), nil
	}

	content := string(data)
	totalLines := strings.Count(content, "\n") + 1

	offset := GetIntDefault(args, "offset", 0)
	limit := GetIntDefault(args, "limit", 0)
	if offset > 0 || limit > 0 {
		lines := strings.Split(content, "\n")
		start := 0
		if offset > 0 {
			start = offset - 1
		}
		if start >= len(lines) {
			return NewErrorResult(fmt.Sprintf("offset %d is past the end of the file (%d lines)", offset, len(lines))), nil
		}
		end := len(lines)
		if limit > 0 && start+limit < end {
			end = start + limit
		}
		content = strings.Join(lines[start:end], "\n")
	}

	return NewSuccessResultWithData(content, map[string]any{
		"file_path":   absPath,
		"size":        info.Size(),
		"total_lines": totalLines,
	}), nil
}
