package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
	"google.golang.org/genai"
)

// WriteFileTool writes content to files inside the working directory.
// When a file already exists the result includes a summary of how many
// lines the write added and removed, so the model can see what changed.
type WriteFileTool struct {
	workDir string
}

// NewWriteFileTool creates a new WriteFileTool instance.
func NewWriteFileTool(workDir string) *WriteFileTool {
	return &WriteFileTool{workDir: workDir}
}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Writes content to a file. Creates the file and any parent directories if they don't exist, or overwrites the file if it does."
}

func (t *WriteFileTool) Origin() Origin {
	return OriginNative
}

func (t *WriteFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "The path to the file to write, relative to the working directory or absolute",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "The content to write to the file",
				},
			},
			Required: []string{"file_path", "content"},
		},
	}
}

func (t *WriteFileTool) Validate(args map[string]any) error {
	filePath, ok := GetString(args, "file_path")
	if !ok || filePath == "" {
		return NewValidationError("file_path", "is required")
	}
	if _, ok := GetString(args, "content"); !ok {
		return NewValidationError("content", "is required")
	}
	return nil
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	filePath, _ := GetString(args, "file_path")
	content, _ := GetString(args, "content")

	absPath, err := resolvePath(t.workDir, filePath)
	if err != nil {
		return NewErrorResult(err.Error()), nil
	}

	var previous string
	existed := false
	if data, err := os.ReadFile(absPath); err == nil {
		previous = string(data)
		existed = true
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return NewErrorResult(fmt.Sprintf("failed to create parent directories: %s", err)), nil
	}

	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return NewErrorResult(fmt.Sprintf("failed to write file: %s", err)), nil
	}

	data := map[string]any{
		"file_path": absPath,
		"bytes":     len(content),
		"created":   !existed,
	}

	if !existed {
		return NewSuccessResultWithData(
			fmt.Sprintf("Created %s (%d bytes)", filePath, len(content)), data), nil
	}

	added, removed := diffLineCounts(previous, content)
	data["lines_added"] = added
	data["lines_removed"] = removed
	return NewSuccessResultWithData(
		fmt.Sprintf("Updated %s (+%d -%d lines)", filePath, added, removed), data), nil
}

// diffLineCounts returns how many lines were added and removed between two
// versions of a file.
func diffLineCounts(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := len(splitNonEmptyLines(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
