package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"google.golang.org/genai"
)

const (
	// maxListDirEntries limits directory listings to keep results within API payload limits.
	maxListDirEntries = 2000
)

// ListDirectoryTool lists the contents of a directory.
type ListDirectoryTool struct {
	workDir string
}

// NewListDirectoryTool creates a new ListDirectoryTool instance.
func NewListDirectoryTool(workDir string) *ListDirectoryTool {
	return &ListDirectoryTool{workDir: workDir}
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "Lists the contents of a directory, including files and subdirectories. Defaults to the working directory."
}

func (t *ListDirectoryTool) Origin() Origin {
	return OriginNative
}

func (t *ListDirectoryTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"directory_path": {
					Type:        genai.TypeString,
					Description: "The path to the directory to list. Defaults to the working directory if empty.",
				},
				"show_hidden": {
					Type:        genai.TypeBoolean,
					Description: "Include dotfiles in the listing. Defaults to false.",
				},
			},
			Required: []string{},
		},
	}
}

func (t *ListDirectoryTool) Validate(args map[string]any) error {
	// An empty directory_path falls back to the working directory.
	return nil
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	dirPath := GetStringDefault(args, "directory_path", ".")
	if dirPath == "" {
		dirPath = "."
	}
	showHidden := GetBoolDefault(args, "show_hidden", false)

	absPath, err := resolvePath(t.workDir, dirPath)
	if err != nil {
		return NewErrorResult(err.Error()), nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult(fmt.Sprintf("directory not found: %s", dirPath)), nil
		}
		return NewErrorResult(fmt.Sprintf("failed to stat directory: %s", err)), nil
	}
	if !info.IsDir() {
		return NewErrorResult(fmt.Sprintf("%s is not a directory", dirPath)), nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("failed to read directory: %s", err)), nil
	}

	truncated := false
	if len(entries) > maxListDirEntries {
		entries = entries[:maxListDirEntries]
		truncated = true
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	dirs, files := 0, 0
	for _, e := range entries {
		if !showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			b.WriteString(e.Name() + "/\n")
			dirs++
			continue
		}
		b.WriteString(e.Name())
		if fi, err := e.Info(); err == nil {
			fmt.Fprintf(&b, " (%d bytes)", fi.Size())
		}
		b.WriteString("\n")
		files++
	}
	if truncated {
		fmt.Fprintf(&b, "... listing truncated at %d entries\n", maxListDirEntries)
	}

	return NewSuccessResultWithData(b.String(), map[string]any{
		"directory_path": absPath,
		"directories":    dirs,
		"files":          files,
		"truncated":      truncated,
	}), nil
}
