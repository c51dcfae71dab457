package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"
)

const (
	// maxSearchMatches caps the number of reported matches per search.
	maxSearchMatches = 200
	// maxSearchFileSize skips files too large to scan line by line.
	maxSearchFileSize = 2 * 1024 * 1024
)

// SearchFilesTool finds files by glob pattern and optionally filters them
// by a substring query over their contents.
type SearchFilesTool struct {
	workDir string
}

// NewSearchFilesTool creates a new SearchFilesTool instance.
func NewSearchFilesTool(workDir string) *SearchFilesTool {
	return &SearchFilesTool{workDir: workDir}
}

func (t *SearchFilesTool) Name() string {
	return "search_files"
}

func (t *SearchFilesTool) Description() string {
	return "Searches for files matching a glob pattern (e.g. '**/*.go'), optionally filtering by a text query over file contents."
}

func (t *SearchFilesTool) Origin() Origin {
	return OriginNative
}

func (t *SearchFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Glob pattern relative to the working directory, supports '**' (e.g. 'internal/**/*.go')",
				},
				"query": {
					Type:        genai.TypeString,
					Description: "Optional text to search for inside the matched files",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *SearchFilesTool) Validate(args map[string]any) error {
	pattern, ok := GetString(args, "pattern")
	if !ok || pattern == "" {
		return NewValidationError("pattern", "is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return NewValidationError("pattern", "is not a valid glob pattern")
	}
	return nil
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	pattern, _ := GetString(args, "pattern")
	query, _ := GetString(args, "query")

	fsys := os.DirFS(t.workDir)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return NewErrorResult(fmt.Sprintf("glob failed: %s", err)), nil
	}

	var b strings.Builder
	count := 0
	truncated := false

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return ToolResult{}, err
		}
		if count >= maxSearchMatches {
			truncated = true
			break
		}

		if query == "" {
			b.WriteString(m + "\n")
			count++
			continue
		}

		lines, err := searchFile(fsys, m, query)
		if err != nil {
			continue
		}
		for _, ln := range lines {
			if count >= maxSearchMatches {
				truncated = true
				break
			}
			fmt.Fprintf(&b, "%s:%d: %s\n", m, ln.number, ln.text)
			count++
		}
	}

	if count == 0 {
		return NewSuccessResultWithData("No matches found.", map[string]any{
			"pattern": pattern,
			"query":   query,
			"matches": 0,
		}), nil
	}

	if truncated {
		fmt.Fprintf(&b, "... results truncated at %d matches\n", maxSearchMatches)
	}

	return NewSuccessResultWithData(b.String(), map[string]any{
		"pattern":   pattern,
		"query":     query,
		"matches":   count,
		"truncated": truncated,
	}), nil
}

type matchLine struct {
	number int
	text   string
}

// searchFile scans a file for lines containing query. Binary and oversized
// files are skipped.
func searchFile(fsys fs.FS, path, query string) ([]matchLine, error) {
	info, err := fs.Stat(fsys, path)
	if err != nil || info.Size() > maxSearchFileSize {
		return nil, err
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []matchLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.Contains(line, "\x00") {
			return nil, nil
		}
		if strings.Contains(line, query) {
			out = append(out, matchLine{number: lineNo, text: strings.TrimSpace(line)})
		}
	}
	return out, scanner.Err()
}
