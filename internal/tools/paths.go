package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath turns a tool-supplied path into an absolute path under workDir.
// Relative paths are joined with workDir. Absolute paths are accepted only if
// they stay inside workDir, which blocks traversal via "..".
func resolvePath(workDir, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}

	abs := path
	if !filepath.IsAbs(path) {
		abs = filepath.Join(workDir, path)
	}
	abs = filepath.Clean(abs)

	base := filepath.Clean(workDir)
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the working directory", path)
	}

	return abs, nil
}
