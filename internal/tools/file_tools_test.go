package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("line one\nline two\nline three"), 0o644))

	tool := NewReadFileTool(dir)

	t.Run("reads whole file", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"file_path": "hello.txt"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, "line one\nline two\nline three", res.Content)
	})

	t.Run("offset and limit", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{
			"file_path": "hello.txt",
			"offset":    float64(2),
			"limit":     float64(1),
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, "line two", res.Content)
	})

	t.Run("missing file is a tool error, not a Go error", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"file_path": "nope.txt"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not found")
	})

	t.Run("rejects traversal outside the working directory", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"file_path": "../escape.txt"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "escapes")
	})

	t.Run("validate requires file_path", func(t *testing.T) {
		err := tool.Validate(map[string]any{})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestWriteFileTool(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir)

	t.Run("creates file and parent directories", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{
			"file_path": "sub/dir/new.txt",
			"content":   "hello",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, "Created")

		data, err := os.ReadFile(filepath.Join(dir, "sub", "dir", "new.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("overwrite reports line diff", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), map[string]any{
			"file_path": "diff.txt",
			"content":   "a\nb\nc\n",
		})
		require.NoError(t, err)

		res, err := tool.Execute(context.Background(), map[string]any{
			"file_path": "diff.txt",
			"content":   "a\nB\nc\nd\n",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, "Updated")

		data, ok := res.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 2, data["lines_added"])
		assert.Equal(t, 1, data["lines_removed"])
	})

	t.Run("rejects traversal", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{
			"file_path": "../../outside.txt",
			"content":   "x",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestListDirectoryTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aa"), 0o644))

	tool := NewListDirectoryTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "sub/")
	assert.Contains(t, res.Content, "a.txt")

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, data["directories"])
	assert.Equal(t, 1, data["files"])

	res, err = tool.Execute(context.Background(), map[string]any{"directory_path": "a.txt"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not a directory")
}

func TestListDirectoryHidesDotfilesByDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aa"), 0o644))

	tool := NewListDirectoryTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotContains(t, res.Content, ".env")
	assert.Contains(t, res.Content, "a.txt")

	res, err = tool.Execute(context.Background(), map[string]any{"show_hidden": true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, ".env")
}

func TestSearchFilesTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "main.go"), []byte("package pkg\n\nfunc Needle() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("docs\n"), 0o644))

	tool := NewSearchFilesTool(dir)

	t.Run("glob only", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, "pkg/main.go")
		assert.NotContains(t, res.Content, "readme.md")
	})

	t.Run("glob with content query", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{
			"pattern": "**/*.go",
			"query":   "Needle",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, "pkg/main.go:3:")
	})

	t.Run("no matches", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"pattern": "**/*.rs"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, "No matches found.", res.Content)
	})

	t.Run("validate rejects bad pattern", func(t *testing.T) {
		err := tool.Validate(map[string]any{"pattern": "[oops"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestRunTerminalTool(t *testing.T) {
	dir := t.TempDir()
	tool := NewRunTerminalTool(dir)

	t.Run("captures stdout", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, "hello")
	})

	t.Run("runs in the working directory", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"command": "pwd"})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Contains(t, res.Content, filepath.Base(dir))
	})

	t.Run("nonzero exit is a tool error with output attached", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{"command": "echo oops >&2; exit 3"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "exit 3")
		assert.Contains(t, res.Error, "oops")
	})

	t.Run("timeout kills the command", func(t *testing.T) {
		res, err := tool.Execute(context.Background(), map[string]any{
			"command":         "sleep 5",
			"timeout_seconds": float64(1),
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "timed out")
	})

	t.Run("validate rejects blank command", func(t *testing.T) {
		err := tool.Validate(map[string]any{"command": "   "})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestBuildSafeEnvFiltersSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-value")
	t.Setenv("TERM", "xterm")

	env := buildSafeEnv()
	for _, e := range env {
		assert.NotContains(t, e, "secret-value")
	}
	assert.Contains(t, env, "TERM=xterm")
}

func TestToolResultToMap(t *testing.T) {
	ok := NewSuccessResultWithData("out", map[string]any{"k": "v"})
	m := ok.ToMap()
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "out", m["content"])
	assert.NotNil(t, m["data"])

	bad := NewErrorResult("boom")
	m = bad.ToMap()
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "boom", m["error"])
	assert.NotContains(t, m, "content")
}
