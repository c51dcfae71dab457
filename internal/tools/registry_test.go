package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeTool is a minimal Tool for registry tests.
type fakeTool struct {
	name   string
	origin Origin
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }
func (f *fakeTool) Origin() Origin      { return f.origin }
func (f *fakeTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: f.name, Description: "fake tool"}
}
func (f *fakeTool) Validate(args map[string]any) error { return nil }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	return NewSuccessResult("ok"), nil
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&fakeTool{name: "alpha", origin: OriginNative}))

	tool, err := r.Resolve("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", tool.Name())
}

func TestRegistryDuplicateLeavesOriginalRegistered(t *testing.T) {
	r := NewRegistry()
	original := &fakeTool{name: "alpha", origin: OriginNative}
	require.NoError(t, r.Register(original))

	err := r.Register(&fakeTool{name: "alpha", origin: MCPOrigin("srv")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)

	got, err := r.Resolve("alpha")
	require.NoError(t, err)
	assert.Same(t, Tool(original), got)
	assert.Equal(t, OriginNative, got.Origin())
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistryUnregisterUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "alpha", origin: OriginNative}))

	r.Unregister("missing")
	assert.Equal(t, []string{"alpha"}, r.Names())
}

func TestRegistryRemoveOrigin(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "native_one", origin: OriginNative}))
	require.NoError(t, r.Register(&fakeTool{name: "srv_b", origin: MCPOrigin("srv")}))
	require.NoError(t, r.Register(&fakeTool{name: "srv_a", origin: MCPOrigin("srv")}))
	require.NoError(t, r.Register(&fakeTool{name: "other_x", origin: MCPOrigin("other")}))

	removed := r.RemoveOrigin(MCPOrigin("srv"))
	assert.Equal(t, []string{"srv_a", "srv_b"}, removed)
	assert.Equal(t, []string{"native_one", "other_x"}, r.Names())
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(&fakeTool{name: name, origin: OriginNative}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegistryGeminiTools(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "alpha", origin: OriginNative}))

	gt := r.GeminiTools()
	require.Len(t, gt, 1)
	require.Len(t, gt[0].FunctionDeclarations, 1)
	assert.Equal(t, "alpha", gt[0].FunctionDeclarations[0].Name)
}

func TestDefaultRegistryHasNativeTools(t *testing.T) {
	r := DefaultRegistry(t.TempDir())

	expected := []string{
		"list_directory",
		"read_file",
		"run_terminal",
		"search_files",
		"web_fetch",
		"web_search",
		"write_file",
	}
	assert.Equal(t, expected, r.Names())

	for _, tool := range r.List() {
		assert.Equal(t, OriginNative, tool.Origin())
	}
}
