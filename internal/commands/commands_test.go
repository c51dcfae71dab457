package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gema/internal/auth"
	"gema/internal/chat"
	"gema/internal/client"
	"gema/internal/mcp"
	"gema/internal/persona"
)

type fakeApp struct {
	session    *chat.Session
	personas   *persona.Store
	workDir    string
	model      string
	apiKey     string
	safeMode   bool
	lastAnswer string
	mcpManager *mcp.Manager
}

func newFakeApp(t *testing.T) *fakeApp {
	t.Helper()
	workDir := t.TempDir()
	return &fakeApp{
		session:  chat.NewSession(workDir),
		personas: persona.NewStore(),
		workDir:  workDir,
		model:    "gemini-2.5-flash",
		safeMode: true,
	}
}

func (a *fakeApp) GetSession() *chat.Session   { return a.session }
func (a *fakeApp) GetWorkDir() string          { return a.workDir }
func (a *fakeApp) GetVersion() string          { return "test" }
func (a *fakeApp) GetModel() string            { return a.model }
func (a *fakeApp) GetPersonas() *persona.Store { return a.personas }
func (a *fakeApp) SafeMode() bool              { return a.safeMode }
func (a *fakeApp) SetSafeMode(enabled bool)    { a.safeMode = enabled }
func (a *fakeApp) GetMCPManager() *mcp.Manager { return a.mcpManager }
func (a *fakeApp) GetAPIKey() string           { return a.apiKey }
func (a *fakeApp) LastAnswer() string          { return a.lastAnswer }

func (a *fakeApp) AddMCPServer(cfg *mcp.ServerConfig) error {
	if a.mcpManager == nil {
		a.mcpManager = mcp.NewManager(nil, nil)
	}
	return a.mcpManager.AddServer(cfg)
}

func (a *fakeApp) SetModel(name string) error {
	if !client.IsValidModel(name) {
		return fmt.Errorf("unknown model: %s", name)
	}
	a.model = name
	return nil
}

func (a *fakeApp) SetPersona(name string) error {
	if !a.personas.Exists(name) {
		return fmt.Errorf("unknown persona: %s", name)
	}
	a.session.SetPersona(name)
	a.session.Clear()
	return nil
}

func (a *fakeApp) ConnectMCP(ctx context.Context, name string) error { return nil }
func (a *fakeApp) DisconnectMCP(name string) error                   { return nil }

func TestParse(t *testing.T) {
	h := NewHandler()

	name, args, ok := h.Parse("/help model")
	require.True(t, ok)
	assert.Equal(t, "help", name)
	assert.Equal(t, []string{"model"}, args)

	// Paths are not commands
	_, _, ok = h.Parse("/home/user/notes.txt")
	assert.False(t, ok)

	_, _, ok = h.Parse("plain message")
	assert.False(t, ok)

	_, _, ok = h.Parse("/unknowncmd")
	assert.False(t, ok)
}

func TestHelpListsAllCommands(t *testing.T) {
	h := NewHandler()
	out, err := h.Execute(context.Background(), "help", nil, newFakeApp(t))
	require.NoError(t, err)
	for _, name := range []string{"/exit", "/clear", "/safe", "/auth", "/model", "/persona", "/mcp", "/copy", "/save", "/load", "/image", "/video"} {
		assert.Contains(t, out, name)
	}
}

func TestExitReturnsSentinel(t *testing.T) {
	h := NewHandler()
	_, err := h.Execute(context.Background(), "exit", nil, newFakeApp(t))
	assert.ErrorIs(t, err, ErrExit)
}

func TestClear(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	app.session.AddUserMessage("hello")

	out, err := h.Execute(context.Background(), "clear", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
	assert.Equal(t, 0, app.session.MessageCount())
}

func TestSafeToggleAndExplicit(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)

	out, err := h.Execute(context.Background(), "safe", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "off")
	assert.False(t, app.safeMode)

	_, err = h.Execute(context.Background(), "safe", []string{"on"}, app)
	require.NoError(t, err)
	assert.True(t, app.safeMode)

	_, err = h.Execute(context.Background(), "safe", []string{"sideways"}, app)
	assert.Error(t, err)
}

func TestModelShowAndSwitch(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)

	out, err := h.Execute(context.Background(), "model", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "gemini-2.5-flash")
	assert.Contains(t, out, "gemini-2.5-pro")

	out, err = h.Execute(context.Background(), "model", []string{"gemini-2.5-pro"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "gemini-2.5-pro")
	assert.Contains(t, out, "Gemini 2.5 Pro")
	assert.Equal(t, "gemini-2.5-pro", app.model)

	_, err = h.Execute(context.Background(), "model", []string{"gpt-99"}, app)
	assert.Error(t, err)
}

func TestPersonaSwitchClearsHistory(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	app.session.AddUserMessage("remember this")

	out, err := h.Execute(context.Background(), "persona", []string{"coder"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "coder")
	assert.Equal(t, "coder", app.session.Persona())
	assert.Equal(t, 0, app.session.MessageCount())

	_, err = h.Execute(context.Background(), "persona", []string{"nonexistent"}, app)
	assert.Error(t, err)
}

func TestMCPWithoutManager(t *testing.T) {
	h := NewHandler()
	out, err := h.Execute(context.Background(), "mcp", []string{"list"}, newFakeApp(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No MCP servers configured")
}

func TestMCPAddRegistersServer(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)

	out, err := h.Execute(context.Background(), "mcp",
		[]string{"add", "files", "stdio", "mcp-files", "--root", "/tmp"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered files")

	out, err = h.Execute(context.Background(), "mcp", []string{"list"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "files")
	assert.Contains(t, out, "disconnected")

	// Duplicate names are rejected
	_, err = h.Execute(context.Background(), "mcp",
		[]string{"add", "files", "stdio", "mcp-files"}, app)
	assert.Error(t, err)

	_, err = h.Execute(context.Background(), "mcp",
		[]string{"add", "bad", "carrier-pigeon", "x"}, app)
	assert.Error(t, err)
}

func TestAuthShowAndLoginLogout(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	h := NewHandler()
	app := newFakeApp(t)

	out, err := h.Execute(context.Background(), "auth", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "(not set)")

	app.apiKey = "abcdefghstuvwxyz"
	out, err = h.Execute(context.Background(), "auth", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "abcd********wxyz")
	assert.NotContains(t, out, "abcdefghstuvwxyz")

	out, err = h.Execute(context.Background(), "auth", []string{"login", "stored-key-12345"}, app)
	require.NoError(t, err)
	assert.NotContains(t, out, "stored-key-12345")

	creds, err := auth.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "stored-key-12345", creds.GeminiKey)

	_, err = h.Execute(context.Background(), "auth", []string{"logout"}, app)
	require.NoError(t, err)
	creds, err = auth.LoadCredentials()
	require.NoError(t, err)
	assert.Empty(t, creds.GeminiKey)

	_, err = h.Execute(context.Background(), "auth", []string{"frobnicate"}, app)
	assert.Error(t, err)
}

func TestCopyWithNothing(t *testing.T) {
	h := NewHandler()
	out, err := h.Execute(context.Background(), "copy", nil, newFakeApp(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to copy")
}

func TestSaveJSONAndMarkdown(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	app.session.AddUserMessage("question")

	out, err := h.Execute(context.Background(), "save", []string{"dump.json"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "dump.json")

	data, err := os.ReadFile(filepath.Join(app.workDir, "dump.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	_, err = h.Execute(context.Background(), "save", []string{"dump.md"}, app)
	require.NoError(t, err)
	md, err := os.ReadFile(filepath.Join(app.workDir, "dump.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## User")
}

func TestSaveEmptySession(t *testing.T) {
	h := NewHandler()
	out, err := h.Execute(context.Background(), "save", nil, newFakeApp(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to save")
}

func TestLoadInjectsContextExchange(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.workDir, "notes.txt"), []byte("secret plans"), 0644))

	out, err := h.Execute(context.Background(), "load", []string{"notes.txt"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")

	history := app.session.History()
	require.Len(t, history, 2)
	assert.Contains(t, history[0].Parts[0].Text, "secret plans")

	_, err = h.Execute(context.Background(), "load", []string{"missing.txt"}, app)
	assert.Error(t, err)
}

func TestImageAttachment(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)

	// Minimal PNG header is enough for extension-based detection
	require.NoError(t, os.WriteFile(filepath.Join(app.workDir, "pic.png"), []byte("\x89PNG\r\n\x1a\nxxxx"), 0644))

	out, err := h.Execute(context.Background(), "image", []string{"pic.png"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "image/png")
	assert.Equal(t, 1, app.session.PendingAttachments())

	// Attachment rides along with the next message, then clears
	app.session.AddUserMessage("what is this?")
	assert.Equal(t, 0, app.session.PendingAttachments())
	history := app.session.History()
	require.Len(t, history[0].Parts, 2)
	assert.Equal(t, "image/png", history[0].Parts[1].InlineData.MIMEType)
}

func TestImageRejectsNonImage(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.workDir, "doc.txt"), []byte("plain text"), 0644))

	_, err := h.Execute(context.Background(), "image", []string{"doc.txt"}, app)
	assert.Error(t, err)
	assert.Equal(t, 0, app.session.PendingAttachments())
}

func TestVideoAttachment(t *testing.T) {
	h := NewHandler()
	app := newFakeApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.workDir, "clip.mp4"), []byte("not really a video"), 0644))

	out, err := h.Execute(context.Background(), "video", []string{"clip.mp4"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "video/mp4")
	assert.Equal(t, 1, app.session.PendingAttachments())
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", detectMimeType("a.png", nil))
	assert.Equal(t, "video/mp4", detectMimeType("b.mp4", nil))
	// No extension falls back to sniffing
	assert.Contains(t, detectMimeType("raw", []byte("\x89PNG\r\n\x1a\n0000")), "image/png")
}
