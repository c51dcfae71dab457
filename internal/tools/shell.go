package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/genai"
)

// SafeEnvVars is the whitelist of environment variables passed to shell
// commands. This keeps API keys and other secrets out of child processes.
var SafeEnvVars = []string{
	"PATH",
	"HOME",
	"USER",
	"SHELL",
	"TERM",
	"LANG",
	"LC_ALL",
	"LC_CTYPE",
	"TMPDIR",
	"TMP",
	"TEMP",
	"EDITOR",
	"VISUAL",
	"PAGER",
	"XDG_CONFIG_HOME",
	"XDG_DATA_HOME",
	"XDG_CACHE_HOME",
	"XDG_RUNTIME_DIR",
	// Go-specific
	"GOPATH",
	"GOROOT",
	"GOPROXY",
	"GOFLAGS",
	// Node/npm
	"NODE_PATH",
	"NPM_CONFIG_PREFIX",
	// Python
	"PYTHONPATH",
	"VIRTUAL_ENV",
	// Git
	"GIT_AUTHOR_NAME",
	"GIT_AUTHOR_EMAIL",
	"GIT_COMMITTER_NAME",
	"GIT_COMMITTER_EMAIL",
}

const (
	// DefaultCommandTimeout bounds terminal commands that pass no timeout of their own.
	DefaultCommandTimeout = 30 * time.Second
	// MaxCommandTimeout caps the timeout a tool call may request.
	MaxCommandTimeout = 10 * time.Minute
	// maxCommandOutput limits captured output to keep results within API payload limits.
	maxCommandOutput = 100 * 1024
)

// RunTerminalTool executes shell commands in the working directory.
type RunTerminalTool struct {
	workDir string
	timeout time.Duration
}

// NewRunTerminalTool creates a new RunTerminalTool instance.
func NewRunTerminalTool(workDir string) *RunTerminalTool {
	return &RunTerminalTool{
		workDir: workDir,
		timeout: DefaultCommandTimeout,
	}
}

// SetTimeout overrides the default command timeout.
func (t *RunTerminalTool) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

func (t *RunTerminalTool) Name() string {
	return "run_terminal"
}

func (t *RunTerminalTool) Description() string {
	return "Executes a shell command in the working directory and returns its output. Commands are killed if they exceed the timeout."
}

func (t *RunTerminalTool) Origin() Origin {
	return OriginNative
}

func (t *RunTerminalTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"command": {
					Type:        genai.TypeString,
					Description: "The shell command to execute",
				},
				"timeout_seconds": {
					Type:        genai.TypeInteger,
					Description: "Optional timeout in seconds for this command",
				},
			},
			Required: []string{"command"},
		},
	}
}

func (t *RunTerminalTool) Validate(args map[string]any) error {
	command, ok := GetString(args, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return NewValidationError("command", "is required")
	}
	if secs, ok := GetInt(args, "timeout_seconds"); ok {
		if secs < 1 {
			return NewValidationError("timeout_seconds", "must be 1 or greater")
		}
		if time.Duration(secs)*time.Second > MaxCommandTimeout {
			return NewValidationError("timeout_seconds", fmt.Sprintf("must not exceed %d", int(MaxCommandTimeout.Seconds())))
		}
	}
	return nil
}

func (t *RunTerminalTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	command, _ := GetString(args, "command")

	timeout := t.timeout
	if secs, ok := GetInt(args, "timeout_seconds"); ok {
		timeout = time.Duration(secs) * time.Second
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = t.workDir
	cmd.Env = buildSafeEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	output := stdout.String()
	if s := stderr.String(); s != "" {
		if output != "" {
			output += "\n"
		}
		output += "stderr:\n" + s
	}
	if len(output) > maxCommandOutput {
		output = output[:maxCommandOutput] + "\n... output truncated"
	}

	data := map[string]any{
		"command":     command,
		"duration_ms": elapsed.Milliseconds(),
	}

	if cmdCtx.Err() == context.DeadlineExceeded {
		return NewErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		data["exit_code"] = exitCode
		msg := fmt.Sprintf("command failed (exit %d)", exitCode)
		if output != "" {
			msg += "\n" + output
		}
		result := NewErrorResult(msg)
		result.Data = data
		return result, nil
	}

	data["exit_code"] = 0
	if output == "" {
		output = "(no output)"
	}
	return NewSuccessResultWithData(output, data), nil
}

// buildSafeEnv creates a sanitized environment for command execution.
// Only whitelisted environment variables are passed through.
func buildSafeEnv() []string {
	env := make([]string, 0, len(SafeEnvVars))
	hasPath := false
	for _, key := range SafeEnvVars {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
			if key == "PATH" {
				hasPath = true
			}
		}
	}
	if !hasPath {
		env = append(env, "PATH=/usr/local/bin:/usr/bin:/bin")
	}
	return env
}
