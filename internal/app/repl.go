package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gema/internal/agent"
	"gema/internal/client"
	"gema/internal/commands"
	"gema/internal/logging"
	"gema/internal/ui"
)

// Run starts the interactive loop and blocks until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ui.PrintBanner(os.Stdout, a.styles, a.version, a.GetModel(), a.workDir, a.SafeMode())

	// The REPL and the confirmation prompt share one reader; two buffered
	// readers over the same stdin would steal each other's lines.
	stdin := bufio.NewReader(os.Stdin)
	a.gate.SetPromptHandler(ui.NewConfirmPrompt(stdin, os.Stdout, a.styles).Ask)

	if a.mcp != nil {
		a.mcp.ConnectAll(ctx)
		a.mcp.StartHealthCheck(ctx, 30*time.Second)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		fmt.Print(a.styles.Prompt.Render("> "))

		line, err := stdin.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if name, args, isCmd := a.handler.Parse(input); isCmd {
			out, err := a.handler.Execute(ctx, name, args, a)
			if errors.Is(err, commands.ErrExit) {
				return nil
			}
			if err != nil {
				a.renderer.Error(err.Error())
				continue
			}
			if out != "" {
				a.renderer.System(out)
			}
			continue
		}

		a.runTurn(ctx, sigCh, input)
	}
}

// runTurn executes one user turn. An interrupt cancels the turn without
// quitting the program.
func (a *App) runTurn(ctx context.Context, sigCh <-chan os.Signal, input string) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Drop any interrupt delivered while sitting at the prompt so it can't
	// cancel this turn before it starts.
	select {
	case <-sigCh:
	default:
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			a.renderer.System("Cancelling...")
			cancel()
		case <-done:
		}
	}()

	result, err := a.loop.HandleUserTurn(turnCtx, input)
	close(done)

	if err != nil {
		a.reportTurnError(err)
		return
	}
	if result.Outcome == agent.OutcomeComplete && result.FinalText != "" {
		a.setLastAnswer(result.FinalText)
	}
	logging.Debug("turn finished",
		"iterations", result.Iterations,
		"tool_calls", result.ToolCalls,
		"outcome", int(result.Outcome))
}

// reportTurnError explains transport failures in user terms. History is
// already preserved, so a retry picks up where the turn stopped.
func (a *App) reportTurnError(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		a.renderer.System("Turn cancelled.")
	case errors.Is(err, agent.ErrBusy):
		a.renderer.Error("A turn is already in progress.")
	case errors.Is(err, client.ErrRateLimited):
		a.renderer.Error("Rate limited by the API. Wait a moment and try again.")
	case errors.Is(err, client.ErrUnauthorized):
		a.renderer.Error("Authentication failed. Check GEMINI_API_KEY or the config file.")
	case errors.Is(err, client.ErrNetwork):
		a.renderer.Error("Network problem talking to the API. Your message is kept; try again.")
	default:
		a.renderer.Error(err.Error())
	}
}
