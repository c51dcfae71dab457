package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gema/internal/app"
	"gema/internal/auth"
	"gema/internal/config"
)

var version = "0.1.0"

var (
	cfgFile  string
	model    string
	safeMode string
	debug    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gema",
		Short: "Agentic terminal assistant for Gemini",
		Long: `Gema is an interactive terminal assistant built on the Gemini API.
It runs an agentic loop: the model reads your request, calls tools for
files, shell commands, and the web, and keeps going until it has an
answer. Sensitive tools ask for confirmation unless safe mode is off.`,
		RunE:          runApp,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gema/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use (default is "+config.DefaultModel+")")
	rootCmd.PersistentFlags().StringVar(&safeMode, "safe", "", "safe mode: on or off (default is on)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to the config dir")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gema version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	if model != "" {
		cfg.Model.Name = model
	}
	switch safeMode {
	case "":
	case "on":
		cfg.Permission.SafeMode = true
	case "off":
		cfg.Permission.SafeMode = false
	default:
		return fmt.Errorf("invalid --safe value %q, expected on or off", safeMode)
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.FileLogging = true
	}

	// The credentials file is a key source too, so resolve before validating.
	cfg.API.GeminiKey = auth.ResolveGeminiKey(cfg.API.GeminiKey)

	if err := cfg.Validate(); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, workDir, version)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	return application.Run(ctx)
}
