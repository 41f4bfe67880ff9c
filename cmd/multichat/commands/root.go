// Package commands provides the CLI commands for multichat.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/multichat-ai/multichat/internal/config"
	"github.com/multichat-ai/multichat/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

// appConfig is loaded once before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "multichat",
	Short: "multichat - multi-session AI chat orchestrator",
	Long: `multichat orchestrates independent AI chat sessions, each bound to a
model deployment and streaming output token by token.

Run 'multichat chat "your message"' for a one-shot exchange, or
'multichat models' to list the available deployments.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it mirrors the shell environment for local use
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(level),
			Pretty: prettyLog,
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty-logs", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("multichat %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(notesCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
