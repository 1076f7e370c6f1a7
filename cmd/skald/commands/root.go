// Package commands provides the CLI commands for skald.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skald-ai/skald/internal/config"
	"github.com/skald-ai/skald/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "skald",
	Short: "skald - an LLM chat REPL with live prompt variables",
	Long: `skald is an interactive LLM REPL where prompts can reference named
variables bound to literal text, file contents, or shell command output.
Variables are re-evaluated on every send unless frozen, so prompts always
see your latest files and command results.

Run 'skald' or 'skald chat' to start a session.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		// Chatting is the whole point, make it the default.
		chatCmd.Run(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("skald %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}

// loadConfig resolves config for the working directory and initializes
// logging from it plus the global flags.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if level != "" {
		logCfg.Level = logging.ParseLevel(level)
	}
	if printLogs {
		logCfg.Output = os.Stderr
	}
	logging.Init(logCfg)

	return cfg, nil
}
