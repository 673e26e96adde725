package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	AppName = "llm-relay"
	Version = "0.3.0"
)

var (
	logger     *slog.Logger
	configPath string
)

func init() {
	// A local .env supplies ${VAR} references in the config file.
	_ = godotenv.Load()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "llmr",
	Short:   "llm-relay - capability-aware LLM proxy",
	Long:    `A multiplexing proxy for LLM backends: accepts Anthropic and OpenAI dialect requests, routes them by capability and context size, and fails over across a configured backend pool.`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	// Add subcommands
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
}

func baseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, "."+AppName)
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}

	return filepath.Join(baseDir(), "config.toml")
}

func setupLogging(verbose bool, level string) {
	logLevel := slog.LevelInfo

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	if verbose {
		logLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(handler)
}
