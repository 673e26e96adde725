package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/llm-relay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the LLM relay configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration",
	Long:  `Write a commented starter config.toml to the config path.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the parsed configuration with credentials redacted.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const starterConfig = `host = "127.0.0.1"
port = 8000
log_level = "info"
request_timeout = 90

# "ignore", "request", or an integer ceiling.
max_tokens_limit = "request"
min_tokens_limit = "ignore"

# Client tokens; leave empty to disable authentication.
[tokens]
# alice = "sk-relay-..."

[provider.openai]
api_key = "${OPENAI_API_KEY}"
base_url = "https://api.openai.com/v1"

# Backends are tried in order; the first entry is the primary.
[[backend]]
model = "openai:gpt-4o"
context = 128000
vision = true
`

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := resolveConfigPath()

	if _, err := os.Stat(path); err == nil {
		color.Yellow("Configuration already exists at %s", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("write starter config: %w", err)
	}

	color.Green("Wrote starter configuration to %s", path)
	color.Yellow("Edit it with your providers and backends, then run 'llmr start'")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfgMgr := config.NewManager(resolveConfigPath())

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	color.Blue("Configuration (%s):", cfgMgr.GetPath())
	fmt.Printf("  %-17s: %s:%d\n", "Listen", cfg.Host, cfg.Port)
	fmt.Printf("  %-17s: %s\n", "Log level", cfg.LogLevel)
	fmt.Printf("  %-17s: %ds\n", "Request timeout", cfg.RequestTimeout)
	fmt.Printf("  %-17s: %v\n", "Auth enabled", len(cfg.Tokens) > 0)

	fmt.Println("  Providers:")

	for name, provider := range cfg.Providers {
		style := "standard"
		if provider.APIVersion != "" {
			style = "azure"
		}

		fmt.Printf("    %-15s: %s (%s)\n", name, provider.BaseURL, style)
	}

	fmt.Println("  Backends:")

	for i, backend := range cfg.Backends {
		role := "failover"
		if i == 0 {
			role = "primary"
		}

		fmt.Printf("    %d. %s (context=%d vision=%v thinking=%v, %s)\n",
			i+1, backend.Model, backend.ContextLimit(), backend.Vision, backend.Thinking, role)
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfgMgr := config.NewManager(resolveConfigPath())

	if _, err := cfgMgr.Load(); err != nil {
		color.Red("Configuration invalid: %v", err)
		return err
	}

	color.Green("Configuration is valid")

	return nil
}
