package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/process"
	"github.com/Davincible/llm-relay/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relay service",
	Long:  `Start the LLM relay service, in the foreground or as a background daemon.`,
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolP("daemon", "d", false, "start in the background")
}

func runStart(cmd *cobra.Command, _ []string) error {
	if daemon, _ := cmd.Flags().GetBool("daemon"); daemon {
		procMgr := process.NewManager(baseDir())

		started, err := procMgr.StartServiceIfNeeded()
		if err != nil {
			return err
		}

		if started {
			color.Green("Service started in the background (pid %d)", procMgr.ReadPID())
		} else {
			color.Yellow("Service is already running (pid %d)", procMgr.ReadPID())
		}

		return nil
	}

	cfgMgr := config.NewManager(resolveConfigPath())

	if !cfgMgr.Exists() {
		color.Yellow("Configuration not found at %s", cfgMgr.GetPath())
		color.Yellow("Run 'llmr config init' to create one")

		return errors.New("configuration required")
	}

	// Load configuration
	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose, cfg.LogLevel)

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"backends", len(cfg.Backends),
		"providers", len(cfg.Providers),
	)

	// Setup process management
	procMgr := process.NewManager(baseDir())
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	// Create and start server
	srv := server.New(cfgMgr, logger, AppName, Version)

	return srv.Start()
}
