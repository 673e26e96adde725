package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/llm-relay/internal/config"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Round-trip a trivial completion",
	Long:  `Ask the running relay to round-trip a one-word completion through its selection and failover path.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, _ []string) error {
	cfgMgr := config.NewManager(resolveConfigPath())
	cfg := cfgMgr.Get()

	scheme := "http"
	if cfg.HTTPSEnabled {
		scheme = "https"
	}

	url := fmt.Sprintf("%s://%s:%d/test-connection", scheme, cfg.Host, cfg.Port)

	color.Blue("Testing %s...", url)

	client := &http.Client{Timeout: 2 * time.Minute}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		color.Red("Test failed (%d): %s", resp.StatusCode, string(body))
		return fmt.Errorf("test connection returned %d", resp.StatusCode)
	}

	var result struct {
		Status    string `json:"status"`
		Backend   string `json:"backend"`
		LatencyMS int64  `json:"latency_ms"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}

	color.Green("Connection OK via %s (%d ms)", result.Backend, result.LatencyMS)

	return nil
}
