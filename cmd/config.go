package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set resultats configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "source: %s\n", cfg.Source)
		fmt.Fprintf(out, "spreadsheet_id: %s\n", mask(cfg.SpreadsheetID))
		if cfg.DataDir != "" {
			fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		}
		for _, kv := range cfg.SortedTabs() {
			fmt.Fprintf(out, "tabs.%s: %s\n", kv[0], kv[1])
		}
		fmt.Fprintf(out, "current_year: %d\n", cfg.CurrentYear)
		fmt.Fprintf(out, "prior_year: %d\n", cfg.PriorYear)
		fmt.Fprintf(out, "variation_policy: %s\n", cfg.VariationPolicy)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(out, "requests_per_second: %g\n", cfg.RequestsPerSecond)
		fmt.Fprintf(out, "request_burst: %d\n", cfg.RequestBurst)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(out, "⚠ %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

Keys: source, spreadsheet_id, data_dir, tabs.<role> (philosophie, eds, go, dnb, eaf),
current_year, prior_year, variation_policy (zero|na), http_timeout_sec,
retry_max_attempts, retry_base_delay_ms, retry_max_delay_ms, requests_per_second,
request_burst, listen_addr.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
