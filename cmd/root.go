package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/dashboard"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/source"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	dataDir string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "resultats",
	Short: "EFE Maroc exam results: BAC, DNB and EAF dashboards",
	Long: `resultats reads the exam results spreadsheet (or a local copy), compares the
current session with the prior one, ranks schools and renders the BAC, DNB and
EAF pages as Markdown, JSON, YAML or HTML, or serves them over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.resultats/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "read tabs from a local directory or .xlsx workbook instead of Google Sheets")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max fetch attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: config show/set still work and report the problem.
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && dataDir != "" {
		cfg.Source = source.KindDir
		cfg.DataDir = dataDir
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	logger.Debug("config loaded", "source", cfg.Source, "current_year", cfg.CurrentYear, "prior_year", cfg.PriorYear)
}

// newBuilder validates the loaded config and wires source and page builder.
func newBuilder() (*dashboard.Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded (see `resultats config show`)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, dataset, err := source.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return dashboard.NewBuilder(src, dataset, cfg, logger)
}
