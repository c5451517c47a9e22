// Package source loads result tabs into typed tables.
//
// A Source resolves (dataset, tab) to an analysis.Table whose headers are
// already trimmed and NFC-normalized. Sheets reads the public CSV export of a
// Google spreadsheet; Dir reads a local directory of CSV files or an .xlsx
// workbook. Memo wraps either one with a process-wide cache.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
)

// Source fetches one tab of a dataset.
type Source interface {
	Fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error)
}

// Kind names used in logs and metrics.
const (
	KindSheets = "sheets"
	KindDir    = "dir"
)

// Options configures the HTTP transport of Sheets.
type Options struct {
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	Logger           *slog.Logger
}

// FromConfig builds the configured source, wrapped in a Memo. It also
// returns the dataset identifier to pass to Fetch.
func FromConfig(cfg *config.Global, logger *slog.Logger) (*Memo, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Source {
	case KindDir:
		return NewMemo(NewDir(analysis.DefaultOptions())), cfg.DataDir, nil
	case KindSheets, "":
		s := NewSheets(Options{
			HTTPTimeout:      time.Duration(cfg.HTTPTimeoutSec) * time.Second,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
			RetryBaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
			RetryMaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
			Logger:           logger,
		})
		limited := NewRateLimited(s, rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst)
		return NewMemo(limited), cfg.SpreadsheetID, nil
	default:
		return nil, "", fmt.Errorf("unknown source %q (use sheets|dir)", cfg.Source)
	}
}
