package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/metrics"
)

// Dir reads tabs from local files. The dataset is either a directory holding
// {tab}.csv / {tab}.tsv / {tab}.xlsx files, or a single .xlsx workbook whose
// sheets are named after the tabs.
type Dir struct {
	decode analysis.Options
}

// NewDir returns a local file source.
func NewDir(opt analysis.Options) *Dir {
	return &Dir{decode: opt}
}

// Fetch implements Source.
func (d *Dir) Fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	t, err := d.fetch(ctx, datasetID, tabID)
	metrics.RecordFetch(KindDir, err)
	if err != nil {
		return nil, &FetchError{Source: KindDir, Dataset: datasetID, Tab: tabID, Err: err}
	}
	return t, nil
}

func (d *Dir) fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(datasetID) == "" {
		return nil, errors.New("data directory is empty")
	}
	info, err := os.Stat(datasetID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{What: "dataset " + datasetID}
		}
		return nil, err
	}
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(datasetID), ".xlsx") {
			return nil, fmt.Errorf("unsupported dataset file %s (expected a directory or .xlsx workbook)", filepath.Base(datasetID))
		}
		return analysis.ReadXLSX(datasetID, tabID, 0, d.decode)
	}

	for _, ext := range []string{".csv", ".tsv", ".xlsx"} {
		path := filepath.Join(datasetID, tabID+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if ext == ".xlsx" {
			return analysis.ReadXLSX(path, "", 1, d.decode)
		}
		return analysis.ReadCSVFile(path, d.decode)
	}
	return nil, &NotFoundError{What: fmt.Sprintf("tab %s in %s", tabID, datasetID)}
}
