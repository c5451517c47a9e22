package source

import (
	"context"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/memo"
)

type tabKey struct {
	Dataset string
	Tab     string
}

// Memo caches fetched tables by (dataset, tab) for the life of the process.
// Cached tables are shared; callers must treat them as read-only, which every
// analysis operation already does.
type Memo struct {
	next  Source
	cache *memo.Cache[tabKey, *analysis.Table]
}

// NewMemo wraps next with a cache.
func NewMemo(next Source) *Memo {
	return &Memo{next: next, cache: memo.New[tabKey, *analysis.Table]("tabs")}
}

// Fetch implements Source. Failures are not cached. Concurrent callers for one
// tab share a single fetch that outlives any one caller's cancellation.
func (m *Memo) Fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	return m.cache.DoContext(ctx, tabKey{datasetID, tabID}, func(ctx context.Context) (*analysis.Table, error) {
		return m.next.Fetch(ctx, datasetID, tabID)
	})
}

// Reset drops every cached table so the next fetch goes to the source.
func (m *Memo) Reset() { m.cache.Reset() }

// Cached reports how many tables are held.
func (m *Memo) Cached() int { return m.cache.Len() }
