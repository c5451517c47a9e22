package source

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
)

// RateLimited paces fetches of the wrapped source with a token bucket, so a
// cold render of every page does not burst the spreadsheet export endpoint.
type RateLimited struct {
	next    Source
	limiter *rate.Limiter
}

// NewRateLimited allows limit fetches per second with the given burst.
// A non-positive limit disables pacing.
func NewRateLimited(next Source, limit rate.Limit, burst int) *RateLimited {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Fetch waits for a token before forwarding the request.
func (r *RateLimited) Fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Source: KindSheets, Dataset: datasetID, Tab: tabID, Err: fmt.Errorf("rate limit: %w", err)}
	}
	return r.next.Fetch(ctx, datasetID, tabID)
}
