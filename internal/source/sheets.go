package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/metrics"
)

// DefaultSheetsBaseURL is the Google Sheets document root.
const DefaultSheetsBaseURL = "https://docs.google.com/spreadsheets/d"

// maxBody bounds a tab export; result tabs are a few hundred rows. Larger
// exports fail rather than decode as a truncated table.
var maxBody = 32 << 20

// Sheets fetches tabs through the spreadsheet's CSV export endpoint.
// The spreadsheet must be shared by link; no credentials are sent.
type Sheets struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	decode           analysis.Options
	log              *slog.Logger
}

// NewSheets returns a Sheets source with defaults filled in for zero options.
func NewSheets(opt Options) *Sheets {
	if opt.HTTPTimeout <= 0 {
		opt.HTTPTimeout = 30 * time.Second
	}
	if opt.RetryMaxAttempts <= 0 {
		opt.RetryMaxAttempts = 3
	}
	if opt.RetryBaseDelay <= 0 {
		opt.RetryBaseDelay = 500 * time.Millisecond
	}
	if opt.RetryMaxDelay <= 0 {
		opt.RetryMaxDelay = 4 * time.Second
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Sheets{
		httpClient:       &http.Client{Timeout: opt.HTTPTimeout},
		baseURL:          DefaultSheetsBaseURL,
		retryMaxAttempts: opt.RetryMaxAttempts,
		retryBaseDelay:   opt.RetryBaseDelay,
		retryMaxDelay:    opt.RetryMaxDelay,
		decode:           analysis.DefaultOptions(),
		log:              opt.Logger.With("component", "source", "source", KindSheets),
	}
}

// NewSheetsWithBaseURL allows injecting a custom base URL (used in tests).
func NewSheetsWithBaseURL(opt Options, baseURL string) *Sheets {
	s := NewSheets(opt)
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// ExportURL returns the CSV export URL of one tab.
func (s *Sheets) ExportURL(datasetID, tabID string) string {
	q := url.Values{"format": {"csv"}, "gid": {tabID}}
	return fmt.Sprintf("%s/%s/export?%s", s.baseURL, url.PathEscape(datasetID), q.Encode())
}

// Fetch downloads and decodes one tab. 429 and 5xx responses and transient
// network errors are retried with exponential backoff and jitter.
func (s *Sheets) Fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	t, err := s.fetch(ctx, datasetID, tabID)
	metrics.RecordFetch(KindSheets, err)
	if err != nil {
		return nil, &FetchError{Source: KindSheets, Dataset: datasetID, Tab: tabID, Err: err}
	}
	return t, nil
}

func (s *Sheets) fetch(ctx context.Context, datasetID, tabID string) (*analysis.Table, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	if strings.TrimSpace(tabID) == "" {
		return nil, errors.New("tab id is empty")
	}
	endpoint := s.ExportURL(datasetID, tabID)
	backoff := s.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= s.retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, wait, err := s.do(ctx, endpoint)
		if err == nil {
			t, err := analysis.ReadCSV(bytes.NewReader(body), tabID, s.decode)
			if err != nil {
				return nil, fmt.Errorf("decode csv: %w", err)
			}
			s.log.Debug("tab fetched", "dataset", datasetID, "tab", tabID, "rows", t.Len(), "attempt", attempt)
			return t, nil
		}
		lastErr = err
		if wait < 0 || attempt == s.retryMaxAttempts {
			break
		}
		if wait == 0 {
			wait = withJitter(backoff)
			if wait > s.retryMaxDelay {
				wait = s.retryMaxDelay
			}
			backoff *= 2
		}
		s.log.Debug("retrying fetch", "tab", tabID, "attempt", attempt, "wait", wait, "err", err)
		metrics.RecordRetry(KindSheets)
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// do performs one request. wait < 0 means the error is final; wait == 0 asks
// for the regular backoff; wait > 0 is a server-provided Retry-After.
func (s *Sheets) do(ctx context.Context, endpoint string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && isRetryableNetErr(err) {
			return nil, 0, fmt.Errorf("http request: %w", err)
		}
		return nil, -1, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			RequestID:  resp.Header.Get("X-Request-Id"),
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			var ra time.Duration
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
					ra = time.Duration(secs) * time.Second
				}
			}
			return nil, ra, classifyHTTPError(httpErr, ra)
		}
		return nil, -1, classifyHTTPError(httpErr, 0)
	}

	// A link-restricted spreadsheet answers 200 with a sign-in page.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, -1, &AuthError{HTTPError: &HTTPError{StatusCode: resp.StatusCode, Body: "received an HTML page instead of CSV"}}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBody)+1))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBody {
		return nil, -1, fmt.Errorf("tab export exceeds %d bytes", maxBody)
	}
	return body, 0, nil
}

// classifyHTTPError maps a status to the typed error callers can match on.
func classifyHTTPError(e *HTTPError, retryAfter time.Duration) error {
	switch sc := e.StatusCode; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{HTTPError: e}
	case sc == http.StatusNotFound:
		return &NotFoundError{What: "spreadsheet or tab", HTTPError: e}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{HTTPError: e, RetryAfter: retryAfter}
	case sc >= 500 && sc <= 599:
		return &ServerError{HTTPError: e}
	default:
		return e
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// parseRetryAfterSeconds interprets a Retry-After value as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
