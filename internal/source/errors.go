package source

import (
	"fmt"
	"time"
)

// FetchError wraps any failure to load one tab. A render pass that hits it fails as a whole.
type FetchError struct {
	Source  string
	Dataset string
	Tab     string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s tab %s of %s: %v", e.Source, e.Tab, e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the spreadsheet export endpoint.
type HTTPError struct {
	StatusCode int
	// Body holds the first bytes of the response, trimmed.
	Body      string
	RequestID string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("http error: status=%d", e.StatusCode)
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	if e.Body != "" {
		msg += " body=" + e.Body
	}
	return msg
}

// AuthError indicates the spreadsheet is not shared publicly (401/403, or a sign-in page).
type AuthError struct{ *HTTPError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("spreadsheet not accessible, check that it is shared by link: %s", e.HTTPError.Error())
}

// NotFoundError indicates an unknown spreadsheet, tab or local file.
type NotFoundError struct {
	What string
	*HTTPError
}

func (e *NotFoundError) Error() string {
	if e.HTTPError != nil {
		return fmt.Sprintf("%s not found: %s", e.What, e.HTTPError.Error())
	}
	return fmt.Sprintf("%s not found", e.What)
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*HTTPError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.HTTPError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.HTTPError.Error())
}

// ServerError indicates 5xx errors from the export endpoint.
type ServerError struct{ *HTTPError }

func (e *ServerError) Error() string { return fmt.Sprintf("server error: %s", e.HTTPError.Error()) }
