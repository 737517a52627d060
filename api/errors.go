package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CallError is returned by provider adapters when a request fails with a
// non-2xx response or a transport error.
type CallError struct {
	URL          string
	StatusCode   int // 0 for transport errors
	ResponseBody string
	Err          error

	// Retryable marks the error as transient for the retry layer.
	Retryable bool
	// RetryAfterDuration is the server-requested wait, if any.
	RetryAfterDuration time.Duration
}

// NewCallError builds a CallError and classifies it by status code.
// Transport errors (status 0) are retryable.
func NewCallError(url string, statusCode int, body string, err error) *CallError {
	return &CallError{
		URL:          url,
		StatusCode:   statusCode,
		ResponseBody: body,
		Err:          err,
		Retryable:    statusCode == 0 || IsRetryableStatus(statusCode),
	}
}

// Error implements the error interface.
func (e *CallError) Error() string {
	var sb strings.Builder
	sb.WriteString("api call")
	if e.URL != "" {
		sb.WriteString(" to ")
		sb.WriteString(e.URL)
	}
	sb.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " with status %d", e.StatusCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	} else if e.ResponseBody != "" {
		sb.WriteString(": ")
		sb.WriteString(truncate(e.ResponseBody, 200))
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error { return e.Err }

// IsRetryable reports whether the call may succeed when attempted again.
func (e *CallError) IsRetryable() bool { return e.Retryable }

// RetryAfter returns the server-requested wait before the next attempt.
func (e *CallError) RetryAfter() time.Duration { return e.RetryAfterDuration }

// IsRetryableStatus reports whether an HTTP status indicates a transient
// condition: request timeout, rate limiting, server errors and overload.
func IsRetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code == 529: // provider overloaded
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

// ParseRetryAfter parses a Retry-After header given either in seconds or as
// an HTTP date. Unparseable or past values yield 0.
func ParseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}

	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
