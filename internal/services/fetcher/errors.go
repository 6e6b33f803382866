package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBlocked marks responses that look like bot detection (403/429)
var ErrBlocked = errors.New("request blocked")

// ErrEmptyBody is returned for a 2xx response without content
var ErrEmptyBody = errors.New("empty response body")

// HTTPError is a non-2xx response
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// IsBlockedStatus reports status codes treated as rate limiting or bot detection
func IsBlockedStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// statusError builds the error for a non-2xx response
func statusError(code int, url string) error {
	httpErr := &HTTPError{StatusCode: code, URL: url}
	if IsBlockedStatus(code) {
		return fmt.Errorf("%w: %w", ErrBlocked, httpErr)
	}
	return httpErr
}
