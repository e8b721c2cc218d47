package http

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches a StatusError carrying HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrChallenge is returned when a page body is an anti-bot challenge
	// instead of the requested document.
	ErrChallenge = errors.New("anti-bot challenge page")
)

// StatusError is a response with a non-2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Is makes errors.Is(err, ErrRateLimited) true for 429 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// AttemptsError wraps the last error once every attempt for a URL failed.
type AttemptsError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("giving up on %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error {
	return e.Err
}
