package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrRejected    = errors.New("request rejected")
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a reply the server marked as failed.
type APIError struct {
	StatusCode int
	Code       string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.kind, e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(status int, code string) *APIError {
	kind := ErrUnavailable
	switch {
	case status == 429:
		kind = ErrRateLimited
	case status >= 400 && status < 500:
		kind = ErrRejected
	}
	if code == "" {
		code = "unknown_error"
	}
	return &APIError{StatusCode: status, Code: code, kind: kind}
}
