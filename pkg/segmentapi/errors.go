package segmentapi

import (
	"errors"
	"fmt"
)

var (
	// ErrParseFailure wraps any malformed or unexpected response body.
	ErrParseFailure = errors.New("parse failure")

	// ErrPreconditionMissing is returned when a best path is requested
	// without a segment set.
	ErrPreconditionMissing = errors.New("no segments to route through")
)

// HTTPStatusError reports a non-2xx backend answer.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// StatusCode extracts the HTTP status from err, if it carries one.
func StatusCode(err error) (int, bool) {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
