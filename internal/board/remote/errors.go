package remote

import (
	"errors"
	"fmt"

	"github.com/focusboard/focusboard/internal/board/schema"
)

var (
	// ErrNotConfigured is returned by every call when no remote URL/key is set.
	// Callers treat it as local-only mode, not a failure.
	ErrNotConfigured = errors.New("remote store not configured")

	// ErrNotFound is returned when an update matched no row.
	ErrNotFound = errors.New("record not found")
)

// RequestError is a non-2xx response from the remote.
type RequestError struct {
	Op         string
	Collection schema.Collection
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.Collection, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Op, e.Collection, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request could succeed.
func (e *RequestError) Temporary() bool {
	return e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}
