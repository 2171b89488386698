package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SearchFailedError is returned when every catalog provider failed for a submitted search.
// The condition is transient from the user's point of view, so it is always retryable.
type SearchFailedError struct {
	Query    string
	Failures []string
}

func (e *SearchFailedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("search failed for %q", e.Query)
	}
	return fmt.Sprintf("search failed for %q: %s", e.Query, strings.Join(e.Failures, "; "))
}

// Retryable reports whether the search may succeed if submitted again.
func (e *SearchFailedError) Retryable() bool {
	return true
}

// NewSearchFailedError creates a SearchFailedError listing each provider failure.
func NewSearchFailedError(query string, failures []string) *SearchFailedError {
	return &SearchFailedError{Query: query, Failures: failures}
}

// IsSearchFailedError reports whether err is a SearchFailedError (even when wrapped).
func IsSearchFailedError(err error) bool {
	var sfErr *SearchFailedError
	return errors.As(err, &sfErr)
}
