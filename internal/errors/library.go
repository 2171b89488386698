package errors

import (
	"errors"
	"fmt"
)

// DuplicateBookError is returned when a book with the same title is already in the library.
type DuplicateBookError struct {
	Title string
}

func (e *DuplicateBookError) Error() string {
	return fmt.Sprintf("book already in library: %s", e.Title)
}

// NewDuplicateBookError creates a DuplicateBookError for the given title.
func NewDuplicateBookError(title string) *DuplicateBookError {
	return &DuplicateBookError{Title: title}
}

// IsDuplicateBookError reports whether err is a DuplicateBookError (even when wrapped).
func IsDuplicateBookError(err error) bool {
	var dupErr *DuplicateBookError
	return errors.As(err, &dupErr)
}

// MutationError wraps a backend failure for a library mutation whose local change was rolled back.
type MutationError struct {
	Op     string
	BookID string
	Err    error
}

func (e *MutationError) Error() string {
	if e.BookID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.BookID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError creates a MutationError for the operation on bookID.
func NewMutationError(op, bookID string, err error) *MutationError {
	return &MutationError{Op: op, BookID: bookID, Err: err}
}

// IsMutationError reports whether err is a MutationError (even when wrapped).
func IsMutationError(err error) bool {
	var mErr *MutationError
	return errors.As(err, &mErr)
}
