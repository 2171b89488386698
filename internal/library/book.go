// Package library keeps a user's book list in memory and applies edits
// optimistically while the backend write runs in the background.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is the reading status of a library book.
type Status string

const (
	StatusReading Status = "reading"
	StatusWant    Status = "want"
	StatusRead    Status = "read"
)

// Statuses lists the valid statuses in display order.
var Statuses = []Status{StatusReading, StatusWant, StatusRead}

// ParseStatus validates a user-supplied status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Statuses {
		if status == valid {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: must be one of reading, want, read", s)
}

// Book is one record in a user's library.
type Book struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	Status    Status    `json:"status" yaml:"status"`
	Notes     string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Field names an editable Book field.
type Field string

const (
	FieldStatus   Field = "status"
	FieldNotes    Field = "notes"
	FieldTitle    Field = "title"
	FieldAuthor   Field = "author"
	FieldCoverURL Field = "cover_url"
)

// EditableFields lists the fields Update accepts.
var EditableFields = []Field{FieldStatus, FieldNotes, FieldTitle, FieldAuthor, FieldCoverURL}

// ParseField validates a user-supplied field name.
func ParseField(s string) (Field, error) {
	field := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range EditableFields {
		if field == valid {
			return field, nil
		}
	}
	return "", fmt.Errorf("invalid field %q: must be one of status, notes, title, author, cover_url", s)
}

// Get returns the value of field.
func (b Book) Get(field Field) string {
	switch field {
	case FieldStatus:
		return string(b.Status)
	case FieldNotes:
		return b.Notes
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldCoverURL:
		return b.CoverURL
	default:
		return ""
	}
}

// Set assigns value to field.
func (b *Book) Set(field Field, value string) {
	switch field {
	case FieldStatus:
		b.Status = Status(value)
	case FieldNotes:
		b.Notes = value
	case FieldTitle:
		b.Title = value
	case FieldAuthor:
		b.Author = value
	case FieldCoverURL:
		b.CoverURL = value
	}
}

// Fields is a partial update keyed by field.
type Fields map[Field]string

// NewBook is the user input for Store.Add.
type NewBook struct {
	Title    string
	Author   string
	CoverURL string
	Status   Status
	Notes    string
}

// Backend persists library records. Implementations live in the
// datastore package.
type Backend interface {
	// List returns the user's books, newest first.
	List(ctx context.Context, userID string) ([]Book, error)
	// Create stores book and returns it with the assigned ID and CreatedAt.
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
}
