// Package export writes a user's library as a shareable YAML or JSON document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lepinkainen/bookcase/internal/library"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Stats counts books per reading status.
type Stats struct {
	Total   int `json:"total" yaml:"total"`
	Reading int `json:"reading" yaml:"reading"`
	Want    int `json:"want" yaml:"want"`
	Read    int `json:"read" yaml:"read"`
}

// Document is the exported form of a library.
type Document struct {
	User       string         `json:"user" yaml:"user"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Stats      Stats          `json:"stats" yaml:"stats"`
	Books      []library.Book `json:"books" yaml:"books"`
}

// NewDocument builds a Document from books, keeping their order.
func NewDocument(user string, books []library.Book, exportedAt time.Time) Document {
	doc := Document{
		User:       user,
		ExportedAt: exportedAt.UTC(),
		Books:      books,
	}
	if doc.Books == nil {
		doc.Books = []library.Book{}
	}
	for _, b := range books {
		doc.Stats.Total++
		switch b.Status {
		case library.StatusReading:
			doc.Stats.Reading++
		case library.StatusWant:
			doc.Stats.Want++
		case library.StatusRead:
			doc.Stats.Read++
		}
	}
	return doc
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: must be yaml or json", s)
	}
}

// Write encodes doc to w in format.
func Write(w io.Writer, doc Document, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to finish YAML: %w", err)
		}
	}
	return nil
}
