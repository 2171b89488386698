// Package catalog provides the common record type for book-catalog search
// results and the provider-independent merge and ranking steps.
package catalog

import (
	"context"
)

// Provider defines the interface for searching an external book catalog.
// Each implementation handles its own authentication, rate limiting, and
// normalization of its response shape into Entry values.
type Provider interface {
	// Name returns the human-readable name of the source (e.g., "OpenLibrary").
	Name() string

	// Priority returns the priority when merging results. Lower values
	// indicate higher priority: a lower-priority provider's entries all
	// precede a higher one's, so its metadata wins on duplicates.
	Priority() int

	// Search returns at most limit normalized entries for the query.
	// Records without a usable title are dropped, never fabricated.
	Search(ctx context.Context, query Query, limit int) ([]Entry, error)
}

// Field restricts which catalog field a query matches.
type Field string

const (
	FieldAny    Field = "any"
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldISBN   Field = "isbn"
)

// ParseField maps a user-supplied field name to a Field, defaulting to FieldAny.
func ParseField(s string) Field {
	switch Field(s) {
	case FieldTitle, FieldAuthor, FieldISBN:
		return Field(s)
	default:
		return FieldAny
	}
}

// Query is a free-text catalog query.
type Query struct {
	Text  string
	Field Field
}

// Entry is a provider-independent catalog record.
// Empty strings mean "not available".
type Entry struct {
	// SourceKey is the provider's own lookup key (OpenLibrary work key,
	// Google volume id). Only used to build cover URLs; never compared
	// across providers.
	SourceKey string `json:"source_key"`

	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`

	// CoverURL is the medium cover image, ThumbnailURL the small one.
	CoverURL     string `json:"cover_url"`
	ThumbnailURL string `json:"thumbnail_url"`

	// Identifier is the provider's canonical key (ISBN, work key or volume id).
	Identifier string `json:"identifier"`

	// Source names the provider the entry came from. Display only.
	Source string `json:"source"`
}

// Suggestion is the reduced projection of an Entry shown inline while typing.
// CoverURL carries the medium image for whoever keeps the selection.
type Suggestion struct {
	Title             string `json:"title"`
	Author            string `json:"author"`
	CoverThumbnailURL string `json:"cover_thumbnail_url"`
	CoverURL          string `json:"cover_url,omitempty"`
}

// Suggestion projects the entry for inline display.
func (e Entry) Suggestion() Suggestion {
	thumb := e.ThumbnailURL
	if thumb == "" {
		thumb = e.CoverURL
	}
	cover := e.CoverURL
	if cover == "" {
		cover = e.ThumbnailURL
	}
	return Suggestion{
		Title:             e.Title,
		Author:            e.Author,
		CoverThumbnailURL: thumb,
		CoverURL:          cover,
	}
}

// Suggestions projects a ranked entry list.
func Suggestions(entries []Entry) []Suggestion {
	out := make([]Suggestion, len(entries))
	for i, e := range entries {
		out[i] = e.Suggestion()
	}
	return out
}

// ProviderResult holds the entries fetched from a single Provider.
type ProviderResult struct {
	Entries  []Entry
	Source   string
	Priority int
	// Err is set when the provider failed; Entries is then empty.
	Err error
}
