// Package importer brings books from other reading trackers into a library.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/bookcase/internal/catalog/providers"
	"github.com/lepinkainen/bookcase/internal/csvutil"
	"github.com/lepinkainen/bookcase/internal/errors"
	"github.com/lepinkainen/bookcase/internal/library"
)

// Goodreads library export columns.
const (
	goodreadsTitle        = "Title"
	goodreadsAuthor       = "Author"
	goodreadsISBN         = "ISBN"
	goodreadsISBN13       = "ISBN13"
	goodreadsShelf        = "Exclusive Shelf"
	goodreadsReview       = "My Review"
	goodreadsPrivateNotes = "Private Notes"
)

var htmlBreaks = strings.NewReplacer("<br/>", "\n", "<br />", "\n", "<br>", "\n")

// ParseGoodreadsFile reads a Goodreads library export CSV.
func ParseGoodreadsFile(filename string) ([]library.NewBook, error) {
	return csvutil.ProcessFile(filename, parseGoodreadsRecord, csvutil.ProcessorOptions{
		RequiredColumns: []string{goodreadsTitle, goodreadsShelf},
		SkipInvalid:     true,
	})
}

func parseGoodreadsRecord(r csvutil.Record) (library.NewBook, error) {
	title := r.Get(goodreadsTitle)
	if title == "" {
		return library.NewBook{}, fmt.Errorf("missing title")
	}

	isbn := cleanISBN(r.Get(goodreadsISBN13))
	if isbn == "" {
		isbn = cleanISBN(r.Get(goodreadsISBN))
	}

	notes := r.Get(goodreadsPrivateNotes)
	if notes == "" {
		notes = strings.TrimSpace(htmlBreaks.Replace(r.Get(goodreadsReview)))
	}

	return library.NewBook{
		Title:    title,
		Author:   r.Get(goodreadsAuthor),
		CoverURL: providers.ISBNCoverURL(isbn, "M"),
		Status:   shelfStatus(r.Get(goodreadsShelf)),
		Notes:    notes,
	}, nil
}

// cleanISBN strips the ="..." wrapper Goodreads puts around ISBNs.
func cleanISBN(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, `="`), `"`)
}

func shelfStatus(shelf string) library.Status {
	switch strings.ToLower(shelf) {
	case "currently-reading":
		return library.StatusReading
	case "read":
		return library.StatusRead
	default:
		return library.StatusWant
	}
}

// Summary counts the outcome of an import.
type Summary struct {
	Added      int
	Duplicates int
	Failed     int
}

// Import adds books to store. Titles already in the library are skipped.
// All adds are started before any is awaited.
func Import(ctx context.Context, store *library.Store, books []library.NewBook) Summary {
	var summary Summary
	var pending []*library.Pending

	for _, nb := range books {
		p, err := store.Add(ctx, nb)
		switch {
		case errors.IsDuplicateBookError(err):
			slog.Debug("Skipping book already in library", "title", nb.Title)
			summary.Duplicates++
		case err != nil:
			slog.Warn("Skipping book", "title", nb.Title, "error", err)
			summary.Failed++
		default:
			pending = append(pending, p)
		}
	}

	for _, p := range pending {
		if err := p.Wait(); err != nil {
			summary.Failed++
			continue
		}
		summary.Added++
	}
	return summary
}
