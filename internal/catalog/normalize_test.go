package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinAuthors(t *testing.T) {
	require.Equal(t, "Frank Herbert", JoinAuthors([]string{"Frank Herbert"}))
	require.Equal(t, "Neil Gaiman, Terry Pratchett", JoinAuthors([]string{"Neil Gaiman", " Terry Pratchett "}))
	require.Equal(t, UnknownAuthor, JoinAuthors(nil))
	require.Equal(t, UnknownAuthor, JoinAuthors([]string{"", "  "}))
}

func TestLeadingYear(t *testing.T) {
	tests := map[string]string{
		"1965":       "1965",
		"1965-08-01": "1965",
		"2001-05":    "2001",
		"":           "",
		"19":         "",
		"c. 1965":    "",
		"12345":      "",
	}
	for in, want := range tests {
		require.Equal(t, want, LeadingYear(in), "input %q", in)
	}
}

func TestSecureURL(t *testing.T) {
	require.Equal(t, "https://books.google.com/x?id=1", SecureURL("http://books.google.com/x?id=1"))
	require.Equal(t, "https://covers.openlibrary.org/b/id/1-M.jpg", SecureURL("https://covers.openlibrary.org/b/id/1-M.jpg"))
	require.Equal(t, "", SecureURL(""))
}

func TestEntrySuggestion(t *testing.T) {
	e := Entry{Title: "Dune", Author: "Frank Herbert", CoverURL: "https://c/M.jpg", ThumbnailURL: "https://c/S.jpg"}
	require.Equal(t, Suggestion{
		Title:             "Dune",
		Author:            "Frank Herbert",
		CoverThumbnailURL: "https://c/S.jpg",
		CoverURL:          "https://c/M.jpg",
	}, e.Suggestion())

	e.ThumbnailURL = ""
	require.Equal(t, "https://c/M.jpg", e.Suggestion().CoverThumbnailURL)

	e.ThumbnailURL, e.CoverURL = "https://c/S.jpg", ""
	require.Equal(t, "https://c/S.jpg", e.Suggestion().CoverURL)
}

func TestParseField(t *testing.T) {
	require.Equal(t, FieldTitle, ParseField("title"))
	require.Equal(t, FieldISBN, ParseField("isbn"))
	require.Equal(t, FieldAny, ParseField(""))
	require.Equal(t, FieldAny, ParseField("subject"))
}
