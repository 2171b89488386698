package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/errors"
	"github.com/stretchr/testify/require"
)

const googleBooksFixture = `{
	"totalItems": 3,
	"items": [
		{
			"id": "B1hSG45JCX4C",
			"volumeInfo": {
				"title": "Dune",
				"authors": ["Frank Herbert"],
				"publishedDate": "1990-09-01",
				"industryIdentifiers": [
					{"type": "ISBN_13", "identifier": "9780441172719"}
				],
				"imageLinks": {
					"thumbnail": "http://books.google.com/books/content?id=B1hSG45JCX4C&zoom=1",
					"smallThumbnail": "http://books.google.com/books/content?id=B1hSG45JCX4C&zoom=5"
				}
			}
		},
		{
			"id": "noTitle",
			"volumeInfo": {"authors": ["Someone"]}
		},
		{
			"id": "zyTCAlFPjgYC",
			"volumeInfo": {
				"title": "The Google Story",
				"publishedDate": "2005"
			}
		}
	]
}`

func newTestGoogleBooks(t *testing.T, apiKey string, handler http.HandlerFunc) *GoogleBooks {
	t.Helper()
	server := newIPv4TestServer(t, handler)
	return NewGoogleBooks(GoogleBooksOptions{
		BaseURL:    server.URL,
		APIKey:     apiKey,
		HTTPClient: server.Client(),
	})
}

func TestGoogleBooksSearch_NormalizesItems(t *testing.T) {
	p := newTestGoogleBooks(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/volumes", r.URL.Path)
		require.Equal(t, "dune", r.URL.Query().Get("q"))
		require.Equal(t, "15", r.URL.Query().Get("maxResults"))
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(googleBooksFixture))
	})

	entries, err := p.Search(context.Background(), catalog.Query{Text: "dune"}, 15)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, catalog.Entry{
		SourceKey:    "B1hSG45JCX4C",
		Title:        "Dune",
		Author:       "Frank Herbert",
		Year:         "1990",
		CoverURL:     "https://books.google.com/books/content?id=B1hSG45JCX4C&zoom=1",
		ThumbnailURL: "https://books.google.com/books/content?id=B1hSG45JCX4C&zoom=5",
		Identifier:   "9780441172719",
		Source:       "GoogleBooks",
	}, entries[0])

	story := entries[1]
	require.Equal(t, "zyTCAlFPjgYC", story.Identifier)
	require.Equal(t, catalog.UnknownAuthor, story.Author)
	require.Equal(t, "2005", story.Year)
	require.Empty(t, story.CoverURL)
	require.Empty(t, story.ThumbnailURL)
}

func TestGoogleBooksSearch_FieldKeywords(t *testing.T) {
	tests := map[catalog.Field]string{
		catalog.FieldAny:    "tolkien",
		catalog.FieldTitle:  "intitle:tolkien",
		catalog.FieldAuthor: "inauthor:tolkien",
	}
	for field, want := range tests {
		t.Run(string(field), func(t *testing.T) {
			p := newTestGoogleBooks(t, "", func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, want, r.URL.Query().Get("q"))
				require.False(t, r.URL.Query().Has("key"))
				_, _ = w.Write([]byte(`{"totalItems": 0}`))
			})
			_, err := p.Search(context.Background(), catalog.Query{Text: "tolkien", Field: field}, 5)
			require.NoError(t, err)
		})
	}
}

func TestGoogleBooksSearch_CapsMaxResults(t *testing.T) {
	p := newTestGoogleBooks(t, "", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "40", r.URL.Query().Get("maxResults"))
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	})
	_, err := p.Search(context.Background(), catalog.Query{Text: "dune"}, 100)
	require.NoError(t, err)
}

func TestGoogleBooksSearch_RateLimited(t *testing.T) {
	p := newTestGoogleBooks(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Search(context.Background(), catalog.Query{Text: "dune"}, 5)
	require.Error(t, err)
	require.True(t, errors.IsRateLimitError(err))

	var rlErr *errors.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.Equal(t, 30*time.Second, rlErr.RetryAfter)
}

func TestGoogleBooksSearch_BadJSON(t *testing.T) {
	p := newTestGoogleBooks(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := p.Search(context.Background(), catalog.Query{Text: "dune"}, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode Google Books response")
}
