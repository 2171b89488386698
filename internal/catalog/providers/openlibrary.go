// Package providers implements catalog.Provider for the external book
// catalogs: OpenLibrary search.json and the Google Books volumes API.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookcase/internal/cache"
	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/ratelimit"
)

// OpenLibraryName is the Source recorded on entries from this provider.
const OpenLibraryName = "OpenLibrary"

const (
	openLibraryBaseURL   = "https://openlibrary.org"
	openLibraryCoversURL = "https://covers.openlibrary.org"
	openLibraryPriority  = 1
	openLibraryCacheName = "openlibrary_search_cache"
)

// OpenLibraryOptions configures an OpenLibrary provider.
type OpenLibraryOptions struct {
	BaseURL           string
	CoversURL         string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	UseCache          bool
}

// OpenLibrary implements catalog.Provider for openlibrary.org.
type OpenLibrary struct {
	baseURL     string
	coversURL   string
	httpClient  *http.Client
	rateLimiter *ratelimit.Limiter
	useCache    bool
}

// Compile-time check that OpenLibrary implements catalog.Provider.
var _ catalog.Provider = (*OpenLibrary)(nil)

// NewOpenLibrary creates a new OpenLibrary provider.
func NewOpenLibrary(opts OpenLibraryOptions) *OpenLibrary {
	p := &OpenLibrary{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		coversURL:   strings.TrimRight(opts.CoversURL, "/"),
		httpClient:  opts.HTTPClient,
		rateLimiter: ratelimit.New("OpenLibrary", opts.RequestsPerSecond),
		useCache:    opts.UseCache,
	}
	if p.baseURL == "" {
		p.baseURL = openLibraryBaseURL
	}
	if p.coversURL == "" {
		p.coversURL = openLibraryCoversURL
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

// Name returns the human-readable name of this provider.
func (p *OpenLibrary) Name() string {
	return OpenLibraryName
}

// Priority returns the merge priority (lower = higher precedence).
func (p *OpenLibrary) Priority() int {
	return openLibraryPriority
}

// Search queries search.json and normalizes the returned docs.
func (p *OpenLibrary) Search(ctx context.Context, query catalog.Query, limit int) ([]catalog.Entry, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, nil
	}

	if !p.useCache {
		return p.fetchFromAPI(ctx, query, limit)
	}

	entries, _, err := cache.GetOrFetch(openLibraryCacheName, cacheKey(query, limit), func() ([]catalog.Entry, error) {
		return p.fetchFromAPI(ctx, query, limit)
	}, cache.SelectNegativeCacheTTL(func(r []catalog.Entry) bool {
		return len(r) == 0
	}))
	return entries, err
}

// openLibrarySearchResponse matches the search.json response structure.
type openLibrarySearchResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	PublishYear      []int    `json:"publish_year"`
	CoverID          int      `json:"cover_i"`
	ISBN             []string `json:"isbn"`
}

func (p *OpenLibrary) fetchFromAPI(ctx context.Context, query catalog.Query, limit int) ([]catalog.Entry, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.searchURL(query, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenLibrary API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenLibrary API returned status %d", resp.StatusCode)
	}

	var result openLibrarySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OpenLibrary response: %w", err)
	}

	entries := make([]catalog.Entry, 0, len(result.Docs))
	for _, doc := range result.Docs {
		if entry, ok := p.normalizeDoc(doc); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// searchURL maps the query field onto the matching search.json parameter.
func (p *OpenLibrary) searchURL(query catalog.Query, limit int) string {
	params := url.Values{}
	text := strings.TrimSpace(query.Text)
	switch query.Field {
	case catalog.FieldTitle:
		params.Set("title", text)
	case catalog.FieldAuthor:
		params.Set("author", text)
	case catalog.FieldISBN:
		params.Set("isbn", normalizeISBN(text))
	default:
		params.Set("q", text)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return fmt.Sprintf("%s/search.json?%s", p.baseURL, params.Encode())
}

// normalizeDoc converts one search.json doc into a catalog entry.
// Docs without a title are dropped.
func (p *OpenLibrary) normalizeDoc(doc openLibraryDoc) (catalog.Entry, bool) {
	title := catalog.CleanTitle(doc.Title)
	if title == "" {
		return catalog.Entry{}, false
	}

	year := ""
	if doc.FirstPublishYear > 0 {
		year = catalog.LeadingYear(strconv.Itoa(doc.FirstPublishYear))
	} else if len(doc.PublishYear) > 0 && doc.PublishYear[0] > 0 {
		year = catalog.LeadingYear(strconv.Itoa(doc.PublishYear[0]))
	}

	isbn := ""
	if len(doc.ISBN) > 0 {
		isbn = doc.ISBN[0]
	}

	identifier := isbn
	if identifier == "" {
		identifier = doc.Key
	}

	return catalog.Entry{
		SourceKey:    doc.Key,
		Title:        title,
		Author:       catalog.JoinAuthors(doc.AuthorName),
		Year:         year,
		CoverURL:     p.coverURL(doc.CoverID, isbn, "M"),
		ThumbnailURL: p.coverURL(doc.CoverID, isbn, "S"),
		Identifier:   identifier,
		Source:       p.Name(),
	}, true
}

// coverURL builds a covers.openlibrary.org URL from the cover id, falling
// back to the ISBN endpoint. Returns "" when neither is known.
func (p *OpenLibrary) coverURL(coverID int, isbn, size string) string {
	switch {
	case coverID > 0:
		return catalog.SecureURL(fmt.Sprintf("%s/b/id/%d-%s.jpg", p.coversURL, coverID, size))
	case isbn != "":
		return catalog.SecureURL(fmt.Sprintf("%s/b/isbn/%s-%s.jpg", p.coversURL, isbn, size))
	default:
		return ""
	}
}

// ISBNCoverURL returns the OpenLibrary cover for isbn, or "" without one.
func ISBNCoverURL(isbn, size string) string {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return ""
	}
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", openLibraryCoversURL, isbn, size)
}

func cacheKey(query catalog.Query, limit int) string {
	field := query.Field
	if field == "" {
		field = catalog.FieldAny
	}
	return fmt.Sprintf("%s:%d:%s", field, limit, strings.ToLower(strings.TrimSpace(query.Text)))
}

// normalizeISBN strips hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	normalized := strings.ReplaceAll(isbn, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	return normalized
}
