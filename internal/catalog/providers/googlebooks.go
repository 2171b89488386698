package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookcase/internal/cache"
	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/errors"
	"github.com/lepinkainen/bookcase/internal/ratelimit"
)

// GoogleBooksName is the Source recorded on entries from this provider.
const GoogleBooksName = "GoogleBooks"

const (
	googleBooksBaseURL   = "https://www.googleapis.com/books/v1"
	googleBooksPriority  = 2
	googleBooksCacheName = "googlebooks_search_cache"
	googleBooksMaxLimit  = 40
)

// GoogleBooksOptions configures a Google Books provider.
type GoogleBooksOptions struct {
	BaseURL           string
	APIKey            string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	UseCache          bool
}

// GoogleBooks implements catalog.Provider for the Google Books volumes API.
type GoogleBooks struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *ratelimit.Limiter
	useCache    bool
}

// Compile-time check that GoogleBooks implements catalog.Provider.
var _ catalog.Provider = (*GoogleBooks)(nil)

// NewGoogleBooks creates a new Google Books provider.
func NewGoogleBooks(opts GoogleBooksOptions) *GoogleBooks {
	p := &GoogleBooks{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		httpClient:  opts.HTTPClient,
		rateLimiter: ratelimit.New("GoogleBooks", opts.RequestsPerSecond),
		useCache:    opts.UseCache,
	}
	if p.baseURL == "" {
		p.baseURL = googleBooksBaseURL
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return p
}

// Name returns the human-readable name of this provider.
func (p *GoogleBooks) Name() string {
	return GoogleBooksName
}

// Priority returns the merge priority (lower = higher precedence).
func (p *GoogleBooks) Priority() int {
	return googleBooksPriority
}

// Search queries the volumes endpoint and normalizes the returned items.
func (p *GoogleBooks) Search(ctx context.Context, query catalog.Query, limit int) ([]catalog.Entry, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, nil
	}

	if !p.useCache {
		return p.fetchFromAPI(ctx, query, limit)
	}

	entries, _, err := cache.GetOrFetch(googleBooksCacheName, cacheKey(query, limit), func() ([]catalog.Entry, error) {
		return p.fetchFromAPI(ctx, query, limit)
	}, cache.SelectNegativeCacheTTL(func(r []catalog.Entry) bool {
		return len(r) == 0
	}))
	return entries, err
}

// googleBooksResponse matches the Google Books API response structure.
type googleBooksResponse struct {
	TotalItems int               `json:"totalItems"`
	Items      []googleBooksItem `json:"items"`
}

type googleBooksItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		PublishedDate       string   `json:"publishedDate"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (p *GoogleBooks) fetchFromAPI(ctx context.Context, query catalog.Query, limit int) ([]catalog.Entry, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.searchURL(query, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	slog.Debug("Searching Google Books", "query", query.Text, "field", query.Field)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google Books API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, errors.NewRateLimitErrorWithRetry("google Books API rate limit exceeded", time.Duration(retryAfter)*time.Second)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google Books API returned status %d", resp.StatusCode)
	}

	var result googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Google Books response: %w", err)
	}

	entries := make([]catalog.Entry, 0, len(result.Items))
	for _, item := range result.Items {
		if entry, ok := p.normalizeVolume(item); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// searchURL maps the query field onto Google's q= search keywords.
func (p *GoogleBooks) searchURL(query catalog.Query, limit int) string {
	text := strings.TrimSpace(query.Text)
	var q string
	switch query.Field {
	case catalog.FieldTitle:
		q = "intitle:" + text
	case catalog.FieldAuthor:
		q = "inauthor:" + text
	case catalog.FieldISBN:
		q = "isbn:" + normalizeISBN(text)
	default:
		q = text
	}

	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("maxResults", strconv.Itoa(min(limit, googleBooksMaxLimit)))
	}
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}
	return fmt.Sprintf("%s/volumes?%s", p.baseURL, params.Encode())
}

// normalizeVolume converts one volume item into a catalog entry.
// Items without a title are dropped.
func (p *GoogleBooks) normalizeVolume(item googleBooksItem) (catalog.Entry, bool) {
	info := item.VolumeInfo
	title := catalog.CleanTitle(info.Title)
	if title == "" {
		return catalog.Entry{}, false
	}

	identifier := item.ID
	for _, id := range info.IndustryIdentifiers {
		if id.Identifier != "" {
			identifier = id.Identifier
			break
		}
	}

	cover := catalog.SecureURL(info.ImageLinks.Thumbnail)
	thumb := catalog.SecureURL(info.ImageLinks.SmallThumbnail)
	if thumb == "" {
		thumb = cover
	}

	return catalog.Entry{
		SourceKey:    item.ID,
		Title:        title,
		Author:       catalog.JoinAuthors(info.Authors),
		Year:         catalog.LeadingYear(info.PublishedDate),
		CoverURL:     cover,
		ThumbnailURL: thumb,
		Identifier:   identifier,
		Source:       p.Name(),
	}, true
}
