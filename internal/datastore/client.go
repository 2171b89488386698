package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/lepinkainen/bookcase/internal/library"
)

const booksTable = "books"

// RESTClient implements the Store interface for a hosted PostgREST-style
// API (e.g. a Supabase project) exposing a books table.
type RESTClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// Compile-time check that RESTClient implements Store.
var _ Store = (*RESTClient)(nil)

// NewRESTClient creates a new RESTClient instance
func NewRESTClient(baseURL, apiToken string) *RESTClient {
	return &RESTClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Connect verifies the base URL
func (c *RESTClient) Connect(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", c.baseURL)
	}
	return nil
}

// restBook is the wire form of a book row; id and created_at are
// assigned by the server on insert.
type restBook struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	CoverURL  string     `json:"cover_url"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (r restBook) toBook() library.Book {
	b := library.Book{
		ID:       r.ID,
		UserID:   r.UserID,
		Title:    r.Title,
		Author:   r.Author,
		CoverURL: r.CoverURL,
		Status:   library.Status(r.Status),
		Notes:    r.Notes,
	}
	if r.CreatedAt != nil {
		b.CreatedAt = *r.CreatedAt
	}
	return b
}

// List returns the user's books, newest first
func (c *RESTClient) List(ctx context.Context, userID string) ([]library.Book, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("order", "created_at.desc")

	var rows []restBook
	if err := c.do(ctx, http.MethodGet, params, nil, &rows); err != nil {
		return nil, err
	}
	books := make([]library.Book, len(rows))
	for i, r := range rows {
		books[i] = r.toBook()
	}
	return books, nil
}

// Create inserts book and returns the server's representation of it
func (c *RESTClient) Create(ctx context.Context, book library.Book) (library.Book, error) {
	row := restBook{
		UserID:   book.UserID,
		Title:    book.Title,
		Author:   book.Author,
		CoverURL: book.CoverURL,
		Status:   string(book.Status),
		Notes:    book.Notes,
	}

	var created []restBook
	if err := c.do(ctx, http.MethodPost, nil, row, &created); err != nil {
		return library.Book{}, err
	}
	if len(created) == 0 {
		return library.Book{}, fmt.Errorf("insert returned no rows")
	}
	return created[0].toBook(), nil
}

// Update patches the given fields of the book with id
func (c *RESTClient) Update(ctx context.Context, id string, fields library.Fields) error {
	columns, values, err := updateColumns(fields)
	if err != nil {
		return err
	}
	patch := make(map[string]any, len(columns))
	for i, col := range columns {
		patch[col] = values[i]
	}

	var updated []restBook
	if err := c.do(ctx, http.MethodPatch, idFilter(id), patch, &updated); err != nil {
		return err
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the book with id
func (c *RESTClient) Delete(ctx context.Context, id string) error {
	var deleted []restBook
	if err := c.do(ctx, http.MethodDelete, idFilter(id), nil, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op for the HTTP client
func (c *RESTClient) Close() error {
	return nil
}

func idFilter(id string) url.Values {
	params := url.Values{}
	params.Set("id", "eq."+id)
	return params
}

// do sends one request to the books table and decodes the JSON response into out.
func (c *RESTClient) do(ctx context.Context, method string, params url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, booksTable)
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("apikey", c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("API error (status %d): %v", resp.StatusCode, errResp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
