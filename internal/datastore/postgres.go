package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lepinkainen/bookcase/internal/library"
)

const defaultPostgresTimeout = 5 * time.Second

// PostgresStore implements the Store interface on a Postgres database
type PostgresStore struct {
	dsn     string
	db      *pgxpool.Pool
	timeout time.Duration
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgresStore; every query is bounded by timeout.
func NewPostgresStore(dsn string, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = defaultPostgresTimeout
	}
	return &PostgresStore{dsn: dsn, timeout: timeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Connect opens the connection pool and creates the books table
func (s *PostgresStore) Connect(ctx context.Context) error {
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	pool, err := pgxpool.New(timeoutCtx, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = pool

	for _, schema := range postgresBooksSchema {
		if _, err := s.db.Exec(timeoutCtx, schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// List returns the user's books, newest first
func (s *PostgresStore) List(ctx context.Context, userID string) ([]library.Book, error) {
	const listSQL = `SELECT ` + bookColumns + ` FROM books WHERE user_id = $1 ORDER BY created_at DESC`

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(timeoutCtx, listSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []library.Book
	for rows.Next() {
		var b library.Book
		var status string
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Author, &b.CoverURL, &status, &b.Notes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		b.Status = library.Status(status)
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	return books, nil
}

// Create inserts book and returns it with the id and created_at the database stored
func (s *PostgresStore) Create(ctx context.Context, book library.Book) (library.Book, error) {
	const insertSQL = `
		INSERT INTO books (id, user_id, title, author, cover_url, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	book.ID = uuid.NewString()

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.db.QueryRow(timeoutCtx, insertSQL,
		book.ID, book.UserID, book.Title, book.Author, book.CoverURL, string(book.Status), book.Notes,
	).Scan(&book.CreatedAt)
	if err != nil {
		return library.Book{}, fmt.Errorf("failed to insert book: %w", err)
	}
	return book, nil
}

// Update writes the given fields of the book with id
func (s *PostgresStore) Update(ctx context.Context, id string, fields library.Fields) error {
	query, args, err := postgresUpdate(id, fields)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the book with id
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// postgresUpdate builds the UPDATE statement with numbered placeholders;
// the id is always the last argument.
func postgresUpdate(id string, fields library.Fields) (string, []any, error) {
	columns, values, err := updateColumns(fields)
	if err != nil {
		return "", nil, err
	}
	set := make([]string, len(columns))
	for i, c := range columns {
		set[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d", strings.Join(set, ", "), len(columns)+1)
	return query, append(values, id), nil
}
