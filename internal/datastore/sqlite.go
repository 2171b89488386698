package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookcase/internal/library"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
		now:    time.Now,
	}
}

// Connect opens a connection to the SQLite database and creates the books table
func (s *SQLiteStore) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	for _, schema := range sqliteBooksSchema {
		if err := s.CreateTable(schema); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable creates a new table with the given schema if it doesn't exist
func (s *SQLiteStore) CreateTable(schema string) error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// List returns the user's books, newest first
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]library.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []library.Book
	for rows.Next() {
		var b library.Book
		var status string
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Author, &b.CoverURL, &status, &b.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		b.Status = library.Status(status)
		b.CreatedAt = time.UnixMilli(createdAt).UTC()
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	return books, nil
}

// Create inserts book with a fresh UUID and creation time
func (s *SQLiteStore) Create(ctx context.Context, book library.Book) (library.Book, error) {
	book.ID = uuid.NewString()
	book.CreatedAt = time.UnixMilli(s.now().UnixMilli()).UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.UserID, book.Title, book.Author, book.CoverURL, string(book.Status), book.Notes,
		book.CreatedAt.UnixMilli())
	if err != nil {
		return library.Book{}, fmt.Errorf("failed to insert book: %w", err)
	}
	return book, nil
}

// Update writes the given fields of the book with id
func (s *SQLiteStore) Update(ctx context.Context, id string, fields library.Fields) error {
	columns, values, err := updateColumns(fields)
	if err != nil {
		return err
	}
	set := make([]string, len(columns))
	for i, c := range columns {
		set[i] = c + " = ?"
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE books SET %s WHERE id = ?", strings.Join(set, ", ")),
		append(values, id)...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return requireRow(result)
}

// Delete removes the book with id
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return requireRow(result)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
