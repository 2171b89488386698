// Package datastore provides the persistent backends behind the library
// store: a local SQLite file, a Postgres database, or a hosted
// PostgREST-style REST endpoint.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lepinkainen/bookcase/internal/library"
)

// ErrNotFound is returned when a write targets a book id the backend does not have.
var ErrNotFound = errors.New("not found")

// Store is a library.Backend with a connection lifecycle.
type Store interface {
	library.Backend

	// Connect establishes a connection to the data store and prepares its schema
	Connect(ctx context.Context) error

	// Close closes the connection to the data store
	Close() error
}

// Drivers supported by New.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRemote   = "remote"
)

// Options selects and configures a Store.
type Options struct {
	Driver string
	// DSN is the SQLite file path or the Postgres connection string.
	DSN string
	// URL and Token address the remote REST backend.
	URL   string
	Token string
	// Timeout bounds each Postgres query.
	Timeout time.Duration
}

// New creates the Store for opts.Driver. The returned store is not connected.
func New(opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = "./bookcase.db"
		}
		return NewSQLiteStore(dsn), nil
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		return NewPostgresStore(opts.DSN, opts.Timeout), nil
	case DriverRemote:
		if opts.URL == "" {
			return nil, fmt.Errorf("remote backend requires a URL")
		}
		return NewRESTClient(opts.URL, opts.Token), nil
	default:
		return nil, fmt.Errorf("unknown backend driver %q: valid drivers are sqlite, postgres, remote", opts.Driver)
	}
}

// updateColumns turns a partial update into column names and values in a
// stable order. Field names double as column names.
func updateColumns(fields library.Fields) ([]string, []any, error) {
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("no fields to update")
	}
	columns := make([]string, 0, len(fields))
	for f := range fields {
		if _, err := library.ParseField(string(f)); err != nil {
			return nil, nil, err
		}
		columns = append(columns, string(f))
	}
	slices.Sort(columns)

	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = fields[library.Field(c)]
	}
	return columns, values, nil
}
