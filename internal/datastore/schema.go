package datastore

// sqliteBooksSchema stores created_at as unix milliseconds.
var sqliteBooksSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'want',
		notes TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_user_created ON books(user_id, created_at)`,
}

var postgresBooksSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'want',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_user_created ON books(user_id, created_at DESC)`,
}

const bookColumns = "id, user_id, title, author, cover_url, status, notes, created_at"
