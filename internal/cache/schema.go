package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// OpenLibrarySearchCacheSchema defines the schema for OpenLibrary search.json responses
const OpenLibrarySearchCacheSchema = `
CREATE TABLE IF NOT EXISTS openlibrary_search_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_search_expires_at ON openlibrary_search_cache(expires_at);
`

// GoogleBooksSearchCacheSchema defines the schema for Google Books volume search responses
const GoogleBooksSearchCacheSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_search_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_search_expires_at ON googlebooks_search_cache(expires_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	OpenLibrarySearchCacheSchema,
	GoogleBooksSearchCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	"openlibrary_search_cache": true,
	"googlebooks_search_cache": true,
}

// SourceTables maps the user-facing source names to their cache tables
var SourceTables = map[string]string{
	"openlibrary": "openlibrary_search_cache",
	"googlebooks": "googlebooks_search_cache",
}
