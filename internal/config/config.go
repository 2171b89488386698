// Package config exposes bookcase settings read through viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for the settings below.
const (
	DefaultSuggestDelay           = 300 * time.Millisecond
	DefaultSuggestLimit           = 10
	DefaultSuggestProviderLimit   = 8
	DefaultSearchOpenLibraryLimit = 20
	DefaultSearchGoogleBooksLimit = 20
	DefaultOpenLibraryRPS         = 5.0
	DefaultGoogleBooksRPS         = 2.0
	DefaultBackendDriver          = "sqlite"
	DefaultBackendDSN             = "./bookcase.db"
	DefaultBackendTimeoutSeconds  = 5
)

// Global configuration variables
var (
	// GoogleBooksAPIKey is the API key for the Google Books volumes API
	GoogleBooksAPIKey string
	// UserID owns the library the CLI operates on
	UserID string
)

// SetDefaults registers the default value of every setting with viper.
func SetDefaults() {
	viper.SetDefault("googlebooks.apikey", "")
	viper.SetDefault("googlebooks.rps", DefaultGoogleBooksRPS)
	viper.SetDefault("openlibrary.rps", DefaultOpenLibraryRPS)

	viper.SetDefault("suggest.delay", DefaultSuggestDelay.String())
	viper.SetDefault("suggest.limit", DefaultSuggestLimit)
	viper.SetDefault("suggest.providerlimit", DefaultSuggestProviderLimit)

	viper.SetDefault("search.openlibrarylimit", DefaultSearchOpenLibraryLimit)
	viper.SetDefault("search.googlelimit", DefaultSearchGoogleBooksLimit)

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.enabled", true)

	viper.SetDefault("backend.driver", DefaultBackendDriver)
	viper.SetDefault("backend.dsn", DefaultBackendDSN)
	viper.SetDefault("backend.url", "")
	viper.SetDefault("backend.token", "")
	viper.SetDefault("backend.timeout", DefaultBackendTimeoutSeconds)

	viper.SetDefault("user.id", "local")
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	GoogleBooksAPIKey = viper.GetString("googlebooks.apikey")
	UserID = viper.GetString("user.id")
}

// SetUserID sets the UserID used for library commands
func SetUserID(id string) {
	if id != "" {
		UserID = id
	}
}

// SuggestConfig controls the keystroke suggestion pipeline.
type SuggestConfig struct {
	Delay         time.Duration
	Limit         int
	ProviderLimit int
}

// Suggest returns the suggestion settings.
func Suggest() SuggestConfig {
	delay, err := time.ParseDuration(viper.GetString("suggest.delay"))
	if err != nil || delay <= 0 {
		delay = DefaultSuggestDelay
	}
	return SuggestConfig{
		Delay:         delay,
		Limit:         positiveOr(viper.GetInt("suggest.limit"), DefaultSuggestLimit),
		ProviderLimit: positiveOr(viper.GetInt("suggest.providerlimit"), DefaultSuggestProviderLimit),
	}
}

// SearchConfig controls explicit search submissions.
type SearchConfig struct {
	OpenLibraryLimit int
	GoogleBooksLimit int
}

// Search returns the per-provider result counts for submitted searches.
func Search() SearchConfig {
	return SearchConfig{
		OpenLibraryLimit: positiveOr(viper.GetInt("search.openlibrarylimit"), DefaultSearchOpenLibraryLimit),
		GoogleBooksLimit: positiveOr(viper.GetInt("search.googlelimit"), DefaultSearchGoogleBooksLimit),
	}
}

// ProviderConfig holds the catalog provider settings.
type ProviderConfig struct {
	GoogleBooksAPIKey string
	OpenLibraryRPS    float64
	GoogleBooksRPS    float64
	UseCache          bool
}

// Providers returns the catalog provider settings.
func Providers() ProviderConfig {
	key := viper.GetString("googlebooks.apikey")
	if key == "" {
		key = GoogleBooksAPIKey
	}
	return ProviderConfig{
		GoogleBooksAPIKey: key,
		OpenLibraryRPS:    viper.GetFloat64("openlibrary.rps"),
		GoogleBooksRPS:    viper.GetFloat64("googlebooks.rps"),
		UseCache:          !viper.IsSet("cache.enabled") || viper.GetBool("cache.enabled"),
	}
}

// BackendConfig selects the library persistence backend.
type BackendConfig struct {
	Driver  string
	DSN     string
	URL     string
	Token   string
	Timeout time.Duration
}

// Backend returns the library backend settings.
func Backend() BackendConfig {
	return BackendConfig{
		Driver:  viper.GetString("backend.driver"),
		DSN:     viper.GetString("backend.dsn"),
		URL:     viper.GetString("backend.url"),
		Token:   viper.GetString("backend.token"),
		Timeout: time.Duration(positiveOr(viper.GetInt("backend.timeout"), DefaultBackendTimeoutSeconds)) * time.Second,
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
