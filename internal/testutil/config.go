package testutil

import (
	"testing"

	"github.com/lepinkainen/bookcase/internal/cache"
	"github.com/lepinkainen/bookcase/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	GoogleBooksAPIKey string
	UserID            string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		GoogleBooksAPIKey: config.GoogleBooksAPIKey,
		UserID:            config.UserID,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.GoogleBooksAPIKey = state.GoogleBooksAPIKey
	config.UserID = state.UserID
}

// SetTestConfigOption is a functional option for configuring test config.
type SetTestConfigOption func(*ConfigState)

// WithGoogleBooksAPIKey sets the Google Books API key.
func WithGoogleBooksAPIKey(key string) SetTestConfigOption {
	return func(s *ConfigState) {
		s.GoogleBooksAPIKey = key
	}
}

// WithUserID sets the library owner.
func WithUserID(id string) SetTestConfigOption {
	return func(s *ConfigState) {
		s.UserID = id
	}
}

// SetTestConfig resets viper, loads the defaults and applies opts. The
// previous state (including the cache singleton) is restored when the
// test completes.
func SetTestConfig(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()
	_ = cache.ResetGlobalCache()
	config.SetDefaults()

	options := ConfigState{
		GoogleBooksAPIKey: "test-google-key",
		UserID:            "test-user",
	}
	for _, opt := range opts {
		opt(&options)
	}
	RestoreConfigState(options)

	t.Cleanup(func() {
		RestoreConfigState(state)
		_ = cache.ResetGlobalCache()
		viper.Reset()
	})
}

// SetViperValue sets a viper configuration value for the rest of the test.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)
	viper.Set(key, value)

	t.Cleanup(func() {
		// viper has no Unset, so an unset key can't be restored
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}

// SetupTestCache points the provider cache at a database inside env.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFileString("cache/.keep", "")
	SetViperValue(t, "cache.dbfile", dbPath)
	SetViperValue(t, "cache.ttl", "24h")
	return dbPath
}

// SetupTestBackend points the library backend at a SQLite file inside env.
func SetupTestBackend(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("bookcase.db")
	SetViperValue(t, "backend.driver", "sqlite")
	SetViperValue(t, "backend.dsn", dbPath)
	return dbPath
}
