package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestInitConfig_Defaults(t *testing.T) {
	resetViper(t)
	InitConfig()

	assert.Equal(t, SuggestConfig{Delay: 300 * time.Millisecond, Limit: 10, ProviderLimit: 8}, Suggest())
	assert.Equal(t, SearchConfig{OpenLibraryLimit: 20, GoogleBooksLimit: 20}, Search())
	assert.Equal(t, "local", UserID)

	providers := Providers()
	assert.True(t, providers.UseCache)
	assert.Equal(t, 5.0, providers.OpenLibraryRPS)

	backend := Backend()
	assert.Equal(t, "sqlite", backend.Driver)
	assert.Equal(t, "./bookcase.db", backend.DSN)
	assert.Equal(t, 5*time.Second, backend.Timeout)
}

func TestAccessors_ReadViper(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("suggest.delay", "150ms")
	viper.Set("suggest.limit", 0)
	viper.Set("googlebooks.apikey", "abc")
	viper.Set("cache.enabled", false)
	viper.Set("backend.driver", "remote")
	viper.Set("backend.url", "https://example.supabase.co/rest/v1")

	assert.Equal(t, 150*time.Millisecond, Suggest().Delay)
	assert.Equal(t, DefaultSuggestLimit, Suggest().Limit, "non-positive limits fall back to the default")
	assert.Equal(t, "abc", Providers().GoogleBooksAPIKey)
	assert.False(t, Providers().UseCache)
	assert.Equal(t, "remote", Backend().Driver)
	assert.Equal(t, "https://example.supabase.co/rest/v1", Backend().URL)
}

func TestSuggest_InvalidDelay(t *testing.T) {
	resetViper(t)
	viper.Set("suggest.delay", "soon")
	assert.Equal(t, DefaultSuggestDelay, Suggest().Delay)
}

func TestSetUserID(t *testing.T) {
	original := UserID
	t.Cleanup(func() { UserID = original })

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set explicit id", input: "alice", expected: "alice"},
		{name: "empty keeps previous", input: "", expected: "alice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetUserID(tc.input)
			assert.Equal(t, tc.expected, UserID)
		})
	}
}
