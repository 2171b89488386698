package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/bookcase/internal/cache"
	"github.com/lepinkainen/bookcase/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// stdout receives command output; logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the bookcase application
type CLI struct {
	// Global flags
	Verbose bool   `short:"v" help:"Enable debug logging"`
	User    string `help:"User whose library to operate on (defaults to user.id in config)"`
	Backend string `help:"Library backend driver: sqlite, postgres, remote (defaults to backend.driver in config)"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file (defaults to cache.dbfile in config)"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 24h)"`
	NoCache     bool   `help:"Bypass the provider response cache"`

	Search  SearchCmd  `cmd:"" help:"Search OpenLibrary and Google Books"`
	Suggest SuggestCmd `cmd:"" help:"Print ranked suggestions for a partial query"`
	Find    FindCmd    `cmd:"" help:"Find a book interactively with suggestions as you type"`
	Library LibraryCmd `cmd:"" help:"Manage your reading library"`
	Cache   CacheCmd   `cmd:"" help:"Manage the provider response cache"`
}

// CacheCmd groups the cache maintenance subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Invalidate cached provider responses"`
}

func kongOptions(ctx context.Context) []kong.Option {
	return []kong.Option{
		kong.Name("bookcase"),
		kong.Description("Search book catalogs and keep a personal reading library."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli, kongOptions(ctx)...)

	if err := initConfig("."); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	initLogging(cli.Verbose)

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	if err := kctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// initConfig loads .env, then config.yaml from dir. A missing config file
// is written with the defaults.
func initConfig(dir string) error {
	_ = godotenv.Load(".env")

	config.SetDefaults()
	viper.SetDefault("log.level", "info")

	// Enable environment variable support
	viper.AutomaticEnv()
	// Bind specific environment variables to config keys
	if err := viper.BindEnv("googlebooks.apikey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
	if err := viper.BindEnv("backend.dsn", "BOOKCASE_DB_DSN"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Info("Config file not found, writing default config file...")
		if err := viper.SafeWriteConfig(); err != nil {
			slog.Error("Error writing config file", "error", err)
		}
	}

	// Initialize global config
	config.InitConfig()
	return nil
}

func updateGlobalConfig(cli *CLI) {
	config.SetUserID(cli.User)

	if cli.Backend != "" {
		viper.Set("backend.driver", cli.Backend)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
	if cli.NoCache {
		viper.Set("cache.enabled", false)
	}
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(viper.GetString("log.level")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initLogging(verbose bool) {
	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: logLevel(verbose),
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}

func printf(format string, args ...any) {
	_, _ = fmt.Fprintf(stdout, format, args...)
}
