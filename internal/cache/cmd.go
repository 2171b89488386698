package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: openlibrary, googlebooks, all" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	slog.Info("Invalidating cache", "source", i.Source, "database", viper.GetString("cache.dbfile"))

	tables, err := tablesForSource(i.Source)
	if err != nil {
		return err
	}

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	for _, table := range tables {
		rowsDeleted, err := cacheInstance.InvalidateSource(table)
		if err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
		slog.Info("Cache invalidated", "table", table, "rows_deleted", rowsDeleted)
	}
	return nil
}

func tablesForSource(source string) ([]string, error) {
	if source == "all" {
		tables := make([]string, 0, len(SourceTables))
		for _, table := range SourceTables {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		return tables, nil
	}

	table, ok := SourceTables[source]
	if !ok {
		names := make([]string, 0, len(SourceTables))
		for name := range SourceTables {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("invalid cache source '%s'; valid sources are: %s, all", source, strings.Join(names, ", "))
	}
	return []string{table}, nil
}
