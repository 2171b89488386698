// Package search drives the catalog providers for the two user-facing
// flows: keystroke suggestions and explicit search submissions.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// Source pairs a provider with the number of entries requested from it.
type Source struct {
	Provider catalog.Provider
	Limit    int
}

// Aggregator queries a fixed set of providers concurrently.
type Aggregator struct {
	sources []Source
}

// NewAggregator creates an Aggregator over the given sources.
func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []Source {
	return a.sources
}

// Gather runs every provider concurrently and waits until all of them
// have settled. A failing provider yields a result with Err set; it never
// cancels the others. Results are returned in source order.
func (a *Aggregator) Gather(ctx context.Context, query catalog.Query) []catalog.ProviderResult {
	results := make([]catalog.ProviderResult, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			start := time.Now()
			entries, err := src.Provider.Search(ctx, query, src.Limit)
			results[i] = catalog.ProviderResult{
				Entries:  entries,
				Source:   src.Provider.Name(),
				Priority: src.Provider.Priority(),
				Err:      err,
			}
			if err != nil {
				results[i].Entries = nil
				if ctx.Err() == nil {
					slog.Warn("Provider search failed", "provider", src.Provider.Name(), "query", query.Text, "error", err)
				}
				return nil
			}
			slog.Debug("Provider search completed", "provider", src.Provider.Name(), "query", query.Text,
				"entries", len(entries), "duration", time.Since(start))
			return nil
		})
	}
	// goroutines only record their own error
	_ = g.Wait()

	return results
}

// failures lists the failed providers as "name: error" strings.
func failures(results []catalog.ProviderResult) []string {
	var out []string
	for _, r := range results {
		if r.Err != nil {
			out = append(out, fmt.Sprintf("%s: %v", r.Source, r.Err))
		}
	}
	return out
}
