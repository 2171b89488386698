package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/catalog/providers"
	"github.com/lepinkainen/bookcase/internal/config"
	"github.com/lepinkainen/bookcase/internal/library"
	"github.com/lepinkainen/bookcase/internal/search"
	"github.com/lepinkainen/bookcase/internal/tui"
)

var (
	newProviders = defaultProviders
	runFinder    = tui.Find
)

// SearchCmd represents the search command
type SearchCmd struct {
	Query []string `arg:"" help:"Search terms"`
	Field string   `short:"F" help:"Field to match: any, title, author, isbn" enum:"any,title,author,isbn" default:"any"`
	Limit int      `short:"n" help:"Maximum number of results to print (0 prints all)" default:"0"`
	JSON  bool     `help:"Print results as JSON"`
}

// SuggestCmd represents the suggest command
type SuggestCmd struct {
	Query []string `arg:"" help:"Partial title or author"`
}

// FindCmd represents the interactive find command
type FindCmd struct {
	Query  string `arg:"" optional:"" help:"Initial query"`
	Add    bool   `help:"Add the selected book to your library"`
	Status string `help:"Status for the added book: reading, want, read" enum:"reading,want,read" default:"want"`
}

func defaultProviders() []catalog.Provider {
	pc := config.Providers()
	return []catalog.Provider{
		providers.NewOpenLibrary(providers.OpenLibraryOptions{
			RequestsPerSecond: pc.OpenLibraryRPS,
			UseCache:          pc.UseCache,
		}),
		providers.NewGoogleBooks(providers.GoogleBooksOptions{
			APIKey:            pc.GoogleBooksAPIKey,
			RequestsPerSecond: pc.GoogleBooksRPS,
			UseCache:          pc.UseCache,
		}),
	}
}

// searchAggregator fans submitted searches out with the per-provider limits.
func searchAggregator() *search.Aggregator {
	sc := config.Search()
	var sources []search.Source
	for _, p := range newProviders() {
		limit := sc.OpenLibraryLimit
		if p.Name() == providers.GoogleBooksName {
			limit = sc.GoogleBooksLimit
		}
		sources = append(sources, search.Source{Provider: p, Limit: limit})
	}
	return search.NewAggregator(sources...)
}

func suggestAggregator() *search.Aggregator {
	limit := config.Suggest().ProviderLimit
	var sources []search.Source
	for _, p := range newProviders() {
		sources = append(sources, search.Source{Provider: p, Limit: limit})
	}
	return search.NewAggregator(sources...)
}

func newSuggester(agg *search.Aggregator, onChange func(search.Snapshot)) *search.Suggester {
	sc := config.Suggest()
	return search.NewSuggester(agg, search.SuggesterOptions{
		Delay:    sc.Delay,
		Limit:    sc.Limit,
		OnChange: onChange,
	})
}

func (s *SearchCmd) Run(ctx context.Context) error {
	query := catalog.Query{
		Text:  strings.Join(s.Query, " "),
		Field: catalog.ParseField(s.Field),
	}
	if strings.TrimSpace(query.Text) == "" {
		return fmt.Errorf("search query is required")
	}

	searcher := search.NewSearcher(searchAggregator(), nil, nil)
	result, err := searcher.Submit(ctx, query)
	if err != nil {
		return err
	}
	if result.Degraded {
		slog.Warn("Some providers failed, results are incomplete", "failures", result.Failures)
	}
	slog.Debug("Search finished", "query", query.Text, "entries", len(result.Entries), "duplicates", result.DupsRemoved)

	entries := result.Entries
	if s.Limit > 0 && len(entries) > s.Limit {
		entries = entries[:s.Limit]
	}

	if s.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		printf("No results for %q\n", query.Text)
		return nil
	}
	for i, e := range entries {
		printf("%2d. %s\n", i+1, formatEntry(e))
	}
	return nil
}

func formatEntry(e catalog.Entry) string {
	var b strings.Builder
	b.WriteString(e.Title)
	if e.Author != "" {
		b.WriteString(" by ")
		b.WriteString(e.Author)
	}
	if e.Year != "" {
		fmt.Fprintf(&b, " (%s)", e.Year)
	}
	fmt.Fprintf(&b, " [%s]", e.Source)
	return b.String()
}

func (s *SuggestCmd) Run(ctx context.Context) error {
	query := strings.Join(s.Query, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("suggest query is required")
	}

	resolved := make(chan search.Snapshot, 1)
	suggester := newSuggester(suggestAggregator(), func(snap search.Snapshot) {
		if snap.State != search.StateResolved {
			return
		}
		select {
		case resolved <- snap:
		default:
		}
	})
	defer suggester.Close()

	suggester.Type(query)

	select {
	case snap := <-resolved:
		if len(snap.Suggestions) == 0 {
			printf("No suggestions for %q\n", query)
			return nil
		}
		for i, sg := range snap.Suggestions {
			line := sg.Title
			if sg.Author != "" {
				line += " by " + sg.Author
			}
			printf("%2d. %s\n", i+1, line)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FindCmd) Run(ctx context.Context) error {
	agg := suggestAggregator()
	result, err := runFinder(f.Query, func(onChange func(search.Snapshot)) tui.Suggester {
		return newSuggester(agg, onChange)
	})
	if err != nil {
		return fmt.Errorf("finder failed: %w", err)
	}
	if result.Action != tui.ActionSelected || result.Selection == nil {
		slog.Info("No book selected")
		return nil
	}

	picked := *result.Selection
	printf("%s\n", formatSuggestion(picked))
	if !f.Add {
		return nil
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	status, err := library.ParseStatus(f.Status)
	if err != nil {
		return err
	}
	pending, err := store.Add(ctx, library.NewBook{
		Title:    picked.Title,
		Author:   picked.Author,
		CoverURL: picked.CoverURL,
		Status:   status,
	})
	if err != nil {
		return err
	}
	if err := pending.Wait(); err != nil {
		return err
	}
	printf("Added %s (%s)\n", picked.Title, pending.Book().ID)
	return nil
}

func formatSuggestion(s catalog.Suggestion) string {
	if s.Author == "" {
		return s.Title
	}
	return s.Title + " by " + s.Author
}
