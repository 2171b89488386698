package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/errors"
)

// Result is the outcome of one submitted search, in merged provider order.
type Result struct {
	Query       catalog.Query
	Entries     []catalog.Entry
	DupsRemoved int
	// Degraded is set when some, but not all, providers failed.
	Degraded bool
	Failures []string
}

// SearchState is an observable view of the search pipeline.
type SearchState struct {
	Searching bool
	Result    Result
	Err       error
}

// Searcher runs explicit search submissions. Results are merged and
// deduplicated but not ranked.
type Searcher struct {
	agg       *Aggregator
	suggester *Suggester
	onChange  func(SearchState)

	mu    sync.Mutex
	seq   uint64
	state SearchState
}

// NewSearcher creates a Searcher. When suggester is non-nil its list is
// dismissed on every submission.
func NewSearcher(agg *Aggregator, suggester *Suggester, onChange func(SearchState)) *Searcher {
	return &Searcher{
		agg:       agg,
		suggester: suggester,
		onChange:  onChange,
	}
}

// Submit runs a search for query. An empty query is a no-op. When every
// provider fails the returned error is a *errors.SearchFailedError.
//
// A submission superseded by a newer one still returns its own result to
// the caller but does not overwrite the Searcher's state.
func (s *Searcher) Submit(ctx context.Context, query catalog.Query) (Result, error) {
	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" {
		return Result{}, nil
	}
	if query.Field == "" {
		query.Field = catalog.FieldAny
	}

	if s.suggester != nil {
		s.suggester.Dismiss()
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Searching = true
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)

	results := s.agg.Gather(ctx, query)
	merged := catalog.Merge(results)
	failed := failures(results)

	result := Result{
		Query:       query,
		Entries:     merged.Entries,
		DupsRemoved: merged.DupsRemoved,
		Failures:    failed,
	}
	var err error
	switch {
	case len(results) > 0 && len(failed) == len(results):
		result.Entries = []catalog.Entry{}
		err = errors.NewSearchFailedError(query.Text, failed)
	case len(failed) > 0:
		result.Degraded = true
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		slog.Debug("Discarding stale search result", "query", query.Text, "seq", seq)
		return result, err
	}
	s.state = SearchState{Result: result, Err: err}
	snap = s.state
	s.mu.Unlock()

	if err != nil {
		slog.Warn("Search failed", "query", query.Text, "error", err)
	} else {
		slog.Debug("Search completed", "query", query.Text, "entries", len(result.Entries),
			"duplicates", result.DupsRemoved, "degraded", result.Degraded)
	}
	s.notify(snap)
	return result, err
}

// State returns the state of the latest submission.
func (s *Searcher) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Searcher) notify(state SearchState) {
	if s.onChange != nil {
		s.onChange(state)
	}
}
