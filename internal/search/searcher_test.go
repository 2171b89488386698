package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/errors"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(providers ...*fakeProvider) *Searcher {
	sources := make([]Source, len(providers))
	for i, p := range providers {
		sources[i] = Source{Provider: p, Limit: 20}
	}
	return NewSearcher(NewAggregator(sources...), nil, nil)
}

func TestSearcher_EmptyQueryIsNoop(t *testing.T) {
	p := staticProvider("OpenLibrary", 1, catalog.Entry{Title: "Dune"})
	s := newTestSearcher(p)

	result, err := s.Submit(context.Background(), catalog.Query{Text: "  "})
	require.NoError(t, err)
	require.Empty(t, result.Entries)
	require.Empty(t, p.Calls())
	require.Equal(t, SearchState{}, s.State())
}

func TestSearcher_MergesWithoutRanking(t *testing.T) {
	openLibrary := staticProvider("OpenLibrary", 1,
		catalog.Entry{Title: "Zebra Stories", Author: "A. Writer"},
		catalog.Entry{Title: "Dune", Author: "Frank Herbert"},
	)
	google := staticProvider("GoogleBooks", 2,
		catalog.Entry{Title: "dune", Author: "F. Herbert"},
		catalog.Entry{Title: "Dune: The Graphic Novel", Author: "Brian Herbert"},
	)
	// google listed first to check priority ordering
	s := newTestSearcher(google, openLibrary)

	result, err := s.Submit(context.Background(), catalog.Query{Text: "dune"})
	require.NoError(t, err)
	require.False(t, result.Degraded)
	require.Equal(t, 1, result.DupsRemoved)
	require.Equal(t, catalog.FieldAny, result.Query.Field)

	titles := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		titles[i] = e.Title
	}
	require.Equal(t, []string{"Zebra Stories", "Dune", "Dune: The Graphic Novel"}, titles)
	require.Equal(t, "Frank Herbert", result.Entries[1].Author)

	state := s.State()
	require.False(t, state.Searching)
	require.Equal(t, result, state.Result)
}

func TestSearcher_DegradedWhenOneProviderFails(t *testing.T) {
	openLibrary := staticProvider("OpenLibrary", 1, catalog.Entry{Title: "Dune", Author: "Frank Herbert"})
	google := failingProvider("GoogleBooks", 2, errors.NewRateLimitError("google Books API rate limit exceeded"))
	s := newTestSearcher(openLibrary, google)

	result, err := s.Submit(context.Background(), catalog.Query{Text: "dune", Field: catalog.FieldTitle})
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Len(t, result.Entries, 1)
	require.Len(t, result.Failures, 1)
	require.Contains(t, result.Failures[0], "GoogleBooks")
	require.Equal(t, []string{"dune"}, google.Calls())
}

func TestSearcher_FailsWhenAllProvidersFail(t *testing.T) {
	s := newTestSearcher(
		failingProvider("OpenLibrary", 1, fmt.Errorf("status 502")),
		failingProvider("GoogleBooks", 2, fmt.Errorf("status 503")),
	)

	result, err := s.Submit(context.Background(), catalog.Query{Text: "dune"})
	require.Error(t, err)
	require.True(t, errors.IsSearchFailedError(err))

	var sfErr *errors.SearchFailedError
	require.ErrorAs(t, err, &sfErr)
	require.True(t, sfErr.Retryable())
	require.Len(t, sfErr.Failures, 2)

	require.Empty(t, result.Entries)
	require.False(t, result.Degraded)

	state := s.State()
	require.False(t, state.Searching)
	require.ErrorIs(t, state.Err, err)
}

func TestSearcher_DismissesSuggestions(t *testing.T) {
	p := staticProvider("OpenLibrary", 1, catalog.Entry{Title: "Dune", Author: "Frank Herbert"})
	clock := &fakeClock{}
	agg := NewAggregator(Source{Provider: p, Limit: 5})
	suggester := NewSuggester(agg, SuggesterOptions{Clock: clock})
	t.Cleanup(func() {
		suggester.Close()
		clock.Wait()
	})

	suggester.Type("dune")
	clock.Advance(DefaultDebounce)
	clock.Wait()
	require.Equal(t, StateResolved, suggester.Snapshot().State)

	var states []SearchState
	s := NewSearcher(agg, suggester, func(st SearchState) { states = append(states, st) })
	_, err := s.Submit(context.Background(), catalog.Query{Text: "dune"})
	require.NoError(t, err)

	snap := suggester.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Empty(t, snap.Suggestions)

	require.Len(t, states, 2)
	require.True(t, states[0].Searching)
	require.False(t, states[1].Searching)
	require.Len(t, states[1].Result.Entries, 1)
}

func TestSearcher_StaleSubmissionDoesNotOverwrite(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := &fakeProvider{
		name:     "OpenLibrary",
		priority: 1,
		respond: func(_ context.Context, q catalog.Query) ([]catalog.Entry, error) {
			if q.Text == "dun" {
				close(started)
				<-release
				return []catalog.Entry{{Title: "Dunkirk"}}, nil
			}
			return []catalog.Entry{{Title: "Dune"}}, nil
		},
	}
	s := newTestSearcher(p)

	done := make(chan Result, 1)
	go func() {
		r, _ := s.Submit(context.Background(), catalog.Query{Text: "dun"})
		done <- r
	}()
	<-started

	latest, err := s.Submit(context.Background(), catalog.Query{Text: "dune"})
	require.NoError(t, err)
	require.Equal(t, "Dune", latest.Entries[0].Title)

	close(release)
	var stale Result
	select {
	case stale = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stale submission never returned")
	}
	require.Equal(t, "Dunkirk", stale.Entries[0].Title)

	state := s.State()
	require.Equal(t, "dune", state.Result.Query.Text)
	require.Equal(t, "Dune", state.Result.Entries[0].Title)
}
