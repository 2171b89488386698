package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/stretchr/testify/require"
)

func TestAggregator_GatherRunsConcurrently(t *testing.T) {
	// each provider waits for the other to start, so a sequential
	// implementation would deadlock
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	a := &fakeProvider{name: "OpenLibrary", priority: 1, respond: func(context.Context, catalog.Query) ([]catalog.Entry, error) {
		close(aStarted)
		<-bStarted
		return []catalog.Entry{{Title: "Dune"}}, nil
	}}
	b := &fakeProvider{name: "GoogleBooks", priority: 2, respond: func(context.Context, catalog.Query) ([]catalog.Entry, error) {
		close(bStarted)
		<-aStarted
		return nil, fmt.Errorf("boom")
	}}

	results := NewAggregator(Source{Provider: a, Limit: 5}, Source{Provider: b, Limit: 5}).
		Gather(context.Background(), catalog.Query{Text: "dune"})

	require.Len(t, results, 2)
	require.Equal(t, "OpenLibrary", results[0].Source)
	require.Equal(t, 1, results[0].Priority)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Entries, 1)

	require.Equal(t, "GoogleBooks", results[1].Source)
	require.EqualError(t, results[1].Err, "boom")
	require.Empty(t, results[1].Entries)

	require.Equal(t, []string{"GoogleBooks: boom"}, failures(results))
}

func TestAggregator_PassesLimitAndQuery(t *testing.T) {
	var gotLimit int
	var gotQuery catalog.Query
	p := &limitRecorder{fakeProvider: fakeProvider{name: "OpenLibrary", priority: 1}, limit: &gotLimit, query: &gotQuery}

	NewAggregator(Source{Provider: p, Limit: 7}).
		Gather(context.Background(), catalog.Query{Text: "tolkien", Field: catalog.FieldAuthor})

	require.Equal(t, 7, gotLimit)
	require.Equal(t, catalog.Query{Text: "tolkien", Field: catalog.FieldAuthor}, gotQuery)
}

type limitRecorder struct {
	fakeProvider
	limit *int
	query *catalog.Query
}

func (p *limitRecorder) Search(ctx context.Context, query catalog.Query, limit int) ([]catalog.Entry, error) {
	*p.limit = limit
	*p.query = query
	return p.fakeProvider.Search(ctx, query, limit)
}
