package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func titles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestRank_ExactTitleFirst(t *testing.T) {
	entries := []Entry{
		{Title: "Dune Messiah", Author: "Frank Herbert"},
		{Title: "Children of Dune", Author: "Frank Herbert"},
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "The Road to Dune", Author: "Brian Herbert"},
	}

	ranked := NewRanker().Rank("dune", entries, DefaultSuggestionLimit)
	require.NotEmpty(t, ranked)
	require.Equal(t, "Dune", ranked[0].Title)
	require.Len(t, ranked, 4)
}

func TestRank_ToleratesMisspellingsAndPartialWords(t *testing.T) {
	r := NewRanker()
	entries := []Entry{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Harry Potter and the Goblet of Fire", Author: "J.K. Rowling"},
	}

	require.Equal(t, []string{"Dune"}, titles(r.Rank("dnue", entries, 0)))
	require.Equal(t, []string{"Harry Potter and the Goblet of Fire"}, titles(r.Rank("harry pot", entries, 0)))
	require.Equal(t, []string{"Harry Potter and the Goblet of Fire"}, titles(r.Rank("hary poter", entries, 0)))
}

func TestRank_ExcludesBelowThreshold(t *testing.T) {
	entries := []Entry{
		{Title: "Emma", Author: "Jane Austen"},
		{Title: "Dune", Author: "Frank Herbert"},
	}
	ranked := NewRanker().Rank("dune", entries, 0)
	require.Equal(t, []string{"Dune"}, titles(ranked))
}

func TestRank_TitleHitOutranksAuthorOnlyHit(t *testing.T) {
	entries := []Entry{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Herbert West: Reanimator", Author: "H. P. Lovecraft"},
	}
	ranked := NewRanker().RankScored("herbert", entries, 0)
	require.Len(t, ranked, 2)
	require.Equal(t, "Herbert West: Reanimator", ranked[0].Entry.Title)
	require.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRank_MatchesAcrossTitleAndAuthor(t *testing.T) {
	entries := []Entry{{Title: "Dune", Author: "Frank Herbert"}}
	ranked := NewRanker().RankScored("dune herbert", entries, 0)
	require.Len(t, ranked, 1)
	require.Greater(t, ranked[0].Score, 0.65)
}

func TestRank_CapsToLimit(t *testing.T) {
	var entries []Entry
	for i := 0; i < 25; i++ {
		entries = append(entries, Entry{Title: fmt.Sprintf("Dune Chronicles %d", i)})
	}
	ranked := NewRanker().Rank("dune", entries, DefaultSuggestionLimit)
	require.Len(t, ranked, DefaultSuggestionLimit)
	// equal scores keep merged order
	require.Equal(t, "Dune Chronicles 0", ranked[0].Title)
}

func TestRank_IgnoresAccentsAndCase(t *testing.T) {
	entries := []Entry{{Title: "Les Misérables", Author: "Victor Hugo"}}
	ranked := NewRanker().RankScored("les miserables", entries, 0)
	require.Len(t, ranked, 1)
	require.Equal(t, 1.0, ranked[0].Score)
}

func TestRank_EmptyQuery(t *testing.T) {
	require.Empty(t, NewRanker().Rank("   ", []Entry{{Title: "Dune"}}, 0))
}

func TestOSADistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"dune", "dune", 0},
		{"dnue", "dune", 1},
		{"poter", "potter", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, osaDistance([]rune(tt.a), []rune(tt.b)), "%s/%s", tt.a, tt.b)
	}
}
