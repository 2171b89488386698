package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge_CaseInsensitiveDuplicateKeepsFirstProvider(t *testing.T) {
	results := []ProviderResult{
		{
			Source:   "GoogleBooks",
			Priority: 2,
			Entries:  []Entry{{Title: "dune", Source: "GoogleBooks", Author: "F. Herbert"}},
		},
		{
			Source:   "OpenLibrary",
			Priority: 1,
			Entries:  []Entry{{Title: "Dune", Source: "OpenLibrary", Author: "Frank Herbert"}},
		},
	}

	out := Merge(results)
	require.Len(t, out.Entries, 1)
	require.Equal(t, "Dune", out.Entries[0].Title)
	require.Equal(t, "OpenLibrary", out.Entries[0].Source)
	require.Equal(t, "Frank Herbert", out.Entries[0].Author)
	require.Equal(t, 1, out.DupsRemoved)
}

func TestMerge_SkipsFailedProviders(t *testing.T) {
	out := Merge([]ProviderResult{
		{Source: "OpenLibrary", Priority: 1, Err: errors.New("timeout")},
		{Source: "GoogleBooks", Priority: 2, Entries: []Entry{{Title: "Emma"}}},
	})
	require.Equal(t, []Entry{{Title: "Emma"}}, out.Entries)
	require.Zero(t, out.DupsRemoved)
}

func TestDedupe_KeepsSubtitleAndPunctuationVariants(t *testing.T) {
	entries := []Entry{
		{Title: "Dune"},
		{Title: "Dune: Deluxe Edition"},
		{Title: "Dune."},
		{Title: "DUNE"},
	}
	deduped := Dedupe(entries)
	require.Equal(t, []Entry{{Title: "Dune"}, {Title: "Dune: Deluxe Edition"}, {Title: "Dune."}}, deduped)
}

func TestDedupe_NoTwoTitlesDifferOnlyByCase(t *testing.T) {
	entries := []Entry{
		{Title: "The Hobbit"}, {Title: "the hobbit"}, {Title: "THE HOBBIT"},
		{Title: "Emma"}, {Title: "emma"},
	}

	deduped := Dedupe(entries)
	seen := map[string]bool{}
	for _, e := range deduped {
		key := TitleKey(e.Title)
		require.False(t, seen[key], "duplicate title key %q", key)
		seen[key] = true
	}
	require.Len(t, deduped, 2)
}
