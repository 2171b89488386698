package catalog

import (
	"sort"

	"golang.org/x/text/cases"
)

// MergeOutput holds the merged entries and dedup statistics.
type MergeOutput struct {
	Entries     []Entry
	DupsRemoved int
}

// Merge concatenates provider results in priority order (lower = first) and
// removes duplicate titles. Failed providers contribute nothing.
func Merge(results []ProviderResult) MergeOutput {
	ordered := make([]ProviderResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	var all []Entry
	for _, r := range ordered {
		if r.Err != nil {
			continue
		}
		all = append(all, r.Entries...)
	}

	deduped := Dedupe(all)
	return MergeOutput{
		Entries:     deduped,
		DupsRemoved: len(all) - len(deduped),
	}
}

// Dedupe keeps the first entry for each title, comparing full titles
// case-insensitively. Titles differing by subtitle, edition or punctuation
// stay distinct.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	deduped := make([]Entry, 0, len(entries))

	for _, e := range entries {
		key := TitleKey(e.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, e)
	}
	return deduped
}

// TitleKey returns the case-folded title used for duplicate detection.
func TitleKey(title string) string {
	return cases.Fold().String(title)
}
