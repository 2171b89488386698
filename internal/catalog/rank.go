package catalog

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultThreshold is the largest distance (1 - score) a candidate may
	// have and still be suggested.
	DefaultThreshold = 0.35

	// DefaultSuggestionLimit caps the ranked suggestion list.
	DefaultSuggestionLimit = 10

	// DefaultAuthorWeight scales author similarity below title similarity.
	DefaultAuthorWeight = 0.8

	partialWordScore = 0.9
	tokenMatchScale  = 0.95
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Ranker orders catalog entries by approximate textual relevance to a query.
type Ranker struct {
	Threshold    float64
	AuthorWeight float64
}

// NewRanker creates a Ranker with the default threshold and author weight.
func NewRanker() *Ranker {
	return &Ranker{
		Threshold:    DefaultThreshold,
		AuthorWeight: DefaultAuthorWeight,
	}
}

// Scored pairs an entry with its relevance score in [0, 1].
type Scored struct {
	Entry Entry
	Score float64
}

// Rank returns the entries whose score passes the threshold, best first,
// capped to limit when limit > 0. Equal scores are ordered by subsequence
// match quality on the title, then by input order.
func (r *Ranker) Rank(query string, entries []Entry, limit int) []Entry {
	scored := r.RankScored(query, entries, limit)
	out := make([]Entry, len(scored))
	for i, s := range scored {
		out[i] = s.Entry
	}
	return out
}

// RankScored is Rank but keeps the scores.
func (r *Ranker) RankScored(query string, entries []Entry, limit int) []Scored {
	q := normalizeText(query)
	if q == "" || len(entries) == 0 {
		return []Scored{}
	}

	tiebreak := fuzzyScores(q, entries)

	type candidate struct {
		Scored
		index   int
		matched bool
		fuzzy   int
	}
	var candidates []candidate
	for i, e := range entries {
		score := r.Score(query, e)
		if 1-score > r.Threshold {
			continue
		}
		fuzzyScore, matched := tiebreak[i]
		candidates = append(candidates, candidate{
			Scored:  Scored{Entry: e, Score: score},
			index:   i,
			matched: matched,
			fuzzy:   fuzzyScore,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.matched != b.matched {
			return a.matched
		}
		if a.fuzzy != b.fuzzy {
			return a.fuzzy > b.fuzzy
		}
		return a.index < b.index
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = c.Scored
	}
	return out
}

// Score computes the relevance of e to query. Only an exact title match
// scores 1; an author hit is weighted below a title hit of equal quality.
func (r *Ranker) Score(query string, e Entry) float64 {
	q := normalizeText(query)
	title := normalizeText(e.Title)
	author := normalizeText(e.Author)
	if q == "" {
		return 0
	}
	if q == title {
		return 1
	}

	best := similarity(q, title)
	if s := r.AuthorWeight * similarity(q, author); s > best {
		best = s
	}
	if s := tokenMatchScale * r.jointTokenScore(q, title, author); s > best {
		best = s
	}
	return best
}

// jointTokenScore averages, over the query words, the best match of each
// word against the title words or the (down-weighted) author words.
func (r *Ranker) jointTokenScore(q, title, author string) float64 {
	qTokens := strings.Fields(q)
	titleTokens := strings.Fields(title)
	authorTokens := strings.Fields(author)
	if len(qTokens) == 0 {
		return 0
	}

	var total float64
	for _, qt := range qTokens {
		best := bestTokenScore(qt, titleTokens)
		if s := r.AuthorWeight * bestTokenScore(qt, authorTokens); s > best {
			best = s
		}
		total += best
	}
	return total / float64(len(qTokens))
}

func bestTokenScore(qt string, tokens []string) float64 {
	var best float64
	for _, ft := range tokens {
		if s := tokenSimilarity(qt, ft); s > best {
			best = s
			if best == 1 {
				break
			}
		}
	}
	return best
}

// tokenSimilarity compares one query word against one field word. A query
// word that is a prefix of the field word, exact or misspelled, counts as a
// partial word.
func tokenSimilarity(qt, ft string) float64 {
	if qt == ft {
		return 1
	}
	if strings.HasPrefix(ft, qt) {
		return partialWordScore
	}

	best := similarity(qt, ft)
	q := []rune(qt)
	f := []rune(ft)
	if len(f) > len(q) {
		if s := partialWordScore * ratio(q, f[:len(q)]); s > best {
			best = s
		}
	}
	return best
}

// similarity is the normalized optimal-string-alignment similarity of a and b.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return ratio([]rune(a), []rune(b))
}

func ratio(a, b []rune) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(osaDistance(a, b))/float64(longest)
}

// osaDistance is the Damerau-Levenshtein distance restricted to adjacent
// transpositions that are not edited again (optimal string alignment).
func osaDistance(a, b []rune) int {
	rows := len(a) + 1
	cols := len(b) + 1
	d := make([][]int, rows)
	for i := range d {
		d[i] = make([]int, cols)
		d[i][0] = i
	}
	for j := 0; j < cols; j++ {
		d[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[rows-1][cols-1]
}

// normalizeText lowercases, strips accents and collapses punctuation and
// whitespace into single spaces.
func normalizeText(s string) string {
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// titleSource adapts entry titles to fuzzy.Source.
type titleSource []Entry

func (s titleSource) String(i int) string { return normalizeText(s[i].Title) }
func (s titleSource) Len() int            { return len(s) }

// fuzzyScores returns the subsequence match score of each entry title,
// keyed by entry index. Entries whose title doesn't contain the query as a
// subsequence are absent.
func fuzzyScores(q string, entries []Entry) map[int]int {
	scores := make(map[int]int, len(entries))
	for _, m := range fuzzy.FindFrom(q, titleSource(entries)) {
		scores[m.Index] = m.Score
	}
	return scores
}
