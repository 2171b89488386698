package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/bookcase/internal/catalog"
)

// DefaultDebounce is the quiet period after the last keystroke before
// providers are queried.
const DefaultDebounce = 300 * time.Millisecond

// State is the suggestion pipeline state.
type State int

const (
	StateIdle State = iota
	StatePending
	StateResolved
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Snapshot is an observable view of the suggestion pipeline.
type Snapshot struct {
	State       State
	Query       string
	Suggestions []catalog.Suggestion
	// Seq identifies the keystroke cycle that produced this snapshot.
	Seq uint64
	// Loading is true while providers are being queried for Seq.
	Loading bool
}

// SuggesterOptions configures a Suggester.
type SuggesterOptions struct {
	Delay    time.Duration
	Limit    int
	Ranker   *catalog.Ranker
	Clock    Clock
	OnChange func(Snapshot)
}

// Suggester turns keystrokes into debounced, ranked suggestion lists.
// Only the most recently typed query can ever publish results.
type Suggester struct {
	agg      *Aggregator
	ranker   *catalog.Ranker
	delay    time.Duration
	limit    int
	clock    Clock
	onChange func(Snapshot)

	mu          sync.Mutex
	state       State
	query       string
	suggestions []catalog.Suggestion
	seq         uint64
	loading     bool
	timer       Timer
	cancel      context.CancelFunc
	inflight    sync.WaitGroup
}

// NewSuggester creates a Suggester querying the aggregator's providers.
func NewSuggester(agg *Aggregator, opts SuggesterOptions) *Suggester {
	s := &Suggester{
		agg:      agg,
		ranker:   opts.Ranker,
		delay:    opts.Delay,
		limit:    opts.Limit,
		clock:    opts.Clock,
		onChange: opts.OnChange,
	}
	if s.ranker == nil {
		s.ranker = catalog.NewRanker()
	}
	if s.delay <= 0 {
		s.delay = DefaultDebounce
	}
	if s.limit <= 0 {
		s.limit = catalog.DefaultSuggestionLimit
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	return s
}

// Type handles one keystroke. An empty (after trimming) query goes
// straight to Idle; anything else restarts the debounce timer.
func (s *Suggester) Type(query string) {
	s.mu.Lock()
	if s.state == StateCanceled {
		s.mu.Unlock()
		return
	}
	s.abortLocked()
	s.seq++
	s.query = query

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		s.state = StateIdle
		s.suggestions = nil
	} else {
		s.state = StatePending
		seq := s.seq
		s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(seq, trimmed) })
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Dismiss clears the suggestion list and returns to Idle. Any pending
// timer or in-flight cycle is abandoned.
func (s *Suggester) Dismiss() {
	s.mu.Lock()
	if s.state == StateCanceled {
		s.mu.Unlock()
		return
	}
	s.abortLocked()
	s.seq++
	s.state = StateIdle
	s.suggestions = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Select returns the suggestion at index and dismisses the list.
func (s *Suggester) Select(index int) (catalog.Suggestion, bool) {
	s.mu.Lock()
	if index < 0 || index >= len(s.suggestions) {
		s.mu.Unlock()
		return catalog.Suggestion{}, false
	}
	picked := s.suggestions[index]
	s.mu.Unlock()

	s.Dismiss()
	return picked, true
}

// Close stops the pipeline for good and waits for in-flight provider
// queries to return. The Suggester ignores all calls afterwards.
func (s *Suggester) Close() {
	s.mu.Lock()
	if s.state == StateCanceled {
		s.mu.Unlock()
		return
	}
	s.abortLocked()
	s.seq++
	s.state = StateCanceled
	s.suggestions = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.inflight.Wait()
	s.notify(snap)
}

// Snapshot returns the current pipeline state.
func (s *Suggester) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// fire runs one suggestion cycle for the query typed at seq.
func (s *Suggester) fire(seq uint64, query string) {
	s.mu.Lock()
	if s.state == StateCanceled || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.timer = nil
	s.cancel = cancel
	s.loading = true
	s.inflight.Add(1)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	defer s.inflight.Done()
	defer cancel()
	s.notify(snap)

	results := s.agg.Gather(ctx, catalog.Query{Text: query, Field: catalog.FieldAny})
	merged := catalog.Merge(results)
	ranked := s.ranker.Rank(query, merged.Entries, s.limit)

	s.mu.Lock()
	if s.state == StateCanceled || seq != s.seq {
		s.mu.Unlock()
		slog.Debug("Discarding stale suggestions", "query", query, "seq", seq)
		return
	}
	s.state = StateResolved
	s.loading = false
	s.cancel = nil
	s.suggestions = catalog.Suggestions(ranked)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	slog.Debug("Suggestions resolved", "query", query, "seq", seq,
		"candidates", len(merged.Entries), "duplicates", merged.DupsRemoved, "suggestions", len(ranked))
	s.notify(snap)
}

// abortLocked stops the live timer and cancels the in-flight cycle.
func (s *Suggester) abortLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
}

func (s *Suggester) snapshotLocked() Snapshot {
	var suggestions []catalog.Suggestion
	if len(s.suggestions) > 0 {
		suggestions = make([]catalog.Suggestion, len(s.suggestions))
		copy(suggestions, s.suggestions)
	}
	return Snapshot{
		State:       s.state,
		Query:       s.query,
		Suggestions: suggestions,
		Seq:         s.seq,
		Loading:     s.loading,
	}
}

func (s *Suggester) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
