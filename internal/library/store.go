package library

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/errors"
)

// Op names a library mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Notice reports the outcome of a mutation once the backend has answered.
// Err is nil on success; on failure the local change has been rolled back.
type Notice struct {
	Op     Op
	BookID string
	Title  string
	Err    error
}

// Pending tracks one mutation whose backend call may still be running.
type Pending struct {
	done chan struct{}
	book Book
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolvedPending(book Book) *Pending {
	p := newPending()
	p.book = book
	close(p.done)
	return p
}

// Wait blocks until the backend call finished and returns its error,
// a *errors.MutationError on failure.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// Done is closed once the backend call finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Book returns the record the mutation applies to. For Add this is the
// backend's authoritative record and is only set after Wait returns nil.
func (p *Pending) Book() Book {
	<-p.done
	return p.book
}

// pendingMutation captures what is needed to undo one mutation.
type pendingMutation struct {
	op     Op
	bookID string
	field  Field
	prior  string
	value  string
	record Book
	index  int
	gen    uint64
	hold   titleHold
}

// fieldKey identifies one field of one book for generation tracking.
type fieldKey struct {
	bookID string
	field  Field
}

// titleHold keeps a title reserved for bookID while a rename or delete
// that may restore it is pending.
type titleHold struct {
	key    string
	bookID string
}

// StoreOptions configures a Store.
type StoreOptions struct {
	UserID   string
	OnNotice func(Notice)
}

// Store is the local view of a user's library. Mutations are visible
// immediately; each one is rolled back individually if its backend call
// fails.
type Store struct {
	backend  Backend
	userID   string
	onNotice func(Notice)

	mu       sync.Mutex
	books    []Book
	inflight map[string]string // title key -> title of adds awaiting Create
	holds    map[titleHold]int
	gens     map[fieldKey]uint64 // latest update per field, absent once it resolved
	seq      uint64
	wg       sync.WaitGroup
}

// NewStore creates an empty Store backed by backend.
func NewStore(backend Backend, opts StoreOptions) *Store {
	return &Store{
		backend:  backend,
		userID:   opts.UserID,
		onNotice: opts.OnNotice,
		inflight: make(map[string]string),
		holds:    make(map[titleHold]int),
		gens:     make(map[fieldKey]uint64),
	}
}

// UserID returns the owner of the library.
func (s *Store) UserID() string {
	return s.userID
}

// Load replaces the local list with the backend's.
func (s *Store) Load(ctx context.Context) error {
	books, err := s.backend.List(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	s.mu.Lock()
	s.books = slices.Clone(books)
	s.mu.Unlock()

	slog.Debug("Library loaded", "user", s.userID, "books", len(books))
	return nil
}

// Books returns a copy of the local list, newest first.
func (s *Store) Books() []Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.books)
}

// Get returns the book with id.
func (s *Store) Get(id string) (Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.books[i], true
	}
	return Book{}, false
}

// HasTitle reports whether a book with title (case-insensitive) is in the
// library, being added, or may come back from a pending rename or delete.
func (s *Store) HasTitle(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasTitleLocked(title, "")
}

// PendingTitles returns the titles of adds still waiting for the backend.
func (s *Store) PendingTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.inflight))
	for _, t := range s.inflight {
		titles = append(titles, t)
	}
	slices.Sort(titles)
	return titles
}

// Filter returns the books matching status (empty = any) whose title or
// notes contain text (case-insensitive, empty = any).
func (s *Store) Filter(status Status, text string) []Book {
	needle := strings.ToLower(strings.TrimSpace(text))

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Book
	for _, b := range s.books {
		if status != "" && b.Status != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Notes), needle) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Add creates a book. A title already in the library (or being added)
// is rejected with *errors.DuplicateBookError before anything changes.
// The book appears in Books only once the backend has assigned its ID.
func (s *Store) Add(ctx context.Context, nb NewBook) (*Pending, error) {
	title := strings.TrimSpace(nb.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	status := nb.Status
	if status == "" {
		status = StatusWant
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.hasTitleLocked(title, "") {
		s.mu.Unlock()
		return nil, errors.NewDuplicateBookError(title)
	}
	key := catalog.TitleKey(title)
	s.inflight[key] = title
	s.mu.Unlock()

	book := Book{
		UserID:   s.userID,
		Title:    title,
		Author:   strings.TrimSpace(nb.Author),
		CoverURL: strings.TrimSpace(nb.CoverURL),
		Status:   status,
		Notes:    nb.Notes,
	}

	p := newPending()
	s.run(p, func() {
		created, err := s.backend.Create(context.WithoutCancel(ctx), book)

		s.mu.Lock()
		delete(s.inflight, key)
		if err == nil {
			s.books = slices.Insert(s.books, 0, created)
		}
		s.mu.Unlock()

		if err != nil {
			p.err = errors.NewMutationError(string(OpAdd), "", err)
			slog.Warn("Adding book failed", "title", title, "error", err)
			s.notify(Notice{Op: OpAdd, Title: title, Err: p.err})
			return
		}
		p.book = created
		slog.Debug("Book added", "id", created.ID, "title", created.Title)
		s.notify(Notice{Op: OpAdd, BookID: created.ID, Title: created.Title})
	})
	return p, nil
}

// Update sets one field of the book with id. The local record changes
// immediately; if the backend rejects the write only this field is
// restored, and only when no later Update of the same field was made.
func (s *Store) Update(ctx context.Context, id string, field Field, value string) (*Pending, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}
	switch field {
	case FieldStatus:
		status, err := ParseStatus(value)
		if err != nil {
			return nil, err
		}
		value = string(status)
	case FieldTitle:
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("title is required")
		}
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("book %s not in library", id)
	}
	if field == FieldTitle && s.hasTitleLocked(value, id) {
		s.mu.Unlock()
		return nil, errors.NewDuplicateBookError(value)
	}
	m := pendingMutation{
		op:     OpUpdate,
		bookID: id,
		field:  field,
		prior:  s.books[i].Get(field),
		value:  value,
	}
	if m.prior == value {
		book := s.books[i]
		s.mu.Unlock()
		return resolvedPending(book), nil
	}
	s.seq++
	m.gen = s.seq
	s.gens[fieldKey{id, field}] = m.gen
	if field == FieldTitle {
		m.hold = s.holdLocked(m.prior, id)
	}
	s.books[i].Set(field, value)
	book := s.books[i]
	s.mu.Unlock()

	p := newPending()
	p.book = book
	s.run(p, func() {
		err := s.backend.Update(context.WithoutCancel(ctx), id, Fields{field: value})
		s.resolve(m, err != nil)
		if err != nil {
			p.err = errors.NewMutationError(string(OpUpdate), id, err)
			slog.Warn("Updating book failed, change rolled back", "id", id, "field", field, "error", err)
			s.notify(Notice{Op: OpUpdate, BookID: id, Title: book.Title, Err: p.err})
			return
		}
		s.notify(Notice{Op: OpUpdate, BookID: id, Title: book.Title})
	})
	return p, nil
}

// Delete removes the book with id immediately. On backend failure the
// record is reinserted at its old position (clamped to the list length).
// Deleting an id that is not in the library is a no-op.
func (s *Store) Delete(ctx context.Context, id string) *Pending {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		slog.Debug("Delete of unknown book ignored", "id", id)
		return resolvedPending(Book{})
	}
	m := pendingMutation{
		op:     OpDelete,
		bookID: id,
		record: s.books[i],
		index:  i,
	}
	m.hold = s.holdLocked(m.record.Title, id)
	s.books = slices.Delete(s.books, i, i+1)
	s.mu.Unlock()

	p := newPending()
	p.book = m.record
	s.run(p, func() {
		err := s.backend.Delete(context.WithoutCancel(ctx), id)
		s.resolve(m, err != nil)
		if err != nil {
			p.err = errors.NewMutationError(string(OpDelete), id, err)
			slog.Warn("Deleting book failed, record restored", "id", id, "error", err)
			s.notify(Notice{Op: OpDelete, BookID: id, Title: m.record.Title, Err: p.err})
			return
		}
		s.notify(Notice{Op: OpDelete, BookID: id, Title: m.record.Title})
	})
	return p
}

// Wait blocks until every started backend call has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// run executes the backend call for p in its own goroutine.
func (s *Store) run(p *Pending, call func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(p.done)
		call()
	}()
}

// resolve releases what m reserved and, when failed, undoes m without
// touching later changes.
func (s *Store) resolve(m pendingMutation, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseLocked(m.hold)

	switch m.op {
	case OpUpdate:
		k := fieldKey{m.bookID, m.field}
		latest := s.gens[k] == m.gen
		if latest {
			delete(s.gens, k)
		}
		if !failed {
			return
		}
		if !latest {
			slog.Debug("Skipping rollback, field changed since", "id", m.bookID, "field", m.field)
			return
		}
		if i := s.indexLocked(m.bookID); i >= 0 {
			s.books[i].Set(m.field, m.prior)
		}
	case OpDelete:
		if !failed {
			return
		}
		if s.indexLocked(m.bookID) >= 0 {
			return
		}
		idx := min(m.index, len(s.books))
		s.books = slices.Insert(s.books, idx, m.record)
	}
}

func (s *Store) holdLocked(title, bookID string) titleHold {
	h := titleHold{key: catalog.TitleKey(strings.TrimSpace(title)), bookID: bookID}
	s.holds[h]++
	return h
}

func (s *Store) releaseLocked(h titleHold) {
	if h.key == "" {
		return
	}
	if s.holds[h]--; s.holds[h] <= 0 {
		delete(s.holds, h)
	}
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.books, func(b Book) bool { return b.ID == id })
}

// hasTitleLocked checks local, in-flight and held titles, ignoring the
// book with exceptID.
func (s *Store) hasTitleLocked(title, exceptID string) bool {
	key := catalog.TitleKey(strings.TrimSpace(title))
	if _, ok := s.inflight[key]; ok {
		return true
	}
	for h := range s.holds {
		if h.key == key && h.bookID != exceptID {
			return true
		}
	}
	for _, b := range s.books {
		if b.ID != exceptID && catalog.TitleKey(b.Title) == key {
			return true
		}
	}
	return false
}

func (s *Store) notify(n Notice) {
	if s.onNotice != nil {
		s.onNotice(n)
	}
}
