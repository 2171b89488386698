package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/bookcase/internal/library"
	"github.com/lepinkainen/bookcase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const goodreadsExport = `Book Id,Title,Author,Author l-f,Additional Authors,ISBN,ISBN13,My Rating,Average Rating,Publisher,Binding,Number of Pages,Year Published,Original Publication Year,Date Read,Date Added,Bookshelves,Bookshelves with positions,Exclusive Shelf,My Review,Spoiler,Private Notes,Read Count,Owned Copies
234225,Dune,Frank Herbert,"Herbert, Frank",,"=""0441172717""","=""9780441172719""",5,4.27,Ace,Paperback,604,1990,1965,2023/01/04,2022/12/01,,,read,Loved it<br/>Spice!,,,1,0
77566,Hyperion,Dan Simmons,"Simmons, Dan",,"=""""","=""""",0,4.25,Bantam,Paperback,482,1990,1989,,2024/02/10,to-read,to-read (#3),to-read,,,the shrike,0,0
22328,Neuromancer,William Gibson,"Gibson, William",,"=""0441569595""","=""""",0,3.9,Ace,Paperback,271,2000,1984,,2024/03/01,,,currently-reading,,,,0,0
1,,Nobody,,,,,0,0,,,0,0,0,,,,,read,,,,0,0
`

func TestParseGoodreadsFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("goodreads_library_export.csv", goodreadsExport)

	books, err := ParseGoodreadsFile(env.Path("goodreads_library_export.csv"))
	require.NoError(t, err)
	require.Len(t, books, 3)

	assert.Equal(t, library.NewBook{
		Title:    "Dune",
		Author:   "Frank Herbert",
		CoverURL: "https://covers.openlibrary.org/b/isbn/9780441172719-M.jpg",
		Status:   library.StatusRead,
		Notes:    "Loved it\nSpice!",
	}, books[0])

	assert.Equal(t, library.StatusWant, books[1].Status)
	assert.Equal(t, "the shrike", books[1].Notes)
	assert.Empty(t, books[1].CoverURL)

	assert.Equal(t, library.StatusReading, books[2].Status)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/0441569595-M.jpg", books[2].CoverURL)
}

func TestParseGoodreadsFileRejectsOtherCSV(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("movies.csv", "Const,Your Rating,Title\ntt0087182,8,Dune\n")

	_, err := ParseGoodreadsFile(env.Path("movies.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Exclusive Shelf")
}

type memoryBackend struct {
	mu    sync.Mutex
	next  int
	books []library.Book
	fail  map[string]bool
}

func (b *memoryBackend) List(_ context.Context, userID string) ([]library.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []library.Book
	for _, book := range b.books {
		if book.UserID == userID {
			out = append(out, book)
		}
	}
	return out, nil
}

func (b *memoryBackend) Create(_ context.Context, book library.Book) (library.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[book.Title] {
		return library.Book{}, errors.New("insert failed")
	}
	b.next++
	book.ID = fmt.Sprintf("b%d", b.next)
	book.CreatedAt = time.Date(2024, 1, 1, 0, 0, b.next, 0, time.UTC)
	b.books = append(b.books, book)
	return book, nil
}

func (b *memoryBackend) Update(context.Context, string, library.Fields) error { return nil }
func (b *memoryBackend) Delete(context.Context, string) error                 { return nil }

func TestImport(t *testing.T) {
	backend := &memoryBackend{
		books: []library.Book{{ID: "b0", UserID: "alice", Title: "Hyperion", Status: library.StatusRead}},
		fail:  map[string]bool{"Neuromancer": true},
	}
	store := library.NewStore(backend, library.StoreOptions{UserID: "alice"})
	require.NoError(t, store.Load(context.Background()))

	summary := Import(context.Background(), store, []library.NewBook{
		{Title: "Dune", Status: library.StatusRead},
		{Title: "hyperion"},
		{Title: "DUNE"},
		{Title: "Neuromancer"},
		{Title: "Anathem", Status: "someday"},
	})

	assert.Equal(t, Summary{Added: 1, Duplicates: 2, Failed: 2}, summary)

	titles := make([]string, 0)
	for _, b := range store.Books() {
		titles = append(titles, b.Title)
	}
	assert.ElementsMatch(t, []string{"Dune", "Hyperion"}, titles)
}
