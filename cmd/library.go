package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lepinkainen/bookcase/internal/config"
	"github.com/lepinkainen/bookcase/internal/datastore"
	"github.com/lepinkainen/bookcase/internal/export"
	"github.com/lepinkainen/bookcase/internal/fileutil"
	"github.com/lepinkainen/bookcase/internal/importer"
	"github.com/lepinkainen/bookcase/internal/library"
)

var (
	newBackend = defaultBackend
	now        = time.Now
)

// LibraryCmd groups the library subcommands
type LibraryCmd struct {
	List   LibraryListCmd   `cmd:"" help:"List the books in your library"`
	Add    LibraryAddCmd    `cmd:"" help:"Add a book to your library"`
	Update LibraryUpdateCmd `cmd:"" help:"Change one field of a book"`
	Delete LibraryDeleteCmd `cmd:"" help:"Remove a book from your library"`
	Export LibraryExportCmd `cmd:"" help:"Export your library as YAML or JSON"`
	Import LibraryImportCmd `cmd:"" help:"Import books from a Goodreads library export"`
}

// LibraryListCmd represents the library list command
type LibraryListCmd struct {
	Status string `short:"s" help:"Only show books with this status: reading, want, read"`
	Filter string `short:"q" help:"Only show books whose title or notes contain this text"`
	JSON   bool   `help:"Print books as JSON"`
}

// LibraryAddCmd represents the library add command
type LibraryAddCmd struct {
	Title  string `arg:"" help:"Book title"`
	Author string `short:"a" help:"Book author"`
	Cover  string `help:"Cover image URL"`
	Status string `short:"s" help:"Reading status: reading, want, read" enum:"reading,want,read" default:"want"`
	Notes  string `help:"Free-form notes"`
}

// LibraryUpdateCmd represents the library update command
type LibraryUpdateCmd struct {
	ID    string `arg:"" help:"Book ID"`
	Field string `arg:"" help:"Field to change: status, notes, title, author, cover_url"`
	Value string `arg:"" help:"New value"`
}

// LibraryDeleteCmd represents the library delete command
type LibraryDeleteCmd struct {
	ID string `arg:"" help:"Book ID"`
}

// LibraryExportCmd represents the library export command
type LibraryExportCmd struct {
	Format    string `short:"f" help:"Export format: yaml, json" default:"yaml"`
	Output    string `short:"o" help:"Output file (defaults to <user>-library.<format>, - for stdout)"`
	Overwrite bool   `help:"Replace an existing output file"`
}

// LibraryImportCmd represents the library import command
type LibraryImportCmd struct {
	Input  string `arg:"" help:"Path to Goodreads library export CSV file" type:"existingfile"`
	DryRun bool   `help:"Show what would be imported without changing the library"`
}

func defaultBackend() (datastore.Store, error) {
	bc := config.Backend()
	return datastore.New(datastore.Options{
		Driver:  bc.Driver,
		DSN:     bc.DSN,
		URL:     bc.URL,
		Token:   bc.Token,
		Timeout: bc.Timeout,
	})
}

// openLibrary connects the configured backend and loads the current
// user's library. The returned func waits for outstanding mutations and
// closes the backend.
func openLibrary(ctx context.Context) (*library.Store, func(), error) {
	backend, err := newBackend()
	if err != nil {
		return nil, nil, err
	}
	if err := backend.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to library backend: %w", err)
	}

	store := library.NewStore(backend, library.StoreOptions{
		UserID:   config.UserID,
		OnNotice: logNotice,
	})
	closeStore := func() {
		store.Wait()
		if err := backend.Close(); err != nil {
			slog.Warn("Failed to close library backend", "error", err)
		}
	}

	if err := store.Load(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return store, closeStore, nil
}

func logNotice(n library.Notice) {
	if n.Err != nil {
		slog.Warn("Library change rolled back", "op", n.Op, "book", n.BookID, "title", n.Title, "error", n.Err)
		return
	}
	slog.Debug("Library change saved", "op", n.Op, "book", n.BookID, "title", n.Title)
}

func (l *LibraryListCmd) Run(ctx context.Context) error {
	var status library.Status
	if l.Status != "" {
		parsed, err := library.ParseStatus(l.Status)
		if err != nil {
			return err
		}
		status = parsed
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	books := store.Filter(status, l.Filter)
	if l.JSON {
		if books == nil {
			books = []library.Book{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}
	if len(books) == 0 {
		printf("No books in library for %s\n", store.UserID())
		return nil
	}
	return writeBookTable(stdout, books)
}

func writeBookTable(w io.Writer, books []library.Book) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tAUTHOR\tNOTES")
	for _, b := range books {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Status, b.Title, b.Author, oneLine(b.Notes, 40))
	}
	return tw.Flush()
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}

func (a *LibraryAddCmd) Run(ctx context.Context) error {
	status, err := library.ParseStatus(a.Status)
	if err != nil {
		return err
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pending, err := store.Add(ctx, library.NewBook{
		Title:    a.Title,
		Author:   a.Author,
		CoverURL: a.Cover,
		Status:   status,
		Notes:    a.Notes,
	})
	if err != nil {
		return err
	}
	if err := pending.Wait(); err != nil {
		return err
	}
	printf("Added %s (%s)\n", pending.Book().Title, pending.Book().ID)
	return nil
}

func (u *LibraryUpdateCmd) Run(ctx context.Context) error {
	field, err := library.ParseField(u.Field)
	if err != nil {
		return err
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pending, err := store.Update(ctx, u.ID, field, u.Value)
	if err != nil {
		return err
	}
	if err := pending.Wait(); err != nil {
		return err
	}
	printf("Updated %s %s\n", u.ID, field)
	return nil
}

func (d *LibraryDeleteCmd) Run(ctx context.Context) error {
	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	book, ok := store.Get(d.ID)
	if !ok {
		return fmt.Errorf("book %s not in library", d.ID)
	}
	if err := store.Delete(ctx, d.ID).Wait(); err != nil {
		return err
	}
	printf("Deleted %s\n", book.Title)
	return nil
}

func (e *LibraryExportCmd) Run(ctx context.Context) error {
	format, err := export.ParseFormat(e.Format)
	if err != nil {
		return err
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	doc := export.NewDocument(store.UserID(), store.Books(), now())

	output := e.Output
	if output == "" {
		output = exportFilename(store.UserID(), format)
	}
	if output == "-" {
		return export.Write(stdout, doc, format)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, doc, format); err != nil {
		return err
	}
	written, err := fileutil.WriteFileWithOverwrite(output, buf.Bytes(), 0644, e.Overwrite)
	if err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if !written {
		return fmt.Errorf("export file %s already exists (use --overwrite to replace it)", output)
	}
	slog.Info("Library exported", "file", output, "books", doc.Stats.Total)
	return nil
}

// exportFilename is the default export path for a user's library.
func exportFilename(user, format string) string {
	return fileutil.SanitizeFilename(user) + "-library." + format
}

func (i *LibraryImportCmd) Run(ctx context.Context) error {
	books, err := importer.ParseGoodreadsFile(i.Input)
	if err != nil {
		return err
	}

	if i.DryRun {
		for _, b := range books {
			printf("%-8s %s\n", b.Status, b.Title)
		}
		printf("%d books would be imported\n", len(books))
		return nil
	}

	store, closeStore, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	summary := importer.Import(ctx, store, books)
	printf("Imported %d books (%d already in library, %d failed)\n", summary.Added, summary.Duplicates, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d books could not be imported", summary.Failed)
	}
	return nil
}
