package xmlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"xmllibrary/internal/adapters/persistence/codec"
	"xmllibrary/internal/core/domain"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func sampleBooks() *domain.Books {
	return &domain.Books{Items: []domain.Book{
		{ID: 1, ISBN: "978-3-16-148410-0", Title: "Test Book", Author: "Test Author", Publisher: "P", PublicationYear: 2020, Genre: "Fiction", AvailableCopies: 5, TotalCopies: 5},
	}}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	s := newTestStore(t)
	books, err := Load[domain.Books](context.Background(), s, "books.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if books != nil {
		t.Fatalf("expected nil, got %+v", books)
	}
}

func TestLoadBlankFileReturnsNil(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.Root(), "books.xml"), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	books, err := Load[domain.Books](context.Background(), s, "books.xml")
	if err != nil || books != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", books, err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load[domain.Books](ctx, s, "books.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Len() != 1 || got.Items[0].Title != "Test Book" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSaveEvictsCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}
	first, err := Load[domain.Books](ctx, s, "books.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Cache().Len() != 1 {
		t.Fatalf("expected a cached entry")
	}

	first.Items[0].Title = "Changed"
	if err := s.Save(ctx, first, "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Cache().Len() != 0 {
		t.Fatalf("save should evict the entry")
	}

	second, err := Load[domain.Books](ctx, s, "books.xml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if second.Items[0].Title != "Changed" {
		t.Fatalf("stale read: %q", second.Items[0].Title)
	}
}

func TestLoadReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}

	a, _ := Load[domain.Books](ctx, s, "books.xml")
	a.Items[0].AvailableCopies = 0
	a.Items = append(a.Items, domain.Book{ID: 2})

	b, _ := Load[domain.Books](ctx, s, "books.xml")
	if b.Len() != 1 || b.Items[0].AvailableCopies != 5 {
		t.Fatalf("cached value was mutated through a loaded copy: %+v", b)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.Root(), "books.xml"), []byte("<Members/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load[domain.Books](context.Background(), s, "books.xml")
	if !errors.Is(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected malformed document, got %v", err)
	}
}

func TestRejectsUnsafeFileNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, name := range []string{"", "../books.xml", "/etc/passwd", "nested/books.xml"} {
		if _, err := Load[domain.Books](ctx, s, name); !errors.Is(err, domain.ErrArgument) {
			t.Errorf("load %q: expected argument error, got %v", name, err)
		}
		if err := s.Save(ctx, sampleBooks(), name); !errors.Is(err, domain.ErrArgument) {
			t.Errorf("save %q: expected argument error, got %v", name, err)
		}
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only books.xml, got %d entries", len(entries))
	}
}

func TestCacheExpiresAfterIdleWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithExpiry(10*time.Minute, time.Hour), WithClock(func() time.Time { return now }))

	if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load[domain.Books](ctx, s, "books.xml"); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Change the file behind the store's back; only an expired entry re-reads it.
	other := sampleBooks()
	other.Items[0].Title = "From Disk"
	if err := os.WriteFile(filepath.Join(s.Root(), "books.xml"), []byte(mustEncode(t, other)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	now = now.Add(9 * time.Minute)
	got, _ := Load[domain.Books](ctx, s, "books.xml")
	if got.Items[0].Title != "Test Book" {
		t.Fatalf("entry should still be cached, got %q", got.Items[0].Title)
	}

	now = now.Add(10 * time.Minute)
	got, _ = Load[domain.Books](ctx, s, "books.xml")
	if got.Items[0].Title != "From Disk" {
		t.Fatalf("idle entry should have expired, got %q", got.Items[0].Title)
	}
}

func TestWithLockSerialisesWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Save(ctx, &domain.Books{}, "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithLock(ctx, func(ctx context.Context) error {
				books, err := Load[domain.Books](ctx, s, "books.xml")
				if err != nil {
					return err
				}
				id := books.NextID()
				books.Items = append(books.Items, domain.Book{ID: id, Title: "t", TotalCopies: 1})
				return s.Save(ctx, books, "books.xml")
			}, "books.xml", "borrowings.xml")
			if err != nil {
				t.Errorf("locked update: %v", err)
			}
		}()
	}
	wg.Wait()

	books, _ := Load[domain.Books](ctx, s, "books.xml")
	if books.Len() != 10 {
		t.Fatalf("lost updates: %d books", books.Len())
	}
}

func TestUnlockedReadersDoNotResurrectStaleCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Save(ctx, sampleBooks(), "books.xml"); err != nil {
		t.Fatalf("save: %v", err)
	}

	const updates = 200
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 16; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := Load[domain.Books](ctx, s, "books.xml"); err != nil {
					t.Errorf("read: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < updates; i++ {
		err := s.WithLock(ctx, func(ctx context.Context) error {
			books, err := Load[domain.Books](ctx, s, "books.xml")
			if err != nil {
				return err
			}
			books.Items[0].PublicationYear++
			return s.Save(ctx, books, "books.xml")
		}, "books.xml")
		if err != nil {
			t.Fatalf("locked update %d: %v", i, err)
		}
	}
	close(stop)
	readers.Wait()

	data, err := os.ReadFile(filepath.Join(s.Root(), "books.xml"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var onDisk domain.Books
	if err := codec.Decode(string(data), &onDisk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := onDisk.Items[0].PublicationYear, 2020+updates; got != want {
		t.Fatalf("persisted year = %d, want %d", got, want)
	}
}
