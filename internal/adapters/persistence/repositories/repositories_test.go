package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

func dataDir() string {
	return filepath.Join("..", "..", "..", "..", "Data")
}

func newTestStore(t *testing.T) (*xmlstore.Store, *xmlschema.Validator) {
	t.Helper()
	reg, err := xmlschema.NewRegistry(filepath.Join(dataDir(), "Schemas"), filepath.Join(dataDir(), "DTDs"))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	t.Cleanup(reg.Close)

	store, err := xmlstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store, xmlschema.NewValidator(reg)
}

func testBook(id int) domain.Book {
	return domain.Book{
		ID: id, ISBN: "978-3-16-148410-0", Title: "Test Book", Author: "Test Author",
		Publisher: "Test Publisher", PublicationYear: 2020, Genre: "Fiction",
		AvailableCopies: 5, TotalCopies: 5,
	}
}

func TestBookRepositoryMissingFileIsEmpty(t *testing.T) {
	store, v := newTestStore(t)
	repo := NewBookRepository(store, v)

	books, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if books == nil || books.Len() != 0 {
		t.Fatalf("expected empty collection, got %+v", books)
	}

	if _, err := repo.GetByID(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookRepositorySaveAndGet(t *testing.T) {
	ctx := context.Background()
	store, v := newTestStore(t)
	repo := NewBookRepository(store, v)

	if err := repo.Save(ctx, &domain.Books{Items: []domain.Book{testBook(1), testBook(2)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := repo.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.ID != 2 || b.Title != "Test Book" {
		t.Fatalf("unexpected book %+v", b)
	}
}

func TestBookRepositoryRejectsInvalidCollection(t *testing.T) {
	ctx := context.Background()
	store, v := newTestStore(t)
	repo := NewBookRepository(store, v)

	if err := repo.Save(ctx, &domain.Books{Items: []domain.Book{testBook(1)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(store.Root(), BooksFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	bad := testBook(2)
	bad.AvailableCopies = 10
	err = repo.Save(ctx, &domain.Books{Items: []domain.Book{testBook(1), bad}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	after, err := os.ReadFile(filepath.Join(store.Root(), BooksFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("a rejected save must leave the file untouched")
	}
}

func TestMemberAndBorrowingRepositories(t *testing.T) {
	ctx := context.Background()
	store, v := newTestStore(t)
	members := NewMemberRepository(store, v)
	borrowings := NewBorrowingRepository(store, v)

	joined := domain.NewDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	err := members.Save(ctx, &domain.Members{Items: []domain.Member{{
		ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		MembershipDate: joined, Status: domain.MemberStatusActive,
	}}})
	if err != nil {
		t.Fatalf("save members: %v", err)
	}
	m, err := members.GetByID(ctx, 1)
	if err != nil || m.FullName() != "Ada Lovelace" || !m.MembershipDate.Equal(joined.Time) {
		t.Fatalf("get member: %+v %v", m, err)
	}

	err = borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{{
		ID: 1, BookID: 1, MemberID: 1, BorrowDate: joined, DueDate: joined.AddDays(14),
		Status: domain.BorrowingStatusBorrowed,
	}}})
	if err != nil {
		t.Fatalf("save borrowings: %v", err)
	}
	b, err := borrowings.GetByID(ctx, 1)
	if err != nil || b.ReturnDate != nil || b.DueDate.String() != "2024-03-15" {
		t.Fatalf("get borrowing: %+v %v", b, err)
	}

	err = borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{{
		ID: 1, BookID: 1, MemberID: 1, BorrowDate: joined, DueDate: joined.AddDays(14),
		Status: domain.BorrowingStatusReturned,
	}}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("returned without a date must be rejected, got %v", err)
	}
}

func TestUserRepositoryIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	repo := NewUserRepository(store)

	if err := repo.Save(ctx, &domain.Users{Items: []domain.User{{ID: 1, Username: "Admin", PasswordHash: "x", Role: domain.RoleAdmin}}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	u, err := repo.GetByUsername(ctx, "ADMIN")
	if err != nil || u.ID != 1 {
		t.Fatalf("get by username: %+v %v", u, err)
	}
	exists, err := repo.ExistsByUsername(ctx, "admin")
	if err != nil || !exists {
		t.Fatalf("exists: %v %v", exists, err)
	}
	if _, err := repo.GetByID(ctx, 9); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	repo := NewRefreshTokenRepository(store)

	live := &models.RefreshToken{UserID: 1, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour)}
	stale := &models.RefreshToken{UserID: 1, TokenHash: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	other := &models.RefreshToken{UserID: 2, TokenHash: "other", ExpiresAt: time.Now().Add(time.Hour)}
	for _, tok := range []*models.RefreshToken{live, stale, other} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if live.ID != 1 || other.ID != 3 {
		t.Fatalf("ids not allocated in order: %d %d", live.ID, other.ID)
	}

	got, err := repo.GetByTokenHash(ctx, "live")
	if err != nil || got.UserID != 1 {
		t.Fatalf("get: %+v %v", got, err)
	}

	if err := repo.RevokeByTokenHash(ctx, "live"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := repo.GetByTokenHash(ctx, "live"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("revoked token still returned: %v", err)
	}

	removed, err := repo.DeleteExpired(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("delete expired: %d %v", removed, err)
	}

	if err := repo.RevokeAllByUserID(ctx, 2); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := repo.GetByTokenHash(ctx, "other"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("token of user 2 should be revoked: %v", err)
	}
}
