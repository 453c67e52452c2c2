package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/adapters/persistence/xmltransform"
	"xmllibrary/internal/config"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/pagination"
	"xmllibrary/internal/pkg/password"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/crypto/bcrypt"
)

var fixedToday = domain.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

type testEnv struct {
	store      *xmlstore.Store
	validator  *xmlschema.Validator
	engine     *xmltransform.Engine
	books      repositories.BookRepository
	members    repositories.MemberRepository
	borrowings repositories.BorrowingRepository
	users      repositories.UserRepository
	tokens     repositories.RefreshTokenRepository
	events     *EventHub
	cfg        *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if err := password.SetCost(bcrypt.MinCost); err != nil {
		t.Fatalf("cost: %v", err)
	}
	data := filepath.Join("..", "..", "..", "Data")
	reg, err := xmlschema.NewRegistry(filepath.Join(data, "Schemas"), filepath.Join(data, "DTDs"))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	t.Cleanup(reg.Close)

	store, err := xmlstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	v := xmlschema.NewValidator(reg)

	return &testEnv{
		store:      store,
		validator:  v,
		engine:     xmltransform.New(filepath.Join(data, "Transforms"), v),
		books:      repositories.NewBookRepository(store, v),
		members:    repositories.NewMemberRepository(store, v),
		borrowings: repositories.NewBorrowingRepository(store, v),
		users:      repositories.NewUserRepository(store),
		tokens:     repositories.NewRefreshTokenRepository(store),
		events:     NewEventHub(),
		cfg: &config.Config{
			AppMode: "dev",
			JWT: config.JWTConfig{
				Secret:           "test_secret",
				RefreshSecret:    "test_refresh_secret",
				AccessTokenMins:  15,
				RefreshTokenDays: 7,
			},
		},
	}
}

func (e *testEnv) bookService() *BookService {
	return NewBookService(e.books, e.store, e.engine, 10*time.Second)
}

func (e *testEnv) memberService() *MemberService {
	s := NewMemberService(e.members, e.borrowings, e.store)
	s.today = func() domain.Date { return fixedToday }
	return s
}

func (e *testEnv) borrowingService() *BorrowingService {
	s := NewBorrowingService(e.books, e.members, e.borrowings, e.store, e.events, domain.DefaultLoanDays)
	s.today = func() domain.Date { return fixedToday }
	return s
}

func bookInput(title, author, genre string, available, total int) *BookInput {
	return &BookInput{
		ISBN: "978-3-16-148410-0", Title: title, Author: author, Publisher: "Test Publisher",
		PublicationYear: 2020, Genre: genre, AvailableCopies: available, TotalCopies: total,
	}
}

func memberInput(first string) *MemberInput {
	return &MemberInput{FirstName: first, LastName: "Tester", Email: strings.ToLower(first) + "@example.com"}
}

func mustCreateBook(t *testing.T, s *BookService, in *BookInput) *domain.Book {
	t.Helper()
	b, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	return b
}

func mustCreateMember(t *testing.T, s *MemberService, first string) *domain.Member {
	t.Helper()
	m, err := s.Create(context.Background(), memberInput(first))
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

// ============================================================
// Books
// ============================================================

func TestBookIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).bookService()

	for i := 1; i <= 3; i++ {
		if b := mustCreateBook(t, s, bookInput("Book", "Author", "Fiction", 1, 1)); b.ID != i {
			t.Fatalf("book %d got id %d", i, b.ID)
		}
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if b := mustCreateBook(t, s, bookInput("Book", "Author", "Fiction", 1, 1)); b.ID != 4 {
		t.Fatalf("expected id 4 after delete, got %d", b.ID)
	}
	if err := s.Delete(ctx, 2); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestBookCopiesAreClamped(t *testing.T) {
	s := newTestEnv(t).bookService()

	b := mustCreateBook(t, s, bookInput("Book", "Author", "Fiction", 9, 0))
	if b.TotalCopies != 1 || b.AvailableCopies != 1 {
		t.Fatalf("expected 1/1, got %d/%d", b.AvailableCopies, b.TotalCopies)
	}

	b, err := s.Update(context.Background(), b.ID, bookInput("Book", "Author", "Fiction", -3, 4))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if b.TotalCopies != 4 || b.AvailableCopies != 0 {
		t.Fatalf("expected 0/4, got %d/%d", b.AvailableCopies, b.TotalCopies)
	}
}

func TestBookCreateRejectsSchemaViolation(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).bookService()

	in := bookInput("", "Author", "Fiction", 1, 1)
	if _, err := s.Create(ctx, in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	books, err := s.List(ctx)
	if err != nil || len(books) != 0 {
		t.Fatalf("rejected book was stored: %v %v", books, err)
	}
}

func TestBookSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).bookService()
	mustCreateBook(t, s, bookInput("The Go Programming Language", "Donovan", "Programming", 2, 2))
	mustCreateBook(t, s, bookInput("Dune", "Herbert", "Fiction", 0, 1))
	mustCreateBook(t, s, bookInput("Children of Dune", "Herbert", "Fiction", 1, 1))

	titles := func(books []domain.Book) []string {
		out := make([]string, 0, len(books))
		for _, b := range books {
			out = append(out, b.Title)
		}
		return out
	}

	yes, no := true, false
	tests := []struct {
		name string
		q    BookSearch
		want []string
	}{
		{"empty matches all", BookSearch{}, []string{"The Go Programming Language", "Dune", "Children of Dune"}},
		{"title ignores case", BookSearch{Title: "dune"}, []string{"Dune", "Children of Dune"}},
		{"author and availability", BookSearch{Author: "herb", Available: &yes}, []string{"Children of Dune"}},
		{"unavailable", BookSearch{Available: &no}, []string{"Dune"}},
		{"no match", BookSearch{Genre: "Poetry"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.q)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !reflect.DeepEqual(titles(got), tt.want) {
				t.Fatalf("got %v, want %v", titles(got), tt.want)
			}
		})
	}
}

func TestBookAdvancedSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).bookService()
	mustCreateBook(t, s, bookInput("Dune", "Herbert", "Fiction", 0, 1))
	mustCreateBook(t, s, bookInput("SICP", "Abelson", "Programming", 1, 1))

	tests := []struct {
		kind, term string
		want       int
	}{
		{SearchByAuthor, "herbert", 1},
		{SearchByGenre, "PROG", 1},
		{SearchAvailable, "", 1},
		{SearchOutOfStock, "", 1},
		{SearchByAuthor, "", 0},
		{"publisher", "x", 0},
	}
	for _, tt := range tests {
		got, err := s.AdvancedSearch(ctx, tt.kind, tt.term)
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if len(got) != tt.want {
			t.Errorf("%s %q: got %d books, want %d", tt.kind, tt.term, len(got), tt.want)
		}
	}
}

func TestBookCatalogueQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).bookService()
	mustCreateBook(t, s, bookInput("Dune", "Herbert", "Fiction", 0, 1))
	mustCreateBook(t, s, bookInput("SICP", "Abelson", "Programming", 1, 1))

	got, err := s.QueryXPath(ctx, "//Book[Author='Abelson']/Title")
	if err != nil || !reflect.DeepEqual(got, []string{"SICP"}) {
		t.Fatalf("xpath: %v %v", got, err)
	}

	ok, err := s.ValidateDTD(ctx)
	if err != nil || !ok {
		t.Fatalf("stored catalogue should satisfy the DTD: %v %v", ok, err)
	}

	html, err := s.CatalogueHTML(ctx)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if n := doc.Find("table#books tbody tr").Length(); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

// ============================================================
// Members
// ============================================================

func TestMemberCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestEnv(t).memberService()

	m := mustCreateMember(t, s, "Ada")
	if m.Status != domain.MemberStatusActive || !m.MembershipDate.Equal(fixedToday.Time) {
		t.Fatalf("unexpected new member %+v", m)
	}

	in := memberInput("Ada")
	in.PhoneNumber = "555-0100"
	updated, err := s.Update(ctx, m.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.MemberStatusActive || updated.PhoneNumber != "555-0100" {
		t.Fatalf("update lost fields: %+v", updated)
	}

	in.Status = "Banned"
	if _, err := s.Update(ctx, m.ID, in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status must fail validation, got %v", err)
	}
	if _, err := s.Update(ctx, 42, in); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemberDeleteBlockedByActiveBorrowing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	members := env.memberService()
	borrowings := env.borrowingService()

	book := mustCreateBook(t, env.bookService(), bookInput("Dune", "Herbert", "Fiction", 1, 1))
	m := mustCreateMember(t, members, "Ada")

	loan, err := borrowings.Create(ctx, &BorrowingInput{BookID: book.ID, MemberID: m.ID})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := members.Delete(ctx, m.ID); !errors.Is(err, domain.ErrMemberHasActiveBorrowings) {
		t.Fatalf("expected active borrowings error, got %v", err)
	}

	if _, err := borrowings.Return(ctx, loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := members.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
}

func TestConcurrentBorrowAndMemberDeleteLeaveNoOrphans(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	members := env.memberService()
	borrowings := env.borrowingService()

	const rounds = 20
	book := mustCreateBook(t, env.bookService(), bookInput("Dune", "Herbert", "Fiction", rounds, rounds))
	for i := 0; i < rounds; i++ {
		m := mustCreateMember(t, members, fmt.Sprintf("Member%d", i))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := borrowings.Create(ctx, &BorrowingInput{BookID: book.ID, MemberID: m.ID})
			if err != nil && !errors.Is(err, domain.ErrMemberNotFound) {
				t.Errorf("borrow: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			err := members.Delete(ctx, m.ID)
			if err != nil && !errors.Is(err, domain.ErrMemberHasActiveBorrowings) {
				t.Errorf("delete: %v", err)
			}
		}()
		wg.Wait()
	}

	all, err := env.borrowings.Load(ctx)
	if err != nil {
		t.Fatalf("load borrowings: %v", err)
	}
	for _, b := range all.Items {
		if _, err := env.members.GetByID(ctx, b.MemberID); err != nil {
			t.Errorf("borrowing %d points at missing member %d: %v", b.ID, b.MemberID, err)
		}
	}
}

// ============================================================
// Borrowings
// ============================================================

func TestBorrowingLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	books := env.bookService()
	s := env.borrowingService()

	book := mustCreateBook(t, books, bookInput("Dune", "Herbert", "Fiction", 5, 5))
	m := mustCreateMember(t, env.memberService(), "Ada")

	loan, err := s.Create(ctx, &BorrowingInput{BookID: book.ID, MemberID: m.ID})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if loan.Status != domain.BorrowingStatusBorrowed || loan.DueDate.String() != "2024-06-15" {
		t.Fatalf("unexpected loan %+v", loan)
	}
	if b, _ := books.GetByID(ctx, book.ID); b.AvailableCopies != 4 {
		t.Fatalf("copies after borrow = %d", b.AvailableCopies)
	}

	details, err := s.GetByID(ctx, loan.ID)
	if err != nil || details.BookTitle != "Dune" || details.MemberName != "Ada Tester" {
		t.Fatalf("details: %+v %v", details, err)
	}

	returned, err := s.Return(ctx, loan.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != domain.BorrowingStatusReturned || returned.ReturnDate == nil || !returned.ReturnDate.Equal(fixedToday.Time) {
		t.Fatalf("unexpected return %+v", returned)
	}
	if b, _ := books.GetByID(ctx, book.ID); b.AvailableCopies != 5 {
		t.Fatalf("copies after return = %d", b.AvailableCopies)
	}

	if _, err := s.Return(ctx, loan.ID); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("second return: %v", err)
	}
	if b, _ := books.GetByID(ctx, book.ID); b.AvailableCopies != 5 {
		t.Fatalf("second return changed copies to %d", b.AvailableCopies)
	}
}

func TestBorrowingPublishesEvents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.borrowingService()
	client := env.events.Subscribe("test", 1)
	defer env.events.Unsubscribe("test")

	book := mustCreateBook(t, env.bookService(), bookInput("Dune", "Herbert", "Fiction", 1, 1))
	m := mustCreateMember(t, env.memberService(), "Ada")
	loan, err := s.Create(ctx, &BorrowingInput{BookID: book.ID, MemberID: m.ID})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := s.Return(ctx, loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	var names []string
	for len(names) < 2 {
		select {
		case e := <-client.Channel:
			names = append(names, e.Name)
		case <-time.After(time.Second):
			t.Fatalf("events so far: %v", names)
		}
	}
	if !reflect.DeepEqual(names, []string{EventBorrowed, EventReturned}) {
		t.Fatalf("events = %v", names)
	}
}

func TestEventHubDropsWhenFull(t *testing.T) {
	hub := NewEventHub()
	client := hub.Subscribe("slow", 1)
	for i := 0; i < eventBuffer+5; i++ {
		hub.Publish(EventOverdue, i)
	}
	if len(client.Channel) != eventBuffer {
		t.Fatalf("buffered %d events", len(client.Channel))
	}
	hub.Unsubscribe("slow")
	if hub.ClientCount() != 0 {
		t.Fatal("client not removed")
	}

	var nilHub *EventHub
	nilHub.Publish(EventBorrowed, nil)
}

func TestBorrowingCreateFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.borrowingService()

	book := mustCreateBook(t, env.bookService(), bookInput("Dune", "Herbert", "Fiction", 0, 1))
	m := mustCreateMember(t, env.memberService(), "Ada")

	tests := []struct {
		name  string
		input BorrowingInput
		want  error
	}{
		{"unavailable book", BorrowingInput{BookID: book.ID, MemberID: m.ID}, domain.ErrBookUnavailable},
		{"missing book", BorrowingInput{BookID: 99, MemberID: m.ID}, domain.ErrBookNotFound},
		{"missing member", BorrowingInput{BookID: book.ID, MemberID: 99}, domain.ErrMemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, &tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	list, err := s.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("failed borrowings were stored: %v %v", list, err)
	}
}

func TestBorrowingDetailsWithDanglingReferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	err := env.borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{{
		ID: 1, BookID: 7, MemberID: 8, BorrowDate: fixedToday, DueDate: fixedToday.AddDays(14),
		Status: domain.BorrowingStatusBorrowed,
	}}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := env.borrowingService().List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
	if list[0].BookTitle != UnknownBook || list[0].MemberName != UnknownMember {
		t.Fatalf("expected placeholders, got %+v", list[0])
	}
}

func TestBorrowingOverdueMarking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.borrowingService()

	start := fixedToday.AddDays(-30)
	err := env.borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{
		{ID: 1, BookID: 1, MemberID: 1, BorrowDate: start, DueDate: start.AddDays(14), Status: domain.BorrowingStatusBorrowed},
		{ID: 2, BookID: 1, MemberID: 1, BorrowDate: fixedToday, DueDate: fixedToday.AddDays(14), Status: domain.BorrowingStatusBorrowed},
		{ID: 3, BookID: 1, MemberID: 1, BorrowDate: start, DueDate: start.AddDays(14), ReturnDate: &fixedToday, Status: domain.BorrowingStatusReturned},
		{ID: 4, BookID: 1, MemberID: 1, BorrowDate: start, DueDate: fixedToday, Status: domain.BorrowingStatusBorrowed},
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	overdue, err := s.Overdue(ctx)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != 1 || overdue[0].Status != domain.BorrowingStatusOverdue {
		t.Fatalf("unexpected overdue list %+v", overdue)
	}

	n, err := s.MarkOverdue(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep should change nothing: %d %v", n, err)
	}

	// Overdue loans still come back as copies
	books := env.bookService()
	book := mustCreateBook(t, books, bookInput("Dune", "Herbert", "Fiction", 0, 1))
	if book.ID != 1 {
		t.Fatalf("unexpected book id %d", book.ID)
	}
	if _, err := s.Return(ctx, 1); err != nil {
		t.Fatalf("return overdue: %v", err)
	}
	if b, _ := books.GetByID(ctx, 1); b.AvailableCopies != 1 {
		t.Fatalf("copies after overdue return = %d", b.AvailableCopies)
	}
}

func TestCronSweepOverdue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	borrowings := env.borrowingService()
	auth := NewAuthService(env.users, env.tokens, env.store, env.cfg)

	start := fixedToday.AddDays(-30)
	err := env.borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{
		{ID: 1, BookID: 1, MemberID: 1, BorrowDate: start, DueDate: start.AddDays(14), Status: domain.BorrowingStatusBorrowed},
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	received := make(chan OverdueNotice, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hook-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var notice OverdueNotice
		if err := json.NewDecoder(r.Body).Decode(&notice); err == nil {
			received <- notice
		}
	}))
	defer srv.Close()
	notifier := NewNotificationService(config.NotifyConfig{WebhookURL: srv.URL, Token: "hook-token"})

	c := NewCronService(borrowings, auth, notifier, env.store.Cache(), "5 0 * * *")
	c.SweepOverdue()
	c.SweepCache()
	c.CleanupTokens()

	b, err := env.borrowings.GetByID(ctx, 1)
	if err != nil || b.Status != domain.BorrowingStatusOverdue {
		t.Fatalf("sweep did not mark overdue: %+v %v", b, err)
	}

	select {
	case notice := <-received:
		if len(notice.Borrowings) != 1 || notice.Borrowings[0].BookTitle != UnknownBook {
			t.Fatalf("notice: %+v", notice)
		}
	default:
		t.Fatal("no overdue notice sent")
	}

	// nothing newly overdue, nothing sent
	c.SweepOverdue()
	if len(received) != 0 {
		t.Fatal("notice sent twice")
	}
}

func TestNotificationServiceDisabled(t *testing.T) {
	n := NewNotificationService(config.NotifyConfig{})
	if n.IsEnabled() {
		t.Fatal("enabled without webhook")
	}
	if err := n.NotifyOverdue(context.Background(), []domain.BorrowingDetails{{}}); err != nil {
		t.Fatalf("disabled notify: %v", err)
	}
}

func TestNotificationServiceWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotificationService(config.NotifyConfig{WebhookURL: srv.URL})
	if err := n.NotifyOverdue(context.Background(), []domain.BorrowingDetails{{}}); err == nil {
		t.Fatal("expected error from failing webhook")
	}
}

func TestCronRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	c := NewCronService(env.borrowingService(), nil, nil, env.store.Cache(), "not a schedule")
	if err := c.Start(); err == nil {
		c.Stop()
		t.Fatal("expected schedule error")
	}
}

// ============================================================
// Report
// ============================================================

func TestReportBuild(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	books := env.bookService()
	mustCreateBook(t, books, bookInput("Dune", "Herbert", "Fiction", 1, 1))
	mustCreateBook(t, books, bookInput("Children of Dune", "Herbert", "Fiction", 0, 1))
	mustCreateBook(t, books, bookInput("SICP", "Abelson", "Programming", 1, 1))
	mustCreateMember(t, env.memberService(), "Ada")

	start := fixedToday.AddDays(-30)
	err := env.borrowings.Save(ctx, &domain.Borrowings{Items: []domain.Borrowing{
		{ID: 1, BookID: 2, MemberID: 1, BorrowDate: start, DueDate: start.AddDays(14), Status: domain.BorrowingStatusBorrowed},
		{ID: 2, BookID: 1, MemberID: 1, BorrowDate: fixedToday, DueDate: fixedToday.AddDays(14), Status: domain.BorrowingStatusBorrowed},
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewReportService(env.books, env.members, env.borrowings, env.engine, 10*time.Second)
	s.today = func() domain.Date { return fixedToday }

	r, err := s.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.TotalBooks != 3 || r.TotalMembers != 1 || r.ActiveBorrowings != 2 || r.AvailableBooks != 2 || r.OverdueBooks != 1 {
		t.Fatalf("unexpected totals %+v", r)
	}
	wantGenres := []domain.CountEntry{{Name: "Fiction", Count: 2}, {Name: "Programming", Count: 1}}
	if !reflect.DeepEqual(r.PopularGenres, wantGenres) {
		t.Fatalf("genres = %+v", r.PopularGenres)
	}
	if r.PopularAuthors[0].Name != "Herbert" {
		t.Fatalf("authors = %+v", r.PopularAuthors)
	}

	html, err := s.HTML(ctx)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if got := strings.TrimSpace(doc.Find("#total-books").Text()); got != "3" {
		t.Fatalf("total books cell = %q", got)
	}
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 3, "c": 3, "d": 2, "e": 1, "f": 1}
	got := topCounts(counts, 5)
	want := []domain.CountEntry{{"b", 3}, {"c", 3}, {"d", 2}, {"a", 1}, {"e", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

// ============================================================
// XML and SOAP
// ============================================================

func TestXMLServiceValidate(t *testing.T) {
	env := newTestEnv(t)
	s := NewXMLService(env.validator, env.engine)

	doc := `<Books><Book Id="1"><ISBN>978-3-16-148410-0</ISBN><Title>T</Title><Author>A</Author>` +
		`<Publisher>P</Publisher><PublicationYear>2020</PublicationYear><Genre>G</Genre>` +
		`<AvailableCopies>1</AvailableCopies><TotalCopies>1</TotalCopies></Book></Books>`

	for _, mode := range []string{"", "xsd", "DTD"} {
		ok, err := s.Validate(doc, xmlschema.Books, mode)
		if err != nil || !ok {
			t.Errorf("mode %q: %v %v", mode, ok, err)
		}
	}
	if _, err := s.Validate(doc, xmlschema.Books, "relaxng"); !errors.Is(err, domain.ErrArgument) {
		t.Errorf("unknown mode: %v", err)
	}
	if _, err := s.Validate(doc, xmlschema.Members, "xsd"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("wrong schema: %v", err)
	}
	if !reflect.DeepEqual(s.Schemas(), []string{"Books", "Borrowings", "Members"}) {
		t.Errorf("schemas = %v", s.Schemas())
	}
}

func TestSoapService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mustCreateBook(t, env.bookService(), bookInput("Dune", "Herbert", "Fiction", 1, 1))
	s := NewSoapService(env.books, env.members, env.borrowings, env.validator)

	b, err := s.GetBookByIsbn(ctx, " 978-3-16-148410-0 ")
	if err != nil || b.Title != "Dune" {
		t.Fatalf("by isbn: %+v %v", b, err)
	}
	if _, err := s.GetBookByIsbn(ctx, "0000000000"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("missing isbn: %v", err)
	}
	if _, err := s.GetMemberByID(ctx, 1); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("missing member: %v", err)
	}

	ok, issues, err := s.ValidateBookXML(`<Books><Book Id="1"/></Books>`)
	if err != nil || ok || len(issues) == 0 {
		t.Fatalf("invalid document: %v %v %v", ok, issues, err)
	}
	ok, issues, err = s.ValidateBookXML("")
	if err != nil || ok || len(issues) != 1 {
		t.Fatalf("empty document: %v %v %v", ok, issues, err)
	}
}

// ============================================================
// Auth and users
// ============================================================

func TestAuthRegisterLoginRefresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := NewAuthService(env.users, env.tokens, env.store, env.cfg)

	user, err := s.Register(ctx, &RegisterInput{Username: "ada", Password: "lovelace1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 1 || user.Role != string(domain.RoleLibrarian) {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := s.Register(ctx, &RegisterInput{Username: "ADA", Password: "x"}); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := s.Register(ctx, &RegisterInput{Username: "bob", Password: "x", Role: "Root"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bad role: %v", err)
	}

	if _, err := s.Login(ctx, &LoginInput{Username: "ada", Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := s.Login(ctx, &LoginInput{Username: "nobody", Password: "x"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}

	login, err := s.Login(ctx, &LoginInput{Username: "Ada", Password: "lovelace1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := s.ValidateAccessToken(login.AccessToken)
	if err != nil || claims.UserID != 1 || claims.Role != string(domain.RoleLibrarian) {
		t.Fatalf("claims: %+v %v", claims, err)
	}

	refreshed, err := s.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := s.RefreshToken(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("rotated token reused: %v", err)
	}
	if _, err := s.RefreshToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: %v", err)
	}

	if err := s.Logout(ctx, refreshed.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.RefreshToken(ctx, refreshed.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("token after logout: %v", err)
	}
}

func TestUserServiceManagement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	auth := NewAuthService(env.users, env.tokens, env.store, env.cfg)
	s := NewUserService(env.users, env.tokens, env.store)

	admin, err := auth.Register(ctx, &RegisterInput{Username: "admin", Password: "admin123", Role: "Admin"})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	lib, err := auth.Register(ctx, &RegisterInput{Username: "lib", Password: "library1"})
	if err != nil {
		t.Fatalf("register librarian: %v", err)
	}

	out, err := s.ListUsers(ctx, pagination.NewParams(1, 1))
	if err != nil || len(out.Users) != 1 || out.Meta.Total != 2 || !out.Meta.HasNext {
		t.Fatalf("list: %+v %v", out, err)
	}

	if _, err := s.UpdateRole(ctx, admin.ID, admin.ID, "Librarian"); !errors.Is(err, ErrCannotChangeOwnRole) {
		t.Fatalf("own role: %v", err)
	}
	updated, err := s.UpdateRole(ctx, lib.ID, admin.ID, "Admin")
	if err != nil || updated.Role != "Admin" {
		t.Fatalf("update role: %+v %v", updated, err)
	}

	if err := s.ChangePassword(ctx, lib.ID, &ChangePasswordInput{OldPassword: "nope", NewPassword: "newpassword"}); !errors.Is(err, ErrOldPasswordWrong) {
		t.Fatalf("wrong old password: %v", err)
	}
	if err := s.ChangePassword(ctx, lib.ID, &ChangePasswordInput{OldPassword: "library1", NewPassword: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short password: %v", err)
	}
	if err := s.ChangePassword(ctx, lib.ID, &ChangePasswordInput{OldPassword: "library1", NewPassword: "newpassword"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := auth.Login(ctx, &LoginInput{Username: "lib", Password: "newpassword"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	if err := s.DeleteUser(ctx, admin.ID, admin.ID); !errors.Is(err, ErrCannotDeleteSelf) {
		t.Fatalf("delete self: %v", err)
	}
	if err := s.DeleteUser(ctx, lib.ID, admin.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := auth.GetUserByID(ctx, lib.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("deleted user still present: %v", err)
	}
}
