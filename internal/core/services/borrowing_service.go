package services

import (
	"context"
	"errors"
	"log"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/metrics"
)

// Placeholders for dangling references
const (
	UnknownBook   = "Unknown Book"
	UnknownMember = "Unknown Member"
)

// BorrowingService handles the loan lifecycle.
// Every write locks books.xml and borrowings.xml together and validates both
// collections before either file is written.
type BorrowingService struct {
	bookRepo      repositories.BookRepository
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
	locker        repositories.Locker
	events        *EventHub
	loanDays      int
	today         func() domain.Date
}

// NewBorrowingService creates a new borrowing service
func NewBorrowingService(
	bookRepo repositories.BookRepository,
	memberRepo repositories.MemberRepository,
	borrowingRepo repositories.BorrowingRepository,
	locker repositories.Locker,
	events *EventHub,
	loanDays int,
) *BorrowingService {
	if loanDays < 1 {
		loanDays = domain.DefaultLoanDays
	}
	return &BorrowingService{
		bookRepo:      bookRepo,
		memberRepo:    memberRepo,
		borrowingRepo: borrowingRepo,
		locker:        locker,
		events:        events,
		loanDays:      loanDays,
		today:         domain.Today,
	}
}

// Today returns the service clock's current day
func (s *BorrowingService) Today() domain.Date {
	return s.today()
}

// List returns every borrowing with its book title and member name
func (s *BorrowingService) List(ctx context.Context) ([]domain.BorrowingDetails, error) {
	borrowings, err := s.borrowingRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, borrowings.Items)
}

// GetByID gets one borrowing with its book title and member name
func (s *BorrowingService) GetByID(ctx context.Context, id int) (*domain.BorrowingDetails, error) {
	b, err := s.borrowingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, []domain.Borrowing{*b})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Create lends one copy of a book to a member for the loan period
func (s *BorrowingService) Create(ctx context.Context, input *BorrowingInput) (*domain.Borrowing, error) {
	var created domain.Borrowing

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		// members.xml is not locked here; MemberService.Delete must keep holding the borrowings lock
		if _, err := s.memberRepo.GetByID(ctx, input.MemberID); err != nil {
			return err
		}

		books, err := s.bookRepo.Load(ctx)
		if err != nil {
			return err
		}
		bi := books.Index(input.BookID)
		if bi < 0 {
			return domain.ErrBookNotFound
		}
		if books.Items[bi].AvailableCopies <= 0 {
			return domain.ErrBookUnavailable
		}

		borrowings, err := s.borrowingRepo.Load(ctx)
		if err != nil {
			return err
		}

		today := s.today()
		created = domain.Borrowing{
			ID:         borrowings.NextID(),
			BookID:     input.BookID,
			MemberID:   input.MemberID,
			BorrowDate: today,
			DueDate:    today.AddDays(s.loanDays),
			Status:     domain.BorrowingStatusBorrowed,
		}
		borrowings.Items = append(borrowings.Items, created)
		books.Items[bi].AvailableCopies--

		return s.saveBoth(ctx, books, borrowings)
	}, repositories.BooksFile, repositories.BorrowingsFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Borrowing created: %d (book %d, member %d, due %s)", created.ID, created.BookID, created.MemberID, created.DueDate)
	s.events.Publish(EventBorrowed, created)
	return &created, nil
}

// Return closes a loan and puts the copy back on the shelf.
// A second return of the same borrowing fails with ErrAlreadyReturned.
func (s *BorrowingService) Return(ctx context.Context, id int) (*domain.Borrowing, error) {
	var returned domain.Borrowing

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		borrowings, err := s.borrowingRepo.Load(ctx)
		if err != nil {
			return err
		}
		i := borrowings.Index(id)
		if i < 0 {
			return domain.ErrBorrowingNotFound
		}
		b := &borrowings.Items[i]
		if b.Status == domain.BorrowingStatusReturned {
			return domain.ErrAlreadyReturned
		}

		today := s.today()
		b.ReturnDate = &today
		b.Status = domain.BorrowingStatusReturned

		books, err := s.bookRepo.Load(ctx)
		if err != nil {
			return err
		}
		if bi := books.Index(b.BookID); bi >= 0 {
			book := &books.Items[bi]
			if book.AvailableCopies < book.TotalCopies {
				book.AvailableCopies++
			}
		} else {
			log.Printf("⚠️ Borrowing %d returned for missing book %d", id, b.BookID)
		}

		returned = *b
		return s.saveBoth(ctx, books, borrowings)
	}, repositories.BooksFile, repositories.BorrowingsFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Borrowing returned: %d", id)
	s.events.Publish(EventReturned, returned)
	return &returned, nil
}

// Overdue marks past-due loans and returns every overdue borrowing
func (s *BorrowingService) Overdue(ctx context.Context) ([]domain.BorrowingDetails, error) {
	if _, err := s.MarkOverdue(ctx); err != nil {
		return nil, err
	}

	borrowings, err := s.borrowingRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	overdue := make([]domain.Borrowing, 0)
	for _, b := range borrowings.Items {
		if b.Status == domain.BorrowingStatusOverdue {
			overdue = append(overdue, b)
		}
	}
	return s.details(ctx, overdue)
}

// MarkOverdue flips Borrowed loans past their due date to Overdue and
// returns how many changed
func (s *BorrowingService) MarkOverdue(ctx context.Context) (int, error) {
	marked := 0
	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		borrowings, err := s.borrowingRepo.Load(ctx)
		if err != nil {
			return err
		}

		today := s.today()
		for i := range borrowings.Items {
			b := &borrowings.Items[i]
			if b.Status == domain.BorrowingStatusBorrowed && b.IsPastDue(today) {
				b.Status = domain.BorrowingStatusOverdue
				marked++
			}
		}
		if marked == 0 {
			return nil
		}
		return s.borrowingRepo.Save(ctx, borrowings)
	}, repositories.BorrowingsFile)
	if err != nil {
		return 0, err
	}

	if marked > 0 {
		metrics.OverdueMarked.Add(float64(marked))
		log.Printf("⚠️ Marked %d borrowings overdue", marked)
		s.events.Publish(EventOverdue, map[string]interface{}{"marked": marked, "asOf": s.today()})
	}
	return marked, nil
}

// saveBoth validates both collections first so a schema failure writes nothing
func (s *BorrowingService) saveBoth(ctx context.Context, books *domain.Books, borrowings *domain.Borrowings) error {
	if err := errors.Join(s.bookRepo.Validate(books), s.borrowingRepo.Validate(borrowings)); err != nil {
		return err
	}
	if err := s.borrowingRepo.Save(ctx, borrowings); err != nil {
		return err
	}
	return s.bookRepo.Save(ctx, books)
}

// details joins borrowings with book titles and member names
func (s *BorrowingService) details(ctx context.Context, items []domain.Borrowing) ([]domain.BorrowingDetails, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.memberRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BorrowingDetails, 0, len(items))
	for _, b := range items {
		d := domain.BorrowingDetails{Borrowing: b, BookTitle: UnknownBook, MemberName: UnknownMember}
		if i := books.Index(b.BookID); i >= 0 {
			d.BookTitle = books.Items[i].Title
		}
		if i := members.Index(b.MemberID); i >= 0 {
			d.MemberName = members.Items[i].FullName()
		}
		out = append(out, d)
	}
	return out, nil
}
