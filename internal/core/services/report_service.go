package services

import (
	"context"
	"sort"
	"time"

	"xmllibrary/internal/adapters/persistence/codec"
	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/adapters/persistence/xmltransform"
	"xmllibrary/internal/core/domain"
)

// topN is the length of the popular genre and author lists
const topN = 5

// ReportService builds the library summary
type ReportService struct {
	bookRepo      repositories.BookRepository
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
	engine        *xmltransform.Engine
	timeout       time.Duration
	today         func() domain.Date
}

// NewReportService creates a new report service
func NewReportService(
	bookRepo repositories.BookRepository,
	memberRepo repositories.MemberRepository,
	borrowingRepo repositories.BorrowingRepository,
	engine *xmltransform.Engine,
	transformTimeout time.Duration,
) *ReportService {
	return &ReportService{
		bookRepo:      bookRepo,
		memberRepo:    memberRepo,
		borrowingRepo: borrowingRepo,
		engine:        engine,
		timeout:       transformTimeout,
		today:         domain.Today,
	}
}

// Build computes totals and the most frequent genres and authors
func (s *ReportService) Build(ctx context.Context) (*domain.LibraryReport, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.memberRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	borrowings, err := s.borrowingRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	report := &domain.LibraryReport{
		GeneratedDate: today,
		TotalBooks:    books.Len(),
		TotalMembers:  members.Len(),
	}

	genres := make(map[string]int)
	authors := make(map[string]int)
	for _, b := range books.Items {
		if b.AvailableCopies > 0 {
			report.AvailableBooks++
		}
		genres[b.Genre]++
		authors[b.Author]++
	}
	for i := range borrowings.Items {
		b := &borrowings.Items[i]
		if b.IsActive() {
			report.ActiveBorrowings++
		}
		if b.Status == domain.BorrowingStatusOverdue || b.IsPastDue(today) {
			report.OverdueBooks++
		}
	}

	report.PopularGenres = topCounts(genres, topN)
	report.PopularAuthors = topCounts(authors, topN)
	return report, nil
}

// HTML renders the report through the report stylesheet
func (s *ReportService) HTML(ctx context.Context) (string, error) {
	report, err := s.Build(ctx)
	if err != nil {
		return "", err
	}
	text, err := codec.Marshal(report)
	if err != nil {
		return "", err
	}
	return transform(ctx, s.engine, s.timeout, text, xmltransform.ReportStylesheet)
}

// topCounts orders by count descending then name, keeping at most n entries
func topCounts(counts map[string]int, n int) []domain.CountEntry {
	out := make([]domain.CountEntry, 0, len(counts))
	for name, c := range counts {
		out = append(out, domain.CountEntry{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
