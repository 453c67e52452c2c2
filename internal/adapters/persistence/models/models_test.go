package models

import (
	"testing"
	"time"

	"xmllibrary/internal/core/domain"
)

func TestToBookResponseStock(t *testing.T) {
	tests := []struct {
		available, total int
		availability     string
		status           string
	}{
		{0, 4, StockOut, StockOut},
		{1, 4, Available, StockLow},
		{2, 4, Available, StockIn},
		{1, 1, Available, StockIn},
	}
	for _, tt := range tests {
		r := ToBookResponse(&domain.Book{AvailableCopies: tt.available, TotalCopies: tt.total})
		if r.Availability != tt.availability || r.Status != tt.status {
			t.Errorf("%d/%d: got %s/%s, want %s/%s", tt.available, tt.total, r.Availability, r.Status, tt.availability, tt.status)
		}
	}
}

func TestToBorrowingResponseDays(t *testing.T) {
	today := domain.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	returned := today

	tests := []struct {
		name    string
		b       domain.Borrowing
		overdue bool
		days    string
		badge   string
	}{
		{"due later", domain.Borrowing{DueDate: today.AddDays(3), Status: domain.BorrowingStatusBorrowed}, false, "Due in 3 days", "primary"},
		{"past due", domain.Borrowing{DueDate: today.AddDays(-2), Status: domain.BorrowingStatusBorrowed}, true, "Overdue by 2 days", "primary"},
		{"marked overdue", domain.Borrowing{DueDate: today.AddDays(-5), Status: domain.BorrowingStatusOverdue}, true, "Overdue by 5 days", "danger"},
		{"returned", domain.Borrowing{DueDate: today.AddDays(-5), ReturnDate: &returned, Status: domain.BorrowingStatusReturned}, false, "Returned", "success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ToBorrowingResponse(&domain.BorrowingDetails{Borrowing: tt.b}, today)
			if r.IsOverdue != tt.overdue || r.DaysStatus != tt.days || r.StatusBadge != tt.badge {
				t.Fatalf("got %v %q %q", r.IsOverdue, r.DaysStatus, r.StatusBadge)
			}
		})
	}
}

func TestRefreshTokensNextIDAndClone(t *testing.T) {
	now := time.Now()
	tokens := &RefreshTokens{Items: []RefreshToken{{ID: 3, RevokedAt: &now}, {ID: 1}}}
	if tokens.NextID() != 4 {
		t.Fatalf("next id = %d", tokens.NextID())
	}

	c := tokens.Clone()
	later := now.Add(time.Hour)
	*c.Items[0].RevokedAt = later
	if !tokens.Items[0].RevokedAt.Equal(now) {
		t.Fatal("clone shares RevokedAt with the original")
	}
}
