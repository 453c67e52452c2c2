package models

import (
	"fmt"
	"strings"
	"time"

	"xmllibrary/internal/core/domain"
)

// ============================================================
// Auth records (refresh_tokens.xml)
// ============================================================

// RefreshToken is an issued refresh token, stored by hash only
type RefreshToken struct {
	ID        int        `xml:"Id,attr" json:"id"`
	UserID    int        `xml:"UserId" json:"user_id"`
	TokenHash string     `xml:"TokenHash" json:"-"`
	ExpiresAt time.Time  `xml:"ExpiresAt" json:"expires_at"`
	CreatedAt time.Time  `xml:"CreatedAt" json:"created_at"`
	RevokedAt *time.Time `xml:"RevokedAt,omitempty" json:"revoked_at"`
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// RefreshTokens is the refresh_tokens.xml document
type RefreshTokens struct {
	Items []RefreshToken `xml:"RefreshToken"`
}

func (r *RefreshTokens) RootElement() string   { return "RefreshTokens" }
func (r *RefreshTokens) RecordElement() string { return "RefreshToken" }
func (r *RefreshTokens) Len() int              { return len(r.Items) }

// Clone returns a deep copy
func (r *RefreshTokens) Clone() *RefreshTokens {
	out := &RefreshTokens{}
	if r.Items != nil {
		out.Items = make([]RefreshToken, len(r.Items))
		for i, it := range r.Items {
			if it.RevokedAt != nil {
				t := *it.RevokedAt
				it.RevokedAt = &t
			}
			out.Items[i] = it
		}
	}
	return out
}

// NextID returns max existing id + 1
func (r *RefreshTokens) NextID() int {
	max := 0
	for _, it := range r.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// ============================================================
// Response DTOs
// ============================================================

// Book stock labels
const (
	StockOut = "Out of Stock"
	StockLow = "Low Stock"
	StockIn  = "In Stock"

	Available = "Available"
)

// BookResponse DTO
type BookResponse struct {
	domain.Book
	Availability string `json:"availability"`
	Status       string `json:"status"`
}

// ToBookResponse adds the stock labels shown by the catalogue
func ToBookResponse(b *domain.Book) *BookResponse {
	resp := &BookResponse{Book: *b, Availability: Available, Status: StockIn}
	switch {
	case b.AvailableCopies == 0:
		resp.Availability = StockOut
		resp.Status = StockOut
	case b.AvailableCopies < b.TotalCopies/2:
		resp.Status = StockLow
	}
	return resp
}

// ToBookResponses maps a slice
func ToBookResponses(books []domain.Book) []*BookResponse {
	out := make([]*BookResponse, 0, len(books))
	for i := range books {
		out = append(out, ToBookResponse(&books[i]))
	}
	return out
}

// MemberResponse DTO
type MemberResponse struct {
	domain.Member
	FullName    string `json:"fullName"`
	StatusBadge string `json:"statusBadge"`
}

// ToMemberResponse adds the display name and badge
func ToMemberResponse(m *domain.Member) *MemberResponse {
	badge := "secondary"
	switch strings.ToLower(m.Status) {
	case "active":
		badge = "success"
	case "suspended":
		badge = "danger"
	}
	return &MemberResponse{Member: *m, FullName: m.FullName(), StatusBadge: badge}
}

// ToMemberResponses maps a slice
func ToMemberResponses(members []domain.Member) []*MemberResponse {
	out := make([]*MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, ToMemberResponse(&members[i]))
	}
	return out
}

// BorrowingResponse DTO
type BorrowingResponse struct {
	domain.BorrowingDetails
	StatusBadge string `json:"statusBadge"`
	IsOverdue   bool   `json:"isOverdue"`
	DaysStatus  string `json:"daysStatus"`
}

// ToBorrowingResponse derives the overdue flag and day count relative to today
func ToBorrowingResponse(d *domain.BorrowingDetails, today domain.Date) *BorrowingResponse {
	resp := &BorrowingResponse{BorrowingDetails: *d, DaysStatus: d.Status}

	switch strings.ToLower(d.Status) {
	case "borrowed":
		resp.StatusBadge = "primary"
	case "returned":
		resp.StatusBadge = "success"
	case "overdue":
		resp.StatusBadge = "danger"
	default:
		resp.StatusBadge = "secondary"
	}

	resp.IsOverdue = d.IsPastDue(today)
	days := int(d.DueDate.Sub(today.Time).Hours() / 24)
	switch {
	case d.Status == domain.BorrowingStatusReturned:
		resp.DaysStatus = domain.BorrowingStatusReturned
	case resp.IsOverdue:
		resp.DaysStatus = fmt.Sprintf("Overdue by %d days", -days)
	case d.Status == domain.BorrowingStatusBorrowed:
		resp.DaysStatus = fmt.Sprintf("Due in %d days", days)
	}
	return resp
}

// ToBorrowingResponses maps a slice
func ToBorrowingResponses(details []domain.BorrowingDetails, today domain.Date) []*BorrowingResponse {
	out := make([]*BorrowingResponse, 0, len(details))
	for i := range details {
		out = append(out, ToBorrowingResponse(&details[i], today))
	}
	return out
}

// UserResponse DTO
type UserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func ToUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	}
}
