package services

import (
	"errors"
	"strings"

	"xmllibrary/internal/core/domain"
)

// Note: AuthService implementation is in auth_service.go
// Note: UserService implementation is in user_service.go

// BookInput carries the writable book fields
type BookInput struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publicationYear"`
	Genre           string `json:"genre"`
	AvailableCopies int    `json:"availableCopies"`
	TotalCopies     int    `json:"totalCopies"`
}

// apply copies the input onto b and clamps the copy counts
func (in *BookInput) apply(b *domain.Book) {
	b.ISBN = strings.TrimSpace(in.ISBN)
	b.Title = strings.TrimSpace(in.Title)
	b.Author = strings.TrimSpace(in.Author)
	b.Publisher = strings.TrimSpace(in.Publisher)
	b.PublicationYear = in.PublicationYear
	b.Genre = strings.TrimSpace(in.Genre)
	b.AvailableCopies = in.AvailableCopies
	b.TotalCopies = in.TotalCopies
	b.ClampCopies()
}

// BookSearch filters the catalogue. Empty fields match everything;
// text fields match case-insensitive substrings.
type BookSearch struct {
	Title     string
	Author    string
	ISBN      string
	Publisher string
	Genre     string
	Available *bool
}

// Advanced search kinds
const (
	SearchByAuthor   = "author"
	SearchByGenre    = "genre"
	SearchAvailable  = "available"
	SearchOutOfStock = "overdue"
)

// MemberInput carries the writable member fields
type MemberInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Status      string `json:"status"`
}

func (in *MemberInput) apply(m *domain.Member) {
	m.FirstName = strings.TrimSpace(in.FirstName)
	m.LastName = strings.TrimSpace(in.LastName)
	m.Email = strings.TrimSpace(in.Email)
	m.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	m.Address = strings.TrimSpace(in.Address)
	if s := strings.TrimSpace(in.Status); s != "" {
		m.Status = s
	}
}

// BorrowingInput names the book and member of a new loan
type BorrowingInput struct {
	BookID   int `json:"bookId"`
	MemberID int `json:"memberId"`
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func asValidationError(err error) (*domain.ValidationError, bool) {
	var ve *domain.ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
