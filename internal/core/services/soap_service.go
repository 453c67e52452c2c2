package services

import (
	"context"
	"log"
	"strings"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/core/domain"
)

// SoapService implements the operations exposed on the SOAP endpoint
type SoapService struct {
	bookRepo      repositories.BookRepository
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
	validator     *xmlschema.Validator
}

// NewSoapService creates a new SOAP service
func NewSoapService(
	bookRepo repositories.BookRepository,
	memberRepo repositories.MemberRepository,
	borrowingRepo repositories.BorrowingRepository,
	validator *xmlschema.Validator,
) *SoapService {
	return &SoapService{
		bookRepo:      bookRepo,
		memberRepo:    memberRepo,
		borrowingRepo: borrowingRepo,
		validator:     validator,
	}
}

// GetBookByIsbn finds a book by exact ISBN
func (s *SoapService) GetBookByIsbn(ctx context.Context, isbn string) (*domain.Book, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		log.Printf("❌ SOAP GetBookByIsbn %s: %v", isbn, err)
		return nil, err
	}
	isbn = strings.TrimSpace(isbn)
	for i := range books.Items {
		if books.Items[i].ISBN == isbn {
			return &books.Items[i], nil
		}
	}
	return nil, domain.ErrBookNotFound
}

// GetMemberByID finds a member by id
func (s *SoapService) GetMemberByID(ctx context.Context, id int) (*domain.Member, error) {
	return s.memberRepo.GetByID(ctx, id)
}

// GetBorrowingDetails finds a borrowing by id
func (s *SoapService) GetBorrowingDetails(ctx context.Context, id int) (*domain.Borrowing, error) {
	return s.borrowingRepo.GetByID(ctx, id)
}

// ValidateBookXML validates a books document against the book schema.
// A document that fails validation yields false with no error.
func (s *SoapService) ValidateBookXML(xmlText string) (bool, []domain.Issue, error) {
	ok, err := s.validator.Validate(xmlText, xmlschema.Books)
	if err == nil {
		return ok, nil, nil
	}
	if ve, isValidation := asValidationError(err); isValidation {
		return false, ve.Issues, nil
	}
	return false, nil, err
}
