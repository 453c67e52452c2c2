package handlers

import (
	"errors"
	"log"

	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// respondError maps storage and domain errors to a response.
// fallback is the message sent for unexpected failures.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return response.Invalid(c, "Validation failed for "+ve.Schema, ve.Issues)
	}

	switch {
	case errors.Is(err, domain.ErrBookNotFound):
		return response.NotFound(c, "Book not found")
	case errors.Is(err, domain.ErrMemberNotFound):
		return response.NotFound(c, "Member not found")
	case errors.Is(err, domain.ErrBorrowingNotFound):
		return response.NotFound(c, "Borrowing not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Resource not found")

	case errors.Is(err, domain.ErrBookUnavailable):
		return response.BadRequest(c, "Book is not available")
	case errors.Is(err, domain.ErrAlreadyReturned):
		return response.Conflict(c, "Book already returned")
	case errors.Is(err, domain.ErrMemberHasActiveBorrowings):
		return response.Conflict(c, "Cannot delete member with active borrowings")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return response.Conflict(c, "Username already exists")

	case errors.Is(err, domain.ErrMalformedDocument),
		errors.Is(err, domain.ErrArgument),
		errors.Is(err, domain.ErrQuery),
		errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	}

	log.Printf("❌ %s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}
