package handlers

import (
	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BorrowingHandler handles loan endpoints
type BorrowingHandler struct {
	borrowingService *services.BorrowingService
}

// NewBorrowingHandler creates a new borrowing handler
func NewBorrowingHandler(borrowingService *services.BorrowingService) *BorrowingHandler {
	return &BorrowingHandler{borrowingService: borrowingService}
}

// List handles listing borrowings
// @Summary List borrowings
// @Tags Borrowings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /borrowings [get]
func (h *BorrowingHandler) List(c *fiber.Ctx) error {
	details, err := h.borrowingService.List(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list borrowings")
	}
	return response.Success(c, "Borrowings retrieved successfully",
		models.ToBorrowingResponses(details, h.borrowingService.Today()))
}

// Get handles getting a borrowing by ID
// @Summary Get borrowing
// @Tags Borrowings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Borrowing ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /borrowings/{id} [get]
func (h *BorrowingHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid borrowing ID")
	}

	details, err := h.borrowingService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get borrowing")
	}
	return response.Success(c, "Borrowing retrieved successfully",
		models.ToBorrowingResponse(details, h.borrowingService.Today()))
}

// Create handles lending a book
// @Summary Borrow a book
// @Description Takes one copy off the shelf; due in the configured loan period
// @Tags Borrowings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BorrowingInput true "Book and member"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /borrowings [post]
func (h *BorrowingHandler) Create(c *fiber.Ctx) error {
	input, ok, err := parseBody(c, borrowingSchema)
	if !ok {
		return err
	}

	borrowing, err := h.borrowingService.Create(c.Context(), &input)
	if err != nil {
		return respondError(c, err, "Failed to create borrowing")
	}
	return response.Created(c, "Book borrowed successfully", borrowing)
}

// Return handles closing a loan
// @Summary Return a book
// @Tags Borrowings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Borrowing ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /borrowings/{id}/return [put]
func (h *BorrowingHandler) Return(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid borrowing ID")
	}

	borrowing, err := h.borrowingService.Return(c.Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to return book")
	}
	return response.Success(c, "Book returned successfully", borrowing)
}

// Overdue handles listing overdue loans
// @Summary Overdue borrowings
// @Description Marks loans past their due date as Overdue, then lists every overdue loan
// @Tags Borrowings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /borrowings/overdue [get]
func (h *BorrowingHandler) Overdue(c *fiber.Ctx) error {
	details, err := h.borrowingService.Overdue(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list overdue borrowings")
	}
	return response.Success(c, "Overdue borrowings retrieved successfully", fiber.Map{
		"count":      len(details),
		"borrowings": models.ToBorrowingResponses(details, h.borrowingService.Today()),
		"asOf":       h.borrowingService.Today(),
	})
}
