package handlers

import (
	"strconv"
	"strings"

	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/pagination"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalogue endpoints
type BookHandler struct {
	bookService   *services.BookService
	reportService *services.ReportService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService, reportService *services.ReportService) *BookHandler {
	return &BookHandler{
		bookService:   bookService,
		reportService: reportService,
	}
}

// List handles listing books
// @Summary List books
// @Description Every book in file order. Pass page or limit to get one page.
// @Tags Books
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	books, err := h.bookService.List(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list books")
	}

	items := models.ToBookResponses(books)
	if pagination.Requested(c) {
		params := pagination.GetParams(c)
		return response.Success(c, "Books retrieved successfully",
			pagination.NewResponse(pagination.Slice(items, params), params, int64(len(items))))
	}
	return response.Success(c, "Books retrieved successfully", items)
}

// Get handles getting a book by ID
// @Summary Get book
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get book")
	}
	return response.Success(c, "Book retrieved successfully", models.ToBookResponse(book))
}

// Create handles adding a book
// @Summary Create book
// @Description Copy counts are clamped so that 0 <= availableCopies <= totalCopies and totalCopies >= 1
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookInput true "Book"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	input, ok, err := parseBody(c, bookSchema)
	if !ok {
		return err
	}

	book, err := h.bookService.Create(c.Context(), &input)
	if err != nil {
		return respondError(c, err, "Failed to create book")
	}
	return response.Created(c, "Book created successfully", models.ToBookResponse(book))
}

// Update handles replacing a book
// @Summary Update book
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.BookInput true "Book"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}
	input, ok, err := parseBody(c, bookSchema)
	if !ok {
		return err
	}

	book, err := h.bookService.Update(c.Context(), id, &input)
	if err != nil {
		return respondError(c, err, "Failed to update book")
	}
	return response.Success(c, "Book updated successfully", models.ToBookResponse(book))
}

// Delete handles removing a book
// @Summary Delete book
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.bookService.Delete(c.Context(), id); err != nil {
		return respondError(c, err, "Failed to delete book")
	}
	return response.Success(c, "Book deleted successfully", nil)
}

// Search handles filtering the catalogue
// @Summary Search books
// @Description Case-insensitive substring match on every given field
// @Tags Books
// @Produce json
// @Param title query string false "Title"
// @Param author query string false "Author"
// @Param isbn query string false "ISBN"
// @Param publisher query string false "Publisher"
// @Param genre query string false "Genre"
// @Param available query bool false "Only books with (true) or without (false) copies on the shelf"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /books/search [get]
func (h *BookHandler) Search(c *fiber.Ctx) error {
	q := services.BookSearch{
		Title:     strings.TrimSpace(c.Query("title")),
		Author:    strings.TrimSpace(c.Query("author")),
		ISBN:      strings.TrimSpace(c.Query("isbn")),
		Publisher: strings.TrimSpace(c.Query("publisher")),
		Genre:     strings.TrimSpace(c.Query("genre")),
	}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return response.BadRequest(c, "available must be true or false")
		}
		q.Available = &available
	}

	books, err := h.bookService.Search(c.Context(), q)
	if err != nil {
		return respondError(c, err, "Failed to search books")
	}
	return response.Success(c, "Books retrieved successfully", models.ToBookResponses(books))
}

// AdvancedSearch handles the named searches
// @Summary Advanced book search
// @Description type is author, genre, available or overdue (no copies on the shelf)
// @Tags Books
// @Produce json
// @Param type query string true "Search type"
// @Param term query string false "Search term for author and genre"
// @Success 200 {object} response.Response
// @Router /books/search/advanced [get]
func (h *BookHandler) AdvancedSearch(c *fiber.Ctx) error {
	books, err := h.bookService.AdvancedSearch(c.Context(), c.Query("type"), c.Query("term"))
	if err != nil {
		return respondError(c, err, "Failed to search books")
	}
	return response.Success(c, "Books retrieved successfully", models.ToBookResponses(books))
}

// Report handles the HTML library report
// @Summary Library report
// @Tags Books
// @Produce html
// @Success 200 {string} string "HTML page"
// @Failure 500 {object} response.Response
// @Router /books/report [get]
func (h *BookHandler) Report(c *fiber.Ctx) error {
	html, err := h.reportService.HTML(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to generate report")
	}
	return response.HTML(c, html)
}

// ReportData handles the library report as JSON
// @Summary Library report data
// @Tags Books
// @Produce json
// @Success 200 {object} response.Response
// @Router /books/report/data [get]
func (h *BookHandler) ReportData(c *fiber.Ctx) error {
	report, err := h.reportService.Build(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to generate report")
	}
	return response.Success(c, "Report generated successfully", report)
}

// Transform handles rendering the catalogue as HTML
// @Summary Catalogue as HTML
// @Tags Books
// @Produce html
// @Success 200 {string} string "HTML page"
// @Failure 500 {object} response.Response
// @Router /books/transform [get]
func (h *BookHandler) Transform(c *fiber.Ctx) error {
	html, err := h.bookService.CatalogueHTML(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to transform catalogue")
	}
	return response.HTML(c, html)
}

// XML handles exporting books.xml
// @Summary Catalogue as XML
// @Tags Books
// @Produce xml
// @Success 200 {string} string "books.xml"
// @Router /books/xml [get]
func (h *BookHandler) XML(c *fiber.Ctx) error {
	text, err := h.bookService.CatalogueXML(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to export catalogue")
	}
	return response.XML(c, fiber.StatusOK, text)
}

// XPath handles querying the catalogue
// @Summary XPath over the catalogue
// @Tags Books
// @Produce json
// @Param query query string true "XPath 1.0 expression"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /books/xpath [get]
func (h *BookHandler) XPath(c *fiber.Ctx) error {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		return response.BadRequest(c, "query is required")
	}

	results, err := h.bookService.QueryXPath(c.Context(), query)
	if err != nil {
		return respondError(c, err, "Failed to run query")
	}
	return response.Success(c, "Query executed successfully", fiber.Map{
		"query":   query,
		"results": results,
	})
}

// ValidateDTD handles checking books.xml against its DTD
// @Summary Validate catalogue against the DTD
// @Tags Books
// @Produce json
// @Success 200 {object} response.Response
// @Router /books/validate-dtd [get]
func (h *BookHandler) ValidateDTD(c *fiber.Ctx) error {
	valid, err := h.bookService.ValidateDTD(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to validate catalogue")
	}
	return response.Success(c, "DTD validation completed", fiber.Map{"isValid": valid})
}
