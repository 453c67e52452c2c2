package handlers

import (
	"errors"

	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	g "github.com/reoring/goskema/dsl"
)

// XMLHandler validates and queries caller-supplied documents
type XMLHandler struct {
	xmlService *services.XMLService
}

// NewXMLHandler creates a new XML handler
func NewXMLHandler(xmlService *services.XMLService) *XMLHandler {
	return &XMLHandler{xmlService: xmlService}
}

// ValidateRequest represents a validation request body
type ValidateRequest struct {
	XML    string `json:"xml"`
	Schema string `json:"schema"`
	Mode   string `json:"mode"`
}

// XPathRequest represents an XPath request body
type XPathRequest struct {
	XML        string `json:"xml"`
	Expression string `json:"expression"`
}

var (
	validateSchema = g.ObjectOf[ValidateRequest]().
			Field("xml", g.StringOf[string]()).Required().
			Field("schema", g.StringOf[string]()).Required().
			Field("mode", g.StringOf[string]()).Optional().
			UnknownStrict().
			MustBind()

	xpathSchema = g.ObjectOf[XPathRequest]().
			Field("xml", g.StringOf[string]()).Required().
			Field("expression", g.StringOf[string]()).Required().
			UnknownStrict().
			MustBind()
)

// Validate handles schema or DTD validation
// @Summary Validate a document
// @Description mode is xsd (default) or dtd. Schema names are Books, Members and Borrowings.
// @Tags XML
// @Accept json
// @Produce json
// @Param body body ValidateRequest true "Document"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /xml/validate [post]
func (h *XMLHandler) Validate(c *fiber.Ctx) error {
	req, ok, err := parseBody(c, validateSchema)
	if !ok {
		return err
	}

	valid, err := h.xmlService.Validate(req.XML, req.Schema, req.Mode)
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return response.Success(c, "Document is invalid", fiber.Map{
			"isValid": false,
			"schema":  ve.Schema,
			"issues":  ve.Issues,
		})
	}
	if err != nil {
		return respondError(c, err, "Failed to validate document")
	}

	return response.Success(c, "Document is valid", fiber.Map{
		"isValid": valid,
		"schema":  req.Schema,
		"issues":  []domain.Issue{},
	})
}

// XPath handles querying a supplied document
// @Summary XPath over a document
// @Tags XML
// @Accept json
// @Produce json
// @Param body body XPathRequest true "Document and expression"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /xml/xpath [post]
func (h *XMLHandler) XPath(c *fiber.Ctx) error {
	req, ok, err := parseBody(c, xpathSchema)
	if !ok {
		return err
	}

	results, err := h.xmlService.QueryXPath(req.XML, req.Expression)
	if err != nil {
		return respondError(c, err, "Failed to run query")
	}
	return response.Success(c, "Query executed successfully", fiber.Map{
		"expression": req.Expression,
		"results":    results,
	})
}

// Schemas handles listing schema names
// @Summary List schemas
// @Tags XML
// @Produce json
// @Success 200 {object} response.Response
// @Router /xml/schemas [get]
func (h *XMLHandler) Schemas(c *fiber.Ctx) error {
	return response.Success(c, "Schemas retrieved successfully", h.xmlService.Schemas())
}
