package handlers

import (
	"bytes"
	"encoding/xml"
	"errors"
	"log"
	"strconv"
	"strings"

	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/response"

	"github.com/antchfx/xmlquery"
	"github.com/gofiber/fiber/v2"
)

// SOAP 1.1 namespaces
const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	soapServiceNS  = "http://tempuri.org/"
)

// SOAP operations
const (
	opGetBookByIsbn       = "GetBookByIsbn"
	opGetMemberByID       = "GetMemberById"
	opGetBorrowingDetails = "GetBorrowingDetails"
	opValidateBookXML     = "ValidateBookXml"
)

// SoapHandler serves the SOAP endpoint
type SoapHandler struct {
	soapService *services.SoapService
}

// NewSoapHandler creates a new SOAP handler
func NewSoapHandler(soapService *services.SoapService) *SoapHandler {
	return &SoapHandler{soapService: soapService}
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Content interface{}
	Fault   *soapFault `xml:"soap:Fault,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type getBookByIsbnResponse struct {
	XMLName xml.Name     `xml:"GetBookByIsbnResponse"`
	NS      string       `xml:"xmlns,attr"`
	Result  *domain.Book `xml:"GetBookByIsbnResult,omitempty"`
}

type getMemberByIDResponse struct {
	XMLName xml.Name       `xml:"GetMemberByIdResponse"`
	NS      string         `xml:"xmlns,attr"`
	Result  *domain.Member `xml:"GetMemberByIdResult,omitempty"`
}

type getBorrowingDetailsResponse struct {
	XMLName xml.Name          `xml:"GetBorrowingDetailsResponse"`
	NS      string            `xml:"xmlns,attr"`
	Result  *domain.Borrowing `xml:"GetBorrowingDetailsResult,omitempty"`
}

type validateBookXMLResponse struct {
	XMLName xml.Name `xml:"ValidateBookXmlResponse"`
	NS      string   `xml:"xmlns,attr"`
	Result  bool     `xml:"ValidateBookXmlResult"`
	Issues  []string `xml:"Issues>Issue,omitempty"`
}

// Handle dispatches a SOAP 1.1 request to the named operation
// @Summary SOAP endpoint
// @Description SOAP 1.1 operations GetBookByIsbn, GetMemberById, GetBorrowingDetails and ValidateBookXml. A missing record yields an empty result.
// @Tags SOAP
// @Accept xml
// @Produce xml
// @Param body body string true "SOAP envelope"
// @Success 200 {string} string "SOAP response"
// @Failure 500 {string} string "SOAP fault"
// @Router /soap [post]
func (h *SoapHandler) Handle(c *fiber.Ctx) error {
	op, err := parseSoapRequest(c.Body())
	if err != nil {
		return h.fault(c, "soap:Client", err.Error())
	}

	ctx := c.Context()
	var content interface{}

	switch op.Data {
	case opGetBookByIsbn:
		resp := &getBookByIsbnResponse{NS: soapServiceNS}
		book, err := h.soapService.GetBookByIsbn(ctx, soapParam(op, "isbn"))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return h.fault(c, "soap:Server", "Error retrieving book: "+err.Error())
		}
		resp.Result = book
		content = resp

	case opGetMemberByID:
		id, err := strconv.Atoi(soapParam(op, "id"))
		if err != nil {
			return h.fault(c, "soap:Client", "id must be an integer")
		}
		resp := &getMemberByIDResponse{NS: soapServiceNS}
		member, err := h.soapService.GetMemberByID(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return h.fault(c, "soap:Server", "Error retrieving member: "+err.Error())
		}
		resp.Result = member
		content = resp

	case opGetBorrowingDetails:
		id, err := strconv.Atoi(soapParam(op, "id"))
		if err != nil {
			return h.fault(c, "soap:Client", "id must be an integer")
		}
		resp := &getBorrowingDetailsResponse{NS: soapServiceNS}
		borrowing, err := h.soapService.GetBorrowingDetails(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return h.fault(c, "soap:Server", "Error retrieving borrowing: "+err.Error())
		}
		resp.Result = borrowing
		content = resp

	case opValidateBookXML:
		valid, issues, err := h.soapService.ValidateBookXML(soapParam(op, "xmlContent"))
		if err != nil {
			return h.fault(c, "soap:Server", "Validation error: "+err.Error())
		}
		resp := &validateBookXMLResponse{NS: soapServiceNS, Result: valid}
		for _, is := range issues {
			resp.Issues = append(resp.Issues, is.String())
		}
		content = resp

	default:
		return h.fault(c, "soap:Client", "Unknown operation: "+op.Data)
	}

	return h.send(c, fiber.StatusOK, soapBody{Content: content})
}

func (h *SoapHandler) fault(c *fiber.Ctx, code, message string) error {
	log.Printf("⚠️ SOAP fault %s: %s", code, message)
	return h.send(c, fiber.StatusInternalServerError, soapBody{Fault: &soapFault{Code: code, String: message}})
}

func (h *SoapHandler) send(c *fiber.Ctx, status int, body soapBody) error {
	out, err := xml.MarshalIndent(soapEnvelope{SoapNS: soapEnvelopeNS, Body: body}, "", "  ")
	if err != nil {
		return response.InternalServerError(c, "Failed to encode SOAP response")
	}
	return response.XML(c, status, xml.Header+string(out))
}

// parseSoapRequest returns the operation element inside the envelope body
func parseSoapRequest(body []byte) (*xmlquery.Node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty request")
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.New("malformed envelope: " + err.Error())
	}

	envBody := xmlquery.FindOne(doc, "/*[local-name()='Envelope']/*[local-name()='Body']")
	if envBody == nil {
		return nil, errors.New("missing SOAP envelope body")
	}
	for n := envBody.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n, nil
		}
	}
	return nil, errors.New("missing operation")
}

// soapParam reads a parameter of op by local name
func soapParam(op *xmlquery.Node, name string) string {
	for n := op.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode && n.Data == name {
			return strings.TrimSpace(n.InnerText())
		}
	}
	return ""
}
