package xmlschema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"xmllibrary/internal/adapters/persistence/codec"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/metrics"

	"github.com/antchfx/xmlquery"
	"github.com/lestrrat-go/libxml2"
	"github.com/lestrrat-go/libxml2/xsd"
)

const (
	modeXSD = "xsd"
	modeDTD = "dtd"
)

var (
	xmlDeclRe  = regexp.MustCompile(`^\s*<\?xml[^?]*\?>`)
	docTypeRe  = regexp.MustCompile(`(?s)^\s*<!DOCTYPE[^\[>]*(\[.*?\]\s*)?>`)
	positionRe = regexp.MustCompile(`(?i)line (\d+)(?:,?\s*col(?:umn)?\s*(\d+))?`)
)

// Validator checks documents against the registry.
// Every violation in the document is collected; success is (true, nil) and
// any failure is a *domain.ValidationError, never (false, nil).
type Validator struct {
	registry *Registry
}

// NewValidator creates a new validator
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Registry returns the registry backing this validator
func (v *Validator) Registry() *Registry {
	return v.registry
}

// Validate checks xmlText against the XSD and embedded rules of schemaName
func (v *Validator) Validate(xmlText, schemaName string) (bool, error) {
	if strings.TrimSpace(xmlText) == "" {
		return v.fail(schemaName, modeXSD, domain.Issue{Message: "document is empty"})
	}

	s, ok := v.registry.Schema(schemaName)
	if !ok {
		return v.fail(schemaName, modeXSD, domain.Issue{Message: fmt.Sprintf("no schema registered for %q", schemaName)})
	}

	doc, err := parseWithLines(xmlText)
	if err != nil {
		return v.fail(schemaName, modeXSD, syntaxIssue(err))
	}

	issues := s.validate(xmlText, doc)
	if len(issues) > 0 {
		return v.fail(schemaName, modeXSD, issues...)
	}

	metrics.Validations.WithLabelValues(schemaName, modeXSD, metrics.ResultValid).Inc()
	return true, nil
}

// ValidateCollection encodes c and validates the result against schemaName
func (v *Validator) ValidateCollection(c domain.Collection, schemaName string) error {
	text, err := codec.Encode(c)
	if err != nil {
		return err
	}
	_, err = v.Validate(text, schemaName)
	return err
}

// ValidateWithDTD wraps xmlText in <!DOCTYPE dtdName [ dtd ]> and checks it
// against the declarations. Any XML declaration or DOCTYPE already present is replaced.
func (v *Validator) ValidateWithDTD(xmlText, dtdName string) (bool, error) {
	if strings.TrimSpace(xmlText) == "" {
		return v.fail(dtdName, modeDTD, domain.Issue{Message: "document is empty"})
	}

	d, ok := v.registry.DTD(dtdName)
	if !ok {
		return v.fail(dtdName, modeDTD, domain.Issue{Message: fmt.Sprintf("no DTD registered for %q", dtdName)})
	}

	wrapped, offset := wrapWithDocType(xmlText, dtdName, d.Text)
	doc, err := parseWithLines(wrapped)
	if err != nil {
		is := syntaxIssue(err)
		if is.Line > offset {
			is.Line -= offset
		}
		return v.fail(dtdName, modeDTD, is)
	}

	if issues := d.decl.check(doc, dtdName, offset); len(issues) > 0 {
		return v.fail(dtdName, modeDTD, issues...)
	}

	metrics.Validations.WithLabelValues(dtdName, modeDTD, metrics.ResultValid).Inc()
	return true, nil
}

func (v *Validator) fail(name, mode string, issues ...domain.Issue) (bool, error) {
	metrics.Validations.WithLabelValues(name, mode, metrics.ResultInvalid).Inc()
	log.Printf("⚠️ %s validation failed for %s: %d issue(s)", strings.ToUpper(mode), name, len(issues))
	return false, &domain.ValidationError{Schema: name, Issues: issues}
}

func (s *Schema) validate(xmlText string, doc *xmlquery.Node) []domain.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xsd == nil {
		return []domain.Issue{{Message: fmt.Sprintf("schema %s is closed", s.Name)}}
	}

	var issues []domain.Issue

	parsed, err := libxml2.ParseString(xmlText)
	if err != nil {
		return []domain.Issue{messageIssue(err.Error())}
	}
	defer parsed.Free()

	if err := s.xsd.Validate(parsed); err != nil {
		var sve xsd.SchemaValidationError
		if errors.As(err, &sve) {
			for _, e := range sve.Errors() {
				issues = append(issues, messageIssue(e.Error()))
			}
		} else {
			issues = append(issues, messageIssue(err.Error()))
		}
	}

	return append(issues, checkRules(s.Rules, doc)...)
}

func parseWithLines(text string) (*xmlquery.Node, error) {
	return xmlquery.ParseWithOptions(strings.NewReader(text), xmlquery.ParserOptions{WithLineNumbers: true})
}

// wrapWithDocType returns the wrapped text and how many lines the wrapper shifted the body down by
func wrapWithDocType(xmlText, root, dtd string) (string, int) {
	body := xmlDeclRe.ReplaceAllString(xmlText, "")
	body = docTypeRe.ReplaceAllString(body, "")
	removed := len(xmlText) - len(body)

	prefix := fmt.Sprintf("<!DOCTYPE %s [\n%s\n]>\n", root, strings.TrimSpace(dtd))
	offset := strings.Count(prefix, "\n") - strings.Count(xmlText[:removed], "\n")
	return prefix + strings.TrimLeft(body, " \t"), offset
}

func syntaxIssue(err error) domain.Issue {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return domain.Issue{Message: se.Msg, Line: se.Line}
	}
	return messageIssue(err.Error())
}

func messageIssue(msg string) domain.Issue {
	msg = strings.TrimSpace(msg)
	is := domain.Issue{Message: msg}
	if m := positionRe.FindStringSubmatch(msg); m != nil {
		is.Line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			is.Column, _ = strconv.Atoi(m[2])
		}
	}
	return is
}
