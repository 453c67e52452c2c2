package services

import (
	"fmt"
	"strings"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmltransform"
	"xmllibrary/internal/core/domain"
)

// Validation modes
const (
	ModeXSD = "xsd"
	ModeDTD = "dtd"
)

// XMLService validates and queries documents supplied by the caller
type XMLService struct {
	validator *xmlschema.Validator
	engine    *xmltransform.Engine
}

// NewXMLService creates a new XML service
func NewXMLService(validator *xmlschema.Validator, engine *xmltransform.Engine) *XMLService {
	return &XMLService{validator: validator, engine: engine}
}

// Validate checks xmlText against the named schema (mode xsd, the default)
// or DTD (mode dtd). Failures come back as *domain.ValidationError.
func (s *XMLService) Validate(xmlText, schema, mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeXSD:
		return s.validator.Validate(xmlText, schema)
	case ModeDTD:
		return s.validator.ValidateWithDTD(xmlText, schema)
	}
	return false, &domain.ArgumentError{Name: "mode", Reason: fmt.Sprintf("%q is not xsd or dtd", mode)}
}

// QueryXPath evaluates expression against xmlText
func (s *XMLService) QueryXPath(xmlText, expression string) ([]string, error) {
	return s.engine.QueryXPath(xmlText, expression)
}

// Schemas lists the names accepted by Validate
func (s *XMLService) Schemas() []string {
	return s.validator.Registry().Names()
}
