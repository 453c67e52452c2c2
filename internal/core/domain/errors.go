package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// XML layer errors. The typed errors below unwrap to these.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation failed")
	ErrMalformedDocument = errors.New("malformed document")
	ErrTransform         = errors.New("transform failed")
	ErrQuery             = errors.New("query failed")
	ErrArgument          = errors.New("invalid argument")
)

// Library errors
var (
	ErrBookNotFound              = fmt.Errorf("book %w", ErrNotFound)
	ErrMemberNotFound            = fmt.Errorf("member %w", ErrNotFound)
	ErrBorrowingNotFound         = fmt.Errorf("borrowing %w", ErrNotFound)
	ErrUserNotFound              = fmt.Errorf("user %w", ErrNotFound)
	ErrBookUnavailable           = errors.New("book has no available copies")
	ErrAlreadyReturned           = errors.New("borrowing already returned")
	ErrMemberHasActiveBorrowings = errors.New("member has active borrowings")
	ErrUserAlreadyExists         = errors.New("user already exists")
)

// Issue is a single validation finding
type Issue struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (i Issue) String() string {
	switch {
	case i.Line > 0 && i.Column > 0:
		return fmt.Sprintf("line %d, column %d: %s", i.Line, i.Column, i.Message)
	case i.Line > 0:
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// ValidationError carries every violation found in one document
type ValidationError struct {
	Schema string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := e.Messages()
	if len(msgs) == 0 {
		return fmt.Sprintf("validation failed for %s", e.Schema)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Schema, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Messages renders each issue with its position
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		out = append(out, is.String())
	}
	return out
}

// ConfigurationError reports a missing or unusable schema, DTD or stylesheet
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// MalformedDocumentError reports XML that does not decode into the expected collection
type MalformedDocumentError struct {
	Root string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed %s document: %v", e.Root, e.Err)
}

func (e *MalformedDocumentError) Unwrap() []error { return []error{ErrMalformedDocument, e.Err} }

// TransformError reports an XSLT failure
type TransformError struct {
	Stylesheet string
	Err        error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed: %v", e.Stylesheet, e.Err)
}

func (e *TransformError) Unwrap() []error { return []error{ErrTransform, e.Err} }

// QueryError reports an invalid XPath expression or document
type QueryError struct {
	Expression string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("xpath %q failed: %v", e.Expression, e.Err)
}

func (e *QueryError) Unwrap() []error { return []error{ErrQuery, e.Err} }

// ArgumentError reports an empty or unsafe input
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrArgument }
