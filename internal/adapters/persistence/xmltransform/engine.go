// Package xmltransform renders documents to HTML with XSLT and answers XPath queries.
package xmltransform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/metrics"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	xslt "github.com/wamuir/go-xslt"
)

// Stylesheets shipped under Data/Transforms
const (
	BooksStylesheet  = "books-to-html.xslt"
	ReportStylesheet = "library-report.xslt"
)

// Engine applies stylesheets from one directory and evaluates XPath
type Engine struct {
	transformsDir string
	validator     *xmlschema.Validator
}

// New creates a new engine
func New(transformsDir string, validator *xmlschema.Validator) *Engine {
	return &Engine{transformsDir: transformsDir, validator: validator}
}

type transformResult struct {
	out []byte
	err error
}

// TransformToHTML applies stylesheetName to xmlText.
// The stylesheet is read on every call. ctx bounds how long the caller waits.
func (e *Engine) TransformToHTML(ctx context.Context, xmlText, stylesheetName string) (string, error) {
	if strings.TrimSpace(xmlText) == "" {
		return "", &domain.ArgumentError{Name: "xml", Reason: "empty document"}
	}
	if strings.TrimSpace(stylesheetName) == "" || strings.ContainsAny(stylesheetName, `/\`) || strings.Contains(stylesheetName, "..") {
		return "", &domain.ArgumentError{Name: "stylesheet", Reason: fmt.Sprintf("%q is not a stylesheet name", stylesheetName)}
	}

	fail := func(err error) (string, error) {
		metrics.Transforms.WithLabelValues(stylesheetName, metrics.ResultError).Inc()
		return "", &domain.TransformError{Stylesheet: stylesheetName, Err: err}
	}

	path := filepath.Join(e.transformsDir, stylesheetName)
	style, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fail(fmt.Errorf("stylesheet not found: %s", path))
	}
	if err != nil {
		return fail(err)
	}

	if _, err := parseDocument(xmlText); err != nil {
		return fail(fmt.Errorf("source document: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	start := time.Now()
	done := make(chan transformResult, 1)
	go func() {
		xs, err := xslt.NewStylesheet(style)
		if err != nil {
			done <- transformResult{err: fmt.Errorf("compile stylesheet: %w", err)}
			return
		}
		defer xs.Close()

		out, err := xs.Transform([]byte(xmlText))
		done <- transformResult{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("⚠️ Transform %s abandoned: %v", stylesheetName, ctx.Err())
		return fail(ctx.Err())
	case r := <-done:
		metrics.TransformDuration.WithLabelValues(stylesheetName).Observe(time.Since(start).Seconds())
		if r.err != nil {
			return fail(r.err)
		}
		metrics.Transforms.WithLabelValues(stylesheetName, metrics.ResultOK).Inc()
		return string(r.out), nil
	}
}

// QueryXPath evaluates expression against a fresh parse of xmlText and returns
// the string value of each matching node in document order. Expressions that
// yield a number, string or boolean return that single value.
func (e *Engine) QueryXPath(xmlText, expression string) ([]string, error) {
	if strings.TrimSpace(xmlText) == "" {
		return nil, &domain.ArgumentError{Name: "xml", Reason: "empty document"}
	}
	if strings.TrimSpace(expression) == "" {
		return nil, &domain.ArgumentError{Name: "expression", Reason: "empty"}
	}

	expr, err := xpath.Compile(expression)
	if err != nil {
		return nil, &domain.QueryError{Expression: expression, Err: err}
	}

	doc, err := parseDocument(xmlText)
	if err != nil {
		return nil, &domain.QueryError{Expression: expression, Err: err}
	}

	results := make([]string, 0)
	switch v := expr.Evaluate(xmlquery.CreateXPathNavigator(doc)).(type) {
	case *xpath.NodeIterator:
		for v.MoveNext() {
			results = append(results, v.Current().Value())
		}
	case float64:
		results = append(results, strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		results = append(results, strconv.FormatBool(v))
	case string:
		results = append(results, v)
	}
	return results, nil
}

// parseDocument parses xmlText and rejects what xmlquery tolerates but is not
// well-formed: zero or several root elements, or text outside the root.
func parseDocument(xmlText string) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(xmlText))
	if err != nil {
		return nil, err
	}
	roots := 0
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.ElementNode:
			roots++
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, errors.New("text outside the root element")
			}
		}
	}
	if roots != 1 {
		return nil, fmt.Errorf("document has %d root elements, want 1", roots)
	}
	return doc, nil
}

// ValidateWithDTD reports whether xmlText is valid against dtdName.
// Unlike Validator.ValidateWithDTD it never returns an error: failures are logged and yield false.
func (e *Engine) ValidateWithDTD(xmlText, dtdName string) bool {
	if e.validator == nil {
		log.Printf("⚠️ DTD validation skipped: no validator")
		return false
	}
	ok, err := e.validator.ValidateWithDTD(xmlText, dtdName)
	if err != nil {
		log.Printf("⚠️ DTD validation of %s failed: %v", dtdName, err)
		return false
	}
	return ok
}

// BooksByAuthor returns titles written by author
func (e *Engine) BooksByAuthor(xmlText, author string) ([]string, error) {
	return e.QueryXPath(xmlText, "//Book[Author="+Literal(author)+"]/Title")
}

// BooksByGenre returns titles in genre
func (e *Engine) BooksByGenre(xmlText, genre string) ([]string, error) {
	return e.QueryXPath(xmlText, "//Book[Genre="+Literal(genre)+"]/Title")
}

// AvailableBooks returns titles with at least one copy on the shelf
func (e *Engine) AvailableBooks(xmlText string) ([]string, error) {
	return e.QueryXPath(xmlText, "//Book[AvailableCopies > 0]/Title")
}

// OutOfStockBooks returns titles with every copy lent out
func (e *Engine) OutOfStockBooks(xmlText string) ([]string, error) {
	return e.QueryXPath(xmlText, "//Book[AvailableCopies = 0]/Title")
}

// Literal quotes s as an XPath 1.0 string literal
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
