// Package xmlschema loads the XSD schemas and DTDs under the data root and
// validates documents against them.
package xmlschema

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"xmllibrary/internal/core/domain"

	"github.com/lestrrat-go/libxml2/xsd"
)

// Logical names shared by schemas and DTDs
const (
	Books      = "Books"
	Members    = "Members"
	Borrowings = "Borrowings"
)

// SchemaFiles maps each logical name to its file under the schemas directory
var SchemaFiles = map[string]string{
	Books:      "bookschema.xsd",
	Members:    "memberschema.xsd",
	Borrowings: "borrowingschema.xsd",
}

// DTDFiles maps each logical name to its file under the DTD directory
var DTDFiles = map[string]string{
	Books:      "books.dtd",
	Members:    "members.dtd",
	Borrowings: "borrowings.dtd",
}

// Schema is a compiled XSD plus the rules embedded in its appinfo
type Schema struct {
	Name  string
	Path  string
	Rules []Rule

	mu  sync.Mutex
	xsd *xsd.Schema
}

// DTD is the raw declaration text and its parsed form
type DTD struct {
	Name string
	Path string
	Text string

	decl *dtdDecl
}

// Registry holds every schema and DTD, loaded once at startup
type Registry struct {
	schemas map[string]*Schema
	dtds    map[string]*DTD
}

// NewRegistry loads every file in SchemaFiles and DTDFiles.
// Any missing or unparsable file aborts construction with a ConfigurationError.
func NewRegistry(schemaDir, dtdDir string) (*Registry, error) {
	r := &Registry{
		schemas: make(map[string]*Schema, len(SchemaFiles)),
		dtds:    make(map[string]*DTD, len(DTDFiles)),
	}

	for _, name := range sortedKeys(SchemaFiles) {
		s, err := loadSchema(name, filepath.Join(schemaDir, SchemaFiles[name]))
		if err != nil {
			r.Close()
			return nil, err
		}
		r.schemas[name] = s
		log.Printf("✅ Schema loaded: %s (%d rules)", name, len(s.Rules))
	}

	for _, name := range sortedKeys(DTDFiles) {
		d, err := loadDTD(name, filepath.Join(dtdDir, DTDFiles[name]))
		if err != nil {
			r.Close()
			return nil, err
		}
		r.dtds[name] = d
		log.Printf("✅ DTD loaded: %s", name)
	}

	return r, nil
}

// Schema returns the schema registered under name
func (r *Registry) Schema(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// DTD returns the DTD registered under name
func (r *Registry) DTD(name string) (*DTD, bool) {
	d, ok := r.dtds[name]
	return d, ok
}

// Names lists registered schema names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close frees the compiled schemas
func (r *Registry) Close() {
	for _, s := range r.schemas {
		s.mu.Lock()
		if s.xsd != nil {
			s.xsd.Free()
			s.xsd = nil
		}
		s.mu.Unlock()
	}
}

func loadSchema(name, path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}

	compiled, err := xsd.Parse(buf)
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: fmt.Errorf("parse schema: %w", err)}
	}

	rules, err := parseRules(buf)
	if err != nil {
		compiled.Free()
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}

	return &Schema{Name: name, Path: path, Rules: rules, xsd: compiled}, nil
}

func loadDTD(name, path string) (*DTD, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}
	if len(buf) == 0 {
		return nil, &domain.ConfigurationError{Path: path, Err: errors.New("empty DTD")}
	}

	decl, err := parseDTD(string(buf))
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}

	return &DTD{Name: name, Path: path, Text: string(buf), decl: decl}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
