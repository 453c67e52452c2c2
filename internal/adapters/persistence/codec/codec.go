// Package codec converts record collections to and from their XML documents.
//
// A document has the collection name as root element and one child element per
// record. The record id is an attribute; every other field is a child element in
// declaration order. Decode rejects documents whose root or direct children do
// not match the target collection.
package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"xmllibrary/internal/core/domain"
)

const indent = "  "

// Encode renders c as an indented XML document with declaration
func Encode(c domain.Collection) (string, error) {
	if c == nil {
		return "", &domain.ArgumentError{Name: "collection", Reason: "nil"}
	}

	text, err := Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.RootElement(), err)
	}
	return text, nil
}

// Marshal renders any encoding/xml value as an indented document with declaration.
// Read models such as the library report go through here.
func Marshal(v interface{}) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", indent)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// Decode parses xmlText into c
func Decode(xmlText string, c domain.Collection) error {
	if c == nil {
		return &domain.ArgumentError{Name: "collection", Reason: "nil"}
	}
	if strings.TrimSpace(xmlText) == "" {
		return &domain.ArgumentError{Name: "xml", Reason: "empty document"}
	}

	if err := CheckShape(xmlText, c.RootElement(), c.RecordElement()); err != nil {
		return err
	}

	if err := xml.Unmarshal([]byte(xmlText), c); err != nil {
		return &domain.MalformedDocumentError{Root: c.RootElement(), Err: err}
	}
	return nil
}

// CheckShape verifies well-formedness, the root element name and that every
// direct child of the root is a record element.
func CheckShape(xmlText, root, record string) error {
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	depth := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &domain.MalformedDocumentError{Root: root, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if sawRoot {
					return &domain.MalformedDocumentError{Root: root, Err: errors.New("multiple root elements")}
				}
				sawRoot = true
				if t.Name.Local != root {
					return &domain.MalformedDocumentError{
						Root: root,
						Err:  fmt.Errorf("root element is <%s>, want <%s>", t.Name.Local, root),
					}
				}
			case 2:
				if t.Name.Local != record {
					return &domain.MalformedDocumentError{
						Root: root,
						Err:  fmt.Errorf("unexpected element <%s> under <%s>", t.Name.Local, root),
					}
				}
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 && len(bytes.TrimSpace(t)) > 0 {
				return &domain.MalformedDocumentError{
					Root: root,
					Err:  fmt.Errorf("unexpected text under <%s>", root),
				}
			}
		}
	}

	if !sawRoot {
		return &domain.MalformedDocumentError{Root: root, Err: errors.New("no root element")}
	}
	return nil
}
