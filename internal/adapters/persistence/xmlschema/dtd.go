package xmlschema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"xmllibrary/internal/core/domain"

	"github.com/antchfx/xmlquery"
)

// The DTD checker covers element and attribute-list declarations. Entity and
// notation declarations are accepted and ignored; parameter entities are not expanded.

type contentKind int

const (
	contentEmpty contentKind = iota
	contentAny
	contentMixed
	contentChildren
)

type elementDecl struct {
	name  string
	kind  contentKind
	spec  string
	mixed map[string]bool
	model *regexp.Regexp
}

type attrDecl struct {
	name  string
	typ   string
	enum  []string
	mode  string
	value string
}

type dtdDecl struct {
	elements map[string]*elementDecl
	attrs    map[string][]*attrDecl
}

var (
	dtdCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	dtdDeclRe    = regexp.MustCompile(`<!(ELEMENT|ATTLIST|ENTITY|NOTATION)\s+((?:[^>"']|"[^"]*"|'[^']*')*)>`)
)

func parseDTD(text string) (*dtdDecl, error) {
	d := &dtdDecl{
		elements: make(map[string]*elementDecl),
		attrs:    make(map[string][]*attrDecl),
	}

	text = dtdCommentRe.ReplaceAllString(text, "")
	for _, m := range dtdDeclRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[2])
		switch m[1] {
		case "ELEMENT":
			name, spec := splitFirst(body)
			if name == "" || spec == "" {
				return nil, fmt.Errorf("incomplete element declaration %q", body)
			}
			el, err := parseElementDecl(name, spec)
			if err != nil {
				return nil, err
			}
			if _, dup := d.elements[name]; dup {
				return nil, fmt.Errorf("element %s declared twice", name)
			}
			d.elements[name] = el
		case "ATTLIST":
			name, rest := splitFirst(body)
			defs, err := parseAttrDecls(rest)
			if err != nil {
				return nil, fmt.Errorf("attlist %s: %w", name, err)
			}
			d.attrs[name] = append(d.attrs[name], defs...)
		}
	}

	if len(d.elements) == 0 {
		return nil, errors.New("no element declarations")
	}
	return d, nil
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func parseElementDecl(name, spec string) (*elementDecl, error) {
	el := &elementDecl{name: name, spec: spec}
	switch {
	case spec == "EMPTY":
		el.kind = contentEmpty
	case spec == "ANY":
		el.kind = contentAny
	case strings.Contains(spec, "#PCDATA"):
		el.kind = contentMixed
		el.mixed = make(map[string]bool)
		inner := strings.TrimSuffix(strings.TrimSuffix(spec, "*"), ")")
		inner = strings.TrimPrefix(strings.TrimSpace(inner), "(")
		for _, part := range strings.Split(inner, "|") {
			part = strings.TrimSpace(part)
			if part != "" && part != "#PCDATA" {
				el.mixed[part] = true
			}
		}
		if len(el.mixed) > 0 && !strings.HasSuffix(spec, ")*") {
			return nil, fmt.Errorf("element %s: mixed content with children must end in )*", name)
		}
	case strings.HasPrefix(spec, "("):
		el.kind = contentChildren
		expr, err := compileModel(spec)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", name, err)
		}
		el.model, err = regexp.Compile("^" + expr + "$")
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("element %s: unsupported content spec %q", name, spec)
	}
	return el, nil
}

// compileModel turns a children content model into a regexp over a child
// sequence rendered as "name,name,...,".
func compileModel(spec string) (string, error) {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(spec); {
		c := spec[i]
		switch {
		case isSpace(rune(c)), c == ',':
			i++
		case c == '(':
			depth++
			b.WriteString("(?:")
			i++
		case c == ')':
			depth--
			if depth < 0 {
				return "", errors.New("unbalanced parentheses")
			}
			b.WriteByte(')')
			i++
		case c == '|', c == '?', c == '*', c == '+':
			b.WriteByte(c)
			i++
		default:
			j := i
			for j < len(spec) && isNameByte(spec[j]) {
				j++
			}
			if j == i {
				return "", fmt.Errorf("unexpected %q in content model", c)
			}
			b.WriteString("(?:" + regexp.QuoteMeta(spec[i:j]) + ",)")
			i = j
		}
	}
	if depth != 0 {
		return "", errors.New("unbalanced parentheses")
	}
	return b.String(), nil
}

func parseAttrDecls(body string) ([]*attrDecl, error) {
	toks, err := tokenizeAttlist(body)
	if err != nil {
		return nil, err
	}

	var out []*attrDecl
	for i := 0; i < len(toks); {
		if i+2 > len(toks) {
			return nil, fmt.Errorf("incomplete attribute definition near %q", toks[i].text)
		}
		a := &attrDecl{name: toks[i].text, typ: toks[i+1].text}
		i += 2
		if a.typ == "NOTATION" && i < len(toks) {
			a.typ = toks[i].text
			i++
		}
		if strings.HasPrefix(a.typ, "(") {
			for _, v := range strings.Split(strings.Trim(a.typ, "()"), "|") {
				a.enum = append(a.enum, strings.TrimSpace(v))
			}
		}
		if i >= len(toks) {
			return nil, fmt.Errorf("attribute %s has no default declaration", a.name)
		}
		switch toks[i].text {
		case "#REQUIRED", "#IMPLIED":
			a.mode = toks[i].text
			i++
		case "#FIXED":
			if i+1 >= len(toks) || !toks[i+1].quoted {
				return nil, fmt.Errorf("attribute %s: #FIXED needs a value", a.name)
			}
			a.mode = "#FIXED"
			a.value = toks[i+1].text
			i += 2
		default:
			if !toks[i].quoted {
				return nil, fmt.Errorf("attribute %s: bad default %q", a.name, toks[i].text)
			}
			a.value = toks[i].text
			i++
		}
		out = append(out, a)
	}
	return out, nil
}

type attlistToken struct {
	text   string
	quoted bool
}

func tokenizeAttlist(s string) ([]attlistToken, error) {
	var toks []attlistToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(rune(c)):
			i++
		case c == '"' || c == '\'':
			j := strings.IndexByte(s[i+1:], c)
			if j < 0 {
				return nil, errors.New("unterminated quoted value")
			}
			toks = append(toks, attlistToken{text: s[i+1 : i+1+j], quoted: true})
			i += j + 2
		case c == '(':
			j := strings.IndexByte(s[i:], ')')
			if j < 0 {
				return nil, errors.New("unterminated enumeration")
			}
			toks = append(toks, attlistToken{text: strings.Join(strings.Fields(s[i:i+j+1]), "")})
			i += j + 1
		default:
			j := i
			for j < len(s) && !isSpace(rune(s[j])) {
				j++
			}
			toks = append(toks, attlistToken{text: s[i:j]})
			i = j
		}
	}
	return toks, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isNameByte(c byte) bool {
	return c == '_' || c == ':' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c >= 0x80
}

// check walks every element below doc. lineOffset is subtracted from node
// lines so positions refer to the caller's text rather than the wrapped one.
func (d *dtdDecl) check(doc *xmlquery.Node, rootName string, lineOffset int) []domain.Issue {
	var issues []domain.Issue
	add := func(n *xmlquery.Node, format string, args ...interface{}) {
		line := 0
		if n != nil && n.LineNumber > lineOffset {
			line = n.LineNumber - lineOffset
		}
		issues = append(issues, domain.Issue{Message: fmt.Sprintf(format, args...), Line: line})
	}

	var root *xmlquery.Node
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			root = n
			break
		}
	}
	if root == nil {
		add(nil, "document has no root element")
		return issues
	}
	if name := qualifiedName(root); name != rootName {
		add(root, "root element <%s> does not match DOCTYPE %s", name, rootName)
	}

	ids := make(map[string]bool)
	var walk func(e *xmlquery.Node)
	walk = func(e *xmlquery.Node) {
		name := qualifiedName(e)
		decl, declared := d.elements[name]
		if !declared {
			add(e, "element <%s> is not declared", name)
		}

		var children []string
		hasText := false
		for c := e.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.ElementNode:
				children = append(children, qualifiedName(c))
			case xmlquery.TextNode, xmlquery.CharDataNode:
				if strings.TrimSpace(c.Data) != "" {
					hasText = true
				}
			}
		}

		if declared {
			switch decl.kind {
			case contentEmpty:
				if len(children) > 0 || hasText {
					add(e, "element <%s> must be empty", name)
				}
			case contentMixed:
				for _, c := range children {
					if !decl.mixed[c] {
						add(e, "element <%s> is not allowed in <%s>", c, name)
					}
				}
			case contentChildren:
				if hasText {
					add(e, "element <%s> cannot contain text", name)
				}
				seq := ""
				for _, c := range children {
					seq += c + ","
				}
				if !decl.model.MatchString(seq) {
					add(e, "content of <%s> does not match %s; found (%s)", name, decl.spec, strings.Join(children, ", "))
				}
			}
		}

		d.checkAttrs(e, name, ids, add)

		for c := e.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				walk(c)
			}
		}
	}
	walk(root)
	return issues
}

func (d *dtdDecl) checkAttrs(e *xmlquery.Node, name string, ids map[string]bool, add func(*xmlquery.Node, string, ...interface{})) {
	decls := d.attrs[name]
	present := make(map[string]string, len(e.Attr))

	for _, a := range e.Attr {
		an := a.Name.Local
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && an == "xmlns") {
			continue
		}
		if a.Name.Space != "" {
			an = a.Name.Space + ":" + an
		}
		present[an] = a.Value

		decl := findAttr(decls, an)
		if decl == nil {
			add(e, "attribute %s is not declared for element <%s>", an, name)
			continue
		}
		if len(decl.enum) > 0 && !contains(decl.enum, a.Value) {
			add(e, "attribute %s of <%s> has value %q, want one of %s", an, name, a.Value, strings.Join(decl.enum, "|"))
		}
		if decl.mode == "#FIXED" && a.Value != decl.value {
			add(e, "attribute %s of <%s> must be %q", an, name, decl.value)
		}
		if decl.typ == "ID" {
			if ids[a.Value] {
				add(e, "duplicate ID %q", a.Value)
			}
			ids[a.Value] = true
		}
	}

	for _, decl := range decls {
		if decl.mode != "#REQUIRED" {
			continue
		}
		if _, ok := present[decl.name]; !ok {
			add(e, "required attribute %s missing on <%s>", decl.name, name)
		}
	}
}

func findAttr(decls []*attrDecl, name string) *attrDecl {
	for _, a := range decls {
		if a.name == name {
			return a
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
