package xmlschema

import (
	"errors"
	"strings"
	"testing"

	"xmllibrary/internal/core/domain"
)

func TestCompileModel(t *testing.T) {
	tests := []struct {
		spec  string
		seq   string
		match bool
	}{
		{"(Book*)", "", true},
		{"(Book*)", "Book,Book,", true},
		{"(Book*)", "Member,", false},
		{"(a, b?, c)", "a,c,", true},
		{"(a, b?, c)", "a,b,c,", true},
		{"(a, b?, c)", "a,b,b,c,", false},
		{"(a | b)+", "b,a,a,", true},
		{"(a | b)+", "", false},
		{"(head, (p | list)*, foot?)", "head,p,list,p,", true},
		{"(head, (p | list)*, foot?)", "p,head,", false},
	}

	for _, tt := range tests {
		el, err := parseElementDecl("x", tt.spec)
		if err != nil {
			t.Fatalf("%s: %v", tt.spec, err)
		}
		if got := el.model.MatchString(tt.seq); got != tt.match {
			t.Errorf("%s against %q = %v, want %v", tt.spec, tt.seq, got, tt.match)
		}
	}
}

func TestParseDTDAttributes(t *testing.T) {
	d, err := parseDTD(`
<!ELEMENT shelf (item*)>
<!ELEMENT item EMPTY>
<!ATTLIST item
  code  ID                 #REQUIRED
  kind  (new | used)       "new"
  owner CDATA              #IMPLIED
  lib   CDATA              #FIXED "main">
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	attrs := d.attrs["item"]
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[1].enum == nil || attrs[1].value != "new" {
		t.Errorf("enumerated default not parsed: %+v", attrs[1])
	}
	if attrs[3].mode != "#FIXED" || attrs[3].value != "main" {
		t.Errorf("fixed attribute not parsed: %+v", attrs[3])
	}
}

func TestParseDTDRejectsGarbage(t *testing.T) {
	if _, err := parseDTD("nothing declared here"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := parseDTD("<!ELEMENT a (b,>"); err == nil {
		t.Fatal("expected error for unbalanced model")
	}
}

func TestValidateWithDTDAcceptsValidDocument(t *testing.T) {
	v := newTestValidator(t)
	ok, err := v.ValidateWithDTD(validBooks, Books)
	if err != nil || !ok {
		t.Fatalf("validate: ok=%v err=%v", ok, err)
	}
}

func TestValidateWithDTDReportsLines(t *testing.T) {
	v := newTestValidator(t)
	doc := "<?xml version=\"1.0\"?>\n<Books>\n  <Book Id=\"1\">\n    <Title>Only</Title>\n  </Book>\n</Books>"

	ok, err := v.ValidateWithDTD(doc, Books)
	if ok {
		t.Fatal("expected failure")
	}
	issues := validationIssues(t, err)
	if issues[0].Line != 3 {
		t.Fatalf("expected issue on line 3, got %+v", issues[0])
	}
	if !strings.Contains(issues[0].Message, "content of <Book>") {
		t.Fatalf("unexpected message %q", issues[0].Message)
	}
}

func TestValidateWithDTDCollectsEveryViolation(t *testing.T) {
	v := newTestValidator(t)
	doc := `<Books>
  <Book><ISBN>1</ISBN></Book>
  <Book Id="2" Color="red"><Unknown/></Book>
</Books>`

	_, err := v.ValidateWithDTD(doc, Books)
	issues := validationIssues(t, err)

	var msgs []string
	for _, is := range issues {
		msgs = append(msgs, is.Message)
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{
		"required attribute Id missing",
		"attribute Color is not declared",
		"element <Unknown> is not declared",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestValidateWithDTDWrongRoot(t *testing.T) {
	v := newTestValidator(t)
	_, err := v.ValidateWithDTD(`<Members/>`, Books)
	issues := validationIssues(t, err)
	if !strings.Contains(issues[0].Message, "does not match DOCTYPE Books") {
		t.Fatalf("unexpected %+v", issues)
	}
}

func TestValidateWithDTDUnknownName(t *testing.T) {
	v := newTestValidator(t)
	if _, err := v.ValidateWithDTD(validBooks, "Nope"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateWithDTDReplacesExistingDocType(t *testing.T) {
	v := newTestValidator(t)
	doc := `<?xml version="1.0"?>
<!DOCTYPE Books SYSTEM "elsewhere.dtd">
<Books/>`
	if ok, err := v.ValidateWithDTD(doc, Books); err != nil || !ok {
		t.Fatalf("validate: ok=%v err=%v", ok, err)
	}
}
