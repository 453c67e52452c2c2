package xmlschema

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"xmllibrary/internal/core/domain"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Rule is a cross-field assertion XSD 1.0 cannot express, declared in the
// schema as <xs:appinfo><rule context="Book" test="...">message</rule></xs:appinfo>.
// Every element matching context must satisfy test.
type Rule struct {
	Context string
	Test    string
	Message string

	context *xpath.Expr
	test    *xpath.Expr
}

const ruleQuery = "//*[local-name()='appinfo']/*[local-name()='rule']"

func parseRules(schema []byte) ([]Rule, error) {
	doc, err := xmlquery.ParseWithOptions(bytes.NewReader(schema), xmlquery.ParserOptions{WithLineNumbers: true})
	if err != nil {
		return nil, fmt.Errorf("parse schema annotations: %w", err)
	}

	nodes, err := xmlquery.QueryAll(doc, ruleQuery)
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(nodes))
	for _, n := range nodes {
		r := Rule{
			Context: strings.TrimSpace(n.SelectAttr("context")),
			Test:    strings.TrimSpace(n.SelectAttr("test")),
			Message: strings.TrimSpace(n.InnerText()),
		}
		if r.Context == "" || r.Test == "" {
			return nil, fmt.Errorf("rule on line %d needs context and test", n.LineNumber)
		}
		if r.context, err = xpath.Compile("//" + r.Context); err != nil {
			return nil, fmt.Errorf("rule context %q: %w", r.Context, err)
		}
		if r.test, err = xpath.Compile(r.Test); err != nil {
			return nil, fmt.Errorf("rule test %q: %w", r.Test, err)
		}
		if r.Message == "" {
			r.Message = "assertion failed: " + r.Test
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// checkRules evaluates every rule against doc and returns one issue per failing node
func checkRules(rules []Rule, doc *xmlquery.Node) []domain.Issue {
	var issues []domain.Issue
	for i := range rules {
		r := &rules[i]
		iter := r.context.Select(xmlquery.CreateXPathNavigator(doc))
		for iter.MoveNext() {
			nav, ok := iter.Current().(*xmlquery.NodeNavigator)
			if !ok {
				continue
			}
			node := nav.Current()
			if truthy(r.test.Evaluate(xmlquery.CreateXPathNavigator(node))) {
				continue
			}
			msg := r.Message
			if id := node.SelectAttr("Id"); id != "" {
				msg = fmt.Sprintf("%s %s: %s", node.Data, id, msg)
			}
			issues = append(issues, domain.Issue{Message: msg, Line: node.LineNumber})
		}
	}
	return issues
}

// truthy applies XPath boolean() conversion to an evaluation result
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case *xpath.NodeIterator:
		return t.MoveNext()
	}
	return false
}
