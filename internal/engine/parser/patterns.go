package parser

import (
	"pycount/internal/engine/syntax"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// caseClause converts `case <patterns> [if guard]: body`.
func (c *converter) caseClause(n *sitter.Node) syntax.Node {
	clause := c.other(n)
	for _, child := range named(n) {
		if child.Kind() == "case_pattern" {
			clause.Items = append(clause.Items, c.pattern(child))
			continue
		}
		clause.Items = append(clause.Items, c.expr(child))
	}
	return clause
}

// pattern converts a match pattern. Bare names bind (capture patterns),
// dotted names are value lookups, and star or keyword-pattern names are not
// reported, matching what Python's ast records as name nodes.
func (c *converter) pattern(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "identifier":
		return c.capture(n, nil, n)
	case "dotted_name":
		parts := named(n)
		if len(parts) == 1 {
			return c.capture(n, nil, parts[0])
		}
		return c.dottedValue(n)
	case "as_pattern":
		kids := named(n)
		if len(kids) < 2 {
			return c.other(n, c.patterns(kids)...)
		}
		target := kids[len(kids)-1]
		if target.Kind() == "as_pattern_target" {
			if inner := named(target); len(inner) > 0 {
				target = inner[0]
			}
		}
		return c.capture(n, c.pattern(kids[0]), target)
	case "class_pattern":
		kids := named(n)
		if len(kids) == 0 {
			return c.other(n)
		}
		items := []syntax.Node{c.expr(kids[0])}
		return c.other(n, append(items, c.patterns(kids[1:])...)...)
	case "keyword_pattern":
		kids := named(n)
		if len(kids) > 0 && kids[0].Kind() == "identifier" {
			kids = kids[1:]
		}
		return c.other(n, c.patterns(kids)...)
	case "dict_pattern":
		return c.dictPattern(n)
	case "splat_pattern":
		return c.other(n)
	case "string", "concatenated_string", "integer", "float", "true", "false", "none", "complex_pattern":
		return c.expr(n)
	default:
		return c.other(n, c.patterns(named(n))...)
	}
}

func (c *converter) patterns(nodes []*sitter.Node) []syntax.Node {
	out := make([]syntax.Node, 0, len(nodes))
	for _, n := range nodes {
		if p := c.pattern(n); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// capture binds target's text; `_` is the wildcard and binds nothing.
func (c *converter) capture(n *sitter.Node, sub syntax.Node, target *sitter.Node) syntax.Node {
	name := c.text(target)
	if name == "_" {
		name = ""
	}
	return &syntax.MatchAs{Span: c.span(n), Pattern: sub, Name: name}
}

// dictPattern treats keys as values and entries after ':' as patterns.
// `**rest` binds nothing.
func (c *converter) dictPattern(n *sitter.Node) syntax.Node {
	dict := c.other(n)
	expectValue := false
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			switch child.Kind() {
			case ":":
				expectValue = true
			case ",":
				expectValue = false
			}
			continue
		}
		switch {
		case child.Kind() == "comment", child.Kind() == "splat_pattern":
			continue
		case expectValue:
			dict.Items = append(dict.Items, c.pattern(child))
			expectValue = false
		default:
			dict.Items = append(dict.Items, c.expr(child))
		}
	}
	return dict
}
