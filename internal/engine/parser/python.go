package parser

import (
	"fmt"
	"strings"

	"pycount/internal/engine/syntax"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// converter maps tree-sitter's concrete Python tree onto syntax nodes with
// Python ast semantics: which identifiers are names, where decorators live,
// and which positions each node reports.
type converter struct {
	src []byte
}

func formatPoint(p sitter.Point) string {
	return fmt.Sprintf("%d:%d", p.Row+1, p.Column+1)
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.src[n.StartByte():n.EndByte()])
}

func position(p sitter.Point) syntax.Pos {
	return syntax.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (c *converter) span(n *sitter.Node) syntax.Span {
	return syntax.Span{Start: position(n.StartPosition()), Stop: position(n.EndPosition())}
}

// named returns n's named children, dropping comments.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *converter) module(root *sitter.Node) *syntax.Module {
	return &syntax.Module{Span: c.span(root), Body: c.exprs(named(root))}
}

func (c *converter) exprs(nodes []*sitter.Node) []syntax.Node {
	out := make([]syntax.Node, 0, len(nodes))
	for _, n := range nodes {
		if conv := c.expr(n); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

func (c *converter) other(n *sitter.Node, items ...syntax.Node) *syntax.Other {
	return &syntax.Other{Span: c.span(n), Label: n.Kind(), Items: items}
}

// expr converts any statement or expression node.
func (c *converter) expr(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "identifier":
		return &syntax.Name{Span: c.span(n), ID: c.text(n)}
	case "attribute":
		return &syntax.Attribute{
			Span:  c.span(n),
			Value: c.expr(n.ChildByFieldName("object")),
			Attr:  c.text(n.ChildByFieldName("attribute")),
		}
	case "member_type":
		kids := named(n)
		if len(kids) < 2 {
			return c.other(n, c.exprs(kids)...)
		}
		return &syntax.Attribute{
			Span:  c.span(n),
			Value: c.expr(kids[0]),
			Attr:  c.text(kids[len(kids)-1]),
		}
	case "dotted_name":
		return c.dottedValue(n)
	case "call":
		return c.call(n)
	case "import_statement":
		return &syntax.Import{Span: c.span(n), Names: c.aliases(named(n))}
	case "import_from_statement":
		return c.importFrom(n)
	case "future_import_statement":
		return &syntax.ImportFrom{Span: c.span(n), Module: "__future__", Names: c.aliases(named(n))}
	case "decorated_definition":
		return c.decorated(n)
	case "function_definition":
		return c.function(n)
	case "class_definition":
		return c.class(n)
	case "global_statement", "nonlocal_statement":
		return c.global(n)
	case "lambda":
		return c.lambda(n)
	case "except_clause", "except_group_clause":
		return c.exceptClause(n)
	case "case_clause":
		return c.caseClause(n)
	case "print_statement":
		return c.printChevron(n)
	case "dictionary":
		return c.dictionary(n)
	case "conditional_expression":
		// Python visits the test before either branch.
		kids := named(n)
		if len(kids) != 3 {
			return c.other(n, c.exprs(kids)...)
		}
		return c.other(n, c.expr(kids[1]), c.expr(kids[0]), c.expr(kids[2]))
	default:
		return c.other(n, c.exprs(named(n))...)
	}
}

// dottedValue turns a.b.c into the attribute chain Python builds for it.
func (c *converter) dottedValue(n *sitter.Node) syntax.Node {
	parts := named(n)
	if len(parts) == 0 {
		return c.other(n)
	}
	var value syntax.Node = &syntax.Name{Span: c.span(parts[0]), ID: c.text(parts[0])}
	start := position(n.StartPosition())
	for _, part := range parts[1:] {
		value = &syntax.Attribute{
			Span:  syntax.Span{Start: start, Stop: position(part.EndPosition())},
			Value: value,
			Attr:  c.text(part),
		}
	}
	return value
}

// dottedText joins the identifiers of a dotted name, ignoring any
// whitespace or comments between the parts.
func (c *converter) dottedText(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind() != "dotted_name" {
		return c.text(n)
	}
	parts := named(n)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, c.text(part))
	}
	return strings.Join(out, ".")
}

func (c *converter) call(n *sitter.Node) syntax.Node {
	call := &syntax.Call{Span: c.span(n), Func: c.expr(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Kind() != "argument_list" {
		// f(x for x in xs)
		call.Args = append(call.Args, c.expr(args))
		return call
	}
	call.Args, call.Keywords = c.argumentList(args)
	return call
}

// argumentList splits a call or class argument list into positional
// arguments and keywords. **mapping becomes a keyword with no name.
func (c *converter) argumentList(n *sitter.Node) ([]syntax.Node, []*syntax.Keyword) {
	var args []syntax.Node
	var keywords []*syntax.Keyword
	for _, child := range named(n) {
		switch child.Kind() {
		case "keyword_argument":
			keywords = append(keywords, &syntax.Keyword{
				Span:  c.span(child),
				Arg:   c.text(child.ChildByFieldName("name")),
				Value: c.expr(child.ChildByFieldName("value")),
			})
		case "dictionary_splat":
			kids := named(child)
			var value syntax.Node
			if len(kids) > 0 {
				value = c.expr(kids[0])
			}
			keywords = append(keywords, &syntax.Keyword{Span: c.span(child), Value: value})
		default:
			args = append(args, c.expr(child))
		}
	}
	return args, keywords
}

// aliases converts import entries: dotted names, aliased imports and the
// wildcard.
func (c *converter) aliases(nodes []*sitter.Node) []*syntax.Alias {
	var out []*syntax.Alias
	for _, n := range nodes {
		switch n.Kind() {
		case "dotted_name", "identifier":
			out = append(out, &syntax.Alias{Span: c.span(n), Name: c.dottedText(n)})
		case "aliased_import":
			out = append(out, &syntax.Alias{
				Span:   c.span(n),
				Name:   c.dottedText(n.ChildByFieldName("name")),
				AsName: c.text(n.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			out = append(out, &syntax.Alias{Span: c.span(n), Name: "*"})
		default:
			out = append(out, c.aliases(named(n))...)
		}
	}
	return out
}

func (c *converter) importFrom(n *sitter.Node) syntax.Node {
	stmt := &syntax.ImportFrom{Span: c.span(n)}
	var entries []*sitter.Node
	seenImport := false
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if child.Kind() == "import" {
				seenImport = true
			}
			continue
		}
		if child.Kind() == "comment" {
			continue
		}
		if seenImport {
			entries = append(entries, child)
			continue
		}
		switch child.Kind() {
		case "relative_import":
			for _, part := range named(child) {
				switch part.Kind() {
				case "import_prefix":
					stmt.Level = len(c.text(part))
				case "dotted_name":
					stmt.Module = c.dottedText(part)
				}
			}
		case "dotted_name":
			stmt.Module = c.dottedText(child)
		}
	}
	stmt.Names = c.aliases(entries)
	return stmt
}

func (c *converter) decorated(n *sitter.Node) syntax.Node {
	var decorators []syntax.Node
	for _, child := range named(n) {
		if child.Kind() == "decorator" {
			decorators = append(decorators, c.exprs(named(child))...)
		}
	}
	def := c.expr(n.ChildByFieldName("definition"))
	switch def := def.(type) {
	case *syntax.FunctionDef:
		def.Decorators = decorators
	case *syntax.ClassDef:
		def.Decorators = decorators
	default:
		return c.other(n, append(decorators, def)...)
	}
	return def
}

func (c *converter) function(n *sitter.Node) syntax.Node {
	fn := &syntax.FunctionDef{
		Span:    c.span(n),
		Name:    c.text(n.ChildByFieldName("name")),
		Args:    c.parameters(n.ChildByFieldName("parameters")),
		Returns: c.expr(n.ChildByFieldName("return_type")),
	}
	if first := n.Child(0); first != nil && first.Kind() == "async" {
		fn.Async = true
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = c.exprs(named(body))
	}
	return fn
}

func (c *converter) class(n *sitter.Node) syntax.Node {
	cls := &syntax.ClassDef{
		Span: c.span(n),
		Name: c.text(n.ChildByFieldName("name")),
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		cls.Bases, cls.Keywords = c.argumentList(supers)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		cls.Body = c.exprs(named(body))
	}
	return cls
}

func (c *converter) global(n *sitter.Node) syntax.Node {
	decl := &syntax.Global{Span: c.span(n), Nonlocal: n.Kind() == "nonlocal_statement"}
	for _, child := range named(n) {
		if child.Kind() == "identifier" {
			decl.Names = append(decl.Names, c.text(child))
		}
	}
	return decl
}

// lambda keeps defaults and the body; lambda parameters are not names.
// Keyword-only defaults come before positional ones, as in Python's
// arguments node.
func (c *converter) lambda(n *sitter.Node) syntax.Node {
	lambda := c.other(n)
	if params := n.ChildByFieldName("parameters"); params != nil {
		args := c.parameters(params)
		for _, a := range args.KwOnly {
			lambda.Items = append(lambda.Items, a.Default)
		}
		for _, group := range [][]*syntax.Arg{args.PosOnly, args.Args} {
			for _, a := range group {
				lambda.Items = append(lambda.Items, a.Default)
			}
		}
	}
	if body := c.expr(n.ChildByFieldName("body")); body != nil {
		lambda.Items = append(lambda.Items, body)
	}
	return lambda
}

// printChevron converts `print >>f, x`, which Python 3 reads as the tuple
// `(print >> f, x)`. Print statements without a chevron never get here.
func (c *converter) printChevron(n *sitter.Node) syntax.Node {
	chevron := childOfKind(n, "chevron")
	keyword := n.Child(0)
	if chevron == nil || keyword == nil {
		return c.other(n, c.exprs(named(n))...)
	}

	var target syntax.Node
	if kids := named(chevron); len(kids) > 0 {
		target = c.expr(kids[0])
	}
	shift := &syntax.Other{
		Span:  syntax.Span{Start: position(keyword.StartPosition()), Stop: position(chevron.EndPosition())},
		Label: "binary_operator",
		Items: []syntax.Node{&syntax.Name{Span: c.span(keyword), ID: c.text(keyword)}, target},
	}

	tuple := c.other(n, shift)
	for _, child := range named(n) {
		if child.Kind() != "chevron" {
			tuple.Items = append(tuple.Items, c.expr(child))
		}
	}
	return tuple
}

// dictionary visits every key before any value, as Python's Dict does.
// A **splat has no key.
func (c *converter) dictionary(n *sitter.Node) syntax.Node {
	var keys, values []syntax.Node
	for _, child := range named(n) {
		if child.Kind() == "pair" {
			keys = append(keys, c.expr(child.ChildByFieldName("key")))
			values = append(values, c.expr(child.ChildByFieldName("value")))
			continue
		}
		values = append(values, c.expr(child))
	}
	return c.other(n, append(keys, values...)...)
}

// exceptClause drops the `as name` target, which Python stores as a plain
// string rather than a name node.
func (c *converter) exceptClause(n *sitter.Node) syntax.Node {
	clause := c.other(n)
	skipNext := false
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if child.Kind() == "as" {
				skipNext = true
			}
			continue
		}
		if child.Kind() == "comment" {
			continue
		}
		if skipNext {
			skipNext = false
			continue
		}
		if child.Kind() == "as_pattern" {
			if kids := named(child); len(kids) > 0 {
				clause.Items = append(clause.Items, c.expr(kids[0]))
			}
			continue
		}
		clause.Items = append(clause.Items, c.expr(child))
	}
	return clause
}
