package parser

import (
	"pycount/internal/engine/syntax"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parameters converts a parameters or lambda_parameters node. It always
// returns a non-nil list so that a def without parameters is well-formed.
func (c *converter) parameters(n *sitter.Node) *syntax.Arguments {
	args := &syntax.Arguments{}
	if n == nil {
		return args
	}
	args.Span = c.span(n)

	keywordOnly := false
	add := func(a *syntax.Arg) {
		if a == nil {
			return
		}
		if keywordOnly {
			args.KwOnly = append(args.KwOnly, a)
			return
		}
		args.Args = append(args.Args, a)
	}

	for _, p := range named(n) {
		switch p.Kind() {
		case "positional_separator":
			args.PosOnly = append(args.PosOnly, args.Args...)
			args.Args = nil
		case "keyword_separator":
			keywordOnly = true
		case "list_splat_pattern":
			args.Vararg = c.param(p, nil, nil)
			keywordOnly = true
		case "dictionary_splat_pattern":
			args.Kwarg = c.param(p, nil, nil)
		case "identifier":
			add(c.param(p, nil, nil))
		case "typed_parameter":
			annotation := p.ChildByFieldName("type")
			inner := firstNamedExcept(p, annotation)
			if inner == nil {
				continue
			}
			switch inner.Kind() {
			case "list_splat_pattern":
				args.Vararg = c.param(inner, annotation, nil)
				keywordOnly = true
			case "dictionary_splat_pattern":
				args.Kwarg = c.param(inner, annotation, nil)
			default:
				add(c.param(inner, annotation, nil))
			}
		case "default_parameter", "typed_default_parameter":
			add(c.param(p.ChildByFieldName("name"), p.ChildByFieldName("type"), p.ChildByFieldName("value")))
		}
	}
	return args
}

// param builds an Arg from an identifier or a splat pattern wrapping one.
// The Arg is positioned at the identifier, as Python positions `*args` at
// `args`.
func (c *converter) param(n, annotation, value *sitter.Node) *syntax.Arg {
	ident := n
	if n != nil && n.Kind() != "identifier" {
		ident = nil
		for _, kid := range named(n) {
			if kid.Kind() == "identifier" {
				ident = kid
				break
			}
		}
	}
	if ident == nil {
		return nil
	}
	stop := ident.EndPosition()
	if annotation != nil {
		stop = annotation.EndPosition()
	}
	return &syntax.Arg{
		Span:       syntax.Span{Start: position(ident.StartPosition()), Stop: position(stop)},
		Name:       c.text(ident),
		Annotation: c.expr(annotation),
		Default:    c.expr(value),
	}
}

func firstNamedExcept(n, skip *sitter.Node) *sitter.Node {
	for _, kid := range named(n) {
		if skip != nil && kid.StartByte() == skip.StartByte() && kid.EndByte() == skip.EndByte() {
			continue
		}
		return kid
	}
	return nil
}
