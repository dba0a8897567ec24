package parser

import (
	"bytes"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// invalidSyntax finds the first construct the grammar accepts but Python 3
// rejects: Python 2 print and exec statements, stray backquotes, tuple
// parameters, and a positional parameter without a default after one with a
// default. It returns nil when the tree is valid.
//
// A print statement with a chevron (`print >>f, x`) is valid Python 3 as a
// tuple expression and is converted by the converter instead.
func invalidSyntax(root *sitter.Node, src []byte) (*sitter.Node, string) {
	if bad := strayBackquote(root, src); bad != nil {
		return bad, "backquote is not valid syntax"
	}
	return invalidNode(root)
}

// strayBackquote returns the node holding the first backquote that is not
// part of string text or a comment.
func strayBackquote(root *sitter.Node, src []byte) *sitter.Node {
	for off := 0; off < len(src); {
		i := bytes.IndexByte(src[off:], '`')
		if i < 0 {
			return nil
		}
		at := uint(off + i)
		n := root.DescendantForByteRange(at, at+1)
		if n == nil {
			return root
		}
		switch n.Kind() {
		case "string_content", "escape_sequence", "comment":
		default:
			return n
		}
		off += i + 1
	}
	return nil
}

func invalidNode(n *sitter.Node) (*sitter.Node, string) {
	if n == nil {
		return nil, ""
	}

	switch n.Kind() {
	case "print_statement":
		if childOfKind(n, "chevron") == nil {
			return n, "print statement requires parentheses"
		}
	case "exec_statement":
		return n, "exec statement requires parentheses"
	case "parameters", "lambda_parameters":
		if bad, msg := invalidParameters(n); bad != nil {
			return bad, msg
		}
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		if bad, msg := invalidNode(n.NamedChild(i)); bad != nil {
			return bad, msg
		}
	}
	return nil, ""
}

func invalidParameters(n *sitter.Node) (*sitter.Node, string) {
	keywordOnly := false
	seenDefault := false
	for _, p := range named(n) {
		kind := p.Kind()
		if kind == "typed_parameter" {
			if inner := firstNamedExcept(p, p.ChildByFieldName("type")); inner != nil && inner.Kind() != "identifier" {
				kind = inner.Kind()
			}
		}

		switch kind {
		case "tuple_pattern":
			return p, "tuple parameter unpacking is not supported"
		case "keyword_separator", "list_splat_pattern":
			keywordOnly = true
		case "default_parameter", "typed_default_parameter":
			seenDefault = true
		case "identifier", "typed_parameter":
			if seenDefault && !keywordOnly {
				return p, "parameter without a default follows parameter with a default"
			}
		}
	}
	return nil, ""
}

func childOfKind(n *sitter.Node, kind string) *sitter.Node {
	for _, child := range named(n) {
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}
