// Package parser turns Python source into the syntax tree walked by the
// identifier engine, using the tree-sitter Python grammar.
package parser

import (
	"bytes"

	"pycount/internal/core/errors"
	"pycount/internal/engine/syntax"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser is safe for concurrent use; each Parse call leases its own
// tree-sitter parser from the pool.
type Parser struct {
	pool *ParserPool
}

// Language returns the tree-sitter Python grammar.
func Language() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
}

func NewParser() (*Parser, error) {
	lang := Language()
	if lang == nil {
		return nil, errors.New(errors.CodeInternal, "python grammar not loaded")
	}
	return &Parser{pool: NewParserPool(lang)}, nil
}

// Parse parses src and converts it to a syntax tree. Source that does not
// parse cleanly yields a CodeSyntaxError error carrying the first error
// position.
func (p *Parser) Parse(path string, src []byte) (*syntax.Module, error) {
	src = bytes.TrimPrefix(src, utf8BOM)
	if len(src) == 0 {
		return &syntax.Module{Span: syntax.Span{Start: syntax.Pos{Line: 1, Column: 1}, Stop: syntax.Pos{Line: 1, Column: 1}}}, nil
	}

	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, "invalid syntax", firstErrorNode(root))
	}
	if bad, msg := invalidSyntax(root, src); bad != nil {
		return nil, syntaxError(path, msg, bad)
	}

	c := &converter{src: src}
	return c.module(root), nil
}

func syntaxError(path, msg string, at *sitter.Node) error {
	err := errors.New(errors.CodeSyntaxError, msg)
	err = errors.AddContext(err, errors.CtxPath, path)
	if at != nil {
		err = errors.AddContext(err, errors.CtxPosition, formatPoint(at.StartPosition()))
	}
	return err
}

// firstErrorNode finds the left-most ERROR or MISSING node.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}
