// Package ident walks a syntax tree and reports every identifier-bearing
// position in canonical order.
package ident

import (
	stderrors "errors"
	"fmt"
	"strings"

	"pycount/internal/core/errors"
	"pycount/internal/engine/syntax"
)

// ErrStop is returned by a Sink to end a walk early. Walk hands it back
// unchanged so callers can tell an abort from a failure.
var ErrStop = stderrors.New("ident: stop walk")

// Walk visits root depth-first and calls sink once per identifier
// occurrence. Names are emitted before children are visited, except for
// attribute access where the base expression comes first.
//
// A missing required child yields a CodeMalformedTree error. Optional slots
// that are absent are skipped.
func Walk(root syntax.Node, sink Sink) error {
	if sink == nil {
		return errors.New(errors.CodeValidationError, "sink is required")
	}
	w := walker{sink: sink}
	return w.visit(root)
}

type walker struct {
	sink Sink
}

func (w *walker) emit(name string, pos syntax.Pos, role Role) error {
	return w.sink(occurrenceAt(name, pos, role))
}

// emitDotted emits each non-empty segment of a dotted name at pos.
func (w *walker) emitDotted(name string, pos syntax.Pos, role Role) error {
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			continue
		}
		if err := w.emit(part, pos, role); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visit(n syntax.Node) error {
	if n == nil {
		return nil
	}

	switch n := n.(type) {
	case *syntax.Name:
		if n.ID == "" {
			return malformed(n, "name has no identifier")
		}
		return w.emit(n.ID, n.Pos(), RoleName)
	case *syntax.Attribute:
		return w.visitAttribute(n)
	case *syntax.Call:
		return w.visitCall(n)
	case *syntax.Import:
		return w.visitAliases(n, n.Names)
	case *syntax.ImportFrom:
		if err := w.emitDotted(n.Module, n.Pos(), RoleImport); err != nil {
			return err
		}
		return w.visitAliases(n, n.Names)
	case *syntax.FunctionDef:
		return w.visitFunction(n)
	case *syntax.ClassDef:
		return w.visitClass(n)
	case *syntax.Global:
		return w.visitGlobal(n)
	case *syntax.MatchAs:
		if n.Name != "" {
			if err := w.emit(n.Name, n.Pos(), RoleCapture); err != nil {
				return err
			}
		}
		return w.visitAll(n.Children())
	case *syntax.Keyword:
		if n.Value == nil {
			return malformed(n, "keyword has no value")
		}
		return w.visit(n.Value)
	default:
		return w.visitAll(n.Children())
	}
}

func (w *walker) visitAll(nodes []syntax.Node) error {
	for _, child := range nodes {
		if err := w.visit(child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitAttribute(n *syntax.Attribute) error {
	if n.Value == nil {
		return malformed(n, "attribute has no base expression")
	}
	if n.Attr == "" {
		return malformed(n, "attribute has no name")
	}
	if err := w.visit(n.Value); err != nil {
		return err
	}
	return w.emit(n.Attr, n.Pos(), RoleAttribute)
}

func (w *walker) visitCall(n *syntax.Call) error {
	if n.Func == nil {
		return malformed(n, "call has no callee")
	}
	if err := w.emitKeywords(n.Keywords); err != nil {
		return err
	}
	return w.visitAll(n.Children())
}

func (w *walker) emitKeywords(keywords []*syntax.Keyword) error {
	for _, kw := range keywords {
		if kw == nil || kw.Arg == "" {
			continue
		}
		if err := w.emit(kw.Arg, kw.Pos(), RoleKeyword); err != nil {
			return err
		}
	}
	return nil
}

// visitAliases emits import entries at the position of the statement.
func (w *walker) visitAliases(stmt syntax.Node, aliases []*syntax.Alias) error {
	pos := stmt.Pos()
	for _, alias := range aliases {
		if alias == nil {
			continue
		}
		if alias.Name == "" {
			return malformed(stmt, "import entry has no name")
		}
		if err := w.emitDotted(alias.Name, pos, RoleImport); err != nil {
			return err
		}
		if alias.AsName != "" {
			if err := w.emit(alias.AsName, pos, RoleAlias); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) visitFunction(n *syntax.FunctionDef) error {
	if n.Name == "" {
		return malformed(n, "function has no name")
	}
	if n.Args == nil {
		return malformed(n, "function has no parameter list")
	}
	if err := w.emit(n.Name, n.Pos(), RoleFunction); err != nil {
		return err
	}
	if err := w.visitParameters(n.Args); err != nil {
		return err
	}
	for _, a := range n.Args.All() {
		if err := w.visit(a.Annotation); err != nil {
			return err
		}
	}
	if err := w.visitAll(n.Body); err != nil {
		return err
	}
	if err := w.visitAll(n.Decorators); err != nil {
		return err
	}
	return w.visit(n.Returns)
}

// visitParameters emits parameter names and visits defaults in the order
// positional-only, positional, *args, positional defaults, keyword-only,
// keyword-only defaults, **kwargs.
func (w *walker) visitParameters(args *syntax.Arguments) error {
	positional := make([]*syntax.Arg, 0, len(args.PosOnly)+len(args.Args))
	positional = append(positional, args.PosOnly...)
	positional = append(positional, args.Args...)

	if err := w.emitParams(positional...); err != nil {
		return err
	}
	if err := w.emitParams(args.Vararg); err != nil {
		return err
	}
	if err := w.visitDefaults(positional); err != nil {
		return err
	}
	if err := w.emitParams(args.KwOnly...); err != nil {
		return err
	}
	if err := w.visitDefaults(args.KwOnly); err != nil {
		return err
	}
	return w.emitParams(args.Kwarg)
}

func (w *walker) emitParams(params ...*syntax.Arg) error {
	for _, p := range params {
		if p == nil {
			continue
		}
		if p.Name == "" {
			return malformed(p, "parameter has no name")
		}
		if err := w.emit(p.Name, p.Pos(), RoleParameter); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitDefaults(params []*syntax.Arg) error {
	for _, p := range params {
		if p == nil {
			continue
		}
		if err := w.visit(p.Default); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitClass(n *syntax.ClassDef) error {
	if n.Name == "" {
		return malformed(n, "class has no name")
	}
	if err := w.emit(n.Name, n.Pos(), RoleClass); err != nil {
		return err
	}
	if err := w.emitKeywords(n.Keywords); err != nil {
		return err
	}
	return w.visitAll(n.Children())
}

func (w *walker) visitGlobal(n *syntax.Global) error {
	if len(n.Names) == 0 {
		return malformed(n, "declaration lists no names")
	}
	role := RoleGlobal
	if n.Nonlocal {
		role = RoleNonlocal
	}
	for _, name := range n.Names {
		if name == "" {
			return malformed(n, "declaration has an empty name")
		}
		if err := w.emit(name, n.Pos(), role); err != nil {
			return err
		}
	}
	return nil
}

func malformed(n syntax.Node, msg string) error {
	pos := n.Pos()
	err := errors.New(errors.CodeMalformedTree, msg)
	err = errors.AddContext(err, errors.CtxKind, n.Kind().String())
	return errors.AddContext(err, errors.CtxPosition, fmt.Sprintf("%d:%d", pos.Line, pos.Column))
}
