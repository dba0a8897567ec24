// Package syntax defines the Python syntax tree consumed by the identifier
// walker. Trees are built by a front end (see internal/engine/parser) and are
// read-only afterwards.
package syntax

// Kind tags the concrete type of a Node.
type Kind int

const (
	KindOther Kind = iota
	KindModule
	KindName
	KindCall
	KindKeyword
	KindAttribute
	KindImport
	KindImportFrom
	KindAlias
	KindFunctionDef
	KindAsyncFunctionDef
	KindArguments
	KindArg
	KindClassDef
	KindGlobal
	KindNonlocal
	KindMatchAs
)

var kindNames = [...]string{
	KindOther:            "other",
	KindModule:           "module",
	KindName:             "name",
	KindCall:             "call",
	KindKeyword:          "keyword",
	KindAttribute:        "attribute",
	KindImport:           "import",
	KindImportFrom:       "import_from",
	KindAlias:            "alias",
	KindFunctionDef:      "function_def",
	KindAsyncFunctionDef: "async_function_def",
	KindArguments:        "arguments",
	KindArg:              "arg",
	KindClassDef:         "class_def",
	KindGlobal:           "global",
	KindNonlocal:         "nonlocal",
	KindMatchAs:          "match_as",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Pos is a 1-based source position. Column counts bytes, like Python's
// col_offset plus one.
type Pos struct {
	Line   int
	Column int
}

// Before reports whether p sorts strictly before q.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Span is the source range covered by a node. End is exclusive.
type Span struct {
	Start Pos
	Stop  Pos
}

func (s Span) Pos() Pos { return s.Start }
func (s Span) End() Pos { return s.Stop }

// Contains reports whether p lies within the span.
func (s Span) Contains(p Pos) bool {
	return !p.Before(s.Start) && p.Before(s.Stop)
}

// Node is implemented by every tree node. The set of implementations is
// closed: only types in this package satisfy it.
type Node interface {
	Kind() Kind
	Pos() Pos
	End() Pos
	// Children returns the node's sub-nodes in source-field order, with
	// absent optional slots omitted.
	Children() []Node
	node()
}

// Module is the root of a parsed file.
type Module struct {
	Span
	Body []Node
}

// Name is an identifier used as an expression.
type Name struct {
	Span
	ID string
}

// Attribute is Value.Attr.
type Attribute struct {
	Span
	Value Node
	Attr  string
}

// Keyword is a name=value argument. Arg is empty for **mapping.
type Keyword struct {
	Span
	Arg   string
	Value Node
}

// Call is Func(Args..., Keywords...).
type Call struct {
	Span
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

// Alias is one entry of an import statement. AsName is empty when the entry
// is not renamed.
type Alias struct {
	Span
	Name   string
	AsName string
}

// Import is `import a.b as c, d`.
type Import struct {
	Span
	Names []*Alias
}

// ImportFrom is `from .mod import a as b`. Module is empty for a bare
// relative import; Level counts the leading dots.
type ImportFrom struct {
	Span
	Module string
	Level  int
	Names  []*Alias
}

// Arg is a single parameter. Default is set only for parameters declared
// with a default value.
type Arg struct {
	Span
	Name       string
	Annotation Node
	Default    Node
}

// Arguments is a parameter list split by parameter class.
type Arguments struct {
	Span
	PosOnly []*Arg
	Args    []*Arg
	Vararg  *Arg
	KwOnly  []*Arg
	Kwarg   *Arg
}

// FunctionDef is a def or async def statement.
type FunctionDef struct {
	Span
	Name       string
	Async      bool
	Args       *Arguments
	Body       []Node
	Decorators []Node
	Returns    Node
}

// ClassDef is a class statement.
type ClassDef struct {
	Span
	Name       string
	Bases      []Node
	Keywords   []*Keyword
	Body       []Node
	Decorators []Node
}

// Global is a global or nonlocal declaration.
type Global struct {
	Span
	Names    []string
	Nonlocal bool
}

// MatchAs is a capture pattern (`case x`), an as-pattern (`case p as x`) or
// the wildcard (`case _`, empty Name and nil Pattern).
type MatchAs struct {
	Span
	Pattern Node
	Name    string
}

// Other is any construct that carries no name of its own. Label holds the
// front end's node type for diagnostics.
type Other struct {
	Span
	Label string
	Items []Node
}

func (*Module) Kind() Kind     { return KindModule }
func (*Name) Kind() Kind       { return KindName }
func (*Attribute) Kind() Kind  { return KindAttribute }
func (*Keyword) Kind() Kind    { return KindKeyword }
func (*Call) Kind() Kind       { return KindCall }
func (*Alias) Kind() Kind      { return KindAlias }
func (*Import) Kind() Kind     { return KindImport }
func (*ImportFrom) Kind() Kind { return KindImportFrom }
func (*Arg) Kind() Kind        { return KindArg }
func (*Arguments) Kind() Kind  { return KindArguments }
func (*ClassDef) Kind() Kind   { return KindClassDef }
func (*MatchAs) Kind() Kind    { return KindMatchAs }
func (*Other) Kind() Kind      { return KindOther }

func (n *FunctionDef) Kind() Kind {
	if n.Async {
		return KindAsyncFunctionDef
	}
	return KindFunctionDef
}

func (n *Global) Kind() Kind {
	if n.Nonlocal {
		return KindNonlocal
	}
	return KindGlobal
}

func (n *Module) Children() []Node { return appendNodes(nil, n.Body...) }
func (n *Name) Children() []Node   { return nil }
func (n *Alias) Children() []Node  { return nil }
func (n *Import) Children() []Node { return nil }
func (n *Global) Children() []Node { return nil }
func (n *Other) Children() []Node  { return appendNodes(nil, n.Items...) }

func (n *ImportFrom) Children() []Node { return nil }

func (n *Attribute) Children() []Node { return appendNodes(nil, n.Value) }
func (n *Keyword) Children() []Node   { return appendNodes(nil, n.Value) }
func (n *MatchAs) Children() []Node   { return appendNodes(nil, n.Pattern) }

func (n *Call) Children() []Node {
	out := appendNodes(nil, n.Func)
	out = appendNodes(out, n.Args...)
	for _, kw := range n.Keywords {
		if kw != nil {
			out = append(out, kw)
		}
	}
	return out
}

func (n *Arg) Children() []Node {
	return appendNodes(nil, n.Annotation, n.Default)
}

func (n *Arguments) Children() []Node {
	var out []Node
	for _, a := range n.All() {
		out = append(out, a)
	}
	return out
}

// All returns every parameter in declaration order: positional-only,
// positional, variadic positional, keyword-only, variadic keyword.
func (n *Arguments) All() []*Arg {
	if n == nil {
		return nil
	}
	out := make([]*Arg, 0, len(n.PosOnly)+len(n.Args)+len(n.KwOnly)+2)
	out = appendArgs(out, n.PosOnly...)
	out = appendArgs(out, n.Args...)
	out = appendArgs(out, n.Vararg)
	out = appendArgs(out, n.KwOnly...)
	out = appendArgs(out, n.Kwarg)
	return out
}

func (n *FunctionDef) Children() []Node {
	var out []Node
	if n.Args != nil {
		out = append(out, n.Args)
	}
	out = appendNodes(out, n.Body...)
	out = appendNodes(out, n.Decorators...)
	return appendNodes(out, n.Returns)
}

func (n *ClassDef) Children() []Node {
	out := appendNodes(nil, n.Bases...)
	for _, kw := range n.Keywords {
		if kw != nil {
			out = append(out, kw)
		}
	}
	out = appendNodes(out, n.Body...)
	return appendNodes(out, n.Decorators...)
}

func (*Module) node()      {}
func (*Name) node()        {}
func (*Attribute) node()   {}
func (*Keyword) node()     {}
func (*Call) node()        {}
func (*Alias) node()       {}
func (*Import) node()      {}
func (*ImportFrom) node()  {}
func (*Arg) node()         {}
func (*Arguments) node()   {}
func (*FunctionDef) node() {}
func (*ClassDef) node()    {}
func (*Global) node()      {}
func (*MatchAs) node()     {}
func (*Other) node()       {}

func appendNodes(out []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func appendArgs(out []*Arg, args ...*Arg) []*Arg {
	for _, a := range args {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}
