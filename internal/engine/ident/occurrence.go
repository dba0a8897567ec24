package ident

import "pycount/internal/engine/syntax"

// Role classifies the construct an occurrence was taken from.
type Role string

const (
	RoleName      Role = "name"
	RoleKeyword   Role = "keyword"
	RoleAttribute Role = "attribute"
	RoleImport    Role = "import"
	RoleAlias     Role = "alias"
	RoleFunction  Role = "function"
	RoleParameter Role = "parameter"
	RoleClass     Role = "class"
	RoleGlobal    Role = "global"
	RoleNonlocal  Role = "nonlocal"
	RoleCapture   Role = "capture"
)

// Occurrence is one appearance of an identifier. Line and Column are 1-based.
type Occurrence struct {
	Name   string
	Line   int
	Column int
	Role   Role
}

func occurrenceAt(name string, pos syntax.Pos, role Role) Occurrence {
	return Occurrence{Name: name, Line: pos.Line, Column: pos.Column, Role: role}
}

// Sink receives occurrences in emission order. Returning ErrStop ends the
// walk early; any other error aborts it and is returned by Walk.
type Sink func(Occurrence) error
