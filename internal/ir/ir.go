// Package ir defines the statement tree the transformation engine
// operates on: a closed set of node kinds with whole-subtree rebuild
// utilities. Rewrites never mutate nodes in place; a failed transform
// leaves the original tree untouched.
package ir

import (
	"strings"

	"github.com/fortress-labs/floop/internal/expr"
)

// Node is the closed set of statement node kinds.
type Node interface {
	isNode()
}

// LoopRange is the iteration range of a loop. A nil Step means unit
// stride.
type LoopRange struct {
	Start expr.Expr
	Stop  expr.Expr
	Step  expr.Expr
}

// Loop is a counted do-loop. Pragmas holds the directives attached to
// the loop header.
type Loop struct {
	Variable string
	Bounds   LoopRange
	Body     []Node
	Pragmas  []*Pragma
}

// Conditional is an if/else block.
type Conditional struct {
	Cond expr.Expr
	Body []Node
	Else []Node
}

// Assignment is a scalar or array element assignment.
type Assignment struct {
	LHS expr.Expr
	RHS expr.Expr
}

// CallStmt is a subroutine call statement.
type CallStmt struct {
	Name string
	Args []expr.Expr
}

// Comment is a source comment line, stored without the leading `!`.
type Comment struct {
	Text string
}

// Pragma is a directive line, stored without the `!$floop` sentinel.
type Pragma struct {
	Content string
}

func (*Loop) isNode()        {}
func (*Conditional) isNode() {}
func (*Assignment) isNode()  {}
func (*CallStmt) isNode()    {}
func (*Comment) isNode()     {}
func (*Pragma) isNode()      {}

// Declaration declares one entity of a routine's symbol scope. Shape is
// nil for scalars. Entities parsed from one source line share a Line
// value and print back onto one line.
type Declaration struct {
	Type  string
	Attrs string
	Name  string
	Shape []expr.Expr
	Line  int
}

// Routine is one subroutine: the unit every transformation driver
// operates on.
type Routine struct {
	Name  string
	Args  []string
	Decls []*Declaration
	Body  []Node
}

// Lookup returns the declaration of a name, or nil.
func (r *Routine) Lookup(name string) *Declaration {
	name = strings.ToLower(name)
	for _, d := range r.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}
