package frontend

import (
	"strings"

	"github.com/fortress-labs/floop/internal/ir"
)

const indentStep = "  "

// Render prints routines back to source form.
func Render(routines []*ir.Routine) string {
	var b strings.Builder
	for i, routine := range routines {
		if i > 0 {
			b.WriteString("\n")
		}
		renderRoutine(&b, routine)
	}
	return b.String()
}

// RenderRoutine prints a single routine.
func RenderRoutine(routine *ir.Routine) string {
	var b strings.Builder
	renderRoutine(&b, routine)
	return b.String()
}

func renderRoutine(b *strings.Builder, routine *ir.Routine) {
	b.WriteString("subroutine " + routine.Name)
	if len(routine.Args) > 0 {
		b.WriteString("(" + strings.Join(routine.Args, ", ") + ")")
	}
	b.WriteString("\n")

	for i := 0; i < len(routine.Decls); {
		d := routine.Decls[i]
		// entities declared on one source line print back together
		j := i + 1
		for j < len(routine.Decls) {
			next := routine.Decls[j]
			if d.Line == 0 || next.Line != d.Line || next.Type != d.Type || next.Attrs != d.Attrs {
				break
			}
			j++
		}

		b.WriteString(indentStep + d.Type)
		if d.Attrs != "" {
			b.WriteString(", " + d.Attrs)
		}
		entities := make([]string, 0, j-i)
		for _, e := range routine.Decls[i:j] {
			entities = append(entities, renderEntity(e))
		}
		b.WriteString(" :: " + strings.Join(entities, ", ") + "\n")
		i = j
	}
	if len(routine.Decls) > 0 && len(routine.Body) > 0 {
		b.WriteString("\n")
	}

	renderBody(b, routine.Body, indentStep)
	b.WriteString("end subroutine " + routine.Name + "\n")
}

func renderEntity(d *ir.Declaration) string {
	if len(d.Shape) == 0 {
		return d.Name
	}
	dims := make([]string, 0, len(d.Shape))
	for _, s := range d.Shape {
		dims = append(dims, s.String())
	}
	return d.Name + "(" + strings.Join(dims, ", ") + ")"
}

func renderBody(b *strings.Builder, nodes []ir.Node, indent string) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ir.Loop:
			for _, p := range v.Pragmas {
				b.WriteString(indent + Sentinel + " " + p.Content + "\n")
			}
			b.WriteString(indent + "do " + v.Variable + " = " + v.Bounds.Start.String() + ", " + v.Bounds.Stop.String())
			if v.Bounds.Step != nil {
				b.WriteString(", " + v.Bounds.Step.String())
			}
			b.WriteString("\n")
			renderBody(b, v.Body, indent+indentStep)
			b.WriteString(indent + "end do\n")
		case *ir.Conditional:
			b.WriteString(indent + "if (" + v.Cond.String() + ") then\n")
			renderBody(b, v.Body, indent+indentStep)
			if len(v.Else) > 0 {
				b.WriteString(indent + "else\n")
				renderBody(b, v.Else, indent+indentStep)
			}
			b.WriteString(indent + "end if\n")
		case *ir.Assignment:
			b.WriteString(indent + v.LHS.String() + " = " + v.RHS.String() + "\n")
		case *ir.CallStmt:
			b.WriteString(indent + "call " + v.Name)
			if len(v.Args) > 0 {
				args := make([]string, 0, len(v.Args))
				for _, a := range v.Args {
					args = append(args, a.String())
				}
				b.WriteString("(" + strings.Join(args, ", ") + ")")
			}
			b.WriteString("\n")
		case *ir.Comment:
			b.WriteString(indent + "! " + v.Text + "\n")
		case *ir.Pragma:
			b.WriteString(indent + Sentinel + " " + v.Content + "\n")
		}
	}
}
