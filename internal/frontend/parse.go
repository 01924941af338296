// Package frontend parses and prints the Fortran subset the
// transformation engine operates on: subroutines with declarations,
// counted do-loops, if-blocks, assignments, calls, comments and
// `!$floop` directives.
package frontend

import (
	"fmt"
	"strings"

	"github.com/fortress-labs/floop/internal/expr"
	"github.com/fortress-labs/floop/internal/ir"
)

// Sentinel marks directive comment lines.
const Sentinel = "!$floop"

// Parse reads all subroutines from the given source.
func Parse(src []byte) ([]*ir.Routine, error) {
	p := &fileParser{lines: strings.Split(string(src), "\n")}
	var routines []*ir.Routine
	for p.pos < len(p.lines) {
		line := strings.TrimSpace(p.lines[p.pos])
		if line == "" || strings.HasPrefix(line, "!") {
			p.pos++
			continue
		}
		if name, args, ok := parseHeader(line); ok {
			p.pos++
			routine, err := p.routine(name, args)
			if err != nil {
				return nil, err
			}
			routines = append(routines, routine)
			continue
		}
		return nil, fmt.Errorf("line %d: expected subroutine header, got %q", p.pos+1, line)
	}
	if len(routines) == 0 {
		return nil, fmt.Errorf("no subroutine found")
	}
	return routines, nil
}

// ParseRoutine reads a single subroutine.
func ParseRoutine(src []byte) (*ir.Routine, error) {
	routines, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return routines[0], nil
}

type fileParser struct {
	lines []string
	pos   int
}

func parseHeader(line string) (name string, args []string, ok bool) {
	rest, found := strings.CutPrefix(strings.ToLower(line), "subroutine ")
	if !found {
		return "", nil, false
	}
	rest = strings.TrimSpace(rest)
	if i := strings.IndexByte(rest, '('); i >= 0 {
		name = strings.TrimSpace(rest[:i])
		argList := strings.TrimSuffix(strings.TrimSpace(rest[i:]), ")")
		argList = strings.TrimPrefix(argList, "(")
		for _, a := range strings.Split(argList, ",") {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}
	} else {
		name = rest
	}
	return name, args, true
}

func (p *fileParser) routine(name string, args []string) (*ir.Routine, error) {
	routine := &ir.Routine{Name: name, Args: args}

	// declarations come before the first executable statement
	for p.pos < len(p.lines) {
		line := strings.TrimSpace(p.lines[p.pos])
		if line == "" {
			p.pos++
			continue
		}
		if !strings.Contains(line, "::") || strings.HasPrefix(line, "!") {
			break
		}
		decls, err := parseDeclaration(line, p.pos+1)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", p.pos+1, err)
		}
		routine.Decls = append(routine.Decls, decls...)
		p.pos++
	}

	body, err := p.block("end subroutine")
	if err != nil {
		return nil, err
	}
	routine.Body = body
	return routine, nil
}

func parseDeclaration(line string, lineNo int) ([]*ir.Declaration, error) {
	parts := strings.SplitN(line, "::", 2)
	typePart := strings.TrimSpace(parts[0])
	declType, attrs := typePart, ""
	if i := strings.IndexByte(typePart, ','); i >= 0 {
		declType = strings.TrimSpace(typePart[:i])
		attrs = strings.TrimSpace(typePart[i+1:])
	}

	var out []*ir.Declaration
	for _, entity := range splitTopLevel(parts[1], ',') {
		entity = strings.TrimSpace(entity)
		if entity == "" {
			continue
		}
		decl := &ir.Declaration{Type: strings.ToLower(declType), Attrs: strings.ToLower(attrs), Line: lineNo}
		if i := strings.IndexByte(entity, '('); i >= 0 {
			decl.Name = strings.ToLower(strings.TrimSpace(entity[:i]))
			shapeList := strings.TrimSuffix(strings.TrimSpace(entity[i:]), ")")
			shapeList = strings.TrimPrefix(shapeList, "(")
			for _, dim := range splitTopLevel(shapeList, ',') {
				e, err := expr.Parse(dim)
				if err != nil {
					return nil, fmt.Errorf("bad dimension in declaration of %s: %w", decl.Name, err)
				}
				decl.Shape = append(decl.Shape, e)
			}
		} else {
			decl.Name = strings.ToLower(entity)
		}
		out = append(out, decl)
	}
	return out, nil
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// block parses statements until the given terminator line.
func (p *fileParser) block(terminator string) ([]ir.Node, error) {
	var body []ir.Node
	var pending []*ir.Pragma

	flush := func() {
		for _, pr := range pending {
			body = append(body, pr)
		}
		pending = nil
	}

	for p.pos < len(p.lines) {
		raw := p.lines[p.pos]
		line := strings.TrimSpace(raw)
		lineNo := p.pos + 1
		p.pos++

		switch {
		case line == "":
			continue

		case strings.HasPrefix(strings.ToLower(line), strings.ToLower(terminator)):
			flush()
			return body, nil

		case strings.HasPrefix(line, Sentinel):
			content := strings.TrimSpace(line[len(Sentinel):])
			pending = append(pending, &ir.Pragma{Content: content})

		case strings.HasPrefix(line, "!"):
			flush()
			body = append(body, &ir.Comment{Text: strings.TrimSpace(strings.TrimPrefix(line, "!"))})

		case strings.HasPrefix(strings.ToLower(line), "do "):
			loop, err := p.loop(line, lineNo)
			if err != nil {
				return nil, err
			}
			loop.Pragmas, pending = takeAttachable(pending)
			flush()
			body = append(body, loop)

		case strings.HasPrefix(strings.ToLower(line), "else"):
			// handled by the enclosing conditional; rewind
			flush()
			p.pos--
			return body, nil

		default:
			flush()
			stmt, err := p.statement(line, lineNo)
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		}
	}
	return nil, fmt.Errorf("missing %q", terminator)
}

// takeAttachable splits pending pragmas into those that attach to a
// loop header and those that stay in the statement list.
func takeAttachable(pending []*ir.Pragma) (attached []*ir.Pragma, rest []*ir.Pragma) {
	for _, p := range pending {
		if ir.IsDirective(p, "loop-interchange") || ir.IsDirective(p, "loop-fusion") {
			attached = append(attached, p)
		} else {
			rest = append(rest, p)
		}
	}
	return attached, rest
}

func (p *fileParser) loop(line string, lineNo int) (*ir.Loop, error) {
	spec := strings.TrimSpace(line[len("do "):])
	eq := strings.IndexByte(spec, '=')
	if eq < 0 {
		return nil, fmt.Errorf("line %d: malformed do statement %q", lineNo, line)
	}
	variable := strings.ToLower(strings.TrimSpace(spec[:eq]))
	parts := splitTopLevel(spec[eq+1:], ',')
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("line %d: malformed do bounds %q", lineNo, line)
	}

	var bounds ir.LoopRange
	var err error
	if bounds.Start, err = expr.Parse(parts[0]); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	if bounds.Stop, err = expr.Parse(parts[1]); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	if len(parts) == 3 {
		if bounds.Step, err = expr.Parse(parts[2]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	body, err := p.block("end do")
	if err != nil {
		return nil, err
	}
	return &ir.Loop{Variable: variable, Bounds: bounds, Body: body}, nil
}

func (p *fileParser) statement(line string, lineNo int) (ir.Node, error) {
	lower := strings.ToLower(line)

	if strings.HasPrefix(lower, "if ") || strings.HasPrefix(lower, "if(") {
		return p.conditional(line, lineNo)
	}

	if rest, ok := strings.CutPrefix(lower, "call "); ok {
		rest = strings.TrimSpace(rest)
		name := rest
		var args []expr.Expr
		if i := strings.IndexByte(rest, '('); i >= 0 {
			name = strings.TrimSpace(rest[:i])
			argList := strings.TrimSuffix(strings.TrimSpace(rest[i:]), ")")
			argList = strings.TrimPrefix(argList, "(")
			for _, a := range splitTopLevel(argList, ',') {
				if strings.TrimSpace(a) == "" {
					continue
				}
				e, err := expr.Parse(a)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				args = append(args, e)
			}
		}
		return &ir.CallStmt{Name: name, Args: args}, nil
	}

	if eq := assignmentIndex(line); eq >= 0 {
		lhs, err := expr.Parse(line[:eq])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rhs, err := expr.Parse(line[eq+1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		return &ir.Assignment{LHS: lhs, RHS: rhs}, nil
	}

	return nil, fmt.Errorf("line %d: cannot parse statement %q", lineNo, line)
}

// assignmentIndex finds the top-level assignment `=`, skipping
// comparison operators.
func assignmentIndex(line string) int {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(line) && line[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && (line[i-1] == '<' || line[i-1] == '>' || line[i-1] == '/' || line[i-1] == '=') {
				continue
			}
			return i
		}
	}
	return -1
}

func (p *fileParser) conditional(line string, lineNo int) (ir.Node, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return nil, fmt.Errorf("line %d: malformed if statement %q", lineNo, line)
	}
	depth := 0
	closing := -1
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closing = i
			}
		}
		if closing >= 0 {
			break
		}
	}
	if closing < 0 {
		return nil, fmt.Errorf("line %d: unbalanced condition in %q", lineNo, line)
	}

	cond, err := expr.Parse(line[open+1 : closing])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}

	rest := strings.TrimSpace(line[closing+1:])
	if strings.EqualFold(rest, "then") {
		body, err := p.block("end if")
		if err != nil {
			return nil, err
		}
		cnd := &ir.Conditional{Cond: cond, Body: body}
		// block may have stopped at an else line
		if p.pos < len(p.lines) && strings.EqualFold(strings.TrimSpace(p.lines[p.pos]), "else") {
			p.pos++
			elseBody, err := p.block("end if")
			if err != nil {
				return nil, err
			}
			cnd.Else = elseBody
		}
		return cnd, nil
	}

	// single-line form: if (cond) stmt
	stmt, err := p.statement(rest, lineNo)
	if err != nil {
		return nil, err
	}
	return &ir.Conditional{Cond: cond, Body: []ir.Node{stmt}}, nil
}
