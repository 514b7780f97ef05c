package ast

import (
	"fmt"
	"strings"

	"github.com/xplshn/swindle/pkg/token"
)

// Dump renders a program of any phase as an indented tree, one node per line. Annotations are
// appended after a colon; Untyped annotations are omitted.
func Dump[A, S, D, V, L any](p *Program[A, S, D, V, L]) string {
	d := &dumper[A, S, D, V, L]{}
	d.body(p.Body, 0)
	return d.sb.String()
}

type dumper[A, S, D, V, L any] struct {
	sb strings.Builder
}

func annotation(tag any) string {
	switch t := tag.(type) {
	case Untyped:
		return ""
	case token.Token:
		return fmt.Sprintf(" @%d:%d", t.Line, t.Column)
	default:
		return fmt.Sprintf(" : %v", t)
	}
}

func (d *dumper[A, S, D, V, L]) line(depth int, format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *dumper[A, S, D, V, L]) body(b Body[A, S, D, V, L], depth int) {
	for _, s := range b.Stmts {
		d.stmt(s, depth)
	}
}

func (d *dumper[A, S, D, V, L]) stmt(s Stmt[A, S, D, V, L], depth int) {
	switch s := s.(type) {
	case *Declare[A, S, D, V, L]:
		d.line(depth, "Declare %v %v%s", s.Type, s.Var, annotation(s.Tag))
		d.expr(s.Init, depth+1)
	case *Write[A, S, D, V, L]:
		name := "Write"
		if s.Newline {
			name = "Writeln"
		}
		d.line(depth, "%s%s", name, annotation(s.Tag))
		d.expr(s.Value, depth+1)
	case *Break[A, S, D, V, L]:
		d.line(depth, "Break%s", annotation(s.Tag))
	case *Continue[A, S, D, V, L]:
		d.line(depth, "Continue%s", annotation(s.Tag))
	case *ExprStmt[A, S, D, V, L]:
		d.line(depth, "Expr%s", annotation(s.Tag))
		d.expr(s.Expr, depth+1)
	default:
		panic(fmt.Sprintf("ast: unknown statement %T", s))
	}
}

func (d *dumper[A, S, D, V, L]) expr(e Expr[A, S, D, V, L], depth int) {
	switch e := e.(type) {
	case *Assign[A, S, D, V, L]:
		d.line(depth, "Assign %v%s", e.Var, annotation(e.Tag))
		d.expr(e.Value, depth+1)
	case *Binary[A, S, D, V, L]:
		d.line(depth, "Binary %s%s", e.Op, annotation(e.Tag))
		d.expr(e.Left, depth+1)
		d.expr(e.Right, depth+1)
	case *Unary[A, S, D, V, L]:
		d.line(depth, "Unary %s%s", e.Op, annotation(e.Tag))
		d.expr(e.Operand, depth+1)
	case *IntLit[A, S, D, V, L]:
		d.line(depth, "Int %d%s", e.Value, annotation(e.Tag))
	case *StringLit[A, S, D, V, L]:
		d.line(depth, "String %q%s", fmt.Sprint(e.Value), annotation(e.Tag))
	case *BoolLit[A, S, D, V, L]:
		d.line(depth, "Bool %v%s", e.Value, annotation(e.Tag))
	case *UnitLit[A, S, D, V, L]:
		d.line(depth, "Unit%s", annotation(e.Tag))
	case *Variable[A, S, D, V, L]:
		d.line(depth, "Var %v%s", e.Name, annotation(e.Tag))
	case *If[A, S, D, V, L]:
		d.line(depth, "If%s", annotation(e.Tag))
		for _, arm := range e.Arms {
			d.line(depth+1, "Cond")
			d.expr(arm.Cond, depth+2)
			d.line(depth+1, "Then")
			d.body(arm.Body, depth+2)
		}
		if e.Else != nil {
			d.line(depth+1, "Else")
			d.body(*e.Else, depth+2)
		}
	case *While[A, S, D, V, L]:
		d.line(depth, "While%s", annotation(e.Tag))
		d.expr(e.Cond, depth+1)
		d.line(depth+1, "Do")
		d.body(e.Body, depth+2)
	case *Block[A, S, D, V, L]:
		d.line(depth, "Block%s", annotation(e.Tag))
		d.body(e.Body, depth+1)
	default:
		panic(fmt.Sprintf("ast: unknown expression %T", e))
	}
}

func (s Slot) String() string { return fmt.Sprintf("#%d", int(s)) }
