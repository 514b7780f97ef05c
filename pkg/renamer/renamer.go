// Package renamer replaces variable names with slots. Slots are never reused: sibling and nested
// blocks draw from the same counter, so the slot count is the number of declarations.
package renamer

import (
	"fmt"

	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/typeChecker"
)

type renamer struct {
	names map[string]ast.Slot
	next  ast.Slot
}

// Resolve returns the slot-resolved program and the number of slots it uses. The input must have
// passed type checking; an undeclared name panics.
func Resolve(prog *typeChecker.Program) (*Program, int) {
	r := &renamer{names: make(map[string]ast.Slot)}
	body := r.body(prog.Body)
	return &Program{Body: body}, int(r.next)
}

// block resolves a nested body against a copy of the current table.
func (r *renamer) block(b typeChecker.Body) Body {
	outer := r.names
	r.names = make(map[string]ast.Slot, len(outer))
	for name, slot := range outer {
		r.names[name] = slot
	}
	defer func() { r.names = outer }()
	return r.body(b)
}

func (r *renamer) body(b typeChecker.Body) Body {
	out := Body{Stmts: make([]Stmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, r.stmt(s))
	}
	return out
}

func (r *renamer) lookup(name string) ast.Slot {
	slot, ok := r.names[name]
	if !ok {
		panic(fmt.Sprintf("renamer: '%s' has no slot", name))
	}
	return slot
}

func (r *renamer) stmt(s typeChecker.Stmt) Stmt {
	switch s := s.(type) {
	case *typeChecker.Declare:
		// The initializer cannot see the variable it initializes.
		init := r.expr(s.Init)
		slot := r.next
		r.next++
		r.names[s.Var] = slot
		return &Declare{Type: s.Type, Var: slot, Init: init, Tag: s.Tag}
	case *typeChecker.Write:
		return &Write{Value: r.expr(s.Value), Newline: s.Newline, Type: s.Type, Tag: s.Tag}
	case *typeChecker.Break:
		return &Break{Tag: s.Tag}
	case *typeChecker.Continue:
		return &Continue{Tag: s.Tag}
	case *typeChecker.ExprStmt:
		return &ExprStmt{Expr: r.expr(s.Expr), Tag: s.Tag}
	}
	panic(fmt.Sprintf("renamer: unknown statement %T", s))
}

func (r *renamer) expr(e typeChecker.Expr) Expr {
	switch e := e.(type) {
	case *typeChecker.IntLit:
		return &IntLit{Value: e.Value, Tag: e.Tag}
	case *typeChecker.StringLit:
		return &StringLit{Value: e.Value, Tag: e.Tag}
	case *typeChecker.BoolLit:
		return &BoolLit{Value: e.Value, Tag: e.Tag}
	case *typeChecker.UnitLit:
		return &UnitLit{Tag: e.Tag}
	case *typeChecker.Variable:
		return &Variable{Name: r.lookup(e.Name), Tag: e.Tag}
	case *typeChecker.Assign:
		value := r.expr(e.Value)
		return &Assign{Var: r.lookup(e.Var), Value: value, Tag: e.Tag}
	case *typeChecker.Binary:
		left := r.expr(e.Left)
		return &Binary{Op: e.Op, Left: left, Right: r.expr(e.Right), Tag: e.Tag}
	case *typeChecker.Unary:
		return &Unary{Op: e.Op, Operand: r.expr(e.Operand), Tag: e.Tag}
	case *typeChecker.Block:
		return &Block{Body: r.block(e.Body), Tag: e.Tag}
	case *typeChecker.If:
		node := &If{Arms: make([]Arm, 0, len(e.Arms)), Tag: e.Tag}
		for _, arm := range e.Arms {
			cond := r.expr(arm.Cond)
			node.Arms = append(node.Arms, Arm{Cond: cond, Body: r.block(arm.Body)})
		}
		if e.Else != nil {
			body := r.block(*e.Else)
			node.Else = &body
		}
		return node
	case *typeChecker.While:
		cond := r.expr(e.Cond)
		return &While{Cond: cond, Body: r.block(e.Body), Tag: e.Tag}
	}
	panic(fmt.Sprintf("renamer: unknown expression %T", e))
}
