package typeChecker

import (
	"fmt"

	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/parser"
	"github.com/xplshn/swindle/pkg/token"
	"github.com/xplshn/swindle/pkg/util"
)

// Scope maps visible names to their types. Entering a block copies the parent's table, so inner
// declarations never leak out; declared records what this block itself bound.
type Scope struct {
	vars     map[string]ast.Type
	declared map[string]bool
}

func newScope() *Scope {
	return &Scope{vars: make(map[string]ast.Type), declared: make(map[string]bool)}
}

func (s *Scope) child() *Scope {
	c := newScope()
	for name, typ := range s.vars {
		c.vars[name] = typ
	}
	return c
}

type TypeChecker struct {
	cfg    *config.Config
	scope  *Scope
	inLoop bool
	// stmt is the statement being checked; every error and warning is reported at its position.
	stmt token.Token
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	return &TypeChecker{cfg: cfg, scope: newScope()}
}

// Check types the whole program. The first violation aborts the pass.
func (tc *TypeChecker) Check(prog *parser.Program) (*Program, error) {
	body, _, err := tc.checkStmts(prog.Body)
	if err != nil {
		return nil, err
	}
	return &Program{Body: body}, nil
}

func (tc *TypeChecker) errorf(format string, args ...interface{}) error {
	return util.Errorf(util.TypeError, tc.stmt, format, args...)
}

func (tc *TypeChecker) warn(wt config.Warning, format string, args ...interface{}) {
	util.Warn(tc.cfg, wt, tc.stmt, format, args...)
}

// checkBlock checks a braced body in a fresh child scope.
func (tc *TypeChecker) checkBlock(body parser.Body) (Body, ast.Type, error) {
	outer := tc.scope
	tc.scope = outer.child()
	defer func() { tc.scope = outer }()
	return tc.checkStmts(body)
}

// checkStmts returns the typed statements and the type of the last one (unit if there is none).
func (tc *TypeChecker) checkStmts(body parser.Body) (Body, ast.Type, error) {
	var out Body
	typ := ast.TypeUnit
	for i, stmt := range body.Stmts {
		if i > 0 {
			switch body.Stmts[i-1].(type) {
			case *parser.Break, *parser.Continue:
				tc.stmt = stmt.Annotation()
				return Body{}, 0, tc.errorf("unreachable statement")
			}
		}
		typed, err := tc.checkStmt(stmt)
		if err != nil {
			return Body{}, 0, err
		}
		out.Stmts = append(out.Stmts, typed)
		typ = typed.Annotation()
	}
	return out, typ, nil
}

func (tc *TypeChecker) checkStmt(stmt parser.Stmt) (Stmt, error) {
	prev := tc.stmt
	tc.stmt = stmt.Annotation()
	defer func() { tc.stmt = prev }()

	switch s := stmt.(type) {
	case *parser.Declare:
		if tc.scope.declared[s.Var] {
			return nil, tc.errorf("variable '%s' is already declared in this scope", s.Var)
		}
		init, err := tc.checkExpr(s.Init)
		if err != nil {
			return nil, err
		}
		if t := init.Annotation(); t != s.Type {
			return nil, tc.errorf("cannot initialize %s variable '%s' with a value of type %s", s.Type, s.Var, t)
		}
		if _, shadows := tc.scope.vars[s.Var]; shadows {
			tc.warn(config.WarnShadow, "declaration of '%s' shadows a variable of an enclosing block", s.Var)
		}
		tc.scope.vars[s.Var] = s.Type
		tc.scope.declared[s.Var] = true
		return &Declare{Type: s.Type, Var: s.Var, Init: init, Tag: ast.TypeUnit}, nil

	case *parser.Write:
		value, err := tc.checkExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return &Write{Value: value, Newline: s.Newline, Type: value.Annotation(), Tag: ast.TypeUnit}, nil

	case *parser.Break:
		if !tc.inLoop {
			return nil, tc.errorf("'break' outside of a loop")
		}
		return &Break{Tag: ast.TypeUnit}, nil

	case *parser.Continue:
		if !tc.inLoop {
			return nil, tc.errorf("'continue' outside of a loop")
		}
		return &Continue{Tag: ast.TypeUnit}, nil

	case *parser.ExprStmt:
		expr, err := tc.checkExpr(s.Expr)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr, Tag: expr.Annotation()}, nil
	}
	panic(fmt.Sprintf("typeChecker: unknown statement %T", stmt))
}

func (tc *TypeChecker) lookup(name string) (ast.Type, error) {
	typ, ok := tc.scope.vars[name]
	if !ok {
		return 0, tc.errorf("variable '%s' is not declared", name)
	}
	return typ, nil
}

func (tc *TypeChecker) checkExpr(expr parser.Expr) (Expr, error) {
	switch e := expr.(type) {
	case *parser.IntLit:
		return &IntLit{Value: e.Value, Tag: ast.TypeInt}, nil
	case *parser.StringLit:
		return &StringLit{Value: e.Value, Tag: ast.TypeString}, nil
	case *parser.BoolLit:
		return &BoolLit{Value: e.Value, Tag: ast.TypeBool}, nil
	case *parser.UnitLit:
		return &UnitLit{Tag: ast.TypeUnit}, nil

	case *parser.Variable:
		typ, err := tc.lookup(e.Name)
		if err != nil {
			return nil, err
		}
		return &Variable{Name: e.Name, Tag: typ}, nil

	case *parser.Assign:
		typ, err := tc.lookup(e.Var)
		if err != nil {
			return nil, err
		}
		value, err := tc.checkExpr(e.Value)
		if err != nil {
			return nil, err
		}
		if vt := value.Annotation(); vt != typ {
			return nil, tc.errorf("cannot assign a value of type %s to %s variable '%s'", vt, typ, e.Var)
		}
		if v, ok := e.Value.(*parser.Variable); ok && v.Name == e.Var {
			tc.warn(config.WarnSelfAssign, "variable '%s' is assigned to itself", e.Var)
		}
		return &Assign{Var: e.Var, Value: value, Tag: typ}, nil

	case *parser.Binary:
		return tc.checkBinary(e)

	case *parser.Unary:
		operand, err := tc.checkExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		typ := operand.Annotation()
		switch e.Op {
		case ast.OpNegate:
			if typ != ast.TypeInt {
				return nil, tc.errorf("operand of '-' must be int, found %s", typ)
			}
		case ast.OpNot:
			if typ != ast.TypeBool {
				return nil, tc.errorf("operand of 'not' must be bool, found %s", typ)
			}
		case ast.OpStringify:
			typ = ast.TypeString
		}
		return &Unary{Op: e.Op, Operand: operand, Tag: typ}, nil

	case *parser.Block:
		body, typ, err := tc.checkBlock(e.Body)
		if err != nil {
			return nil, err
		}
		return &Block{Body: body, Tag: typ}, nil

	case *parser.If:
		return tc.checkIf(e)

	case *parser.While:
		cond, err := tc.checkCond(e.Cond, "while")
		if err != nil {
			return nil, err
		}
		wasInLoop := tc.inLoop
		tc.inLoop = true
		body, _, err := tc.checkBlock(e.Body)
		tc.inLoop = wasInLoop
		if err != nil {
			return nil, err
		}
		return &While{Cond: cond, Body: body, Tag: ast.TypeUnit}, nil
	}
	panic(fmt.Sprintf("typeChecker: unknown expression %T", expr))
}

func (tc *TypeChecker) checkCond(expr parser.Expr, construct string) (Expr, error) {
	cond, err := tc.checkExpr(expr)
	if err != nil {
		return nil, err
	}
	if t := cond.Annotation(); t != ast.TypeBool {
		return nil, tc.errorf("'%s' condition must be bool, found %s", construct, t)
	}
	if lit, ok := expr.(*parser.BoolLit); ok {
		tc.warn(config.WarnConstCond, "'%s' condition is always %v", construct, lit.Value)
	}
	return cond, nil
}

func (tc *TypeChecker) checkIf(e *parser.If) (Expr, error) {
	node := &If{}
	var typ ast.Type
	for i, arm := range e.Arms {
		construct := "if"
		if i > 0 {
			construct = "elif"
		}
		cond, err := tc.checkCond(arm.Cond, construct)
		if err != nil {
			return nil, err
		}
		body, bodyType, err := tc.checkBlock(arm.Body)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			typ = bodyType
		} else if bodyType != typ {
			return nil, tc.errorf("'elif' branch has type %s, but the 'if' branch has type %s", bodyType, typ)
		}
		node.Arms = append(node.Arms, Arm{Cond: cond, Body: body})
	}

	if e.Else == nil {
		if typ != ast.TypeUnit {
			return nil, tc.errorf("'if' without 'else' must have type unit, found %s", typ)
		}
	} else {
		body, bodyType, err := tc.checkBlock(*e.Else)
		if err != nil {
			return nil, err
		}
		if bodyType != typ {
			return nil, tc.errorf("'else' branch has type %s, but the 'if' branch has type %s", bodyType, typ)
		}
		node.Else = &body
	}
	node.Tag = typ
	return node, nil
}

func (tc *TypeChecker) checkBinary(e *parser.Binary) (Expr, error) {
	left, err := tc.checkExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := tc.checkExpr(e.Right)
	if err != nil {
		return nil, err
	}
	lt, rt := left.Annotation(), right.Annotation()

	var typ ast.Type
	switch {
	case e.Op == ast.OpOr || e.Op == ast.OpAnd:
		if lt != ast.TypeBool || rt != ast.TypeBool {
			return nil, tc.errorf("operands of '%s' must be bool, found %s and %s", e.Op, lt, rt)
		}
		typ = ast.TypeBool
	case e.Op.IsEquality():
		if lt != rt {
			return nil, tc.errorf("cannot compare %s with %s using '%s'", lt, rt, e.Op)
		}
		typ = ast.TypeBool
	case e.Op.IsOrdering():
		if lt != ast.TypeInt || rt != ast.TypeInt {
			return nil, tc.errorf("operands of '%s' must be int, found %s and %s", e.Op, lt, rt)
		}
		typ = ast.TypeBool
	case e.Op == ast.OpAdd:
		if lt != rt || (lt != ast.TypeInt && lt != ast.TypeString) {
			return nil, tc.errorf("cannot add %s and %s", lt, rt)
		}
		typ = lt
	default:
		if lt != ast.TypeInt || rt != ast.TypeInt {
			return nil, tc.errorf("operands of '%s' must be int, found %s and %s", e.Op, lt, rt)
		}
		typ = ast.TypeInt
	}
	return &Binary{Op: e.Op, Left: left, Right: right, Tag: typ}, nil
}
