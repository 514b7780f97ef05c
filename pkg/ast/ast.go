// Package ast defines the swindle syntax tree. One set of generic node types serves every compiler
// phase; the phase is fixed by five type parameters:
//
//	A  annotation carried by every expression
//	S  annotation carried by every statement
//	D  declared type of a variable declaration
//	V  identity of a variable (a name, later a slot)
//	L  identity of a string literal
//
// Each phase declares aliases instantiating these nodes (see parser, typeChecker and renamer).
//
// Binary operators of every precedence level share one Binary node. Precedence only matters while
// parsing, so it lives in the Level table of ops.go; later phases dispatch on the operator alone.
package ast

// Type is a swindle value type.
type Type int

const (
	TypeInt Type = iota + 1
	TypeString
	TypeBool
	TypeUnit
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeUnit:
		return "unit"
	}
	return "invalid"
}

// Untyped is the expression annotation before type checking.
type Untyped struct{}

// Slot is a resolved variable identity: an index into the VM's variable array.
type Slot int

// Expr is any expression node.
type Expr[A, S, D, V, L any] interface {
	Annotation() A
	exprNode()
}

// Stmt is any statement node.
type Stmt[A, S, D, V, L any] interface {
	Annotation() S
	stmtNode()
}

// Body is an ordered statement list. Its value is the value of its last statement, or unit when
// empty.
type Body[A, S, D, V, L any] struct {
	Stmts []Stmt[A, S, D, V, L]
}

type Program[A, S, D, V, L any] struct {
	Body Body[A, S, D, V, L]
}

// Assign stores Value into Var and yields the stored value.
type Assign[A, S, D, V, L any] struct {
	Var   V
	Value Expr[A, S, D, V, L]
	Tag   A
}

type Binary[A, S, D, V, L any] struct {
	Op          BinaryOp
	Left, Right Expr[A, S, D, V, L]
	Tag         A
}

type Unary[A, S, D, V, L any] struct {
	Op      UnaryOp
	Operand Expr[A, S, D, V, L]
	Tag     A
}

type IntLit[A, S, D, V, L any] struct {
	Value int64
	Tag   A
}

type StringLit[A, S, D, V, L any] struct {
	Value L
	Tag   A
}

type BoolLit[A, S, D, V, L any] struct {
	Value bool
	Tag   A
}

type UnitLit[A, S, D, V, L any] struct {
	Tag A
}

type Variable[A, S, D, V, L any] struct {
	Name V
	Tag  A
}

// Arm is one "if" or "elif" branch.
type Arm[A, S, D, V, L any] struct {
	Cond Expr[A, S, D, V, L]
	Body Body[A, S, D, V, L]
}

// If holds the if/elif arms in source order. Else is nil when absent.
type If[A, S, D, V, L any] struct {
	Arms []Arm[A, S, D, V, L]
	Else *Body[A, S, D, V, L]
	Tag  A
}

type While[A, S, D, V, L any] struct {
	Cond Expr[A, S, D, V, L]
	Body Body[A, S, D, V, L]
	Tag  A
}

// Block is a braced statement list used as an expression.
type Block[A, S, D, V, L any] struct {
	Body Body[A, S, D, V, L]
	Tag  A
}

type Declare[A, S, D, V, L any] struct {
	Type D
	Var  V
	Init Expr[A, S, D, V, L]
	Tag  S
}

// Write prints Value. Type is the value's expression annotation, which after type checking selects
// the print routine.
type Write[A, S, D, V, L any] struct {
	Value   Expr[A, S, D, V, L]
	Newline bool
	Type    A
	Tag     S
}

type Break[A, S, D, V, L any] struct{ Tag S }

type Continue[A, S, D, V, L any] struct{ Tag S }

type ExprStmt[A, S, D, V, L any] struct {
	Expr Expr[A, S, D, V, L]
	Tag  S
}

func (n *Assign[A, S, D, V, L]) Annotation() A    { return n.Tag }
func (n *Binary[A, S, D, V, L]) Annotation() A    { return n.Tag }
func (n *Unary[A, S, D, V, L]) Annotation() A     { return n.Tag }
func (n *IntLit[A, S, D, V, L]) Annotation() A    { return n.Tag }
func (n *StringLit[A, S, D, V, L]) Annotation() A { return n.Tag }
func (n *BoolLit[A, S, D, V, L]) Annotation() A   { return n.Tag }
func (n *UnitLit[A, S, D, V, L]) Annotation() A   { return n.Tag }
func (n *Variable[A, S, D, V, L]) Annotation() A  { return n.Tag }
func (n *If[A, S, D, V, L]) Annotation() A        { return n.Tag }
func (n *While[A, S, D, V, L]) Annotation() A     { return n.Tag }
func (n *Block[A, S, D, V, L]) Annotation() A     { return n.Tag }

func (*Assign[A, S, D, V, L]) exprNode()    {}
func (*Binary[A, S, D, V, L]) exprNode()    {}
func (*Unary[A, S, D, V, L]) exprNode()     {}
func (*IntLit[A, S, D, V, L]) exprNode()    {}
func (*StringLit[A, S, D, V, L]) exprNode() {}
func (*BoolLit[A, S, D, V, L]) exprNode()   {}
func (*UnitLit[A, S, D, V, L]) exprNode()   {}
func (*Variable[A, S, D, V, L]) exprNode()  {}
func (*If[A, S, D, V, L]) exprNode()        {}
func (*While[A, S, D, V, L]) exprNode()     {}
func (*Block[A, S, D, V, L]) exprNode()     {}

func (n *Declare[A, S, D, V, L]) Annotation() S  { return n.Tag }
func (n *Write[A, S, D, V, L]) Annotation() S    { return n.Tag }
func (n *Break[A, S, D, V, L]) Annotation() S    { return n.Tag }
func (n *Continue[A, S, D, V, L]) Annotation() S { return n.Tag }
func (n *ExprStmt[A, S, D, V, L]) Annotation() S { return n.Tag }

func (*Declare[A, S, D, V, L]) stmtNode()  {}
func (*Write[A, S, D, V, L]) stmtNode()    {}
func (*Break[A, S, D, V, L]) stmtNode()    {}
func (*Continue[A, S, D, V, L]) stmtNode() {}
func (*ExprStmt[A, S, D, V, L]) stmtNode() {}
