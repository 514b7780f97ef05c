package bytecode

import (
	"fmt"

	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/renamer"
)

// Context is the compiler state threaded through one compilation.
type Context struct {
	code       []Instr
	strings    []string
	stringIDs  map[string]int
	labelCount int
	// depth is the operand stack depth at the current point of the instruction stream.
	depth int

	breakLabel    int
	continueLabel int
	// loopDepth is the stack depth on entry to the innermost loop; -1 outside loops.
	loopDepth int
}

func newContext() *Context {
	return &Context{stringIDs: make(map[string]int), breakLabel: -1, continueLabel: -1, loopDepth: -1}
}

// Compile lowers a resolved program. Every top-level statement's value is popped, so the operand
// stack is empty when the program halts.
func Compile(prog *renamer.Program, slotCount int) *Program {
	ctx := newContext()
	for _, stmt := range prog.Body.Stmts {
		ctx.codegenStmt(stmt)
		ctx.emit(OpPop, 0)
	}
	if ctx.depth != 0 {
		panic(fmt.Sprintf("bytecode: stack depth %d at end of program", ctx.depth))
	}
	return &Program{
		Code:       ctx.code,
		Strings:    ctx.strings,
		LabelCount: ctx.labelCount,
		SlotCount:  slotCount,
	}
}

func (ctx *Context) emit(op Opcode, arg int64) {
	ctx.code = append(ctx.code, Instr{Op: op, Arg: arg})
	ctx.depth += op.StackEffect()
}

func (ctx *Context) newLabel() int {
	l := ctx.labelCount
	ctx.labelCount++
	return l
}

func (ctx *Context) mark(label int) { ctx.emit(OpLabel, int64(label)) }

func (ctx *Context) addString(value string) int64 {
	if id, ok := ctx.stringIDs[value]; ok {
		return int64(id)
	}
	id := len(ctx.strings)
	ctx.strings = append(ctx.strings, value)
	ctx.stringIDs[value] = id
	return int64(id)
}

// codegenBody leaves exactly one value: the last statement's, or unit for an empty body.
func (ctx *Context) codegenBody(body renamer.Body) {
	if len(body.Stmts) == 0 {
		ctx.emit(OpPushUnit, 0)
		return
	}
	for i, stmt := range body.Stmts {
		ctx.codegenStmt(stmt)
		if i < len(body.Stmts)-1 {
			ctx.emit(OpPop, 0)
		}
	}
}

// codegenStmt emits code that leaves exactly one value on the stack.
func (ctx *Context) codegenStmt(stmt renamer.Stmt) {
	switch s := stmt.(type) {
	case *renamer.Declare:
		ctx.codegenExpr(s.Init)
		ctx.emit(OpDeclare, int64(s.Var))
		ctx.emit(OpPushUnit, 0)
	case *renamer.Write:
		ctx.codegenExpr(s.Value)
		if s.Newline {
			ctx.emit(OpWriteln, 0)
		} else {
			ctx.emit(OpWrite, 0)
		}
		ctx.emit(OpPushUnit, 0)
	case *renamer.Break:
		ctx.codegenJumpOut(ctx.breakLabel)
	case *renamer.Continue:
		ctx.codegenJumpOut(ctx.continueLabel)
	case *renamer.ExprStmt:
		ctx.codegenExpr(s.Expr)
	default:
		panic(fmt.Sprintf("bytecode: unknown statement %T", stmt))
	}
}

// codegenJumpOut leaves the innermost loop. Values pushed since the loop was entered belong to
// expressions that will never complete, so they are popped first.
func (ctx *Context) codegenJumpOut(label int) {
	if label < 0 {
		panic("bytecode: break or continue outside of a loop")
	}
	depth := ctx.depth
	for i := ctx.loopDepth; i < depth; i++ {
		ctx.emit(OpPop, 0)
	}
	ctx.emit(OpJump, int64(label))
	// Code after the jump is unreachable; account for the value the statement nominally produces.
	ctx.depth = depth + 1
}

var binaryOpcodes = map[ast.BinaryOp]Opcode{
	ast.OpOr: OpOr, ast.OpAnd: OpAnd,
	ast.OpEq: OpEq, ast.OpNeq: OpNe,
	ast.OpLt: OpLt, ast.OpLte: OpLe, ast.OpGt: OpGt, ast.OpGte: OpGe,
	ast.OpAdd: OpAdd, ast.OpSub: OpSub,
	ast.OpMul: OpMul, ast.OpDiv: OpDiv, ast.OpRem: OpRem,
}

// stringOpcodes replace the generic opcode when the left operand is a string.
var stringOpcodes = map[ast.BinaryOp]Opcode{
	ast.OpEq: OpStrEq, ast.OpNeq: OpStrNe, ast.OpAdd: OpAppend,
}

var unaryOpcodes = map[ast.UnaryOp]Opcode{
	ast.OpNegate: OpNeg, ast.OpNot: OpNot, ast.OpStringify: OpStringify,
}

func (ctx *Context) codegenExpr(expr renamer.Expr) {
	switch e := expr.(type) {
	case *renamer.IntLit:
		ctx.emit(OpPushInt, e.Value)
	case *renamer.StringLit:
		ctx.emit(OpPushString, ctx.addString(e.Value))
	case *renamer.BoolLit:
		var arg int64
		if e.Value {
			arg = 1
		}
		ctx.emit(OpPushBool, arg)
	case *renamer.UnitLit:
		ctx.emit(OpPushUnit, 0)
	case *renamer.Variable:
		ctx.emit(OpLoad, int64(e.Name))
	case *renamer.Assign:
		ctx.codegenExpr(e.Value)
		ctx.emit(OpAssign, int64(e.Var))

	case *renamer.Binary:
		ctx.codegenExpr(e.Left)
		ctx.codegenExpr(e.Right)
		op, ok := binaryOpcodes[e.Op]
		if e.Left.Annotation() == ast.TypeString {
			if sop, isString := stringOpcodes[e.Op]; isString {
				op = sop
			}
		}
		if !ok {
			panic(fmt.Sprintf("bytecode: unknown binary operator %v", e.Op))
		}
		ctx.emit(op, 0)

	case *renamer.Unary:
		ctx.codegenExpr(e.Operand)
		op, ok := unaryOpcodes[e.Op]
		if !ok {
			panic(fmt.Sprintf("bytecode: unknown unary operator %v", e.Op))
		}
		ctx.emit(op, 0)

	case *renamer.Block:
		ctx.codegenBody(e.Body)
	case *renamer.If:
		ctx.codegenIf(e)
	case *renamer.While:
		ctx.codegenWhile(e)
	default:
		panic(fmt.Sprintf("bytecode: unknown expression %T", expr))
	}
}

func (ctx *Context) codegenIf(e *renamer.If) {
	base := ctx.depth
	endLabel := ctx.newLabel()
	for _, arm := range e.Arms {
		nextLabel := ctx.newLabel()
		ctx.codegenExpr(arm.Cond)
		ctx.emit(OpJumpFalse, int64(nextLabel))
		ctx.codegenBody(arm.Body)
		ctx.emit(OpJump, int64(endLabel))
		ctx.mark(nextLabel)
		ctx.depth = base
	}
	if e.Else != nil {
		ctx.codegenBody(*e.Else)
	} else {
		ctx.emit(OpPushUnit, 0)
	}
	ctx.mark(endLabel)
	ctx.depth = base + 1
}

// codegenWhile discards the body's value on every iteration; the loop itself yields unit.
func (ctx *Context) codegenWhile(e *renamer.While) {
	startLabel, endLabel := ctx.newLabel(), ctx.newLabel()
	base := ctx.depth

	ctx.mark(startLabel)
	ctx.codegenExpr(e.Cond)
	ctx.emit(OpJumpFalse, int64(endLabel))

	oldBreak, oldContinue, oldDepth := ctx.breakLabel, ctx.continueLabel, ctx.loopDepth
	ctx.breakLabel, ctx.continueLabel, ctx.loopDepth = endLabel, startLabel, base
	ctx.codegenBody(e.Body)
	ctx.breakLabel, ctx.continueLabel, ctx.loopDepth = oldBreak, oldContinue, oldDepth

	ctx.emit(OpPop, 0)
	ctx.emit(OpJump, int64(startLabel))
	ctx.mark(endLabel)
	ctx.depth = base
	ctx.emit(OpPushUnit, 0)
}
