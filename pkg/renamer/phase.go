package renamer

import "github.com/xplshn/swindle/pkg/ast"

// The resolved phase: the typed tree with every variable replaced by its slot.
type (
	Expr      = ast.Expr[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Stmt      = ast.Stmt[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Body      = ast.Body[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Program   = ast.Program[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Assign    = ast.Assign[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Binary    = ast.Binary[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Unary     = ast.Unary[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	IntLit    = ast.IntLit[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	StringLit = ast.StringLit[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	BoolLit   = ast.BoolLit[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	UnitLit   = ast.UnitLit[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Variable  = ast.Variable[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Arm       = ast.Arm[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	If        = ast.If[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	While     = ast.While[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Block     = ast.Block[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Declare   = ast.Declare[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Write     = ast.Write[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Break     = ast.Break[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	Continue  = ast.Continue[ast.Type, ast.Type, ast.Type, ast.Slot, string]
	ExprStmt  = ast.ExprStmt[ast.Type, ast.Type, ast.Type, ast.Slot, string]
)
