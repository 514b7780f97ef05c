package typeChecker

import "github.com/xplshn/swindle/pkg/ast"

// The typed phase: every expression and statement carries its static type; variables and string
// literals are still plain strings.
type (
	Expr      = ast.Expr[ast.Type, ast.Type, ast.Type, string, string]
	Stmt      = ast.Stmt[ast.Type, ast.Type, ast.Type, string, string]
	Body      = ast.Body[ast.Type, ast.Type, ast.Type, string, string]
	Program   = ast.Program[ast.Type, ast.Type, ast.Type, string, string]
	Assign    = ast.Assign[ast.Type, ast.Type, ast.Type, string, string]
	Binary    = ast.Binary[ast.Type, ast.Type, ast.Type, string, string]
	Unary     = ast.Unary[ast.Type, ast.Type, ast.Type, string, string]
	IntLit    = ast.IntLit[ast.Type, ast.Type, ast.Type, string, string]
	StringLit = ast.StringLit[ast.Type, ast.Type, ast.Type, string, string]
	BoolLit   = ast.BoolLit[ast.Type, ast.Type, ast.Type, string, string]
	UnitLit   = ast.UnitLit[ast.Type, ast.Type, ast.Type, string, string]
	Variable  = ast.Variable[ast.Type, ast.Type, ast.Type, string, string]
	Arm       = ast.Arm[ast.Type, ast.Type, ast.Type, string, string]
	If        = ast.If[ast.Type, ast.Type, ast.Type, string, string]
	While     = ast.While[ast.Type, ast.Type, ast.Type, string, string]
	Block     = ast.Block[ast.Type, ast.Type, ast.Type, string, string]
	Declare   = ast.Declare[ast.Type, ast.Type, ast.Type, string, string]
	Write     = ast.Write[ast.Type, ast.Type, ast.Type, string, string]
	Break     = ast.Break[ast.Type, ast.Type, ast.Type, string, string]
	Continue  = ast.Continue[ast.Type, ast.Type, ast.Type, string, string]
	ExprStmt  = ast.ExprStmt[ast.Type, ast.Type, ast.Type, string, string]
)
