package parser

import (
	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/token"
)

// The parsed phase: expressions carry nothing, statements carry the token they start at,
// variables and string literals are still plain strings.
type (
	Expr      = ast.Expr[ast.Untyped, token.Token, ast.Type, string, string]
	Stmt      = ast.Stmt[ast.Untyped, token.Token, ast.Type, string, string]
	Body      = ast.Body[ast.Untyped, token.Token, ast.Type, string, string]
	Program   = ast.Program[ast.Untyped, token.Token, ast.Type, string, string]
	Assign    = ast.Assign[ast.Untyped, token.Token, ast.Type, string, string]
	Binary    = ast.Binary[ast.Untyped, token.Token, ast.Type, string, string]
	Unary     = ast.Unary[ast.Untyped, token.Token, ast.Type, string, string]
	IntLit    = ast.IntLit[ast.Untyped, token.Token, ast.Type, string, string]
	StringLit = ast.StringLit[ast.Untyped, token.Token, ast.Type, string, string]
	BoolLit   = ast.BoolLit[ast.Untyped, token.Token, ast.Type, string, string]
	UnitLit   = ast.UnitLit[ast.Untyped, token.Token, ast.Type, string, string]
	Variable  = ast.Variable[ast.Untyped, token.Token, ast.Type, string, string]
	Arm       = ast.Arm[ast.Untyped, token.Token, ast.Type, string, string]
	If        = ast.If[ast.Untyped, token.Token, ast.Type, string, string]
	While     = ast.While[ast.Untyped, token.Token, ast.Type, string, string]
	Block     = ast.Block[ast.Untyped, token.Token, ast.Type, string, string]
	Declare   = ast.Declare[ast.Untyped, token.Token, ast.Type, string, string]
	Write     = ast.Write[ast.Untyped, token.Token, ast.Type, string, string]
	Break     = ast.Break[ast.Untyped, token.Token, ast.Type, string, string]
	Continue  = ast.Continue[ast.Untyped, token.Token, ast.Type, string, string]
	ExprStmt  = ast.ExprStmt[ast.Untyped, token.Token, ast.Type, string, string]
)
