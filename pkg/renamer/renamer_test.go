package renamer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/lexer"
	"github.com/xplshn/swindle/pkg/parser"
	"github.com/xplshn/swindle/pkg/typeChecker"
)

func resolve(t *testing.T, src string) (*Program, int) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnShadow, false)
	tokens, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	be.Err(t, err, nil)
	parsed, err := parser.NewParser(tokens).Parse()
	be.Err(t, err, nil)
	typed, err := typeChecker.NewTypeChecker(cfg).Check(parsed)
	be.Err(t, err, nil)
	return Resolve(typed)
}

func TestSlotsAreAssignedInDeclarationOrder(t *testing.T) {
	prog, n := resolve(t, `int a = 1; string b = "x"; a = a + 1; writeln b;`)
	be.Equal(t, n, 2)
	want := `Declare int #0 : unit
  Int 1 : int
Declare string #1 : unit
  String "x" : string
Expr : int
  Assign #0 : int
    Binary + : int
      Var #0 : int
      Int 1 : int
Writeln : unit
  Var #1 : string
`
	if diff := cmp.Diff(want, ast.Dump(prog)); diff != "" {
		t.Errorf("resolved tree mismatch (-want +got):\n%s", diff)
	}
}

func TestShadowingGetsFreshSlot(t *testing.T) {
	prog, n := resolve(t, `int x = 1; { int x = x + 1; writeln x; }; writeln x;`)
	be.Equal(t, n, 2)
	want := `Declare int #0 : unit
  Int 1 : int
Expr : unit
  Block : unit
    Declare int #1 : unit
      Binary + : int
        Var #0 : int
        Int 1 : int
    Writeln : unit
      Var #1 : int
Writeln : unit
  Var #0 : int
`
	be.Equal(t, ast.Dump(prog), want)
}

func TestSiblingBlocksDoNotReuseSlots(t *testing.T) {
	_, n := resolve(t, `{ int a = 1; }; { int b = 2; }; if true { int c = 3; } else { int d = 4; }`)
	be.Equal(t, n, 4)

	prog, n := resolve(t, `int i = 0; while i < 3 { int sq = i * i; i = i + 1; }`)
	be.Equal(t, n, 2)
	loop := prog.Body.Stmts[1].(*ExprStmt).Expr.(*While)
	decl := loop.Body.Stmts[0].(*Declare)
	be.Equal(t, decl.Var, ast.Slot(1))
}

func TestEmptyProgram(t *testing.T) {
	prog, n := resolve(t, ``)
	be.Equal(t, n, 0)
	be.Equal(t, len(prog.Body.Stmts), 0)
}
