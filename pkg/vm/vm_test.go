package vm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/bytecode"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/lexer"
	"github.com/xplshn/swindle/pkg/parser"
	"github.com/xplshn/swindle/pkg/renamer"
	"github.com/xplshn/swindle/pkg/typeChecker"
)

func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnShadow, false)
	tokens, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	be.Err(t, err, nil)
	parsed, err := parser.NewParser(tokens).Parse()
	be.Err(t, err, nil)
	typed, err := typeChecker.NewTypeChecker(cfg).Check(parsed)
	be.Err(t, err, nil)
	resolved, slots := renamer.Resolve(typed)
	return bytecode.Compile(resolved, slots)
}

// run executes src with leak checking on and returns its output.
func run(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	machine := New(compile(t, src), &out, WithLeakCheck(true))
	be.Err(t, machine.Run(), nil)
	be.Equal(t, machine.Heap().Live(), 0)
	return out.String()
}

func mustPanic(t *testing.T, want string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		be.True(t, r != nil)
		be.True(t, strings.Contains(fmt.Sprint(r), want))
	}()
	f()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"int", "int x = 3; writeln x;", "3\n"},
		{"append", `string a = "foo"; string b = "bar"; writeln a + b;`, "foobar\n"},
		{"if", `int x = 1; if x == 1 { writeln "one"; } else { writeln "other"; }`, "one\n"},
		{"elif", `int x = 2; writeln if x == 1 { "one" } elif x == 2 { "two" } else { "many" };`, "two\n"},
		{"terminating loop", "bool done = false; while not done { done = true; }; writeln done;", "true\n"},
		{"shadowing", "int x = 1; { int x = 2; writeln x; }; writeln x;", "2\n1\n"},
		{"shadowed assign", "int x = 1; { int x = 2; x = 5; }; writeln x;", "1\n"},
		{"counting", `int i = 0; while i < 3 { write i; i = i + 1; }; writeln "";`, "012\n"},
		{"continue", "int i = 0; int sum = 0; while i < 10 { i = i + 1; if i % 2 == 0 { continue }; sum = sum + i; }; writeln sum;", "25\n"},
		{"break", "int i = 0; while true { if i == 4 { break }; i = i + 1; }; writeln i;", "4\n"},
		{"nested break", "int n = 0; while n < 3 { while true { break }; n = n + 1; }; writeln n;", "3\n"},
		{"display", `writeln (); writeln true; write "a"; writeln -5;`, "()\ntrue\na-5\n"},
		{"stringify", `writeln $() + "|" + $false + $"s" + $(6 * 7);`, "|falses42\n"},
		{"arithmetic", "writeln 7 - 2 * 3 + 10 / 3 % 2; writeln -7 / 2; writeln -7 % 2;", "2\n-3\n-1\n"},
		{"comparison", `writeln 1 < 2 and 2 <= 2 and not (3 > 4) and 4 >= 4; writeln () == (); writeln true != true;`, "true\ntrue\nfalse\n"},
		{"logic", "writeln true or false; writeln false and true;", "true\nfalse\n"},
		{"string compare", `string a = "ab"; writeln a == "a" + "b"; writeln a != "ab";`, "true\nfalse\n"},
		{"assign value", "int a = 0; int b = a = 4; writeln a + b;", "8\n"},
		{"left to right", "int x = 1; writeln (x = 10) - x; writeln x - (x = 3);", "0\n7\n"},
		{"min int", "writeln -9223372036854775808; writeln -9223372036854775807 - 1 == -9223372036854775808;", "-9223372036854775808\ntrue\n"},
		{"block value", "int n = { int t = 20; t + 1 }; writeln n;", "21\n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, run(t, tt.src), tt.want)
		})
	}
}

func TestHeapIsEmptyAfterStringLoops(t *testing.T) {
	got := run(t, `
string s = "";
int i = 0;
while i < 5 {
  s = s + $i;
  string tmp = s + "!";
  tmp = tmp + tmp;
  if s == "012" { continue };
  i = i + 1;
  $i + "discarded";
};
writeln s;`)
	be.Equal(t, got, "012234\n")
}

func TestAssignedStringHasTwoRoots(t *testing.T) {
	got := run(t, `string a = "x" + "y"; string b = a = a + "!"; writeln a == b; a = "z"; writeln b; a = a; writeln a;`)
	be.Equal(t, got, "true\nxy!\nz\n")
}

func TestBreakReleasesPendingStrings(t *testing.T) {
	got := run(t, `string t = "a"; while true { string u = $1 + { if true { break }; "x" }; }; writeln t;`)
	be.Equal(t, got, "a\n")
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{
		`string s = $1; int z = 0; writeln 1 / z;`,
		`string s = $1; int z = 0; writeln s + $(7 % z);`,
	} {
		var out bytes.Buffer
		machine := New(compile(t, src), &out, WithLeakCheck(true))
		err := machine.Run()
		var rerr *RuntimeError
		be.True(t, errors.As(err, &rerr))
		be.True(t, strings.HasSuffix(rerr.Msg, "by zero"))
		be.Equal(t, machine.Heap().Live(), 0)
		be.Equal(t, out.String(), "")
	}
}

func TestTraceDoesNotChangeOutput(t *testing.T) {
	var out bytes.Buffer
	machine := New(compile(t, `string s = "a"; writeln s + s;`), &out, WithTrace(true))
	be.Err(t, machine.Run(), nil)
	be.Equal(t, out.String(), "aa\n")
}

func TestInternalDefectsPanic(t *testing.T) {
	var out bytes.Buffer

	underflow := &bytecode.Program{Code: []bytecode.Instr{{Op: bytecode.OpPop}}}
	mustPanic(t, "stack underflow", func() { _ = New(underflow, &out).Run() })

	unmarked := &bytecode.Program{Code: []bytecode.Instr{{Op: bytecode.OpJump}}, LabelCount: 1}
	mustPanic(t, "label 0 is never marked", func() { _ = New(unmarked, &out).Run() })

	mismatch := &bytecode.Program{Code: []bytecode.Instr{
		{Op: bytecode.OpPushBool, Arg: 1},
		{Op: bytecode.OpNeg},
	}}
	mustPanic(t, "expected int", func() { _ = New(mismatch, &out).Run() })

	leaky := New(&bytecode.Program{}, &out, WithLeakCheck(true))
	leaky.Heap().Alloc("orphan")
	mustPanic(t, "1 heap strings leaked", func() { _ = leaky.Run() })
}

func TestHeap(t *testing.T) {
	h := NewHeap()
	a := h.Alloc("a")
	b := h.Alloc("b")
	be.Equal(t, h.Live(), 2)

	h.Incr(a)
	be.Equal(t, h.Refs(a), 2)
	h.Decr(a)
	be.Equal(t, h.Get(a), "a")
	h.Decr(a)
	be.Equal(t, h.Live(), 1)

	c := h.Alloc("c")
	be.Equal(t, c, a)
	be.Equal(t, h.Get(c), "c")
	be.Equal(t, h.Get(b), "b")

	h.Decr(b)
	mustPanic(t, "is not live", func() { h.Decr(b) })
}
