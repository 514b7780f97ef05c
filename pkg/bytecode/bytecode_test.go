package bytecode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/lexer"
	"github.com/xplshn/swindle/pkg/parser"
	"github.com/xplshn/swindle/pkg/renamer"
	"github.com/xplshn/swindle/pkg/typeChecker"
)

func compile(t *testing.T, src string) *Program {
	t.Helper()
	cfg := config.NewConfig()
	tokens, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	be.Err(t, err, nil)
	parsed, err := parser.NewParser(tokens).Parse()
	be.Err(t, err, nil)
	typed, err := typeChecker.NewTypeChecker(cfg).Check(parsed)
	be.Err(t, err, nil)
	resolved, slots := renamer.Resolve(typed)
	return Compile(resolved, slots)
}

func diffCode(t *testing.T, want, got []Instr) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func errContains(t *testing.T, err error, want string) {
	t.Helper()
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), want))
}

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		effect  int
		operand string
	}{
		{OpPushInt, "PUSH_INT", 1, IntOperand},
		{OpPushString, "PUSH_STRING", 1, StringOperand},
		{OpPop, "POP", -1, NoOperand},
		{OpLoad, "LOAD", 1, SlotOperand},
		{OpDeclare, "DECLARE", -1, SlotOperand},
		{OpAssign, "ASSIGN", 0, SlotOperand},
		{OpAdd, "ADD", -1, NoOperand},
		{OpStringify, "STRINGIFY", 0, NoOperand},
		{OpAppend, "APPEND", -1, NoOperand},
		{OpWriteln, "WRITELN", -1, NoOperand},
		{OpLabel, "LABEL", 0, LabelOperand},
		{OpJumpFalse, "JUMP_FALSE", -1, LabelOperand},
	}
	for _, tt := range tests {
		info := tt.op.Info()
		be.Equal(t, info.Name, tt.name)
		be.Equal(t, info.Operand, tt.operand)
		be.Equal(t, tt.op.StackEffect(), tt.effect)
	}

	be.Equal(t, Opcode(0xEE).String(), "UNKNOWN_EE")
	be.True(t, !Opcode(0xEE).Valid())
	be.True(t, OpJump.IsJump())
	be.True(t, !OpLabel.IsJump())
}

func TestCompileDeclareAndWrite(t *testing.T) {
	p := compile(t, "int x = 3; writeln x;")
	diffCode(t, []Instr{
		{OpPushInt, 3},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpLoad, 0},
		{OpWriteln, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
	}, p.Code)
	be.Equal(t, p.SlotCount, 1)
	be.Equal(t, p.LabelCount, 0)
}

func TestCompileBlocksPopAllButLast(t *testing.T) {
	p := compile(t, "int n = { 1; 2 }; {}")
	diffCode(t, []Instr{
		{OpPushInt, 1},
		{OpPop, 0},
		{OpPushInt, 2},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
	}, p.Code)
}

func TestCompileEvaluatesLeftOperandFirst(t *testing.T) {
	p := compile(t, "10 - 4")
	diffCode(t, []Instr{
		{OpPushInt, 10},
		{OpPushInt, 4},
		{OpSub, 0},
		{OpPop, 0},
	}, p.Code)
}

func TestCompileStringOperations(t *testing.T) {
	p := compile(t, `string a = "x"; string b = "x" + "y"; writeln a == "x"; writeln a != b`)
	be.Equal(t, p.Strings, []string{"x", "y"})
	diffCode(t, []Instr{
		{OpPushString, 0},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpPushString, 0},
		{OpPushString, 1},
		{OpAppend, 0},
		{OpDeclare, 1},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpLoad, 0},
		{OpPushString, 0},
		{OpStrEq, 0},
		{OpWriteln, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpLoad, 0},
		{OpLoad, 1},
		{OpStrNe, 0},
		{OpWriteln, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
	}, p.Code)
}

func TestCompileIf(t *testing.T) {
	p := compile(t, `int x = 1; if x == 1 { writeln "one"; } else { writeln "other"; }`)
	diffCode(t, []Instr{
		{OpPushInt, 1},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpLoad, 0},
		{OpPushInt, 1},
		{OpEq, 0},
		{OpJumpFalse, 1},
		{OpPushString, 0},
		{OpWriteln, 0},
		{OpPushUnit, 0},
		{OpJump, 0},
		{OpLabel, 1},
		{OpPushString, 1},
		{OpWriteln, 0},
		{OpPushUnit, 0},
		{OpLabel, 0},
		{OpPop, 0},
	}, p.Code)
	be.Equal(t, p.LabelCount, 2)
}

func TestCompileWhile(t *testing.T) {
	p := compile(t, "bool done = false; while not done { done = true; }")
	diffCode(t, []Instr{
		{OpPushBool, 0},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpLabel, 0},
		{OpLoad, 0},
		{OpNot, 0},
		{OpJumpFalse, 1},
		{OpPushBool, 1},
		{OpAssign, 0},
		{OpPop, 0},
		{OpJump, 0},
		{OpLabel, 1},
		{OpPushUnit, 0},
		{OpPop, 0},
	}, p.Code)
}

func TestBreakPopsPendingOperands(t *testing.T) {
	p := compile(t, "while true { int n = 1 + { if true { break }; 2 }; }")
	diffCode(t, []Instr{
		{OpLabel, 0},
		{OpPushBool, 1},
		{OpJumpFalse, 1},
		{OpPushInt, 1},
		{OpPushBool, 1},
		{OpJumpFalse, 3},
		{OpPop, 0}, // the pending left operand of '+'
		{OpJump, 1},
		{OpJump, 2},
		{OpLabel, 3},
		{OpPushUnit, 0},
		{OpLabel, 2},
		{OpPop, 0},
		{OpPushInt, 2},
		{OpAdd, 0},
		{OpDeclare, 0},
		{OpPushUnit, 0},
		{OpPop, 0},
		{OpJump, 0},
		{OpLabel, 1},
		{OpPushUnit, 0},
		{OpPop, 0},
	}, p.Code)
}

func TestContinueTargetsInnermostLoop(t *testing.T) {
	p := compile(t, "while true { while false { continue }; break }")
	var jumps []Instr
	for _, in := range p.Code {
		if in.Op == OpJump {
			jumps = append(jumps, in)
		}
	}
	// inner continue, inner back edge, outer break, outer back edge
	diffCode(t, []Instr{{OpJump, 2}, {OpJump, 2}, {OpJump, 1}, {OpJump, 0}}, jumps)
	be.Err(t, p.Validate(), nil)
}

func TestDisassemble(t *testing.T) {
	p := compile(t, `string s = "hi"; while false { }; writeln s`)
	got := Disassemble(p)
	be.True(t, strings.HasPrefix(got, "; slots: 1, labels: 2, strings: 1\n; string 0 = \"hi\"\n"))
	be.True(t, strings.Contains(got, "0000  PUSH_STRING  0 ; \"hi\"\n"))
	be.True(t, strings.Contains(got, "0001  DECLARE      #0\n"))
	be.True(t, strings.Contains(got, "0004  LABEL        L0\n"))
	be.True(t, strings.Contains(got, "0003  POP\n"))
}

func TestMarshalRoundTrip(t *testing.T) {
	src := `string a = "foo"; string b = "bar"; writeln a + b;`
	p := compile(t, src)
	p.SourceHash = HashSource([]rune(src))

	data, err := Marshal(p)
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(string(data), "SWBC"))

	got, err := Unmarshal(data)
	be.Err(t, err, nil)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := Marshal(got)
	be.Err(t, err, nil)
	be.Equal(t, again, data)
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	_, err := Unmarshal([]byte("#!/bin/sh"))
	errContains(t, err, "not a compiled swindle program")

	bad := &Program{Code: []Instr{{OpLoad, 3}}, SlotCount: 1}
	data, err := Marshal(bad)
	be.Err(t, err, nil)
	_, err = Unmarshal(data)
	errContains(t, err, "LOAD operand 3 out of range")

	bad = &Program{Code: []Instr{{OpJump, 0}}, LabelCount: 1}
	errContains(t, bad.Validate(), "label 0 is never marked")

	bad = &Program{Code: []Instr{{OpLabel, 0}, {OpLabel, 0}}, LabelCount: 1}
	errContains(t, bad.Validate(), "marked twice")

	bad = &Program{Code: []Instr{{Opcode(0xEE), 0}}}
	errContains(t, bad.Validate(), "unknown opcode 0xee")

	tables := []struct {
		prog *Program
		msg  string
	}{
		{&Program{LabelCount: -1}, "negative label count -1"},
		{&Program{SlotCount: -1}, "negative slot count -1"},
		{&Program{Code: []Instr{{OpLabel, 0}}, LabelCount: 2}, "label count 2 exceeds instruction count 1"},
	}
	for _, tt := range tables {
		data, err := Marshal(tt.prog)
		be.Err(t, err, nil)
		_, err = Unmarshal(data)
		errContains(t, err, tt.msg)
	}
}

func TestCached(t *testing.T) {
	src := []rune("int x = 3; writeln x;")
	path := filepath.Join(t.TempDir(), "prog"+Extension)

	_, ok, err := Cached(path, src)
	be.Err(t, err, nil)
	be.True(t, !ok)

	p := compile(t, string(src))
	p.SourceHash = HashSource(src)
	be.Err(t, Save(path, p), nil)

	got, ok, err := Cached(path, src)
	be.Err(t, err, nil)
	be.True(t, ok)
	be.Equal(t, len(got.Code), len(p.Code))

	_, ok, err = Cached(path, []rune("int x = 4; writeln x;"))
	be.Err(t, err, nil)
	be.True(t, !ok)

	be.Err(t, os.WriteFile(path, []byte("garbage"), 0o644), nil)
	_, _, err = Cached(path, src)
	errContains(t, err, "not a compiled swindle program")
}
