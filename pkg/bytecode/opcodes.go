// Package bytecode lowers a slot-resolved swindle program to a flat instruction stream for the
// stack VM, and reads and writes compiled programs.
package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is a single VM instruction.
type Opcode byte

// Push constants
const (
	OpPushInt    Opcode = 0x00 // push Arg as int
	OpPushBool   Opcode = 0x01 // push Arg != 0
	OpPushUnit   Opcode = 0x02 // push ()
	OpPushString Opcode = 0x03 // push string constant Arg
)

// Stack operations
const (
	OpPop Opcode = 0x10 // discard top of stack, releasing heap strings
)

// Variables
const (
	OpLoad    Opcode = 0x20 // push slot Arg
	OpDeclare Opcode = 0x21 // pop into slot Arg
	OpAssign  Opcode = 0x22 // store top into slot Arg, leaving it on the stack
)

// Arithmetic and logic
const (
	OpNeg       Opcode = 0x30
	OpNot       Opcode = 0x31
	OpStringify Opcode = 0x32
	OpAdd       Opcode = 0x33
	OpSub       Opcode = 0x34
	OpMul       Opcode = 0x35
	OpDiv       Opcode = 0x36
	OpRem       Opcode = 0x37
	OpAnd       Opcode = 0x38
	OpOr        Opcode = 0x39
)

// Comparison
const (
	OpEq Opcode = 0x40 // int, bool and unit equality
	OpNe Opcode = 0x41
	OpLt Opcode = 0x42
	OpLe Opcode = 0x43
	OpGt Opcode = 0x44
	OpGe Opcode = 0x45
)

// Strings
const (
	OpStrEq  Opcode = 0x50
	OpStrNe  Opcode = 0x51
	OpAppend Opcode = 0x52 // concatenate into a new heap string
)

// Output
const (
	OpWrite   Opcode = 0x60
	OpWriteln Opcode = 0x61
)

// Control flow
const (
	OpLabel     Opcode = 0x70 // marks label Arg; no-op at run time
	OpJump      Opcode = 0x71 // jump to label Arg
	OpJumpFalse Opcode = 0x72 // pop, jump to label Arg if false
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Operand kinds, used by the disassembler.
const (
	NoOperand     = ""
	IntOperand    = "int"
	SlotOperand   = "slot"
	StringOperand = "string"
	LabelOperand  = "label"
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name    string // human-readable name
	Pop     int    // values consumed
	Push    int    // values produced
	Operand string // meaning of Instr.Arg
}

var opcodeTable = map[Opcode]OpcodeInfo{
	// Push constants
	OpPushInt:    {"PUSH_INT", 0, 1, IntOperand},
	OpPushBool:   {"PUSH_BOOL", 0, 1, IntOperand},
	OpPushUnit:   {"PUSH_UNIT", 0, 1, NoOperand},
	OpPushString: {"PUSH_STRING", 0, 1, StringOperand},

	OpPop: {"POP", 1, 0, NoOperand},

	// Variables
	OpLoad:    {"LOAD", 0, 1, SlotOperand},
	OpDeclare: {"DECLARE", 1, 0, SlotOperand},
	OpAssign:  {"ASSIGN", 1, 1, SlotOperand},

	// Arithmetic and logic
	OpNeg:       {"NEG", 1, 1, NoOperand},
	OpNot:       {"NOT", 1, 1, NoOperand},
	OpStringify: {"STRINGIFY", 1, 1, NoOperand},
	OpAdd:       {"ADD", 2, 1, NoOperand},
	OpSub:       {"SUB", 2, 1, NoOperand},
	OpMul:       {"MUL", 2, 1, NoOperand},
	OpDiv:       {"DIV", 2, 1, NoOperand},
	OpRem:       {"REM", 2, 1, NoOperand},
	OpAnd:       {"AND", 2, 1, NoOperand},
	OpOr:        {"OR", 2, 1, NoOperand},

	// Comparison
	OpEq: {"EQ", 2, 1, NoOperand},
	OpNe: {"NE", 2, 1, NoOperand},
	OpLt: {"LT", 2, 1, NoOperand},
	OpLe: {"LE", 2, 1, NoOperand},
	OpGt: {"GT", 2, 1, NoOperand},
	OpGe: {"GE", 2, 1, NoOperand},

	// Strings
	OpStrEq:  {"STR_EQ", 2, 1, NoOperand},
	OpStrNe:  {"STR_NE", 2, 1, NoOperand},
	OpAppend: {"APPEND", 2, 1, NoOperand},

	// Output
	OpWrite:   {"WRITE", 1, 0, NoOperand},
	OpWriteln: {"WRITELN", 1, 0, NoOperand},

	// Control flow
	OpLabel:     {"LABEL", 0, 0, LabelOperand},
	OpJump:      {"JUMP", 0, 0, LabelOperand},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, LabelOperand},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// StackEffect is the net change in stack depth after executing op.
func (op Opcode) StackEffect() int {
	info := op.Info()
	return info.Push - info.Pop
}

// IsJump reports whether op transfers control to a label.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpFalse
}

func (op Opcode) String() string {
	return op.Info().Name
}

// Instr is one instruction. Arg is interpreted according to the opcode's Operand kind.
type Instr struct {
	Op  Opcode `cbor:"1,keyasint"`
	Arg int64  `cbor:"2,keyasint,omitempty"`
}

func (in Instr) String() string {
	if in.Op.Info().Operand == NoOperand {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d", in.Op, in.Arg)
}
