package vm

import (
	"fmt"
	"strconv"
)

// Kind tells how a Value's payload is interpreted.
type Kind byte

const (
	KindUnit  Kind = iota
	KindInt        // N is the integer
	KindBool       // N is 0 or 1
	KindConst      // N indexes the program's string table
	KindHeap       // N is a heap record id
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindConst:
		return "const"
	case KindHeap:
		return "heap"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Value is one operand stack entry or slot. Strings are either constants, which are never
// counted, or heap records, which are.
type Value struct {
	Kind Kind
	N    int64
}

var unitValue = Value{Kind: KindUnit}

func intValue(n int64) Value { return Value{Kind: KindInt, N: n} }

func boolValue(b bool) Value {
	if b {
		return Value{Kind: KindBool, N: 1}
	}
	return Value{Kind: KindBool}
}

func (v Value) IsString() bool { return v.Kind == KindConst || v.Kind == KindHeap }

func (v Value) String() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindInt:
		return strconv.FormatInt(v.N, 10)
	case KindBool:
		return strconv.FormatBool(v.N != 0)
	}
	return fmt.Sprintf("%s#%d", v.Kind, v.N)
}
