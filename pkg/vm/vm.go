// Package vm executes compiled swindle programs on a stack machine with a reference-counted
// string heap.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/tliron/commonlog"
	"github.com/xplshn/swindle/pkg/bytecode"
	"github.com/xplshn/swindle/pkg/util"
)

// RuntimeError is returned by Run when a well-typed program fails: division or remainder by zero.
type RuntimeError struct {
	IP  int
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at instruction %d: %s", e.IP, e.Msg)
}

type Option func(*VM)

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option { return func(v *VM) { v.trace = enabled } }

// WithLeakCheck makes Run panic if any heap string survives the program.
func WithLeakCheck(enabled bool) Option { return func(v *VM) { v.leakCheck = enabled } }

type VM struct {
	prog   *bytecode.Program
	out    *bufio.Writer
	stack  []Value
	slots  []Value
	labels []int
	heap   *Heap
	ip     int

	trace     bool
	leakCheck bool
	log       commonlog.Logger
}

// New prepares prog for execution. Output of write and writeln goes to out.
func New(prog *bytecode.Program, out io.Writer, opts ...Option) *VM {
	v := &VM{
		prog:   prog,
		out:    bufio.NewWriter(out),
		stack:  make([]Value, 0, 64),
		slots:  make([]Value, prog.SlotCount),
		labels: make([]int, prog.LabelCount),
		heap:   NewHeap(),
		log:    util.Logger("vm"),
	}
	for i := range v.slots {
		v.slots[i] = unitValue
	}
	for i := range v.labels {
		v.labels[i] = -1
	}
	for i, in := range prog.Code {
		if in.Op == bytecode.OpLabel {
			v.labels[in.Arg] = i
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Heap exposes the string heap, mainly so callers can check it is empty after Run.
func (v *VM) Heap() *Heap { return v.heap }

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (v *VM) push(val Value) { v.stack = append(v.stack, val) }

func (v *VM) pop() Value {
	n := len(v.stack)
	if n == 0 {
		panic(fmt.Sprintf("vm: stack underflow at instruction %d", v.ip))
	}
	val := v.stack[n-1]
	v.stack = v.stack[:n-1]
	return val
}

func (v *VM) top() Value {
	if len(v.stack) == 0 {
		panic(fmt.Sprintf("vm: stack underflow at instruction %d", v.ip))
	}
	return v.stack[len(v.stack)-1]
}

func (v *VM) popInt() int64 {
	val := v.pop()
	if val.Kind != KindInt {
		panic(fmt.Sprintf("vm: expected int at instruction %d, found %s", v.ip, val.Kind))
	}
	return val.N
}

func (v *VM) popBool() bool {
	val := v.pop()
	if val.Kind != KindBool {
		panic(fmt.Sprintf("vm: expected bool at instruction %d, found %s", v.ip, val.Kind))
	}
	return val.N != 0
}

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

func (v *VM) retain(val Value) {
	if val.Kind == KindHeap {
		v.heap.Incr(val.N)
	}
}

func (v *VM) release(val Value) {
	if val.Kind == KindHeap {
		v.heap.Decr(val.N)
	}
}

// text returns the content of a string value.
func (v *VM) text(val Value) string {
	switch val.Kind {
	case KindConst:
		return v.prog.Strings[val.N]
	case KindHeap:
		return v.heap.Get(val.N)
	}
	panic(fmt.Sprintf("vm: expected string at instruction %d, found %s", v.ip, val.Kind))
}

// display is the form write and writeln print.
func (v *VM) display(val Value) string {
	if val.IsString() {
		return v.text(val)
	}
	return val.String()
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Run executes the program to completion. Every slot and leftover stack value is released at
// halt, so the heap is empty afterwards.
func (v *VM) Run() error {
	v.log.Infof("running %d instructions, %d slots, %d strings", len(v.prog.Code), len(v.slots), len(v.prog.Strings))
	err := v.loop()
	v.halt()
	if ferr := v.out.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("writing output: %w", ferr)
	}
	return err
}

func (v *VM) loop() error {
	for v.ip = 0; v.ip < len(v.prog.Code); v.ip++ {
		in := v.prog.Code[v.ip]
		if v.trace {
			v.log.Debugf("[%04d] %-10s sp=%d", v.ip, in, len(v.stack))
		}
		if err := v.step(in); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) halt() {
	for _, val := range v.stack {
		v.release(val)
	}
	v.stack = v.stack[:0]
	for i, val := range v.slots {
		v.release(val)
		v.slots[i] = unitValue
	}
	live := v.heap.Live()
	v.log.Debugf("halted at instruction %d, %d heap strings live", v.ip, live)
	if v.leakCheck && live != 0 {
		panic(fmt.Sprintf("vm: %d heap strings leaked", live))
	}
}

func (v *VM) jump(label int64) {
	target := v.labels[label]
	if target < 0 {
		panic(fmt.Sprintf("vm: label %d is never marked", label))
	}
	// Run advances past the label marker, which is a no-op anyway.
	v.ip = target
}

func (v *VM) step(in bytecode.Instr) error {
	switch in.Op {
	case bytecode.OpPushInt:
		v.push(intValue(in.Arg))
	case bytecode.OpPushBool:
		v.push(boolValue(in.Arg != 0))
	case bytecode.OpPushUnit:
		v.push(unitValue)
	case bytecode.OpPushString:
		v.push(Value{Kind: KindConst, N: in.Arg})

	case bytecode.OpPop:
		v.release(v.pop())

	case bytecode.OpLoad:
		val := v.slots[in.Arg]
		v.retain(val)
		v.push(val)
	case bytecode.OpDeclare:
		// The stack's reference moves into the slot.
		val := v.pop()
		v.release(v.slots[in.Arg])
		v.slots[in.Arg] = val
	case bytecode.OpAssign:
		// The value stays on the stack as the expression's result, so it gains a reference.
		val := v.top()
		v.retain(val)
		v.release(v.slots[in.Arg])
		v.slots[in.Arg] = val

	case bytecode.OpNeg:
		v.push(intValue(-v.popInt()))
	case bytecode.OpNot:
		v.push(boolValue(!v.popBool()))
	case bytecode.OpStringify:
		v.stringify()

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpRem:
		return v.arith(in.Op)
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b, a := v.popInt(), v.popInt()
		v.push(boolValue(compareInts(in.Op, a, b)))
	case bytecode.OpAnd:
		b, a := v.popBool(), v.popBool()
		v.push(boolValue(a && b))
	case bytecode.OpOr:
		b, a := v.popBool(), v.popBool()
		v.push(boolValue(a || b))
	case bytecode.OpEq, bytecode.OpNe:
		b, a := v.pop(), v.pop()
		if a.IsString() || b.IsString() || a.Kind != b.Kind {
			panic(fmt.Sprintf("vm: cannot compare %s with %s at instruction %d", a.Kind, b.Kind, v.ip))
		}
		v.push(boolValue((a.N == b.N) == (in.Op == bytecode.OpEq)))

	case bytecode.OpStrEq, bytecode.OpStrNe:
		b, a := v.pop(), v.pop()
		equal := v.text(a) == v.text(b)
		v.release(a)
		v.release(b)
		v.push(boolValue(equal == (in.Op == bytecode.OpStrEq)))
	case bytecode.OpAppend:
		b, a := v.pop(), v.pop()
		s := v.text(a) + v.text(b)
		v.release(a)
		v.release(b)
		v.push(Value{Kind: KindHeap, N: v.heap.Alloc(s)})

	case bytecode.OpWrite, bytecode.OpWriteln:
		val := v.pop()
		v.out.WriteString(v.display(val))
		if in.Op == bytecode.OpWriteln {
			v.out.WriteByte('\n')
		}
		v.release(val)

	case bytecode.OpLabel:
	case bytecode.OpJump:
		v.jump(in.Arg)
	case bytecode.OpJumpFalse:
		if !v.popBool() {
			v.jump(in.Arg)
		}

	default:
		panic(fmt.Sprintf("vm: unknown opcode %s at instruction %d", in.Op, v.ip))
	}
	return nil
}

func (v *VM) stringify() {
	val := v.pop()
	var s string
	switch val.Kind {
	case KindConst, KindHeap:
		v.push(val)
		return
	case KindInt:
		s = strconv.FormatInt(val.N, 10)
	case KindBool:
		s = strconv.FormatBool(val.N != 0)
	case KindUnit:
		s = ""
	}
	v.push(Value{Kind: KindHeap, N: v.heap.Alloc(s)})
}

func (v *VM) arith(op bytecode.Opcode) error {
	b, a := v.popInt(), v.popInt()
	var r int64
	switch op {
	case bytecode.OpAdd:
		r = a + b
	case bytecode.OpSub:
		r = a - b
	case bytecode.OpMul:
		r = a * b
	case bytecode.OpDiv:
		if b == 0 {
			return &RuntimeError{IP: v.ip, Msg: "division by zero"}
		}
		r = a / b
	case bytecode.OpRem:
		if b == 0 {
			return &RuntimeError{IP: v.ip, Msg: "remainder by zero"}
		}
		r = a % b
	}
	v.push(intValue(r))
	return nil
}

func compareInts(op bytecode.Opcode, a, b int64) bool {
	switch op {
	case bytecode.OpLt:
		return a < b
	case bytecode.OpLe:
		return a <= b
	case bytecode.OpGt:
		return a > b
	}
	return a >= b
}
