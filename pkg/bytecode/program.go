package bytecode

import "fmt"

// Program is a compiled swindle program: everything the VM needs to size its tables and run.
type Program struct {
	Code       []Instr  `cbor:"1,keyasint"`
	Strings    []string `cbor:"2,keyasint"`
	LabelCount int      `cbor:"3,keyasint"`
	SlotCount  int      `cbor:"4,keyasint"`
	// SourceHash is the xxhash of the source text the program was compiled from.
	SourceHash uint64 `cbor:"5,keyasint"`
}

// Validate checks that every operand is in range and every label is marked exactly once. Programs
// produced by Compile are always valid; Validate guards programs read from disk.
func (p *Program) Validate() error {
	if p.SlotCount < 0 {
		return fmt.Errorf("negative slot count %d", p.SlotCount)
	}
	if p.LabelCount < 0 {
		return fmt.Errorf("negative label count %d", p.LabelCount)
	}
	// Every label is marked by its own instruction.
	if p.LabelCount > len(p.Code) {
		return fmt.Errorf("label count %d exceeds instruction count %d", p.LabelCount, len(p.Code))
	}
	marked := make([]bool, p.LabelCount)
	for i, in := range p.Code {
		if !in.Op.Valid() {
			return fmt.Errorf("instruction %d: unknown opcode 0x%02x", i, byte(in.Op))
		}
		var limit int
		switch in.Op.Info().Operand {
		case SlotOperand:
			limit = p.SlotCount
		case StringOperand:
			limit = len(p.Strings)
		case LabelOperand:
			limit = p.LabelCount
		default:
			continue
		}
		if in.Arg < 0 || in.Arg >= int64(limit) {
			return fmt.Errorf("instruction %d: %s operand %d out of range", i, in.Op, in.Arg)
		}
		if in.Op == OpLabel {
			if marked[in.Arg] {
				return fmt.Errorf("instruction %d: label %d marked twice", i, in.Arg)
			}
			marked[in.Arg] = true
		}
	}
	for label, ok := range marked {
		if !ok {
			return fmt.Errorf("label %d is never marked", label)
		}
	}
	return nil
}
