package bytecode

import (
	"fmt"
	"strings"
)

// DisassembleInstruction renders the instruction at index i of p.
func DisassembleInstruction(p *Program, i int) string {
	in := p.Code[i]
	info := in.Op.Info()
	switch info.Operand {
	case NoOperand:
		return fmt.Sprintf("%04d  %s", i, info.Name)
	case StringOperand:
		return fmt.Sprintf("%04d  %-12s %d ; %q", i, info.Name, in.Arg, p.Strings[in.Arg])
	case LabelOperand:
		return fmt.Sprintf("%04d  %-12s L%d", i, info.Name, in.Arg)
	case SlotOperand:
		return fmt.Sprintf("%04d  %-12s #%d", i, info.Name, in.Arg)
	}
	return fmt.Sprintf("%04d  %-12s %d", i, info.Name, in.Arg)
}

// Disassemble lists the string table followed by the code.
func Disassemble(p *Program) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; slots: %d, labels: %d, strings: %d\n", p.SlotCount, p.LabelCount, len(p.Strings))
	for i, s := range p.Strings {
		fmt.Fprintf(&sb, "; string %d = %q\n", i, s)
	}
	for i := range p.Code {
		sb.WriteString(DisassembleInstruction(p, i))
		sb.WriteByte('\n')
	}
	return sb.String()
}
