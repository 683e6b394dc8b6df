// Package disasm converts machine-code words back into text. Jump and
// branch targets that land inside the buffer are given generated labels, and
// addresses are carried in trailing comments, so the output re-assembles to
// the same bytes.
package disasm

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/keurnel/riscv/internal/isa"
)

// Disassembler converts an encoded program to a textual representation.
type Disassembler struct {
	program      []byte
	instructions []isa.Instruction
	labels       map[int32]string // target byte address -> generated label
	addrWidth    int              // hex digits needed for the largest address
}

// DisassemblerNew decodes the program buffer. The buffer must be a whole
// number of little-endian 32-bit words.
func DisassemblerNew(program []byte) (*Disassembler, error) {
	if len(program)%4 != 0 {
		return nil, errors.Errorf("program length %d is not a multiple of 4", len(program))
	}
	d := &Disassembler{
		program: program,
		labels:  make(map[int32]string),
	}
	d.instructions = make([]isa.Instruction, 0, len(program)/4)
	for at := 0; at < len(program); at += 4 {
		word := binary.LittleEndian.Uint32(program[at:])
		d.instructions = append(d.instructions, isa.Decode(word))
	}
	d.addrWidth = len(fmt.Sprintf("%x", max(len(program)-4, 0)))
	d.findJumpTargets()
	return d, nil
}

// Instructions returns the decoded instructions in program order.
func (d *Disassembler) Instructions() []isa.Instruction {
	return d.instructions
}

// findJumpTargets is the first pass: it collects every jump and branch
// target that lands inside the buffer and assigns each unique one a label,
// in target-address order. Ordinals are zero-padded to the width of the
// largest ordinal.
func (d *Disassembler) findJumpTargets() {
	seen := make(map[int32]bool)
	var targets []int32
	for index, instr := range d.instructions {
		offset, jumpLike := jumpOffset(instr)
		if !jumpLike {
			continue
		}
		target := int32(index*4) + offset
		if target < 0 || target >= int32(len(d.program)) {
			continue
		}
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	width := len(fmt.Sprintf("%d", max(len(targets)-1, 0)))
	for ordinal, target := range targets {
		d.labels[target] = fmt.Sprintf("L_%0*d", width, ordinal)
	}
}

// jumpOffset returns the resolvable byte offset of a jump-like instruction.
func jumpOffset(instr isa.Instruction) (int32, bool) {
	switch in := instr.(type) {
	case isa.Branch:
		return in.Offset, true
	case isa.Jump:
		return in.Offset, true
	}
	return 0, false
}

// Disassemble is the second pass: it renders every instruction to w.
// Generated label lines precede the instructions they name, and each
// instruction line carries its address in a trailing comment.
func (d *Disassembler) Disassemble(w io.Writer) {
	for index, instr := range d.instructions {
		address := int32(index * 4)
		if label, ok := d.labels[address]; ok {
			fmt.Fprintf(w, "%s:\n", label)
		}
		text, note := d.format(instr, address)
		comment := fmt.Sprintf("0x%0*x", d.addrWidth, address)
		if note != "" {
			comment += " " + note
		}
		fmt.Fprintf(w, "%-32s # %s\n", text, comment)
	}
}

// Render returns the full disassembly as a string.
func (d *Disassembler) Render() string {
	var b strings.Builder
	d.Disassemble(&b)
	return b.String()
}

// format renders one instruction, returning the text and an optional note
// for the trailing comment. In-range jump targets render as their generated
// label; out-of-range targets keep the raw offset and gain a warning note.
// The all-zero word and the canonical addi x0, x0, 0 both render as nop, and
// unknown words render as their raw bytes.
func (d *Disassembler) format(instr isa.Instruction, address int32) (string, string) {
	switch in := instr.(type) {
	case isa.Branch:
		target, note := d.target(address, in.Offset)
		return fmt.Sprintf("%s x%d, x%d, %s", in.Code, in.Rs1, in.Rs2, target), note
	case isa.Jump:
		target, note := d.target(address, in.Offset)
		return fmt.Sprintf("%s x%d, %s", in.Code, in.Rd, target), note
	case isa.Immediate:
		if in.Code == isa.OpAddi && in.Rd == 0 && in.Rs == 0 && in.Operand == 0 {
			return "nop", ""
		}
		return in.String(), ""
	case isa.Invalid:
		if in.Raw == 0 {
			return "nop", ""
		}
		return in.String(), ""
	default:
		return fmt.Sprintf("%s", instr), ""
	}
}

// target renders a jump destination: the generated label when the target is
// inside the buffer, the raw byte offset plus a warning note otherwise.
func (d *Disassembler) target(address, offset int32) (string, string) {
	if label, ok := d.labels[address+offset]; ok {
		return label, ""
	}
	return fmt.Sprintf("%d", offset), "WARNING: target outside of loaded code"
}
