package disasm_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/keurnel/riscv/internal/disasm"
	"github.com/keurnel/riscv/internal/isa"
)

// program builds a little-endian code buffer from instructions.
func program(t *testing.T, instructions ...isa.Instruction) []byte {
	t.Helper()
	var code []byte
	for _, instr := range instructions {
		word, err := isa.Encode(instr)
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", instr, err)
		}
		code = binary.LittleEndian.AppendUint32(code, word)
	}
	return code
}

// rawWords builds a code buffer from raw words, bypassing the encoder.
func rawWords(words ...uint32) []byte {
	var code []byte
	for _, word := range words {
		code = binary.LittleEndian.AppendUint32(code, word)
	}
	return code
}

func render(t *testing.T, code []byte) []string {
	t.Helper()
	d, err := disasm.DisassemblerNew(code)
	if err != nil {
		t.Fatalf("DisassemblerNew failed: %v", err)
	}
	return strings.Split(strings.TrimRight(d.Render(), "\n"), "\n")
}

func TestDisassembler_RejectsPartialWords(t *testing.T) {
	if _, err := disasm.DisassemblerNew([]byte{0x13, 0x00}); err == nil {
		t.Error("expected an error for a 2-byte buffer")
	}
}

// TestDisassembler_GeneratesLabelForInRangeTarget mirrors the canonical
// three-word example: a jump over two nops gains a generated label at the
// landing word.
func TestDisassembler_GeneratesLabelForInRangeTarget(t *testing.T) {
	code := program(t,
		isa.Jump{Code: isa.OpJal, Rd: 0, Offset: 8},
		isa.Immediate{Code: isa.OpAddi},
		isa.Immediate{Code: isa.OpAddi},
	)
	lines := render(t, code)
	if len(lines) != 4 {
		t.Fatalf("rendered %d lines, expected 4:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.HasPrefix(lines[0], "jal x0, L_0") {
		t.Errorf("line 0 = %q, expected it to open with %q", lines[0], "jal x0, L_0")
	}
	if lines[2] != "L_0:" {
		t.Errorf("line 2 = %q, expected %q", lines[2], "L_0:")
	}
	if !strings.HasPrefix(lines[1], "nop") || !strings.HasPrefix(lines[3], "nop") {
		t.Errorf("canonical addi x0, x0, 0 should render as nop:\n%s", strings.Join(lines, "\n"))
	}
}

func TestDisassembler_LabelsAreOrderedByAddress(t *testing.T) {
	code := program(t,
		isa.Jump{Code: isa.OpJal, Rd: 0, Offset: 12},                 // forward to word 3
		isa.Branch{Code: isa.OpBne, Rs1: 1, Rs2: 0, Offset: -4},      // back to word 0
		isa.Immediate{Code: isa.OpAddi, Rd: 1, Rs: 1, Operand: 1},    // word 2
		isa.Register{Code: isa.OpAdd, Rd: 1, Rs1: 1, Rs2: 2},         // word 3
	)
	rendered := strings.Join(render(t, code), "\n")
	if !strings.Contains(rendered, "bne x1, x0, L_0") {
		t.Errorf("backward branch should target L_0 (lowest address):\n%s", rendered)
	}
	if !strings.Contains(rendered, "jal x0, L_1") {
		t.Errorf("forward jump should target L_1:\n%s", rendered)
	}
}

func TestDisassembler_OutOfRangeTargetWarns(t *testing.T) {
	code := program(t,
		isa.Jump{Code: isa.OpJal, Rd: 0, Offset: 64},
		isa.Branch{Code: isa.OpBeq, Rs1: 0, Rs2: 0, Offset: -32},
	)
	lines := render(t, code)
	if !strings.HasPrefix(lines[0], "jal x0, 64") || !strings.Contains(lines[0], "WARNING: target outside of loaded code") {
		t.Errorf("line 0 = %q, expected the raw offset and a warning", lines[0])
	}
	if !strings.HasPrefix(lines[1], "beq x0, x0, -32") || !strings.Contains(lines[1], "WARNING") {
		t.Errorf("line 1 = %q, expected the raw offset and a warning", lines[1])
	}
}

func TestDisassembler_SpecialRenderings(t *testing.T) {
	code := rawWords(
		0x00000000, // halt word renders as nop
		0x00000013, // addi x0, x0, 0 renders as nop
		0xffffffff, // unknown word renders as raw bytes
		0x0080a103, // lw x2, 8(x1)
	)
	lines := render(t, code)
	if !strings.HasPrefix(lines[0], "nop") {
		t.Errorf("line 0 = %q, expected nop", lines[0])
	}
	if !strings.HasPrefix(lines[1], "nop") {
		t.Errorf("line 1 = %q, expected nop", lines[1])
	}
	if !strings.HasPrefix(lines[2], "<ff ff ff ff>") {
		t.Errorf("line 2 = %q, expected the raw bytes", lines[2])
	}
	if !strings.HasPrefix(lines[3], "lw x2, 8(x1)") {
		t.Errorf("line 3 = %q, expected the load", lines[3])
	}
}

func TestDisassembler_AddressesInTrailingComments(t *testing.T) {
	code := program(t,
		isa.Immediate{Code: isa.OpAddi, Rd: 1, Rs: 0, Operand: 1},
		isa.Immediate{Code: isa.OpAddi, Rd: 2, Rs: 0, Operand: 2},
	)
	lines := render(t, code)
	if !strings.Contains(lines[0], "# 0x0") {
		t.Errorf("line 0 = %q, expected a trailing address comment", lines[0])
	}
	if !strings.Contains(lines[1], "# 0x4") {
		t.Errorf("line 1 = %q, expected a trailing address comment", lines[1])
	}
}
