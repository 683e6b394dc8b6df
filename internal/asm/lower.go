package asm

import "github.com/keurnel/riscv/internal/isa"

// synthetic is an instruction form that only exists between parsing and
// lowering. Each form knows how to expand itself into one or two real
// instructions; no synthetic survives past Lower().
type synthetic interface {
	// expand returns the real instruction(s). second is nil for single-word
	// pseudos; when it is set, the parser has reserved a filler slot right
	// after the pseudo for it to land in.
	expand() (first, second isa.Instruction)
}

// regToReg covers mv, neg and not.
type regToReg struct {
	code   isa.Code
	rd, rs uint8
}

func (s *regToReg) expand() (isa.Instruction, isa.Instruction) {
	switch s.code {
	case isa.OpMv:
		return isa.Register{Code: isa.OpAdd, Rd: s.rd, Rs1: 0, Rs2: s.rs}, nil
	case isa.OpNeg:
		return isa.Register{Code: isa.OpSub, Rd: s.rd, Rs1: 0, Rs2: s.rs}, nil
	default: // not
		return isa.Immediate{Code: isa.OpXori, Rd: s.rd, Rs: s.rs, Operand: -1}, nil
	}
}

// setCompare covers seqz and snez.
type setCompare struct {
	code   isa.Code
	rd, rs uint8
}

func (s *setCompare) expand() (isa.Instruction, isa.Instruction) {
	if s.code == isa.OpSeqz {
		return isa.Immediate{Code: isa.OpSltiu, Rd: s.rd, Rs: s.rs, Operand: 1}, nil
	}
	return isa.Register{Code: isa.OpSltu, Rd: s.rd, Rs1: 0, Rs2: s.rs}, nil
}

// branchZero covers beqz and bnez.
type branchZero struct {
	code   isa.Code
	rs     uint8
	offset int32
}

func (s *branchZero) expand() (isa.Instruction, isa.Instruction) {
	code := isa.OpBeq
	if s.code == isa.OpBnez {
		code = isa.OpBne
	}
	return isa.Branch{Code: code, Rs1: s.rs, Rs2: 0, Offset: s.offset}, nil
}

// jumpAbs covers j, which discards the return address, and call, which
// links into x1.
type jumpAbs struct {
	code   isa.Code
	offset int32
}

func (s *jumpAbs) expand() (isa.Instruction, isa.Instruction) {
	var rd uint8
	if s.code == isa.OpCall {
		rd = 1
	}
	return isa.Jump{Code: isa.OpJal, Rd: rd, Offset: s.offset}, nil
}

// jumpReg covers jr.
type jumpReg struct {
	rs uint8
}

func (s *jumpReg) expand() (isa.Instruction, isa.Instruction) {
	return isa.Immediate{Code: isa.OpJalr, Rd: 0, Rs: s.rs, Operand: 0}, nil
}

type nopMarker struct{}

func (s *nopMarker) expand() (isa.Instruction, isa.Instruction) {
	return isa.Immediate{Code: isa.OpAddi, Rd: 0, Rs: 0, Operand: 0}, nil
}

type retMarker struct{}

func (s *retMarker) expand() (isa.Instruction, isa.Instruction) {
	return isa.Immediate{Code: isa.OpJalr, Rd: 0, Rs: 1, Operand: 0}, nil
}

// loadImm expands to two words: lui with the value's upper 20 bits and addi
// with its low 12 bits. addi sign-extends its immediate, so when bit 11 of
// the value is set the register ends up 0x1000 below the value.
type loadImm struct {
	rd    uint8
	value int32
}

func (s *loadImm) expand() (isa.Instruction, isa.Instruction) {
	return isa.UpperImmediate{Code: isa.OpLui, Rd: s.rd, Operand: s.value &^ 0xfff},
		isa.Immediate{Code: isa.OpAddi, Rd: s.rd, Rs: s.rd, Operand: s.value & 0xfff}
}

// loadAddress expands to two words: auipc with the address's upper 20 bits
// and addi with its low 12 bits. auipc adds its own address, so the register
// holds the auipc's address plus the address field (0x1000 less when bit 11
// of the field is set, as for loadImm).
type loadAddress struct {
	rd      uint8
	address int32
}

func (s *loadAddress) expand() (isa.Instruction, isa.Instruction) {
	return isa.UpperImmediate{Code: isa.OpAuipc, Rd: s.rd, Operand: s.address &^ 0xfff},
		isa.Immediate{Code: isa.OpAddi, Rd: s.rd, Rs: s.rd, Operand: s.address & 0xfff}
}

// ---------------------------------------------------------------------------
// Phase 3 — lowering
// ---------------------------------------------------------------------------

// Lower walks the program in order and substitutes every synthetic with its
// real instruction(s). The second word of a two-word pseudo overwrites the
// filler slot the parser reserved, so indices do not shift. The returned
// line slice maps each emitted word to its 1-based source line; both words
// of a pseudo map to the pseudo's line.
func (p *Parser) Lower() ([]isa.Instruction, []int) {
	instructions := make([]isa.Instruction, 0, len(p.program))
	lines := make([]int, 0, len(p.program))
	for i := 0; i < len(p.program); i++ {
		e := p.program[i]
		if e.syn == nil {
			instructions = append(instructions, e.instr)
			lines = append(lines, e.line)
			continue
		}
		first, second := e.syn.expand()
		instructions = append(instructions, first)
		lines = append(lines, e.line)
		if second != nil {
			i++ // the filler slot reserved by the parser
			instructions = append(instructions, second)
			lines = append(lines, e.line)
		}
	}
	return instructions, lines
}
