package isa

import (
	"github.com/pkg/errors"
)

// Base opcodes of the RV32I encoding families.
const (
	opcodeReg    = 0b0110011
	opcodeImm    = 0b0010011
	opcodeLoad   = 0b0000011
	opcodeJalr   = 0b1100111
	opcodeFence  = 0b0001111
	opcodeSystem = 0b1110011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeLui    = 0b0110111
	opcodeAuipc  = 0b0010111
	opcodeJal    = 0b1101111
)

// functSrai is the funct7 selector that distinguishes sub from add and
// sra/srai from srl/srli.
const functSrai = 0b0100000

// regFunct selects funct3 and funct7 for each register-form code.
var regFunct = map[Code]struct{ funct3, funct7 uint32 }{
	OpAdd:  {0b000, 0},
	OpSub:  {0b000, functSrai},
	OpSll:  {0b001, 0},
	OpSlt:  {0b010, 0},
	OpSltu: {0b011, 0},
	OpXor:  {0b100, 0},
	OpSrl:  {0b101, 0},
	OpSra:  {0b101, functSrai},
	OpOr:   {0b110, 0},
	OpAnd:  {0b111, 0},
}

// immFunct selects base opcode and funct3 for each I-type code.
var immFunct = map[Code]struct{ opcode, funct3 uint32 }{
	OpAddi:   {opcodeImm, 0b000},
	OpSlti:   {opcodeImm, 0b010},
	OpSltiu:  {opcodeImm, 0b011},
	OpXori:   {opcodeImm, 0b100},
	OpOri:    {opcodeImm, 0b110},
	OpAndi:   {opcodeImm, 0b111},
	OpSlli:   {opcodeImm, 0b001},
	OpSrli:   {opcodeImm, 0b101},
	OpSrai:   {opcodeImm, 0b101},
	OpJalr:   {opcodeJalr, 0b000},
	OpLb:     {opcodeLoad, 0b000},
	OpLh:     {opcodeLoad, 0b001},
	OpLw:     {opcodeLoad, 0b010},
	OpLd:     {opcodeLoad, 0b011},
	OpLbu:    {opcodeLoad, 0b100},
	OpLhu:    {opcodeLoad, 0b101},
	OpLwu:    {opcodeLoad, 0b110},
	OpFence:  {opcodeFence, 0b000},
	OpFenceI: {opcodeFence, 0b001},
	OpEcall:  {opcodeSystem, 0b000},
	OpEbreak: {opcodeSystem, 0b000},
}

// storeFunct3 selects funct3 for each store width.
var storeFunct3 = map[Code]uint32{
	OpSb: 0b000,
	OpSh: 0b001,
	OpSw: 0b010,
	OpSd: 0b011,
}

// branchFunct3 selects funct3 for each branch condition.
var branchFunct3 = map[Code]uint32{
	OpBeq:  0b000,
	OpBne:  0b001,
	OpBlt:  0b100,
	OpBge:  0b101,
	OpBltu: 0b110,
	OpBgeu: 0b111,
}

// Encode serialises a real instruction to its 32-bit word. Pseudo codes, the
// RV64 word-arithmetic codes and Invalid have no encoding and are reported
// as errors.
func Encode(instr Instruction) (uint32, error) {
	switch in := instr.(type) {
	case Register:
		return encodeRegister(in)
	case Immediate:
		return encodeImmediate(in)
	case Store:
		return encodeStore(in)
	case Branch:
		return encodeBranch(in)
	case UpperImmediate:
		return encodeUpper(in)
	case Jump:
		return encodeJump(in)
	default:
		return 0, errors.Errorf("cannot encode %s instruction", instr.Op())
	}
}

func encodeRegister(in Register) (uint32, error) {
	sel, ok := regFunct[in.Code]
	if !ok {
		return 0, errors.Errorf("cannot encode %s as a register instruction", in.Code)
	}
	var word uint32
	word |= sel.funct7 << 25
	word |= uint32(in.Rs2&0x1f) << 20
	word |= uint32(in.Rs1&0x1f) << 15
	word |= sel.funct3 << 12
	word |= uint32(in.Rd&0x1f) << 7
	word |= opcodeReg
	return word, nil
}

func encodeImmediate(in Immediate) (uint32, error) {
	sel, ok := immFunct[in.Code]
	if !ok {
		return 0, errors.Errorf("cannot encode %s as an immediate instruction", in.Code)
	}
	var imm uint32
	switch {
	case in.Code.IsShortImm():
		imm = uint32(in.Operand) & 0x1f
		if in.Code == OpSrai {
			imm |= functSrai << 5
		}
	case in.Code == OpEcall:
		imm = 0
	case in.Code == OpEbreak:
		imm = 1
	default:
		imm = uint32(in.Operand) & 0xfff
	}
	var word uint32
	word |= imm << 20
	word |= uint32(in.Rs&0x1f) << 15
	word |= sel.funct3 << 12
	word |= uint32(in.Rd&0x1f) << 7
	word |= sel.opcode
	return word, nil
}

func encodeStore(in Store) (uint32, error) {
	funct3, ok := storeFunct3[in.Code]
	if !ok {
		return 0, errors.Errorf("cannot encode %s as a store instruction", in.Code)
	}
	imm := uint32(in.Offset) & 0xfff
	var word uint32
	word |= (imm >> 5) << 25
	word |= uint32(in.Rs&0x1f) << 20
	word |= uint32(in.Rbase&0x1f) << 15
	word |= funct3 << 12
	word |= (imm & 0x1f) << 7
	word |= opcodeStore
	return word, nil
}

// encodeBranch scatters the 13-bit offset into the B-type fields. Bit 0 of
// the offset is dropped: branch targets are 2-byte aligned by construction.
func encodeBranch(in Branch) (uint32, error) {
	funct3, ok := branchFunct3[in.Code]
	if !ok {
		return 0, errors.Errorf("cannot encode %s as a branch instruction", in.Code)
	}
	imm := uint32(in.Offset)
	var word uint32
	word |= (imm >> 12 & 0x1) << 31
	word |= (imm >> 5 & 0x3f) << 25
	word |= uint32(in.Rs2&0x1f) << 20
	word |= uint32(in.Rs1&0x1f) << 15
	word |= funct3 << 12
	word |= (imm >> 1 & 0xf) << 8
	word |= (imm >> 11 & 0x1) << 7
	word |= opcodeBranch
	return word, nil
}

// encodeUpper stores the operand's bits 31:12 directly: the operand already
// holds the shifted upper-immediate word.
func encodeUpper(in UpperImmediate) (uint32, error) {
	var opcode uint32
	switch in.Code {
	case OpLui:
		opcode = opcodeLui
	case OpAuipc:
		opcode = opcodeAuipc
	default:
		return 0, errors.Errorf("cannot encode %s as an upper-immediate instruction", in.Code)
	}
	var word uint32
	word |= uint32(in.Operand) & 0xfffff000
	word |= uint32(in.Rd&0x1f) << 7
	word |= opcode
	return word, nil
}

// encodeJump scatters the 21-bit offset into the J-type fields.
func encodeJump(in Jump) (uint32, error) {
	if in.Code != OpJal {
		return 0, errors.Errorf("cannot encode %s as a jump instruction", in.Code)
	}
	imm := uint32(in.Offset)
	var word uint32
	word |= (imm >> 20 & 0x1) << 31
	word |= (imm >> 1 & 0x3ff) << 21
	word |= (imm >> 11 & 0x1) << 20
	word |= (imm >> 12 & 0xff) << 12
	word |= uint32(in.Rd&0x1f) << 7
	word |= opcodeJal
	return word, nil
}
