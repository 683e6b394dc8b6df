package isa

// Decode converts a 32-bit word into its instruction. It never fails: any
// word that does not match a known (opcode, funct3, funct7) combination is
// returned as Invalid carrying the raw word, which lets the disassembler
// render arbitrary bytes and leaves the policy decision to the caller.
func Decode(word uint32) Instruction {
	opcode := word & 0x7f
	rd := uint8(word >> 7 & 0x1f)
	funct3 := word >> 12 & 0x7
	rs1 := uint8(word >> 15 & 0x1f)
	rs2 := uint8(word >> 20 & 0x1f)
	funct7 := word >> 25 & 0x7f

	switch opcode {
	case opcodeReg:
		code, ok := regCodeBySelector[funct7<<3|funct3]
		if !ok {
			return Invalid{Raw: word}
		}
		return Register{Code: code, Rd: rd, Rs1: rs1, Rs2: rs2}

	case opcodeImm:
		return decodeImmArith(word, rd, funct3, rs1, funct7)

	case opcodeLoad:
		code, ok := loadCodeByFunct3[funct3]
		if !ok {
			return Invalid{Raw: word}
		}
		return Immediate{Code: code, Rd: rd, Rs: rs1, Operand: immI(word)}

	case opcodeJalr:
		if funct3 != 0 {
			return Invalid{Raw: word}
		}
		return Immediate{Code: OpJalr, Rd: rd, Rs: rs1, Operand: immI(word)}

	case opcodeFence:
		switch funct3 {
		case 0:
			return Immediate{Code: OpFence, Rd: rd, Rs: rs1, Operand: immI(word)}
		case 1:
			return Immediate{Code: OpFenceI, Rd: rd, Rs: rs1, Operand: immI(word)}
		}
		return Invalid{Raw: word}

	case opcodeSystem:
		if funct3 != 0 || rd != 0 || rs1 != 0 {
			return Invalid{Raw: word}
		}
		switch immI(word) {
		case 0:
			return Immediate{Code: OpEcall}
		case 1:
			return Immediate{Code: OpEbreak, Operand: 1}
		}
		return Invalid{Raw: word}

	case opcodeStore:
		code, ok := storeCodeByFunct3[funct3]
		if !ok {
			return Invalid{Raw: word}
		}
		return Store{Code: code, Rbase: rs1, Rs: rs2, Offset: immS(word)}

	case opcodeBranch:
		code, ok := branchCodeByFunct3[funct3]
		if !ok {
			return Invalid{Raw: word}
		}
		return Branch{Code: code, Rs1: rs1, Rs2: rs2, Offset: immB(word)}

	case opcodeLui:
		return UpperImmediate{Code: OpLui, Rd: rd, Operand: immU(word)}

	case opcodeAuipc:
		return UpperImmediate{Code: OpAuipc, Rd: rd, Operand: immU(word)}

	case opcodeJal:
		return Jump{Code: OpJal, Rd: rd, Offset: immJ(word)}
	}
	return Invalid{Raw: word}
}

// decodeImmArith handles the addi family and the shift-by-constant forms,
// whose immediate doubles as a funct7 selector.
func decodeImmArith(word uint32, rd uint8, funct3 uint32, rs1 uint8, funct7 uint32) Instruction {
	shamt := int32(word >> 20 & 0x1f)
	switch funct3 {
	case 0b001:
		if funct7 != 0 {
			return Invalid{Raw: word}
		}
		return Immediate{Code: OpSlli, Rd: rd, Rs: rs1, Operand: shamt}
	case 0b101:
		switch funct7 {
		case 0:
			return Immediate{Code: OpSrli, Rd: rd, Rs: rs1, Operand: shamt}
		case functSrai:
			return Immediate{Code: OpSrai, Rd: rd, Rs: rs1, Operand: shamt}
		}
		return Invalid{Raw: word}
	}
	code, ok := immArithCodeByFunct3[funct3]
	if !ok {
		return Invalid{Raw: word}
	}
	return Immediate{Code: code, Rd: rd, Rs: rs1, Operand: immI(word)}
}

// ---------------------------------------------------------------------------
// Per-shape immediates, sign-extended from their natural width
// ---------------------------------------------------------------------------

// immI extracts the 12-bit I-type immediate.
func immI(word uint32) int32 {
	return signExtend(word>>20, 12)
}

// immS reassembles the 12-bit S-type immediate from funct7 and rd.
func immS(word uint32) int32 {
	return signExtend(word>>25<<5|word>>7&0x1f, 12)
}

// immB reassembles the 13-bit B-type immediate. Bit 0 is always zero.
func immB(word uint32) int32 {
	value := word >> 31 & 0x1 << 12
	value |= word >> 7 & 0x1 << 11
	value |= word >> 25 & 0x3f << 5
	value |= word >> 8 & 0xf << 1
	return signExtend(value, 13)
}

// immU keeps the upper immediate in its shifted form, signed via bit 31.
func immU(word uint32) int32 {
	return int32(word & 0xfffff000)
}

// immJ reassembles the 21-bit J-type immediate. Bit 0 is always zero.
func immJ(word uint32) int32 {
	value := word >> 31 & 0x1 << 20
	value |= word >> 12 & 0xff << 12
	value |= word >> 20 & 0x1 << 11
	value |= word >> 21 & 0x3ff << 1
	return signExtend(value, 21)
}

func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

// ---------------------------------------------------------------------------
// Reverse selector tables, derived from the encoder's tables at init so the
// two directions cannot drift apart.
// ---------------------------------------------------------------------------

var regCodeBySelector = func() map[uint32]Code {
	m := make(map[uint32]Code, len(regFunct))
	for code, sel := range regFunct {
		m[sel.funct7<<3|sel.funct3] = code
	}
	return m
}()

var immArithCodeByFunct3 = func() map[uint32]Code {
	m := make(map[uint32]Code)
	for code, sel := range immFunct {
		if sel.opcode == opcodeImm && !code.IsShortImm() {
			m[sel.funct3] = code
		}
	}
	return m
}()

var loadCodeByFunct3 = func() map[uint32]Code {
	m := make(map[uint32]Code)
	for code, sel := range immFunct {
		if sel.opcode == opcodeLoad {
			m[sel.funct3] = code
		}
	}
	return m
}()

var storeCodeByFunct3 = func() map[uint32]Code {
	m := make(map[uint32]Code, len(storeFunct3))
	for code, funct3 := range storeFunct3 {
		m[funct3] = code
	}
	return m
}()

var branchCodeByFunct3 = func() map[uint32]Code {
	m := make(map[uint32]Code, len(branchFunct3))
	for code, funct3 := range branchFunct3 {
		m[funct3] = code
	}
	return m
}()
