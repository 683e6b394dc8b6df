package isa

import "strings"

// Code identifies one mnemonic known to the toolchain. The numeric order of
// the constants is meaningful: category predicates below test contiguous
// ranges, so new codes must be inserted into the range they belong to.
type Code int

const (
	// Register form, opcode 0110011.
	OpAdd Code = iota
	OpSub
	OpSll
	OpSlt
	OpSltu
	OpXor
	OpSrl
	OpSra
	OpOr
	OpAnd

	// Immediate form. The range covers the addi family, the shift-by-constant
	// forms, jalr, the loads, and the system/fence codes, all of which share
	// the I-type encoding layout.
	OpAddi
	OpSlti
	OpSltiu
	OpXori
	OpOri
	OpAndi
	OpSlli
	OpSrli
	OpSrai
	OpJalr
	OpLb
	OpLh
	OpLw
	OpLd
	OpLbu
	OpLhu
	OpLwu
	OpFence
	OpFenceI
	OpEcall
	OpEbreak

	// Store form, opcode 0100011.
	OpSb
	OpSh
	OpSw
	OpSd

	// Branch form, opcode 1100011.
	OpBeq
	OpBne
	OpBlt
	OpBge
	OpBltu
	OpBgeu

	// Upper-immediate form.
	OpLui
	OpAuipc

	// Jump form, opcode 1101111.
	OpJal

	// RV64 word-arithmetic codes. These are recognised names but have no
	// encoding on this build; the encoder rejects them.
	OpAddw
	OpSubw
	OpSllw
	OpSrlw
	OpSraw
	OpAddiw
	OpSlliw
	OpSrliw
	OpSraiw

	// Pseudo-instructions. These never survive assembly: the lowering pass
	// replaces each with one or two codes from the ranges above.
	OpMv
	OpLi
	OpLa
	OpJ
	OpJr
	OpRet
	OpNop
	OpCall
	OpSeqz
	OpSnez
	OpNot
	OpNeg
	OpBeqz
	OpBnez

	// OpInvalid is the sentinel returned by ParseCode for unknown mnemonics
	// and carried by instructions decoded from unrecognised words.
	OpInvalid
)

// codeNames maps each code to its assembly spelling.
var codeNames = map[Code]string{
	OpAdd: "add", OpSub: "sub", OpSll: "sll", OpSlt: "slt", OpSltu: "sltu",
	OpXor: "xor", OpSrl: "srl", OpSra: "sra", OpOr: "or", OpAnd: "and",
	OpAddi: "addi", OpSlti: "slti", OpSltiu: "sltiu", OpXori: "xori",
	OpOri: "ori", OpAndi: "andi", OpSlli: "slli", OpSrli: "srli",
	OpSrai: "srai", OpJalr: "jalr",
	OpLb: "lb", OpLh: "lh", OpLw: "lw", OpLd: "ld",
	OpLbu: "lbu", OpLhu: "lhu", OpLwu: "lwu",
	OpFence: "fence", OpFenceI: "fence.i", OpEcall: "ecall", OpEbreak: "ebreak",
	OpSb: "sb", OpSh: "sh", OpSw: "sw", OpSd: "sd",
	OpBeq: "beq", OpBne: "bne", OpBlt: "blt", OpBge: "bge",
	OpBltu: "bltu", OpBgeu: "bgeu",
	OpLui: "lui", OpAuipc: "auipc",
	OpJal: "jal",
	OpAddw: "addw", OpSubw: "subw", OpSllw: "sllw", OpSrlw: "srlw",
	OpSraw: "sraw", OpAddiw: "addiw", OpSlliw: "slliw", OpSrliw: "srliw",
	OpSraiw: "sraiw",
	OpMv: "mv", OpLi: "li", OpLa: "la", OpJ: "j", OpJr: "jr", OpRet: "ret",
	OpNop: "nop", OpCall: "call", OpSeqz: "seqz", OpSnez: "snez",
	OpNot: "not", OpNeg: "neg", OpBeqz: "beqz", OpBnez: "bnez",
}

// codesByName is the inverse of codeNames, built once at init.
var codesByName = func() map[string]Code {
	m := make(map[string]Code, len(codeNames))
	for code, name := range codeNames {
		m[name] = code
	}
	return m
}()

// ParseCode resolves an assembly mnemonic to its Code. Matching is exact on
// the lower-cased text; `fence.i` is spelled with the dot. Unknown mnemonics
// return (OpInvalid, false).
func ParseCode(text string) (Code, bool) {
	code, ok := codesByName[strings.ToLower(text)]
	if !ok {
		return OpInvalid, false
	}
	return code, true
}

// String returns the assembly spelling of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "<invalid>"
}

// ---------------------------------------------------------------------------
// Category predicates
// ---------------------------------------------------------------------------

// IsPseudo reports whether the code is a pseudo-instruction that must be
// lowered before encoding.
func (c Code) IsPseudo() bool {
	return c >= OpMv && c <= OpBnez
}

// IsRegType reports whether the code uses the three-register form.
func (c Code) IsRegType() bool {
	return c >= OpAdd && c <= OpAnd
}

// IsImmType reports whether the code uses the I-type form. This covers the
// addi family, the shift-by-constant forms, jalr, the loads, fence and
// fence.i, and ecall/ebreak.
func (c Code) IsImmType() bool {
	return c >= OpAddi && c <= OpEbreak
}

// IsStoreType reports whether the code uses the S-type form.
func (c Code) IsStoreType() bool {
	return c >= OpSb && c <= OpSd
}

// IsBranchType reports whether the code uses the B-type form.
func (c Code) IsBranchType() bool {
	return c >= OpBeq && c <= OpBgeu
}

// IsUpperType reports whether the code uses the U-type form.
func (c Code) IsUpperType() bool {
	return c == OpLui || c == OpAuipc
}

// IsJumpType reports whether the code uses the J-type form.
func (c Code) IsJumpType() bool {
	return c == OpJal
}

// IsLoad reports whether the code reads memory.
func (c Code) IsLoad() bool {
	return c >= OpLb && c <= OpLwu
}

// IsShortImm reports whether the code is a shift-by-constant whose immediate
// is a 5-bit shift amount rather than a full 12-bit value.
func (c Code) IsShortImm() bool {
	return c >= OpSlli && c <= OpSrai
}
