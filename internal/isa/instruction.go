package isa

import "fmt"

// Instruction is one decoded or assembled machine instruction. It is a closed
// union: the only implementations are the six shape variants below plus
// Invalid, which carries a word the decoder did not recognise.
//
// Instructions are immutable value types. They compare with == which is what
// the round-trip tests rely on.
type Instruction interface {
	// Op returns the instruction's code, or OpInvalid for Invalid.
	Op() Code

	isInstruction()
}

// Register is the three-register form: add, sub, sll, slt, sltu, xor, srl,
// sra, or, and.
type Register struct {
	Code Code
	Rd   uint8
	Rs1  uint8
	Rs2  uint8
}

// Immediate is the register-register-immediate form. It covers the addi
// family, the shift-by-constant forms (Operand is the shift amount), jalr,
// the loads (Operand is the byte offset from Rs), and the system codes.
type Immediate struct {
	Code    Code
	Rd      uint8
	Rs      uint8
	Operand int32
}

// Store writes the low bytes of Rs to memory at Rbase+Offset.
type Store struct {
	Code   Code
	Rbase  uint8
	Rs     uint8
	Offset int32
}

// Branch compares Rs1 against Rs2 and, when taken, moves the program counter
// by Offset bytes relative to the branch itself.
type Branch struct {
	Code   Code
	Rs1    uint8
	Rs2    uint8
	Offset int32
}

// UpperImmediate is lui and auipc. Operand holds the full shifted word (the
// 20-bit source field already moved into bits 31:12), which is also the form
// the decoder reconstructs.
type UpperImmediate struct {
	Code    Code
	Rd      uint8
	Operand int32
}

// Jump is jal: link into Rd and move the program counter by Offset bytes.
type Jump struct {
	Code   Code
	Rd     uint8
	Offset int32
}

// Invalid carries a 32-bit word that did not decode to any known
// instruction. An all-zero word doubles as the clean halt marker.
type Invalid struct {
	Raw uint32
}

func (i Register) Op() Code       { return i.Code }
func (i Immediate) Op() Code      { return i.Code }
func (i Store) Op() Code          { return i.Code }
func (i Branch) Op() Code         { return i.Code }
func (i UpperImmediate) Op() Code { return i.Code }
func (i Jump) Op() Code           { return i.Code }
func (i Invalid) Op() Code        { return OpInvalid }

func (Register) isInstruction()       {}
func (Immediate) isInstruction()      {}
func (Store) isInstruction()          {}
func (Branch) isInstruction()         {}
func (UpperImmediate) isInstruction() {}
func (Jump) isInstruction()           {}
func (Invalid) isInstruction()        {}

func (i Register) String() string {
	return fmt.Sprintf("%s x%d, x%d, x%d", i.Code, i.Rd, i.Rs1, i.Rs2)
}

func (i Immediate) String() string {
	switch {
	case i.Code == OpEcall || i.Code == OpEbreak || i.Code == OpFence || i.Code == OpFenceI:
		return i.Code.String()
	case i.Code.IsLoad():
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Code, i.Rd, i.Operand, i.Rs)
	default:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Code, i.Rd, i.Rs, i.Operand)
	}
}

func (i Store) String() string {
	return fmt.Sprintf("%s x%d, %d(x%d)", i.Code, i.Rs, i.Offset, i.Rbase)
}

func (i Branch) String() string {
	return fmt.Sprintf("%s x%d, x%d, %d", i.Code, i.Rs1, i.Rs2, i.Offset)
}

func (i UpperImmediate) String() string {
	return fmt.Sprintf("%s x%d, %d", i.Code, i.Rd, i.Operand>>12)
}

func (i Jump) String() string {
	return fmt.Sprintf("%s x%d, %d", i.Code, i.Rd, i.Offset)
}

func (i Invalid) String() string {
	return fmt.Sprintf("<%02x %02x %02x %02x>",
		byte(i.Raw), byte(i.Raw>>8), byte(i.Raw>>16), byte(i.Raw>>24))
}
