// Package emu contains the single-hart RV32I execution engine. A Processor
// steps through encoded instructions held in a flat byte-addressable memory
// that it owns exclusively for its lifetime.
package emu

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/keurnel/riscv/internal/isa"
)

// InstructionSize is the width of one encoded instruction in bytes.
const InstructionSize = 4

// The following errors classify fatal execution failures. They are wrapped
// with position detail, so compare with errors.Is.
var (
	// ErrAccessViolation indicates a memory access outside the buffer.
	ErrAccessViolation = errors.New("memory access violation")

	// ErrMisaligned indicates a branch or jump whose target is not 4-byte
	// aligned, or an unaligned instruction fetch.
	ErrMisaligned = errors.New("misaligned address")

	// ErrInvalidInstruction indicates that execution reached a word that
	// does not decode to any known instruction.
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrWordWidth indicates a 64-bit load or store on this 32-bit build.
	ErrWordWidth = errors.New("used a 64-bit operation on a 32-bit platform")
)

// Processor is a single-hart RV32I machine. It is not goroutine safe; a
// single goroutine should manage it.
type Processor struct {
	// Registers holds the 32 general purpose registers. Register 0 reads as
	// zero; writes to it are discarded at the end of every cycle.
	Registers [isa.NumRegisters]int32

	// OldRegisters is the register file as it was at the start of the
	// current cycle. It exists for change display only and has no effect on
	// execution.
	OldRegisters [isa.NumRegisters]int32

	// PC is the byte address of the next instruction.
	PC int32

	// Memory is the flat byte buffer the program lives in.
	Memory []byte
}

// ProcessorNew creates a processor owning the given memory. The stack
// pointer starts at the top of memory and the program counter at zero;
// adjust PC before the first Step when the code starts elsewhere.
func ProcessorNew(memory []byte) *Processor {
	p := &Processor{Memory: memory}
	p.Registers[2] = int32(len(memory)) // sp
	return p
}

// Clone returns an independent processor with the same register state. When
// deep is true the memory is copied as well; otherwise both processors
// share the same buffer.
func (p *Processor) Clone(deep bool) *Processor {
	clone := *p
	if deep {
		clone.Memory = append([]byte(nil), p.Memory...)
	}
	return &clone
}

// ChangedRegisters returns the indices of registers whose value differs
// from the previous cycle's snapshot.
func (p *Processor) ChangedRegisters() []int {
	var changed []int
	for i := range p.Registers {
		if p.Registers[i] != p.OldRegisters[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// Run steps until the program halts or an instruction fails.
func (p *Processor) Run() error {
	for {
		more, err := p.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Step executes exactly one instruction. It returns false when the engine
// should halt: the program counter fell off the end of memory, a taken
// branch or jump left the program counter unchanged, or execution reached
// an all-zero word. Any instruction-level failure is returned as an error.
func (p *Processor) Step() (bool, error) {
	p.OldRegisters = p.Registers

	if p.PC == int32(len(p.Memory)) {
		return false, nil
	}
	if p.PC < 0 || int(p.PC)+InstructionSize > len(p.Memory) {
		return false, errors.Wrapf(ErrAccessViolation, "instruction fetch at 0x%x", p.PC)
	}
	if p.PC%InstructionSize != 0 {
		return false, errors.Wrapf(ErrMisaligned, "instruction fetch at 0x%x", p.PC)
	}

	instr := isa.Decode(binary.LittleEndian.Uint32(p.Memory[p.PC:]))
	if invalid, ok := instr.(isa.Invalid); ok {
		if invalid.Raw == 0 {
			return false, nil
		}
		return false, errors.Wrapf(ErrInvalidInstruction, "word 0x%08x at 0x%x", invalid.Raw, p.PC)
	}
	if offset, jumpLike := jumpOffset(instr); jumpLike && offset%InstructionSize != 0 {
		return false, errors.Wrapf(ErrMisaligned, "%s offset %d at 0x%x", instr.Op(), offset, p.PC)
	}

	entryPC := p.PC
	pcAssigned, err := p.execute(instr)
	if err != nil {
		return false, err
	}

	p.Registers[0] = 0
	if !pcAssigned {
		p.PC = entryPC + InstructionSize
	} else if p.PC == entryPC {
		return false, nil // the program jumped to itself
	}
	return true, nil
}

// jumpOffset returns the byte offset of a jump-like instruction.
func jumpOffset(instr isa.Instruction) (int32, bool) {
	switch in := instr.(type) {
	case isa.Branch:
		return in.Offset, true
	case isa.Jump:
		return in.Offset, true
	}
	return 0, false
}

// execute dispatches on the instruction shape. It reports whether the
// program counter was explicitly assigned this cycle.
func (p *Processor) execute(instr isa.Instruction) (bool, error) {
	switch in := instr.(type) {
	case isa.Register:
		return false, p.executeRegister(in)
	case isa.Immediate:
		return p.executeImmediate(in)
	case isa.Store:
		return false, p.executeStore(in)
	case isa.Branch:
		return p.executeBranch(in), nil
	case isa.UpperImmediate:
		if in.Code == isa.OpAuipc {
			p.Registers[in.Rd] = p.PC + in.Operand
		} else {
			p.Registers[in.Rd] = in.Operand
		}
		return false, nil
	case isa.Jump:
		link := p.PC + InstructionSize
		p.PC += in.Offset
		p.Registers[in.Rd] = link
		return true, nil
	}
	return false, errors.Wrapf(ErrInvalidInstruction, "unexecutable %s at 0x%x", instr.Op(), p.PC)
}

func (p *Processor) executeRegister(in isa.Register) error {
	rs1, rs2 := p.Registers[in.Rs1], p.Registers[in.Rs2]
	var value int32
	switch in.Code {
	case isa.OpAdd:
		value = rs1 + rs2
	case isa.OpSub:
		value = rs1 - rs2
	case isa.OpSll:
		value = rs1 << (uint32(rs2) & 0x1f)
	case isa.OpSlt:
		value = bool01(rs1 < rs2)
	case isa.OpSltu:
		value = bool01(uint32(rs1) < uint32(rs2))
	case isa.OpXor:
		value = rs1 ^ rs2
	case isa.OpSrl:
		value = int32(uint32(rs1) >> (uint32(rs2) & 0x1f))
	case isa.OpSra:
		value = rs1 >> (uint32(rs2) & 0x1f)
	case isa.OpOr:
		value = rs1 | rs2
	case isa.OpAnd:
		value = rs1 & rs2
	default:
		return errors.Wrapf(ErrInvalidInstruction, "register op %s at 0x%x", in.Code, p.PC)
	}
	p.Registers[in.Rd] = value
	return nil
}

func (p *Processor) executeImmediate(in isa.Immediate) (bool, error) {
	if in.Code.IsLoad() {
		return false, p.executeLoad(in)
	}
	rs := p.Registers[in.Rs]
	var value int32
	switch in.Code {
	case isa.OpJalr:
		link := p.PC + InstructionSize
		p.PC = rs + in.Operand
		p.Registers[in.Rd] = link
		return true, nil
	case isa.OpAddi:
		value = rs + in.Operand
	case isa.OpSlti:
		value = bool01(rs < in.Operand)
	case isa.OpSltiu:
		value = bool01(uint32(rs) < uint32(in.Operand))
	case isa.OpXori:
		value = rs ^ in.Operand
	case isa.OpOri:
		value = rs | in.Operand
	case isa.OpAndi:
		value = rs & in.Operand
	case isa.OpSlli:
		value = rs << (uint32(in.Operand) & 0x1f)
	case isa.OpSrli:
		value = int32(uint32(rs) >> (uint32(in.Operand) & 0x1f))
	case isa.OpSrai:
		value = rs >> (uint32(in.Operand) & 0x1f)
	case isa.OpFence, isa.OpFenceI, isa.OpEcall, isa.OpEbreak:
		// Acknowledged only. No host call is performed on this build.
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidInstruction, "immediate op %s at 0x%x", in.Code, p.PC)
	}
	p.Registers[in.Rd] = value
	return false, nil
}

func (p *Processor) executeLoad(in isa.Immediate) error {
	var size int32
	switch in.Code {
	case isa.OpLb, isa.OpLbu:
		size = 1
	case isa.OpLh, isa.OpLhu:
		size = 2
	case isa.OpLw, isa.OpLwu:
		size = 4
	case isa.OpLd:
		return errors.Wrapf(ErrWordWidth, "%s at 0x%x", in.Code, p.PC)
	}
	address := p.Registers[in.Rs] + in.Operand
	if address < 0 || int(address)+int(size) > len(p.Memory) {
		return errors.Wrapf(ErrAccessViolation, "%s from 0x%x at 0x%x", in.Code, address, p.PC)
	}
	var value int32
	switch in.Code {
	case isa.OpLb:
		value = int32(int8(p.Memory[address]))
	case isa.OpLbu:
		value = int32(p.Memory[address])
	case isa.OpLh:
		value = int32(int16(binary.LittleEndian.Uint16(p.Memory[address:])))
	case isa.OpLhu:
		value = int32(binary.LittleEndian.Uint16(p.Memory[address:]))
	case isa.OpLw, isa.OpLwu:
		value = int32(binary.LittleEndian.Uint32(p.Memory[address:]))
	}
	p.Registers[in.Rd] = value
	return nil
}

func (p *Processor) executeStore(in isa.Store) error {
	var size int32
	switch in.Code {
	case isa.OpSb:
		size = 1
	case isa.OpSh:
		size = 2
	case isa.OpSw:
		size = 4
	case isa.OpSd:
		return errors.Wrapf(ErrWordWidth, "%s at 0x%x", in.Code, p.PC)
	}
	address := p.Registers[in.Rbase] + in.Offset
	if address < 0 || int(address)+int(size) > len(p.Memory) {
		return errors.Wrapf(ErrAccessViolation, "%s to 0x%x at 0x%x", in.Code, address, p.PC)
	}
	value := p.Registers[in.Rs]
	switch in.Code {
	case isa.OpSb:
		p.Memory[address] = byte(value)
	case isa.OpSh:
		binary.LittleEndian.PutUint16(p.Memory[address:], uint16(value))
	case isa.OpSw:
		binary.LittleEndian.PutUint32(p.Memory[address:], uint32(value))
	}
	return nil
}

func (p *Processor) executeBranch(in isa.Branch) bool {
	rs1, rs2 := p.Registers[in.Rs1], p.Registers[in.Rs2]
	var taken bool
	switch in.Code {
	case isa.OpBeq:
		taken = rs1 == rs2
	case isa.OpBne:
		taken = rs1 != rs2
	case isa.OpBlt:
		taken = rs1 < rs2
	case isa.OpBge:
		taken = rs1 >= rs2
	case isa.OpBltu:
		taken = uint32(rs1) < uint32(rs2)
	case isa.OpBgeu:
		taken = uint32(rs1) >= uint32(rs2)
	}
	if taken {
		p.PC += in.Offset
	}
	return taken
}

func bool01(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
