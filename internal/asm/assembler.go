// Package asm contains the RV32I assembler: a lexer, a statement parser with
// label fix-up, a pseudo-instruction lowering pass, and the little-endian
// word emitter built on the isa encoder.
package asm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/keurnel/riscv/internal/diag"
	"github.com/keurnel/riscv/internal/isa"
)

// Program is the output of a successful assembly.
type Program struct {
	// Instructions holds the lowered, real instructions in emission order.
	Instructions []isa.Instruction

	// Code holds the encoded instructions as little-endian 32-bit words.
	Code []byte

	// Lines maps each emitted word to the 1-based source line it came from.
	// Both words of a two-word pseudo map to the pseudo's line.
	Lines []int
}

// Listing renders the encoded words one per line with the instruction text
// and its source line, in the bytecode comment style:
// `0x00000010  0x00c58533  # add x10, x11, x12            line 7`.
func (p *Program) Listing() string {
	var b strings.Builder
	for i, instr := range p.Instructions {
		word := binary.LittleEndian.Uint32(p.Code[i*4:])
		fmt.Fprintf(&b, "0x%08x\t0x%08x\t# %-28s line %d\n", i*4, word, instr, p.Lines[i])
	}
	return b.String()
}

// Assembler runs the full pipeline over one source text.
type Assembler struct {
	source string
	dc     *diag.Context
}

// AssemblerNew is the sole constructor.
func AssemblerNew(source string) *Assembler {
	return &Assembler{source: source}
}

// WithDiagnostics attaches a diagnostics context that every pipeline phase
// records into. Returns the assembler for chaining.
func (a *Assembler) WithDiagnostics(dc *diag.Context) *Assembler {
	a.dc = dc
	return a
}

// Run lexes, parses, resolves labels, lowers pseudo-instructions, and
// encodes the program. It fails fast on the first error of any phase.
func (a *Assembler) Run() (*Program, error) {
	a.setPhase(diag.PhaseLex)
	tokens, err := LexerNew(a.source).Start()
	if err != nil {
		a.recordError(err)
		return nil, err
	}

	a.setPhase(diag.PhaseParse)
	parser := ParserNew(tokens).WithDiagnostics(a.dc)
	if err := parser.Parse(); err != nil {
		return nil, err
	}

	a.setPhase(diag.PhaseLabels)
	if err := parser.ResolveLabels(); err != nil {
		return nil, err
	}

	a.setPhase(diag.PhaseLower)
	instructions, lines := parser.Lower()

	a.setPhase(diag.PhaseEncode)
	code := make([]byte, 0, len(instructions)*4)
	for i, instr := range instructions {
		word, encodeErr := isa.Encode(instr)
		if encodeErr != nil {
			wrapped := errors.Wrapf(encodeErr, "line %d", lines[i])
			a.recordError(wrapped)
			return nil, wrapped
		}
		code = binary.LittleEndian.AppendUint32(code, word)
	}

	return &Program{Instructions: instructions, Code: code, Lines: lines}, nil
}

func (a *Assembler) setPhase(name string) {
	if a.dc != nil {
		a.dc.SetPhase(name)
	}
}

func (a *Assembler) recordError(err error) {
	if a.dc != nil {
		a.dc.Errorf(diag.Location{}, "%s", err.Error())
	}
}
