package asm

import (
	"fmt"

	"github.com/keurnel/riscv/internal/diag"
	"github.com/keurnel/riscv/internal/isa"
)

// entry is one instruction slot of the program under assembly. Exactly one
// of instr and syn is set. A two-word pseudo is followed by a filler slot (a
// zero Invalid instruction) so that slot indices, and therefore label
// arithmetic, stay stable across lowering.
type entry struct {
	instr isa.Instruction
	syn   synthetic
	line  int
}

// fixup records a slot whose offset or address awaits label resolution.
type fixup struct {
	index  int
	label  string
	line   int
	column int
}

// Parser consumes the token stream and builds the instruction list. If a
// Parser value exists it holds a valid (possibly empty) token slice and
// initialised position state; there is no partially-constructed state.
type Parser struct {
	tokens   []Token
	position int

	program []entry
	labels  map[string]int
	fixups  []fixup

	dc *diag.Context
}

// ParserNew is the sole constructor. It accepts the token slice produced by
// Lexer.Start() and returns a *Parser ready for Parse() to be called.
func ParserNew(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		labels: make(map[string]int),
	}
}

// WithDiagnostics attaches a diagnostics context. When set, the parser
// records errors and label definitions into it; when nil the parser operates
// silently. Returns the parser for chaining.
func (p *Parser) WithDiagnostics(dc *diag.Context) *Parser {
	p.dc = dc
	return p
}

// ---------------------------------------------------------------------------
// Token consumption helpers
// ---------------------------------------------------------------------------

// current returns the token at the cursor, or an empty delimiter token past
// the end.
func (p *Parser) current() Token {
	if p.position >= len(p.tokens) {
		return Token{Type: TokenDelimiter}
	}
	return p.tokens[p.position]
}

// advance moves the cursor forward and returns the token it passed.
func (p *Parser) advance() Token {
	tok := p.current()
	if p.position < len(p.tokens) {
		p.position++
	}
	return tok
}

// isAtEnd reports whether the cursor is past the last token.
func (p *Parser) isAtEnd() bool {
	return p.position >= len(p.tokens)
}

// errorf builds the ParseError for the given token and records it in the
// diagnostics context when one is attached.
func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	err := &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
	if p.dc != nil {
		p.dc.Errorf(diag.Location{Line: tok.Line, Column: tok.Column}, "%s", err.Message)
	}
	return err
}

// ---------------------------------------------------------------------------
// Phase 1 — statement loop
// ---------------------------------------------------------------------------

// Parse walks the token stream statement by statement. Each statement is a
// blank line, a label definition, or a single instruction; a label may share
// its line with the instruction it names. Parsing stops at the first error.
func (p *Parser) Parse() error {
	for !p.isAtEnd() {
		tok := p.current()
		switch {
		case tok.Newline():
			p.advance()
		case tok.Type == TokenIdentifier:
			p.advance()
			if p.current().Delimiter(':') {
				p.advance()
				if err := p.defineLabel(tok); err != nil {
					return err
				}
				continue
			}
			if err := p.parseInstruction(tok); err != nil {
				return err
			}
		default:
			return p.errorf(tok, "unexpected %s at start of statement", tok)
		}
	}
	return nil
}

// defineLabel records the label as naming the next instruction to be
// emitted. Forward references are fine; redefinition is not.
func (p *Parser) defineLabel(tok Token) error {
	if _, exists := p.labels[tok.Literal]; exists {
		return p.errorf(tok, "duplicate label %q", tok.Literal)
	}
	p.labels[tok.Literal] = len(p.program)
	if p.dc != nil {
		p.dc.Tracef(diag.Location{Line: tok.Line, Column: tok.Column},
			"label %q at instruction %d", tok.Literal, len(p.program))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operand reader
// ---------------------------------------------------------------------------

// readOperands collects the operand tokens up to the end of the statement.
// A number immediately followed by '(' is folded into one TokenOffsetAndBase
// composite. Operands are separated by commas; the terminating newline is
// left in the stream so the statement loop sees one terminator per
// instruction.
func (p *Parser) readOperands() ([]Token, error) {
	var operands []Token
	for {
		tok := p.current()
		if p.isAtEnd() || tok.Newline() {
			return operands, nil
		}

		switch tok.Type {
		case TokenIdentifier:
			operands = append(operands, p.advance())
		case TokenNumber:
			number := p.advance()
			if p.current().Delimiter('(') {
				composite, err := p.readOffsetAndBase(number)
				if err != nil {
					return nil, err
				}
				operands = append(operands, composite)
			} else {
				operands = append(operands, number)
			}
		default:
			return nil, p.errorf(tok, "unexpected %s in operand list", tok)
		}

		tok = p.current()
		if p.isAtEnd() || tok.Newline() {
			return operands, nil
		}
		if !tok.Delimiter(',') {
			return nil, p.errorf(tok, "expected ',' between operands, got %s", tok)
		}
		p.advance()
	}
}

// readOffsetAndBase consumes `( identifier )` after the given number token
// and returns the composite offset-and-base token.
func (p *Parser) readOffsetAndBase(number Token) (Token, error) {
	p.advance() // '('
	base := p.current()
	if base.Type != TokenIdentifier {
		return Token{}, p.errorf(base, "expected base register after '(', got %s", base)
	}
	p.advance()
	if !p.current().Delimiter(')') {
		return Token{}, p.errorf(p.current(), "expected ')' after base register, got %s", p.current())
	}
	p.advance()
	return Token{
		Type:   TokenOffsetAndBase,
		Value:  number.Value,
		Base:   base.Literal,
		Line:   number.Line,
		Column: number.Column,
	}, nil
}

// ---------------------------------------------------------------------------
// Per-mnemonic decoding
// ---------------------------------------------------------------------------

// parseInstruction validates operand count and shape for the mnemonic and
// appends the instruction, or its synthetic pseudo form, to the program.
func (p *Parser) parseInstruction(mnemonic Token) error {
	code, ok := isa.ParseCode(mnemonic.Literal)
	if !ok {
		return p.errorf(mnemonic, "unknown mnemonic %q", mnemonic.Literal)
	}
	operands, err := p.readOperands()
	if err != nil {
		return err
	}

	switch {
	case code.IsRegType():
		return p.emitRegister(code, mnemonic, operands)
	case code.IsShortImm():
		return p.emitShift(code, mnemonic, operands)
	case code == isa.OpJalr || code.IsLoad():
		return p.emitLoadLike(code, mnemonic, operands)
	case code == isa.OpFence || code == isa.OpFenceI || code == isa.OpEcall || code == isa.OpEbreak:
		return p.emitSystem(code, mnemonic, operands)
	case code.IsImmType():
		return p.emitImmediate(code, mnemonic, operands)
	case code.IsStoreType():
		return p.emitStore(code, mnemonic, operands)
	case code.IsBranchType():
		return p.emitBranch(code, mnemonic, operands)
	case code.IsUpperType():
		return p.emitUpper(code, mnemonic, operands)
	case code.IsJumpType():
		return p.emitJump(code, mnemonic, operands)
	case code.IsPseudo():
		return p.emitPseudo(code, mnemonic, operands)
	default:
		return p.errorf(mnemonic, "%s is not available on this build", code)
	}
}

// wantOperands checks the operand count for the mnemonic.
func (p *Parser) wantOperands(mnemonic Token, operands []Token, count int) error {
	if len(operands) != count {
		return p.errorf(mnemonic, "%s expects %d operands, got %d",
			mnemonic.Literal, count, len(operands))
	}
	return nil
}

// register resolves an operand token to a register number.
func (p *Parser) register(tok Token) (uint8, error) {
	if tok.Type != TokenIdentifier {
		return 0, p.errorf(tok, "expected register, got %s", tok)
	}
	num, ok := isa.ParseRegister(tok.Literal)
	if !ok {
		return 0, p.errorf(tok, "unknown register %q", tok.Literal)
	}
	return num, nil
}

// immediate checks that a number token fits in bits and returns its value.
// Both the signed and the unsigned reading of the same bit width are
// accepted, so users can write constants either way.
func (p *Parser) immediate(tok Token, bits uint) (int32, error) {
	if tok.Type != TokenNumber {
		return 0, p.errorf(tok, "expected immediate, got %s", tok)
	}
	if !fitsImmediate(tok.Value, bits) {
		return 0, p.errorf(tok, "immediate %d does not fit in %d bits", tok.Value, bits)
	}
	return int32(tok.Value), nil
}

// fitsImmediate accepts -2^(bits-1) up to 2^bits - 1.
func fitsImmediate(value int64, bits uint) bool {
	return value >= -(int64(1)<<(bits-1)) && value <= int64(1)<<bits-1
}

// append adds a concrete instruction slot for the given source line.
func (p *Parser) append(instr isa.Instruction, line int) {
	p.program = append(p.program, entry{instr: instr, line: line})
}

// appendSynthetic adds a pseudo slot awaiting lowering.
func (p *Parser) appendSynthetic(syn synthetic, line int) {
	p.program = append(p.program, entry{syn: syn, line: line})
}

// appendFiller reserves the slot that the second word of a two-word pseudo
// will overwrite during lowering, keeping instruction indices stable for
// label arithmetic.
func (p *Parser) appendFiller(line int) {
	p.program = append(p.program, entry{instr: isa.Invalid{}, line: line})
}

// recordFixup marks the most recently appended slot as label-dependent.
func (p *Parser) recordFixup(label Token) {
	p.fixups = append(p.fixups, fixup{
		index:  len(p.program) - 1,
		label:  label.Literal,
		line:   label.Line,
		column: label.Column,
	})
}

func (p *Parser) emitRegister(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 3); err != nil {
		return err
	}
	rd, err := p.register(operands[0])
	if err != nil {
		return err
	}
	rs1, err := p.register(operands[1])
	if err != nil {
		return err
	}
	rs2, err := p.register(operands[2])
	if err != nil {
		return err
	}
	p.append(isa.Register{Code: code, Rd: rd, Rs1: rs1, Rs2: rs2}, mnemonic.Line)
	return nil
}

func (p *Parser) emitShift(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 3); err != nil {
		return err
	}
	rd, err := p.register(operands[0])
	if err != nil {
		return err
	}
	rs, err := p.register(operands[1])
	if err != nil {
		return err
	}
	shamt := operands[2]
	if shamt.Type != TokenNumber {
		return p.errorf(shamt, "expected shift amount, got %s", shamt)
	}
	if shamt.Value < 0 || shamt.Value > 31 {
		return p.errorf(shamt, "shift amount %d out of range 0..31", shamt.Value)
	}
	p.append(isa.Immediate{Code: code, Rd: rd, Rs: rs, Operand: int32(shamt.Value)}, mnemonic.Line)
	return nil
}

// emitLoadLike handles the loads and jalr, which accept both the addi-style
// `rd, rs, imm` form and the memory-reference `rd, imm(rs)` form.
func (p *Parser) emitLoadLike(code isa.Code, mnemonic Token, operands []Token) error {
	switch len(operands) {
	case 2:
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		composite := operands[1]
		if composite.Type != TokenOffsetAndBase {
			return p.errorf(composite, "expected offset(base) operand, got %s", composite)
		}
		rs, ok := isa.ParseRegister(composite.Base)
		if !ok {
			return p.errorf(composite, "unknown register %q", composite.Base)
		}
		if !fitsImmediate(composite.Value, 12) {
			return p.errorf(composite, "offset %d does not fit in 12 bits", composite.Value)
		}
		p.append(isa.Immediate{Code: code, Rd: rd, Rs: rs, Operand: int32(composite.Value)}, mnemonic.Line)
		return nil
	case 3:
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		rs, err := p.register(operands[1])
		if err != nil {
			return err
		}
		imm, err := p.immediate(operands[2], 12)
		if err != nil {
			return err
		}
		p.append(isa.Immediate{Code: code, Rd: rd, Rs: rs, Operand: imm}, mnemonic.Line)
		return nil
	default:
		return p.errorf(mnemonic, "%s expects 2 or 3 operands, got %d",
			mnemonic.Literal, len(operands))
	}
}

func (p *Parser) emitSystem(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 0); err != nil {
		return err
	}
	var operand int32
	if code == isa.OpEbreak {
		operand = 1
	}
	p.append(isa.Immediate{Code: code, Operand: operand}, mnemonic.Line)
	return nil
}

func (p *Parser) emitImmediate(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 3); err != nil {
		return err
	}
	rd, err := p.register(operands[0])
	if err != nil {
		return err
	}
	rs, err := p.register(operands[1])
	if err != nil {
		return err
	}
	imm, err := p.immediate(operands[2], 12)
	if err != nil {
		return err
	}
	p.append(isa.Immediate{Code: code, Rd: rd, Rs: rs, Operand: imm}, mnemonic.Line)
	return nil
}

// emitStore accepts both accepted operand orders: `sw rs, offset(rbase)` and
// `sw rbase, rs, offset`.
func (p *Parser) emitStore(code isa.Code, mnemonic Token, operands []Token) error {
	switch len(operands) {
	case 2:
		rs, err := p.register(operands[0])
		if err != nil {
			return err
		}
		composite := operands[1]
		if composite.Type != TokenOffsetAndBase {
			return p.errorf(composite, "expected offset(base) operand, got %s", composite)
		}
		rbase, ok := isa.ParseRegister(composite.Base)
		if !ok {
			return p.errorf(composite, "unknown register %q", composite.Base)
		}
		if !fitsImmediate(composite.Value, 12) {
			return p.errorf(composite, "offset %d does not fit in 12 bits", composite.Value)
		}
		p.append(isa.Store{Code: code, Rbase: rbase, Rs: rs, Offset: int32(composite.Value)}, mnemonic.Line)
		return nil
	case 3:
		rbase, err := p.register(operands[0])
		if err != nil {
			return err
		}
		rs, err := p.register(operands[1])
		if err != nil {
			return err
		}
		offset, err := p.immediate(operands[2], 12)
		if err != nil {
			return err
		}
		p.append(isa.Store{Code: code, Rbase: rbase, Rs: rs, Offset: offset}, mnemonic.Line)
		return nil
	default:
		return p.errorf(mnemonic, "%s expects 2 or 3 operands, got %d",
			mnemonic.Literal, len(operands))
	}
}

func (p *Parser) emitBranch(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 3); err != nil {
		return err
	}
	rs1, err := p.register(operands[0])
	if err != nil {
		return err
	}
	rs2, err := p.register(operands[1])
	if err != nil {
		return err
	}
	target := operands[2]
	switch target.Type {
	case TokenNumber:
		offset, err := p.immediate(target, 13)
		if err != nil {
			return err
		}
		p.append(isa.Branch{Code: code, Rs1: rs1, Rs2: rs2, Offset: offset}, mnemonic.Line)
	case TokenIdentifier:
		p.append(isa.Branch{Code: code, Rs1: rs1, Rs2: rs2}, mnemonic.Line)
		p.recordFixup(target)
	default:
		return p.errorf(target, "expected branch target, got %s", target)
	}
	return nil
}

func (p *Parser) emitUpper(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 2); err != nil {
		return err
	}
	rd, err := p.register(operands[0])
	if err != nil {
		return err
	}
	value := operands[1]
	if value.Type != TokenNumber {
		return p.errorf(value, "expected immediate, got %s", value)
	}
	if !fitsImmediate(value.Value, 20) {
		return p.errorf(value, "immediate %d does not fit in 20 bits", value.Value)
	}
	// The operand field carries the upper immediate in its shifted form.
	p.append(isa.UpperImmediate{Code: code, Rd: rd, Operand: int32(uint32(value.Value) << 12)}, mnemonic.Line)
	return nil
}

func (p *Parser) emitJump(code isa.Code, mnemonic Token, operands []Token) error {
	if err := p.wantOperands(mnemonic, operands, 2); err != nil {
		return err
	}
	rd, err := p.register(operands[0])
	if err != nil {
		return err
	}
	target := operands[1]
	switch target.Type {
	case TokenNumber:
		offset, err := p.immediate(target, 21)
		if err != nil {
			return err
		}
		p.append(isa.Jump{Code: code, Rd: rd, Offset: offset}, mnemonic.Line)
	case TokenIdentifier:
		p.append(isa.Jump{Code: code, Rd: rd}, mnemonic.Line)
		p.recordFixup(target)
	default:
		return p.errorf(target, "expected jump target, got %s", target)
	}
	return nil
}

// emitPseudo parses a pseudo-instruction into its synthetic form. The
// two-word pseudos (li, la) reserve a filler slot right after themselves.
func (p *Parser) emitPseudo(code isa.Code, mnemonic Token, operands []Token) error {
	switch code {
	case isa.OpMv, isa.OpNeg, isa.OpNot:
		if err := p.wantOperands(mnemonic, operands, 2); err != nil {
			return err
		}
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		rs, err := p.register(operands[1])
		if err != nil {
			return err
		}
		p.appendSynthetic(&regToReg{code: code, rd: rd, rs: rs}, mnemonic.Line)
		return nil

	case isa.OpSeqz, isa.OpSnez:
		if err := p.wantOperands(mnemonic, operands, 2); err != nil {
			return err
		}
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		rs, err := p.register(operands[1])
		if err != nil {
			return err
		}
		p.appendSynthetic(&setCompare{code: code, rd: rd, rs: rs}, mnemonic.Line)
		return nil

	case isa.OpNop:
		if err := p.wantOperands(mnemonic, operands, 0); err != nil {
			return err
		}
		p.appendSynthetic(&nopMarker{}, mnemonic.Line)
		return nil

	case isa.OpRet:
		if err := p.wantOperands(mnemonic, operands, 0); err != nil {
			return err
		}
		p.appendSynthetic(&retMarker{}, mnemonic.Line)
		return nil

	case isa.OpJr:
		if err := p.wantOperands(mnemonic, operands, 1); err != nil {
			return err
		}
		rs, err := p.register(operands[0])
		if err != nil {
			return err
		}
		p.appendSynthetic(&jumpReg{rs: rs}, mnemonic.Line)
		return nil

	case isa.OpJ, isa.OpCall:
		if err := p.wantOperands(mnemonic, operands, 1); err != nil {
			return err
		}
		target := operands[0]
		switch target.Type {
		case TokenNumber:
			if !fitsImmediate(target.Value, 21) {
				return p.errorf(target, "offset %d does not fit in 21 bits", target.Value)
			}
			p.appendSynthetic(&jumpAbs{code: code, offset: int32(target.Value)}, mnemonic.Line)
		case TokenIdentifier:
			p.appendSynthetic(&jumpAbs{code: code}, mnemonic.Line)
			p.recordFixup(target)
		default:
			return p.errorf(target, "expected jump target, got %s", target)
		}
		return nil

	case isa.OpBeqz, isa.OpBnez:
		if err := p.wantOperands(mnemonic, operands, 2); err != nil {
			return err
		}
		rs, err := p.register(operands[0])
		if err != nil {
			return err
		}
		target := operands[1]
		switch target.Type {
		case TokenNumber:
			if !fitsImmediate(target.Value, 13) {
				return p.errorf(target, "offset %d does not fit in 13 bits", target.Value)
			}
			p.appendSynthetic(&branchZero{code: code, rs: rs, offset: int32(target.Value)}, mnemonic.Line)
		case TokenIdentifier:
			p.appendSynthetic(&branchZero{code: code, rs: rs}, mnemonic.Line)
			p.recordFixup(target)
		default:
			return p.errorf(target, "expected branch target, got %s", target)
		}
		return nil

	case isa.OpLi:
		if err := p.wantOperands(mnemonic, operands, 2); err != nil {
			return err
		}
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		value := operands[1]
		if value.Type != TokenNumber {
			return p.errorf(value, "expected immediate, got %s", value)
		}
		if !fitsImmediate(value.Value, 32) {
			return p.errorf(value, "immediate %d does not fit in 32 bits", value.Value)
		}
		p.appendSynthetic(&loadImm{rd: rd, value: int32(value.Value)}, mnemonic.Line)
		p.appendFiller(mnemonic.Line)
		return nil

	case isa.OpLa:
		if err := p.wantOperands(mnemonic, operands, 2); err != nil {
			return err
		}
		rd, err := p.register(operands[0])
		if err != nil {
			return err
		}
		target := operands[1]
		switch target.Type {
		case TokenNumber:
			if !fitsImmediate(target.Value, 32) {
				return p.errorf(target, "address %d does not fit in 32 bits", target.Value)
			}
			p.appendSynthetic(&loadAddress{rd: rd, address: int32(target.Value)}, mnemonic.Line)
			p.appendFiller(mnemonic.Line)
		case TokenIdentifier:
			p.appendSynthetic(&loadAddress{rd: rd}, mnemonic.Line)
			p.recordFixup(target)
			p.appendFiller(mnemonic.Line)
		default:
			return p.errorf(target, "expected address or label, got %s", target)
		}
		return nil
	}
	return p.errorf(mnemonic, "unhandled pseudo-instruction %s", code)
}

// ---------------------------------------------------------------------------
// Phase 2 — label fix-up
// ---------------------------------------------------------------------------

// ResolveLabels patches every label-dependent slot. Jump-like slots receive
// the byte offset from themselves to the target; load-address slots receive
// the target's absolute byte address within the emitted code.
func (p *Parser) ResolveLabels() error {
	for _, f := range p.fixups {
		target, ok := p.labels[f.label]
		if !ok {
			if p.dc != nil {
				p.dc.Errorf(diag.Location{Line: f.line, Column: f.column},
					"undefined label %q", f.label)
			}
			return &LabelError{Label: f.label, Line: f.line, Column: f.column}
		}
		relative := int32(target-f.index) * 4

		e := &p.program[f.index]
		switch in := e.instr.(type) {
		case isa.Branch:
			in.Offset = relative
			e.instr = in
		case isa.Jump:
			in.Offset = relative
			e.instr = in
		case nil:
			switch syn := e.syn.(type) {
			case *branchZero:
				syn.offset = relative
			case *jumpAbs:
				syn.offset = relative
			case *loadAddress:
				syn.address = int32(target) * 4
			}
		}
	}
	return nil
}
