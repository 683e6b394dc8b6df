package asm_test

import (
	"testing"

	"github.com/keurnel/riscv/internal/asm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func requireTokens(t *testing.T, source string) []asm.Token {
	t.Helper()
	tokens, err := asm.LexerNew(source).Start()
	if err != nil {
		t.Fatalf("Start() failed on %q: %v", source, err)
	}
	return tokens
}

func requireTokenCount(t *testing.T, tokens []asm.Token, expected int) {
	t.Helper()
	if len(tokens) != expected {
		t.Fatalf("expected %d tokens, got %d: %v", expected, len(tokens), tokens)
	}
}

func requireIdentifier(t *testing.T, tok asm.Token, literal string) {
	t.Helper()
	if tok.Type != asm.TokenIdentifier || tok.Literal != literal {
		t.Errorf("expected identifier %q, got %v", literal, tok)
	}
}

func requireNumber(t *testing.T, tok asm.Token, value int64) {
	t.Helper()
	if tok.Type != asm.TokenNumber || tok.Value != value {
		t.Errorf("expected number %d, got %v", value, tok)
	}
}

func requireDelimiter(t *testing.T, tok asm.Token, literal string) {
	t.Helper()
	if tok.Type != asm.TokenDelimiter || tok.Literal != literal {
		t.Errorf("expected delimiter %q, got %v", literal, tok)
	}
}

// ---------------------------------------------------------------------------
// Tests: empty and trivial inputs
// ---------------------------------------------------------------------------

func TestLexer_EmptyInput(t *testing.T) {
	requireTokenCount(t, requireTokens(t, ""), 0)
}

func TestLexer_WhitespaceOnly(t *testing.T) {
	tokens := requireTokens(t, "  \t \r ")
	requireTokenCount(t, tokens, 0)
}

func TestLexer_NewlinesAreTokens(t *testing.T) {
	tokens := requireTokens(t, "\n\n")
	requireTokenCount(t, tokens, 2)
	requireDelimiter(t, tokens[0], "\n")
	requireDelimiter(t, tokens[1], "\n")
}

// ---------------------------------------------------------------------------
// Tests: comments
// ---------------------------------------------------------------------------

func TestLexer_CommentConsumesLine(t *testing.T) {
	tokens := requireTokens(t, "# a comment, with, commas\naddi")
	requireTokenCount(t, tokens, 2)
	requireDelimiter(t, tokens[0], "\n")
	requireIdentifier(t, tokens[1], "addi")
}

func TestLexer_CommentAtEndOfInputStillTerminatesLine(t *testing.T) {
	tokens := requireTokens(t, "nop # trailing")
	requireTokenCount(t, tokens, 2)
	requireIdentifier(t, tokens[0], "nop")
	requireDelimiter(t, tokens[1], "\n")
}

// ---------------------------------------------------------------------------
// Tests: identifiers
// ---------------------------------------------------------------------------

func TestLexer_Identifiers(t *testing.T) {
	scenarios := []struct {
		name    string
		source  string
		literal string
	}{
		{"Mnemonic", "addi", "addi"},
		{"Dotted mnemonic", "fence.i", "fence.i"},
		{"Underscore start", "_loop", "_loop"},
		{"Digits inside", "x31", "x31"},
		{"Dots inside", "a.b.c", "a.b.c"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			tokens := requireTokens(t, scenario.source)
			requireTokenCount(t, tokens, 1)
			requireIdentifier(t, tokens[0], scenario.literal)
		})
	}
}

// ---------------------------------------------------------------------------
// Tests: numbers
// ---------------------------------------------------------------------------

func TestLexer_Numbers(t *testing.T) {
	scenarios := []struct {
		name     string
		source   string
		expected int64
	}{
		{"Decimal", "42", 42},
		{"Zero", "0", 0},
		{"Plus sign", "+7", 7},
		{"Minus sign", "-5", -5},
		{"Hexadecimal", "0x2a", 42},
		{"Hexadecimal upper digits", "0xFF", 255},
		{"Negative hexadecimal", "-0x10", -16},
		{"Binary", "0b101010", 42},
		{"Negative binary", "-0b101", -5},
		{"Wider than 32 bits", "4294967295", 4294967295},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			tokens := requireTokens(t, scenario.source)
			requireTokenCount(t, tokens, 1)
			requireNumber(t, tokens[0], scenario.expected)
		})
	}
}

func TestLexer_MalformedNumbers(t *testing.T) {
	scenarios := []struct {
		name   string
		source string
	}{
		{"Base prefix without digits", "0x"},
		{"Binary with bad digit", "0b2"},
		{"Base prefix not on zero", "1b0"},
		{"Hex digits without prefix", "12f"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			_, err := asm.LexerNew(scenario.source).Start()
			if err == nil {
				t.Fatalf("Start() succeeded on %q, expected a lex error", scenario.source)
			}
			if _, ok := err.(*asm.LexError); !ok {
				t.Errorf("expected *LexError, got %T", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Tests: statements
// ---------------------------------------------------------------------------

func TestLexer_InstructionStatement(t *testing.T) {
	tokens := requireTokens(t, "addi x1, x2, -10\n")
	requireTokenCount(t, tokens, 7)
	requireIdentifier(t, tokens[0], "addi")
	requireIdentifier(t, tokens[1], "x1")
	requireDelimiter(t, tokens[2], ",")
	requireIdentifier(t, tokens[3], "x2")
	requireDelimiter(t, tokens[4], ",")
	requireNumber(t, tokens[5], -10)
	requireDelimiter(t, tokens[6], "\n")
}

func TestLexer_OffsetAndBaseCharacters(t *testing.T) {
	tokens := requireTokens(t, "lw x2, 8(x1)")
	requireTokenCount(t, tokens, 7)
	requireIdentifier(t, tokens[0], "lw")
	requireIdentifier(t, tokens[1], "x2")
	requireDelimiter(t, tokens[2], ",")
	requireNumber(t, tokens[3], 8)
	requireDelimiter(t, tokens[4], "(")
	requireIdentifier(t, tokens[5], "x1")
	requireDelimiter(t, tokens[6], ")")
}

func TestLexer_Label(t *testing.T) {
	tokens := requireTokens(t, "loop:\n")
	requireTokenCount(t, tokens, 3)
	requireIdentifier(t, tokens[0], "loop")
	requireDelimiter(t, tokens[1], ":")
	requireDelimiter(t, tokens[2], "\n")
}

func TestLexer_LineAndColumnTracking(t *testing.T) {
	tokens := requireTokens(t, "nop\n  addi")
	requireTokenCount(t, tokens, 3)
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Errorf("nop at %d:%d, expected 1:1", tokens[0].Line, tokens[0].Column)
	}
	if tokens[2].Line != 2 || tokens[2].Column != 3 {
		t.Errorf("addi at %d:%d, expected 2:3", tokens[2].Line, tokens[2].Column)
	}
}
