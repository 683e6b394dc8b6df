package isa_test

import (
	"testing"

	"github.com/keurnel/riscv/internal/isa"
)

func TestParseCode(t *testing.T) {
	scenarios := []struct {
		name     string
		text     string
		expected isa.Code
		ok       bool
	}{
		{"Register form", "add", isa.OpAdd, true},
		{"Immediate form", "addi", isa.OpAddi, true},
		{"Load", "lw", isa.OpLw, true},
		{"Upper case is accepted", "ADD", isa.OpAdd, true},
		{"Mixed case is accepted", "Beq", isa.OpBeq, true},
		{"Fence dot i keeps its dot", "fence.i", isa.OpFenceI, true},
		{"Pseudo", "li", isa.OpLi, true},
		{"RV64 word form is a known name", "addw", isa.OpAddw, true},
		{"Unknown mnemonic", "frobnicate", isa.OpInvalid, false},
		{"Empty string", "", isa.OpInvalid, false},
		{"Underscore spelling is not accepted", "fence_i", isa.OpInvalid, false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			code, ok := isa.ParseCode(scenario.text)
			if ok != scenario.ok || code != scenario.expected {
				t.Errorf("ParseCode(%q) = (%v, %v), expected (%v, %v)",
					scenario.text, code, ok, scenario.expected, scenario.ok)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	if got := isa.OpFenceI.String(); got != "fence.i" {
		t.Errorf("OpFenceI.String() = %q, expected %q", got, "fence.i")
	}
	if got := isa.OpInvalid.String(); got != "<invalid>" {
		t.Errorf("OpInvalid.String() = %q, expected %q", got, "<invalid>")
	}
}

func TestCategoryPredicates(t *testing.T) {
	scenarios := []struct {
		name string
		code isa.Code
		reg  bool
		imm  bool
		st   bool
		br   bool
		up   bool
		jmp  bool
		load bool
		shrt bool
		psdo bool
	}{
		{name: "add", code: isa.OpAdd, reg: true},
		{name: "and", code: isa.OpAnd, reg: true},
		{name: "addi", code: isa.OpAddi, imm: true},
		{name: "slli", code: isa.OpSlli, imm: true, shrt: true},
		{name: "srai", code: isa.OpSrai, imm: true, shrt: true},
		{name: "jalr", code: isa.OpJalr, imm: true},
		{name: "lb", code: isa.OpLb, imm: true, load: true},
		{name: "lwu", code: isa.OpLwu, imm: true, load: true},
		{name: "ecall", code: isa.OpEcall, imm: true},
		{name: "sw", code: isa.OpSw, st: true},
		{name: "sd", code: isa.OpSd, st: true},
		{name: "beq", code: isa.OpBeq, br: true},
		{name: "bgeu", code: isa.OpBgeu, br: true},
		{name: "lui", code: isa.OpLui, up: true},
		{name: "auipc", code: isa.OpAuipc, up: true},
		{name: "jal", code: isa.OpJal, jmp: true},
		{name: "mv", code: isa.OpMv, psdo: true},
		{name: "bnez", code: isa.OpBnez, psdo: true},
		{name: "addw", code: isa.OpAddw},
		{name: "invalid", code: isa.OpInvalid},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			if got := s.code.IsRegType(); got != s.reg {
				t.Errorf("IsRegType() = %v, expected %v", got, s.reg)
			}
			if got := s.code.IsImmType(); got != s.imm {
				t.Errorf("IsImmType() = %v, expected %v", got, s.imm)
			}
			if got := s.code.IsStoreType(); got != s.st {
				t.Errorf("IsStoreType() = %v, expected %v", got, s.st)
			}
			if got := s.code.IsBranchType(); got != s.br {
				t.Errorf("IsBranchType() = %v, expected %v", got, s.br)
			}
			if got := s.code.IsUpperType(); got != s.up {
				t.Errorf("IsUpperType() = %v, expected %v", got, s.up)
			}
			if got := s.code.IsJumpType(); got != s.jmp {
				t.Errorf("IsJumpType() = %v, expected %v", got, s.jmp)
			}
			if got := s.code.IsLoad(); got != s.load {
				t.Errorf("IsLoad() = %v, expected %v", got, s.load)
			}
			if got := s.code.IsShortImm(); got != s.shrt {
				t.Errorf("IsShortImm() = %v, expected %v", got, s.shrt)
			}
			if got := s.code.IsPseudo(); got != s.psdo {
				t.Errorf("IsPseudo() = %v, expected %v", got, s.psdo)
			}
		})
	}
}

func TestParseRegister(t *testing.T) {
	scenarios := []struct {
		name     string
		text     string
		expected uint8
		ok       bool
	}{
		{"Numeric x0", "x0", 0, true},
		{"Numeric x31", "x31", 31, true},
		{"Zero", "zero", 0, true},
		{"Return address", "ra", 1, true},
		{"Stack pointer", "sp", 2, true},
		{"Frame pointer", "fp", 8, true},
		{"Saved zero aliases fp", "s0", 8, true},
		{"Argument register", "a7", 17, true},
		{"Saved register", "s11", 27, true},
		{"Temporary", "t6", 31, true},
		{"Upper case", "A0", 10, true},
		{"Out of range", "x32", 0, false},
		{"Negative", "x-1", 0, false},
		{"Unknown name", "q7", 0, false},
		{"Bare x", "x", 0, false},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			num, ok := isa.ParseRegister(scenario.text)
			if ok != scenario.ok || num != scenario.expected {
				t.Errorf("ParseRegister(%q) = (%d, %v), expected (%d, %v)",
					scenario.text, num, ok, scenario.expected, scenario.ok)
			}
		})
	}
}
