package isa

import (
	"strconv"
	"strings"
)

// NumRegisters is the number of general purpose registers. Register 0 reads
// as zero and silently discards writes.
const NumRegisters = 32

// abiRegisters maps the ABI calling-convention names to register numbers.
// Both `fp` and `s0` name register 8.
var abiRegisters = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"fp": 8, "s0": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13,
	"a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// ParseRegister resolves a register name to its number. Accepted spellings
// are the numeric x0..x31 and the ABI names (zero, ra, sp, gp, tp, fp,
// t0..t6, s0..s11, a0..a7). Unknown names return (0, false).
func ParseRegister(name string) (uint8, bool) {
	lower := strings.ToLower(name)
	if num, ok := abiRegisters[lower]; ok {
		return num, true
	}
	if strings.HasPrefix(lower, "x") {
		n, err := strconv.Atoi(lower[1:])
		if err != nil || n < 0 || n >= NumRegisters {
			return 0, false
		}
		return uint8(n), true
	}
	return 0, false
}
