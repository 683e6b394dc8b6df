package rv32

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keurnel/riscv/internal/disasm"
)

var DisassembleFileCmd = &cobra.Command{
	Use:     "disassemble-file <binary-file>",
	GroupID: "file-operations",
	Short:   "Disassemble a binary file of RV32I machine code.",
	Long: `Disassemble a binary file of 32-bit machine words. Jump and branch targets
inside the file are rendered with generated labels so the output can be
re-assembled.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDisassembleFile(cmd, args); err != nil {
			cmd.PrintErrln("Error:", err)
		}
	},
}

func init() {
	DisassembleFileCmd.Flags().Bool("big-endian", false, "input words are big-endian; swap each 4-byte group before decoding")
}

func runDisassembleFile(cmd *cobra.Command, args []string) error {
	fullPath, err := resolveFilePath(args)
	if err != nil {
		return err
	}

	program, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("failed to read binary file: %w", err)
	}

	if bigEndian, _ := cmd.Flags().GetBool("big-endian"); bigEndian {
		program, err = swapWordBytes(program)
		if err != nil {
			return err
		}
	}

	d, err := disasm.DisassemblerNew(program)
	if err != nil {
		return err
	}
	d.Disassemble(cmd.OutOrStdout())
	return nil
}

// swapWordBytes reverses every 4-byte group, converting big-endian words to
// the little-endian order the decoder expects.
func swapWordBytes(program []byte) ([]byte, error) {
	if len(program)%4 != 0 {
		return nil, fmt.Errorf("program length %d is not a multiple of 4", len(program))
	}
	swapped := make([]byte, len(program))
	for i := 0; i < len(program); i += 4 {
		swapped[i] = program[i+3]
		swapped[i+1] = program[i+2]
		swapped[i+2] = program[i+1]
		swapped[i+3] = program[i]
	}
	return swapped, nil
}
