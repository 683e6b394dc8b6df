package rv32

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keurnel/riscv/internal/emu"
)

var RunFileCmd = &cobra.Command{
	Use:     "run-file <binary-file>",
	GroupID: "file-operations",
	Short:   "Execute a binary file of RV32I machine code.",
	Long: `Execute a binary file of 32-bit machine words on the emulator and print the
final register file. Execution halts when the program counter falls off the
end of memory, when a jump lands on itself, or when an all-zero word is
reached.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRunFile(cmd, args); err != nil {
			cmd.PrintErrln("Error:", err)
		}
	},
}

func init() {
	RunFileCmd.Flags().Int("memory", 4096, "memory size in bytes")
	RunFileCmd.Flags().Int("pc", 0, "initial program counter")
	RunFileCmd.Flags().Bool("trace", false, "print register changes after every step")
	RunFileCmd.Flags().Bool("big-endian", false, "input words are big-endian; swap each 4-byte group before loading")
}

func runRunFile(cmd *cobra.Command, args []string) error {
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

	memorySize, _ := cmd.Flags().GetInt("memory")
	if len(program) > memorySize {
		return fmt.Errorf("program of %d bytes does not fit in %d bytes of memory", len(program), memorySize)
	}

	memory := make([]byte, memorySize)
	copy(memory, program)

	processor := emu.ProcessorNew(memory)
	startPC, _ := cmd.Flags().GetInt("pc")
	processor.PC = int32(startPC)

	trace, _ := cmd.Flags().GetBool("trace")
	steps := 0
	for {
		more, err := processor.Step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		steps++
		if trace {
			printChanges(cmd, processor, steps)
		}
	}

	cmd.Printf("halted after %d steps at pc 0x%x\n", steps, processor.PC)
	printRegisters(cmd, processor)
	return nil
}

// printChanges reports the registers the last step modified, computed from
// the processor's previous-cycle snapshot.
func printChanges(cmd *cobra.Command, p *emu.Processor, step int) {
	for _, reg := range p.ChangedRegisters() {
		cmd.Printf("step %d: x%d: %d -> %d\n", step, reg, p.OldRegisters[reg], p.Registers[reg])
	}
}

func printRegisters(cmd *cobra.Command, p *emu.Processor) {
	for i, value := range p.Registers {
		cmd.Printf("x%-2d = 0x%08x (%d)\n", i, uint32(value), value)
	}
}
