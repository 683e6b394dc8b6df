package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keurnel/riscv/cmd/cli/cmd/rv32"
)

var rootCmd = &cobra.Command{
	Use:   "keurnel-rv",
	Short: "Keurnels RISC-V toolchain",
	Long:  `Keurnels RISC-V toolchain: assembler, disassembler and emulator.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {

	rootCmd.AddGroup(&cobra.Group{
		ID:    "arch",
		Title: "Architectures",
	})

	rootCmd.AddCommand(rv32Cmd)

	rv32Cmd.AddGroup(&cobra.Group{
		ID:    "file-operations",
		Title: "File operations",
	})

	rv32Cmd.AddCommand(rv32.AssembleFileCmd)
	rv32Cmd.AddCommand(rv32.DisassembleFileCmd)
	rv32Cmd.AddCommand(rv32.RunFileCmd)
}
