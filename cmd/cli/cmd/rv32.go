package cmd

import "github.com/spf13/cobra"

var rv32Cmd = &cobra.Command{
	Use:     "rv32",
	GroupID: "arch",
	Short:   "RV32I architecture",
	Long:    `Functions related to the RV32I architecture.`,
}
