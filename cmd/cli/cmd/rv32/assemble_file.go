package rv32

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keurnel/riscv/internal/asm"
	"github.com/keurnel/riscv/internal/diag"
)

var AssembleFileCmd = &cobra.Command{
	Use:     "assemble-file <assembly-file>",
	GroupID: "file-operations",
	Short:   "Assemble an RV32I assembly file into a binary file.",
	Long:    `Assemble an RV32I assembly file into a binary file of little-endian 32-bit words.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAssembleFile(cmd, args); err != nil {
			cmd.PrintErrln("Error:", err)
		}
	},
}

func init() {
	AssembleFileCmd.Flags().StringP("output", "o", "", "output file (defaults to the input with a .bin extension)")
	AssembleFileCmd.Flags().BoolP("listing", "l", false, "print an address/word/source-line listing to stdout")
	AssembleFileCmd.Flags().BoolP("verbose", "v", false, "print pipeline diagnostics, including traces")
}

// runAssembleFile orchestrates the assembly pipeline: resolve the file, run
// the assembler, and write the encoded words.
func runAssembleFile(cmd *cobra.Command, args []string) error {
	fullPath, err := resolveFilePath(args)
	if err != nil {
		return err
	}

	source, err := readSourceFile(fullPath)
	if err != nil {
		return err
	}

	dc := diag.New()
	program, err := asm.AssemblerNew(source).WithDiagnostics(dc).Run()
	if err != nil {
		dc.Render(cmd.ErrOrStderr(), diag.SeverityError)
		return err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		dc.Render(cmd.ErrOrStderr(), diag.SeverityTrace)
	}
	if listing, _ := cmd.Flags().GetBool("listing"); listing {
		fmt.Fprint(cmd.OutOrStdout(), program.Listing())
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = strings.TrimSuffix(fullPath, filepath.Ext(fullPath)) + ".bin"
	}
	if err := os.WriteFile(outPath, program.Code, 0o644); err != nil {
		return fmt.Errorf("failed to write binary file: %w", err)
	}

	cmd.Printf("assembled %d instructions to %s\n", len(program.Instructions), outPath)
	return nil
}

// resolveFilePath validates the CLI arguments and returns the absolute path
// to the input file.
func resolveFilePath(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("no input file provided")
	}
	if args[0] == "" {
		return "", fmt.Errorf("input file path is empty")
	}

	fullPath := args[0]
	if !filepath.IsAbs(fullPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("unable to get current working directory: %w", err)
		}
		fullPath = filepath.Join(cwd, fullPath)
	}
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return "", fmt.Errorf("input file does not exist at path: %s", fullPath)
	}

	return fullPath, nil
}

// readSourceFile reads the assembly source file and returns its content.
func readSourceFile(path string) (string, error) {
	sourceBytes, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read assembly file: %w", err)
	}
	return string(sourceBytes), nil
}
