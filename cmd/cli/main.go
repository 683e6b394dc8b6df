package main

import "github.com/keurnel/riscv/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
