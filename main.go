package main

import (
	"fmt"
	"os"

	"github.com/winix-os/winix/cmd"
)

func main() {
	winixctlCmd := cmd.SetupCLI()
	if err := winixctlCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
