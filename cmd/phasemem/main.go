// Command phasemem round-trips an image through a phase-encoded state
// buffer. See internal/cli for the command tree.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/phasemem/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
