// Command dhd dials gate addresses from the terminal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/dhd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Check failures are already rendered by the command itself.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitFailure {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
