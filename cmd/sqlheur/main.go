// Command sqlheur scores SQL queries by how far a database is from
// satisfying their filters.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sqlheur/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
