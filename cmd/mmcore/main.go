// Command mmcore is a thin CLI front end over the incremental analysis
// engine in internal/db: it is not part of the core's specified surface,
// but a shippable Go module needs an entry point, the same way the
// teacher's cmd/codefang is a thin front end over its analysis pipelines.
package main

import (
	"fmt"
	"os"

	"github.com/mm-tools/mmcore/cmd/mmcore/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
