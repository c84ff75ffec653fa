package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the mmcore root command and wires every subcommand,
// the same top-level shape as the teacher's cmd/codefang root: a short
// Use/Short/Long block, persistent flags shared by every child, and one
// AddCommand call per subcommand.
func NewRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "mmcore",
		Short: "Incremental analysis engine for Metamath databases",
		Long: `mmcore loads a Metamath database, incrementally reparsing only what
changed between reloads, and runs its analysis passes (name resolution,
scope checking, proof verification, syntactic grammar, outline) in
dependency order.

Commands:
  check     Parse a database and report every diagnostic
  outline   Print a database's chapter-heading outline
  diag      Print diagnostics from selected passes only
  config    Print the resolved configuration as YAML
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a .mmcore.yaml config file")

	root.AddCommand(newCheckCommand(&configFile))
	root.AddCommand(newOutlineCommand(&configFile))
	root.AddCommand(newDiagCommand(&configFile))
	root.AddCommand(newConfigCommand(&configFile))
	root.AddCommand(newVersionCommand())

	return root
}
