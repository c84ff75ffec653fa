package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/internal/config"
)

// newConfigCommand builds `mmcore config <root>`, which resolves the layered
// config (file, environment, flags, defaults) the same way check/outline/diag
// do and prints the result as YAML, so a caller can see exactly what a
// subsequent `check` invocation would run with.
func newConfigCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <root>",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd, args[0], *configFile)
		},
	}

	registerDBFlags(cmd)

	return cmd
}

func runConfig(cmd *cobra.Command, root, configFile string) error {
	cfg, err := loadConfig(configFile, root, func(c *config.Config) { applyDBFlags(cmd, c) })
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, err := cfg.Dump()
	if err != nil {
		return fmt.Errorf("dump config: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(out))

	return nil
}
