package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "mmcore "+version.String())

			return err
		},
	}
}
