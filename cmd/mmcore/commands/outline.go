package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/internal/config"
	"github.com/mm-tools/mmcore/internal/outline"
	"github.com/mm-tools/mmcore/internal/segment"
)

func newOutlineCommand(configFile *string) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "outline <root>",
		Short: "Print a database's chapter-heading outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutline(cmd, args[0], *configFile, noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored heading levels")
	registerDBFlags(cmd)

	return cmd
}

func runOutline(cmd *cobra.Command, root, configFile string, noColor bool) error {
	if noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := loadConfig(configFile, root, func(c *config.Config) {
		applyDBFlags(cmd, c)
		c.Outline = true // the command's entire purpose; never honor --outline=false here.
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, providers, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()
	defer providers.Shutdown(cmd.Context()) //nolint:errcheck // best-effort on CLI exit

	result, err := database.OutlineResult()
	if err != nil {
		return fmt.Errorf("compute outline: %w", err)
	}

	root, ok := outline.Root(result)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "(empty outline)")

		return nil
	}

	printOutline(cmd, root, 0)

	return nil
}

// printOutline walks node in pre-order, the traversal spec §4.7 requires to
// reproduce the original heading sequence, indenting two spaces per level
// below the root sentinel.
func printOutline(cmd *cobra.Command, node outline.Node, depth int) {
	if node.Level != segment.LevelDatabase {
		indent := strings.Repeat("  ", depth-1)
		line := fmt.Sprintf("%s%s [seg %d, stmt %d]", indent, node.Title, node.Address.Segment, node.Address.Stmt)
		fmt.Fprintln(cmd.OutOrStdout(), colorizeLevel(node.Level, line))
	}

	for _, child := range node.Children {
		printOutline(cmd, child, depth+1)
	}
}

func colorizeLevel(level segment.HeadingLevel, line string) string {
	switch level {
	case segment.LevelPart:
		return color.New(color.FgCyan, color.Bold).Sprint(line)
	case segment.LevelSection:
		return color.New(color.FgCyan).Sprint(line)
	default:
		return line
	}
}
