package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/internal/config"
	"github.com/mm-tools/mmcore/internal/diag"
)

func newCheckCommand(configFile *string) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "check <root>",
		Short: "Parse a database and report every diagnostic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], *configFile, noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored diagnostic severities")
	registerDBFlags(cmd)

	return cmd
}

func runCheck(cmd *cobra.Command, root, configFile string, noColor bool) error {
	if noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := loadConfig(configFile, root, func(c *config.Config) { applyDBFlags(cmd, c) })
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, providers, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()
	defer providers.Shutdown(cmd.Context()) //nolint:errcheck // best-effort on CLI exit

	notations, err := database.DiagNotations(
		diag.ClassParse, diag.ClassScope, diag.ClassVerify, diag.ClassGrammar, diag.ClassStmtParse,
	)
	if err != nil {
		return fmt.Errorf("collect diagnostics: %w", err)
	}

	printNotations(cmd, notations)

	if len(notations) > 0 {
		return fmt.Errorf("%d diagnostic(s) found", len(notations))
	}

	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "no diagnostics")

	return nil
}

// printNotations renders notations as a go-pretty table, the same borderless
// light style the teacher's internal/analyzers/common.Formatter uses for
// collection tables, with the Kind column colorized the way cmd/uast's
// validate command colorizes its error/ok lines.
func printNotations(cmd *cobra.Command, notations []diag.Notation) {
	if len(notations) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(table.Row{"kind", "source", "segment", "statement", "message"})

	for _, n := range notations {
		tbl.AppendRow(table.Row{
			colorizeKind(n.Kind), n.Source, n.Segment, n.Statement, n.Message,
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d diagnostic(s)", len(notations))})
	tbl.Render()
}

func colorizeKind(k diag.Kind) string {
	switch k {
	case diag.KindInternal:
		return color.New(color.FgMagenta).Sprint(k)
	case diag.KindIO, diag.KindInclude:
		return color.New(color.FgRed).Sprint(k)
	default:
		return color.New(color.FgYellow).Sprint(k)
	}
}
