package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/internal/config"
	"github.com/mm-tools/mmcore/internal/diag"
)

// classNames maps the --class flag's accepted tokens to diag.Class, in
// diag_notations' documented input vocabulary (spec §4.6/§6): parse, scope,
// verify, grammar, stmt_parse.
var classNames = map[string]diag.Class{
	"parse":      diag.ClassParse,
	"scope":      diag.ClassScope,
	"verify":     diag.ClassVerify,
	"grammar":    diag.ClassGrammar,
	"stmt_parse": diag.ClassStmtParse,
}

func newDiagCommand(configFile *string) *cobra.Command {
	var (
		classFlag string
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "diag <root>",
		Short: "Print diagnostics from selected passes only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classes, err := parseClasses(classFlag)
			if err != nil {
				return err
			}

			return runDiag(cmd, args[0], *configFile, noColor, classes)
		},
	}

	cmd.Flags().StringVar(&classFlag, "class", "parse,scope,verify,grammar,stmt_parse",
		"comma-separated diagnostic classes: parse,scope,verify,grammar,stmt_parse")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored diagnostic severities")
	registerDBFlags(cmd)

	return cmd
}

func parseClasses(flag string) ([]diag.Class, error) {
	var out []diag.Class

	for _, tok := range strings.Split(flag, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		class, ok := classNames[tok]
		if !ok {
			return nil, fmt.Errorf("unknown diagnostic class %q", tok)
		}

		out = append(out, class)
	}

	return out, nil
}

func runDiag(cmd *cobra.Command, root, configFile string, noColor bool, classes []diag.Class) error {
	if noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := loadConfig(configFile, root, func(c *config.Config) {
		applyDBFlags(cmd, c)

		for _, class := range classes {
			if class == diag.ClassStmtParse {
				c.ParseStatements = true
			}
		}
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

	notations, err := database.DiagNotations(classes...)
	if err != nil {
		return fmt.Errorf("collect diagnostics: %w", err)
	}

	printNotations(cmd, notations)

	return nil
}
