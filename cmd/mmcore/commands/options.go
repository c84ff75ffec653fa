// Package commands implements the mmcore CLI's subcommands: check, outline,
// diag, config, and version, built on top of internal/db and internal/config the
// same way the teacher's cmd/codefang/commands builds its subcommands on top
// of internal/framework and internal/config.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mm-tools/mmcore/internal/config"
	"github.com/mm-tools/mmcore/pkg/pipeline"
)

// dbOptionSpecs describes every config.Config field a Database cares about
// as a pipeline.ConfigurationOption, the teacher's own means of describing
// an analyzer's tunables for flag registration (pkg/pipeline/options.go).
// mmcore has no PipelineItem registry to hang these off of, so the CLI layer
// consults the list directly when building --flags and their --help text.
func dbOptionSpecs() []pipeline.ConfigurationOption {
	return []pipeline.ConfigurationOption{
		{
			Name: "autosplit", Flag: "autosplit", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultAutosplit,
			Description: "split source files over 1 MiB on chapter-header comments",
		},
		{
			Name: "timing", Flag: "timing", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultTiming,
			Description: "print each pass accessor call's wall time in milliseconds",
		},
		{
			Name: "trace-recalc", Flag: "trace-recalc", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultTraceRecalc,
			Description: "carried into the database options; no pass reads it",
		},
		{
			Name: "outline", Flag: "outline", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultOutline,
			Description: "compute the outline pass",
		},
		{
			Name: "incremental", Flag: "incremental", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultIncremental,
			Description: "reuse unchanged per-segment pass results across reloads",
		},
		{
			Name: "jobs", Flag: "jobs", Type: pipeline.IntConfigurationOption,
			Default:     config.DefaultJobs,
			Description: "reparse executor worker count",
		},
		{
			Name: "parse-statements", Flag: "parse-statements", Type: pipeline.BoolConfigurationOption,
			Default:     config.DefaultParseStatements,
			Description: "compute the stmt_parse pass",
		},
	}
}

// registerDBFlags registers every dbOptionSpecs entry on cmd, the same
// reflection-free type switch the teacher's registerConfigFlag uses to turn
// a pipeline.ConfigurationOption into a concrete pflag.
func registerDBFlags(cmd *cobra.Command) {
	for _, opt := range dbOptionSpecs() {
		registerConfigFlag(cmd, opt)
	}
}

func registerConfigFlag(cmd *cobra.Command, opt pipeline.ConfigurationOption) {
	switch opt.Type {
	case pipeline.BoolConfigurationOption:
		if v, ok := opt.Default.(bool); ok {
			cmd.Flags().Bool(opt.Flag, v, opt.Description)
		}
	case pipeline.IntConfigurationOption:
		if v, ok := opt.Default.(int); ok {
			cmd.Flags().Int(opt.Flag, v, opt.Description)
		}
	case pipeline.StringConfigurationOption, pipeline.PathConfigurationOption:
		if v, ok := opt.Default.(string); ok {
			cmd.Flags().String(opt.Flag, v, opt.Description)
		}
	case pipeline.StringsConfigurationOption:
		if v, ok := opt.Default.([]string); ok {
			cmd.Flags().StringSlice(opt.Flag, v, opt.Description)
		}
	case pipeline.FloatConfigurationOption:
		if v, ok := opt.Default.(float64); ok {
			cmd.Flags().Float64(opt.Flag, v, opt.Description)
		}
	}
}

// applyDBFlags overlays cmd's --autosplit/--timing/... flags (when set by
// the caller) onto cfg, giving CLI flags precedence over the config file and
// environment layers config.LoadConfig already applied.
func applyDBFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, err := cmd.Flags().GetBool("autosplit"); err == nil && cmd.Flags().Changed("autosplit") {
		cfg.Autosplit = v
	}

	if v, err := cmd.Flags().GetBool("timing"); err == nil && cmd.Flags().Changed("timing") {
		cfg.Timing = v
	}

	if v, err := cmd.Flags().GetBool("trace-recalc"); err == nil && cmd.Flags().Changed("trace-recalc") {
		cfg.TraceRecalc = v
	}

	if v, err := cmd.Flags().GetBool("outline"); err == nil && cmd.Flags().Changed("outline") {
		cfg.Outline = v
	}

	if v, err := cmd.Flags().GetBool("incremental"); err == nil && cmd.Flags().Changed("incremental") {
		cfg.Incremental = v
	}

	if v, err := cmd.Flags().GetInt("jobs"); err == nil && cmd.Flags().Changed("jobs") {
		cfg.Jobs = v
	}

	if v, err := cmd.Flags().GetBool("parse-statements"); err == nil && cmd.Flags().Changed("parse-statements") {
		cfg.ParseStatements = v
	}
}
