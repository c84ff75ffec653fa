package commands

import (
	"log/slog"

	"github.com/mm-tools/mmcore/internal/config"
	"github.com/mm-tools/mmcore/internal/db"
	"github.com/mm-tools/mmcore/internal/observability"
	"github.com/mm-tools/mmcore/internal/source"
)

// openDatabase loads cfg-driven configuration for root, builds the
// observability providers and a Loader/Database pair, and runs Parse once
// against the plain filesystem (no overlay — overlays are an in-process
// API, not a CLI concept). Callers are responsible for db.Close().
func openDatabase(cfg *config.Config) (*db.Database, observability.Providers, error) {
	providers, err := observability.Init(observability.Config{
		ServiceName: cfg.Observability.ServiceName,
		LogLevel:    parseLevel(cfg.Observability.LogLevel),
		LogJSON:     cfg.Observability.LogJSON,
	})
	if err != nil {
		return nil, observability.Providers{}, err
	}

	metrics, err := observability.NewPassMetrics(providers.Meter)
	if err != nil {
		return nil, observability.Providers{}, err
	}

	execMetrics, err := observability.NewExecMetrics(providers.Tracer, providers.Meter)
	if err != nil {
		return nil, observability.Providers{}, err
	}

	loader := source.NewLoader(cfg.Autosplit, providers.Logger)
	database := db.New(cfg.DbOptions(), loader, providers.Logger, execMetrics.Hooks())
	database.SetMetrics(metrics)

	if err := database.Parse(cfg.Root, nil); err != nil {
		database.Close()

		return nil, observability.Providers{}, err
	}

	return database, providers, nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig resolves a Config for a `mmcore <cmd> <root>` invocation: the
// positional root argument wins over anything a config file set for it, and
// any --autosplit/--timing/... flags the caller passed win over both.
func loadConfig(configFile, root string, overlay func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadConfigForRoot(configFile, root)
	if err != nil {
		return nil, err
	}

	overlay(cfg)

	return cfg, nil
}
