// Package observability wires OpenTelemetry tracing/metrics and structured
// slog logging for mmcore, trimmed from the teacher's pkg/observability
// Init to the subset mmcore's orchestrator and CLI actually exercise: no
// OTLP exporters (that module is not part of this tree's dependency set),
// Prometheus for metrics export, and a tracer provider that samples every
// span but has no span processor or exporter attached.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "mmcore"
	meterName  = "mmcore"
)

// Config configures Init, mirroring the shape of the teacher's
// observability.Config trimmed to the fields mmcore actually has a use for.
type Config struct {
	ServiceName string
	LogLevel    slog.Level
	LogJSON     bool
}

// Providers holds the initialized tracer, meter, and logger, plus an HTTP
// handler for the Prometheus scrape endpoint and a Shutdown hook.
type Providers struct {
	Tracer         trace.Tracer
	Meter          metric.Meter
	Logger         *slog.Logger
	MetricsHandler http.Handler
	Shutdown       func(ctx context.Context) error
}

// Init builds the tracer/meter providers and structured logger, registering
// them as the process-global otel defaults the way the teacher's Init does.
func Init(cfg Config) (Providers, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	logger := buildLogger(cfg)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	return Providers{
		Tracer:         tp.Tracer(tracerName),
		Meter:          mp.Meter(meterName),
		Logger:         logger,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Shutdown:       shutdown,
	}, nil
}

func buildLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler).With("service", cfg.ServiceName)
}
