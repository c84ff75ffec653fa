package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPassDuration = "mmcore.pass.duration.seconds"
	metricPassRuns     = "mmcore.pass.runs"

	attrPass = "pass"
)

// passBucketBoundaries covers sub-millisecond incremental reruns through
// multi-second full recomputes of a large database.
var passBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

// PassMetrics records per-pass timing, the metrics counterpart to
// db.withTiming's slog line.
type PassMetrics struct {
	duration metric.Float64Histogram
	runs     metric.Int64Counter
}

// NewPassMetrics creates the pass-timing instruments from mt.
func NewPassMetrics(mt metric.Meter) (*PassMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PassMetrics{
		duration: b.histogram(metricPassDuration, "Analysis pass duration in seconds", "s", passBucketBoundaries...),
		runs:     b.counter(metricPassRuns, "Number of analysis pass invocations", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// Record logs one pass invocation's wall time under its name.
func (pm *PassMetrics) Record(ctx context.Context, pass string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrPass, pass))

	pm.runs.Add(ctx, 1, attrs)
	pm.duration.Record(ctx, d.Seconds(), attrs)
}
