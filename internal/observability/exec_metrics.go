package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	internalexec "github.com/mm-tools/mmcore/internal/exec"
)

const (
	metricExecQueueWait = "mmcore.exec.queue_wait.seconds"
	spanExecTask        = "exec.task"

	attrEstimate = "estimate"
)

// queueWaitBucketBoundaries covers a task picked up by an idle worker
// almost immediately through one stuck behind a long reparse queue.
var queueWaitBucketBoundaries = []float64{0.0001, 0.001, 0.01, 0.1, 1, 5, 30}

// ExecMetrics instruments internal/exec.Executor: one otel span per
// scheduled task, running from the moment it is queued to the moment its
// work completes, plus a histogram of how long the task waited in the
// queue before a worker picked it up.
type ExecMetrics struct {
	tracer    trace.Tracer
	queueWait metric.Float64Histogram
}

// NewExecMetrics creates the exec-timing instruments, using tr to start
// each task's span and mt to record its queue-wait sample.
func NewExecMetrics(tr trace.Tracer, mt metric.Meter) (*ExecMetrics, error) {
	b := newMetricBuilder(mt)

	em := &ExecMetrics{
		tracer: tr,
		queueWait: b.histogram(metricExecQueueWait, "Executor queue wait time in seconds", "s",
			queueWaitBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// execTask is the token internal/exec.Hooks threads from OnSchedule to the
// OnComplete call for that same task.
type execTask struct {
	ctx  context.Context
	span trace.Span
}

// Hooks returns the internal/exec.Hooks wiring em into an Executor.
func (em *ExecMetrics) Hooks() *internalexec.Hooks {
	return &internalexec.Hooks{
		OnSchedule: func(estimate int64) any {
			ctx, span := em.tracer.Start(context.Background(), spanExecTask,
				trace.WithAttributes(attribute.Int64(attrEstimate, estimate)))

			return execTask{ctx: ctx, span: span}
		},
		OnComplete: func(token any, queued time.Duration) {
			t, ok := token.(execTask)
			if !ok {
				return
			}

			em.queueWait.Record(t.ctx, queued.Seconds())
			t.span.End()
		},
	}
}
