package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricOperationsTotal   = "pyrefactor.operations.total"
	metricOperationDuration = "pyrefactor.operation.duration.seconds"
	metricErrorsTotal       = "pyrefactor.errors.total"
	metricChangesTotal      = "pyrefactor.changes.total"
	metricInflight          = "pyrefactor.inflight.operations"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms single-file edits up to multi-minute
// batch runs over large trees.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// OperationMetrics holds the RED instruments for refactoring operations,
// plus a counter of recorded changes.
type OperationMetrics struct {
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	changesTotal      metric.Int64Counter
	inflight          metric.Int64UpDownCounter
}

// NewOperationMetrics creates the instruments from the given meter.
func NewOperationMetrics(mt metric.Meter) (*OperationMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOperationsTotal,
		metric.WithDescription("Total number of refactoring operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOperationsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOperationDuration,
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOperationDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	changes, err := mt.Int64Counter(metricChangesTotal,
		metric.WithDescription("Total number of recorded changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChangesTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflight,
		metric.WithDescription("Number of in-flight operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflight, err)
	}

	return &OperationMetrics{
		operationsTotal:   opsTotal,
		operationDuration: opDuration,
		errorsTotal:       errTotal,
		changesTotal:      changes,
		inflight:          inflight,
	}, nil
}

// RecordOperation records a completed operation.
func (om *OperationMetrics) RecordOperation(ctx context.Context, op, status string, duration time.Duration, changes int) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	om.operationsTotal.Add(ctx, 1, attrs)
	om.operationDuration.Record(ctx, duration.Seconds(), attrs)

	if changes > 0 {
		om.changesTotal.Add(ctx, int64(changes), metric.WithAttributes(attribute.String(attrOp, op)))
	}

	if status == StatusError {
		om.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (om *OperationMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	om.inflight.Add(ctx, 1, attrs)

	return func() {
		om.inflight.Add(ctx, -1, attrs)
	}
}

// Instrument runs fn inside a span named op and records its outcome. fn
// reports how many changes it made. A nil receiver only traces.
func (om *OperationMetrics) Instrument(
	ctx context.Context, tracer trace.Tracer, op string, fn func(context.Context) (int, error),
) error {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if om != nil {
		defer om.TrackInflight(ctx, op)()
	}

	start := time.Now()
	changes, err := fn(ctx)

	status := StatusOK
	if err != nil {
		status = StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(attribute.Int("pyrefactor.changes", changes))

	if om != nil {
		om.RecordOperation(ctx, op, status, time.Since(start), changes)
	}

	return err
}
