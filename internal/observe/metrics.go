// Package observe records worker metrics through the OpenTelemetry metrics
// API and exposes them for Prometheus scraping.
//
// Tests should build Metrics with NewMetrics over a ManualReader-backed
// provider instead of touching the global provider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"readrepeat/internal/align"
)

const meterName = "readrepeat/worker"

// Metrics holds the worker's instruments.
type Metrics struct {
	// JobsTotal counts finished jobs by kind and status.
	JobsTotal metric.Int64Counter

	// JobDuration tracks wall time per job by kind and status.
	JobDuration metric.Float64Histogram

	// PollErrors counts failed attempts to fetch or report jobs.
	PollErrors metric.Int64Counter

	// AlignmentOutcomes counts aligned sentences by outcome status.
	AlignmentOutcomes metric.Int64Counter

	// AlignmentConfidence tracks window scores of matched sentences.
	AlignmentConfidence metric.Float64Histogram
}

var jobBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

var confidenceBuckets = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.JobsTotal, err = m.Int64Counter("readrepeat.jobs",
		metric.WithDescription("Finished jobs by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.JobDuration, err = m.Float64Histogram("readrepeat.job.duration",
		metric.WithDescription("Job processing time by kind and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(jobBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PollErrors, err = m.Int64Counter("readrepeat.poll.errors",
		metric.WithDescription("Failed job fetch or report attempts by operation."),
	); err != nil {
		return nil, err
	}
	if met.AlignmentOutcomes, err = m.Int64Counter("readrepeat.alignment.sentences",
		metric.WithDescription("Aligned sentences by outcome."),
	); err != nil {
		return nil, err
	}
	if met.AlignmentConfidence, err = m.Float64Histogram("readrepeat.alignment.confidence",
		metric.WithDescription("Window score of matched sentences."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordJob records one finished job.
func (m *Metrics) RecordJob(ctx context.Context, kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	m.JobsTotal.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordPollError records a failed fetch or report.
func (m *Metrics) RecordPollError(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.PollErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordAlignment records one sentence outcome.
func (m *Metrics) RecordAlignment(ctx context.Context, o align.Outcome) {
	if m == nil {
		return
	}
	m.AlignmentOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	if o.Status == align.StatusMatched {
		m.AlignmentConfidence.Record(ctx, o.Timing.Confidence)
	}
}

// AlignmentObserver adapts RecordAlignment to align.WithObserver.
func (m *Metrics) AlignmentObserver() func(align.Outcome) {
	return func(o align.Outcome) {
		m.RecordAlignment(context.Background(), o)
	}
}
