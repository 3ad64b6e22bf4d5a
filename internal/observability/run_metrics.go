package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal   = "codetally.run.files.total"
	metricFileDuration = "codetally.run.file.duration.seconds"
	metricLinesTotal   = "codetally.run.lines.total"
	metricCommitsTotal = "codetally.run.commits.total"

	attrOutcome = "outcome"
)

// File outcome attribute values.
const (
	// OutcomeAttributed marks a file that produced a result.
	OutcomeAttributed = "attributed"
	// OutcomeDropped marks a file dropped without error (missing, empty,
	// nothing relevant).
	OutcomeDropped = "dropped"
	// OutcomeFailed marks a file whose analysis failed.
	OutcomeFailed = "failed"
)

// RunMetrics holds OTel instruments for attribution-run metrics.
type RunMetrics struct {
	filesTotal   metric.Int64Counter
	fileDuration metric.Float64Histogram
	linesTotal   metric.Int64Counter
	commitsTotal metric.Int64Counter
}

// RunStats holds the statistics of one completed attribution run.
type RunStats struct {
	FilesAttributed int64
	FilesDropped    int64
	FilesFailed     int64
	Lines           int64
	Commits         int64
	FileDurations   []time.Duration
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		filesTotal:   b.counter(metricFilesTotal, "Files processed by outcome", "{file}"),
		fileDuration: b.histogram(metricFileDuration, "Per-file attribution duration in seconds", "s", durationBucketBoundaries...),
		linesTotal:   b.counter(metricLinesTotal, "Lines attributed", "{line}"),
		commitsTotal: b.counter(metricCommitsTotal, "Commits inspected for churn", "{commit}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records the statistics of a completed attribution run.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if rm == nil {
		return
	}

	rm.filesTotal.Add(ctx, stats.FilesAttributed, metric.WithAttributes(attribute.String(attrOutcome, OutcomeAttributed)))
	rm.filesTotal.Add(ctx, stats.FilesDropped, metric.WithAttributes(attribute.String(attrOutcome, OutcomeDropped)))
	rm.filesTotal.Add(ctx, stats.FilesFailed, metric.WithAttributes(attribute.String(attrOutcome, OutcomeFailed)))

	rm.linesTotal.Add(ctx, stats.Lines)
	rm.commitsTotal.Add(ctx, stats.Commits)

	for _, d := range stats.FileDurations {
		rm.fileDuration.Record(ctx, d.Seconds())
	}
}
