// Package otel provides OpenTelemetry metric instruments and HTTP
// instrumentation for the report service.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "alytics"

// Metrics holds all report-run metric instruments.
type Metrics struct {
	RunsStarted   metric.Int64Counter
	RunsCompleted metric.Int64Counter
	RunsFailed    metric.Int64Counter
	RunsTimedOut  metric.Int64Counter
	RunDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("alytics.runs.started",
		metric.WithDescription("Number of report runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("alytics.runs.completed",
		metric.WithDescription("Number of report runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("alytics.runs.failed",
		metric.WithDescription("Number of report runs failed"))
	if err != nil {
		return nil, err
	}

	m.RunsTimedOut, err = meter.Int64Counter("alytics.runs.timed_out",
		metric.WithDescription("Number of report runs abandoned at the deadline"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("alytics.run.duration_seconds",
		metric.WithDescription("Report run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
