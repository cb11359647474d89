package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/ascendhq/fieldcrm"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Credential metrics
	TokensIssuedTotal        metric.Int64Counter
	TokenVerifyFailuresTotal metric.Int64Counter

	// Access gate metrics
	AccessAllowedTotal metric.Int64Counter
	AccessDeniedTotal  metric.Int64Counter

	// Sequence allocator metrics
	SequenceAllocationsTotal   metric.Int64Counter
	SequenceConflictsTotal     metric.Int64Counter
	SequenceAllocationDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"fieldcrm.tokens.issued.total",
		metric.WithDescription("Total number of access tokens issued"),
		metric.WithUnit("{token}"),
	)

	m.TokenVerifyFailuresTotal, _ = meter.Int64Counter(
		"fieldcrm.tokens.verify.failures.total",
		metric.WithDescription("Total number of rejected credentials"),
		metric.WithUnit("{token}"),
	)

	m.AccessAllowedTotal, _ = meter.Int64Counter(
		"fieldcrm.access.allowed.total",
		metric.WithDescription("Total number of allowed access checks"),
		metric.WithUnit("{check}"),
	)

	m.AccessDeniedTotal, _ = meter.Int64Counter(
		"fieldcrm.access.denied.total",
		metric.WithDescription("Total number of denied access checks"),
		metric.WithUnit("{check}"),
	)

	m.SequenceAllocationsTotal, _ = meter.Int64Counter(
		"fieldcrm.sequence.allocations.total",
		metric.WithDescription("Total number of customer uids allocated"),
		metric.WithUnit("{id}"),
	)

	m.SequenceConflictsTotal, _ = meter.Int64Counter(
		"fieldcrm.sequence.conflicts.total",
		metric.WithDescription("Total number of transient allocation conflicts"),
		metric.WithUnit("{conflict}"),
	)

	m.SequenceAllocationDuration, _ = meter.Float64Histogram(
		"fieldcrm.sequence.allocation.duration",
		metric.WithDescription("Duration of customer uid allocation including retries"),
		metric.WithUnit("ms"),
	)

	return m
}
