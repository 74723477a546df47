package metrics

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/socialchef/tracechain"

// Instrument names.
const (
	LLMCallsName        = "llm.calls.total"
	LLMCallDurationName = "llm.call.duration"
	InvocationsName     = "pipeline.invocations.total"
)

var (
	// LLM call metrics
	LLMCallsTotal   metric.Int64Counter     = noop.Int64Counter{}
	LLMCallDuration metric.Float64Histogram = noop.Float64Histogram{}

	// Pipeline metrics
	InvocationsTotal metric.Int64Counter = noop.Int64Counter{}
)

// Init registers the instruments against provider.
// Until it is called every instrument is a no-op.
func Init(provider metric.MeterProvider) error {
	meter := provider.Meter(meterName)
	var err error

	LLMCallsTotal, err = meter.Int64Counter(
		LLMCallsName,
		metric.WithDescription("Total number of LLM provider calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	LLMCallDuration, err = meter.Float64Histogram(
		LLMCallDurationName,
		metric.WithDescription("Duration of LLM provider calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	InvocationsTotal, err = meter.Int64Counter(
		InvocationsName,
		metric.WithDescription("Total number of chain pipeline invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
