package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Totals is a snapshot of the measurements recorded so far.
type Totals struct {
	LLMCalls         int64
	LLMCallErrors    int64
	LLMCallSeconds   float64
	Invocations      int64
	InvocationErrors int64
}

// Reporter keeps the process's measurements in memory and logs them once
// at shutdown.
type Reporter struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	once     sync.Once
}

// Setup installs an in-memory meter provider as the global provider and
// binds the instruments to it.
func Setup(appName string) (*Reporter, error) {
	r := NewReporter(appName)
	otel.SetMeterProvider(r.provider)
	if err := Init(r.provider); err != nil {
		return nil, errors.Join(err, r.provider.Shutdown(context.Background()))
	}
	return r, nil
}

// NewReporter creates a reporter without touching the global provider.
func NewReporter(appName string) *Reporter {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(appName),
		)),
	)
	return &Reporter{reader: reader, provider: provider}
}

// MeterProvider returns the provider backing the reporter.
func (r *Reporter) MeterProvider() *sdkmetric.MeterProvider {
	return r.provider
}

// Collect returns the cumulative totals recorded so far.
func (r *Reporter) Collect(ctx context.Context) (Totals, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return Totals{}, err
	}
	return Summarize(rm), nil
}

// Shutdown logs the totals and stops the provider. It is safe to call on a
// nil Reporter and more than once.
func (r *Reporter) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	var err error
	r.once.Do(func() {
		totals, collectErr := r.Collect(ctx)
		if collectErr == nil {
			slog.Info("Session metrics",
				"llm_calls", totals.LLMCalls,
				"llm_call_errors", totals.LLMCallErrors,
				"llm_call_seconds", totals.LLMCallSeconds,
				"invocations", totals.Invocations,
				"invocation_errors", totals.InvocationErrors,
			)
		}
		err = errors.Join(collectErr, r.provider.Shutdown(ctx))
	})
	return err
}

// Summarize folds this module's instruments in rm into Totals. Data from
// other instrumentation scopes is ignored.
func Summarize(rm metricdata.ResourceMetrics) Totals {
	var t Totals
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					failed := hasError(dp.Attributes)
					switch m.Name {
					case LLMCallsName:
						t.LLMCalls += dp.Value
						if failed {
							t.LLMCallErrors += dp.Value
						}
					case InvocationsName:
						t.Invocations += dp.Value
						if failed {
							t.InvocationErrors += dp.Value
						}
					}
				}
			case metricdata.Histogram[float64]:
				if m.Name != LLMCallDurationName {
					continue
				}
				for _, dp := range data.DataPoints {
					t.LLMCallSeconds += dp.Sum
				}
			}
		}
	}
	return t
}

func hasError(set attribute.Set) bool {
	v, ok := set.Value("error")
	return ok && v.AsBool()
}
