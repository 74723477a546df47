package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/tracechain/internal/credentials"
)

const instrumentationName = "github.com/socialchef/tracechain"

// Session owns the tracer provider for the lifetime of the process.
type Session struct {
	appName string

	mu       sync.Mutex
	provider *sdktrace.TracerProvider
	handle   *Handle
	closed   bool
}

// Handle is the tracing capability attached to pipeline invocations.
type Handle struct {
	tracer  trace.Tracer
	appName string
}

// Tracer returns the tracer bound to the session.
func (h *Handle) Tracer() trace.Tracer {
	return h.tracer
}

// AppName returns the application identity the session was created with.
func (h *Handle) AppName() string {
	return h.appName
}

// Option configures Init.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
}

// WithExporter replaces the OTLP exporter, mainly for tests.
func WithExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exporter
	}
}

// NewSession creates an uninitialized session for appName.
func NewSession(appName string) *Session {
	return &Session{appName: appName}
}

// Init starts exporting spans to the endpoint in cfg. A nil cfg leaves the
// session disabled. Calling Init again after a successful call is a no-op.
func (s *Session) Init(ctx context.Context, cfg *credentials.TransportConfig, opts ...Option) error {
	if cfg == nil {
		slog.Info("Tracing skipped: OTLP credentials not configured")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider != nil || s.closed {
		return nil
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(s.appName),
		),
	)
	if err != nil {
		return err
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = newExporter(ctx, cfg)
		if err != nil {
			return err
		}
	}

	// WithSyncer exports each span as it ends.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	s.provider = tp
	s.handle = &Handle{tracer: tp.Tracer(instrumentationName), appName: s.appName}

	slog.Info("Tracing initialized",
		"app_name", s.appName,
		"endpoint", cfg.Endpoint,
	)
	return nil
}

// Handle returns the tracing handle if Init succeeded.
func (s *Session) Handle() (*Handle, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.handle != nil
}

// Flush blocks until every recorded span has been exported, then shuts the
// provider down. It is safe to call on a nil or uninitialized session and
// more than once.
func (s *Session) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return nil
	}

	err1 := s.provider.ForceFlush(ctx)
	err2 := s.provider.Shutdown(ctx)
	s.provider = nil
	s.handle = nil
	s.closed = true
	return errors.Join(err1, err2)
}

func newExporter(ctx context.Context, cfg *credentials.TransportConfig) (sdktrace.SpanExporter, error) {
	endpoint, urlPath, insecure := exporterTarget(cfg.Endpoint)

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithURLPath(urlPath),
	}
	if len(cfg.Headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}

	return otlptracehttp.New(ctx, traceOpts...)
}

// exporterTarget splits an OTLP base endpoint into host, trace path and
// whether plain HTTP is used.
func exporterTarget(otlpEndpoint string) (endpoint, urlPath string, insecure bool) {
	endpoint = otlpEndpoint
	basePath := ""

	if strings.HasPrefix(endpoint, "https://") {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	} else if strings.HasPrefix(endpoint, "http://") {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		insecure = true
	}

	if idx := strings.Index(endpoint, "/"); idx > 0 {
		basePath = endpoint[idx:]
		endpoint = endpoint[:idx]
	}

	basePath = strings.TrimSuffix(basePath, "/v1/traces")
	basePath = strings.TrimSuffix(basePath, "/")
	return endpoint, basePath + "/v1/traces", insecure
}
