// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider shutdowner
	meter          otelmetric.Meter
	tracer         trace.Tracer

	dispatchCounter otelmetric.Int64Counter
	dispatchLatency otelmetric.Float64Histogram
	stageLatency    otelmetric.Float64Histogram
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type Option func(*options)

type options struct {
	registerer     promclient.Registerer
	jaegerEndpoint string
}

// WithRegisterer routes the otel prometheus exporter to a specific registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithJaeger enables span export to a Jaeger collector endpoint.
func WithJaeger(endpoint string) Option {
	return func(o *options) { o.jaegerEndpoint = endpoint }
}

func New(serviceName string, opts ...Option) *Observability {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	obs := &Observability{}
	obs.tracerProvider, obs.tracer = newTracer(serviceName, o.jaegerEndpoint)

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return obs
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	obs.dispatchCounter, _ = meter.Int64Counter(
		"dispatch_requests",
		otelmetric.WithDescription("Number of dispatched messages"),
	)
	obs.dispatchLatency, _ = meter.Float64Histogram(
		"dispatch_duration",
		otelmetric.WithDescription("Dispatch latency"),
		otelmetric.WithUnit("ms"),
	)
	obs.stageLatency, _ = meter.Float64Histogram(
		"quote_stage_duration",
		otelmetric.WithDescription("Quoting stage latency"),
		otelmetric.WithUnit("ms"),
	)

	obs.meterProvider = provider
	obs.meter = meter
	return obs
}

// RecordDispatch counts one dispatched message and its latency.
func (o *Observability) RecordDispatch(ctx context.Context, intent, kind string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("kind", kind),
	)
	if o.dispatchCounter != nil {
		o.dispatchCounter.Add(ctx, 1, attrs)
	}
	if o.dispatchLatency != nil {
		o.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordStage records one quoting stage run.
func (o *Observability) RecordStage(ctx context.Context, stage string, degraded bool, duration time.Duration) {
	if o == nil || o.stageLatency == nil {
		return
	}
	o.stageLatency.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("degraded", degraded),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
