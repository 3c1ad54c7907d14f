package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const exportTimeout = 5 * time.Second

// Config holds OpenTelemetry configuration. An empty OTLPEndpoint disables
// exporting; an unreachable collector is logged and tolerated.
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	OTLPInsecure     bool
	TracesSampler    string
	SamplerRatio     float64
	MetricsInterval  time.Duration
}

func (c Config) metricsInterval() time.Duration {
	if c.MetricsInterval <= 0 {
		return 30 * time.Second
	}
	return c.MetricsInterval
}

// newSampler maps the otel.traces.sampler setting onto an SDK sampler.
// Child spans follow the caller's sampling decision.
func newSampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_off":
		return trace.ParentBased(trace.NeverSample())
	case "traceidratio":
		ratio := cfg.SamplerRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 0.1
		}
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

// Provider holds the OpenTelemetry providers. Either may be nil when its
// exporter could not be created.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// InitProvider registers the global tracer and meter providers and the W3C
// propagators. Exporter failures are logged and the service keeps running.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.OTLPEndpoint == "" {
		log.Info("otel exporter endpoint not set, telemetry export disabled")
		return &Provider{}, nil
	}

	log.WithFields(log.Fields{
		"endpoint": cfg.OTLPEndpoint,
		"service":  cfg.ServiceName,
		"sampler":  cfg.TracesSampler,
	}).Info("initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{}

	if p.TracerProvider, err = newTracerProvider(ctx, cfg, res); err != nil {
		log.WithError(err).Warn("tracing disabled")
	} else {
		otel.SetTracerProvider(p.TracerProvider)
		log.Info("✓ OpenTelemetry tracer provider initialized")
	}

	if p.MeterProvider, err = newMeterProvider(ctx, cfg, res); err != nil {
		log.WithError(err).Warn("metrics export disabled")
	} else {
		otel.SetMeterProvider(p.MeterProvider)
		log.Info("✓ OpenTelemetry meter provider initialized")
	}

	return p, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(newSampler(cfg)),
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(exportTimeout),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithTimeout(exportTimeout),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(cfg.metricsInterval()),
		)),
	), nil
}

// Shutdown flushes pending spans and metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info("✓ OpenTelemetry providers shut down")
	return nil
}
