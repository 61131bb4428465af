package observability

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
)

const (
	otlpDialTimeout      = 10 * time.Second
	stdoutMetricInterval = 30 * time.Second
)

var errMissingEndpoint = errors.New("OBS_OTLP_ENDPOINT must be set for the otlp exporter")

type spanExporterFactory func(ctx context.Context, cfg config.Observability) (sdktrace.SpanExporter, error)

// A nil exporter with a nil error leaves tracing off.
var spanExporters = map[string]spanExporterFactory{
	"none": func(context.Context, config.Observability) (sdktrace.SpanExporter, error) {
		return nil, nil
	},
	"stdout": func(context.Context, config.Observability) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	},
	"otlp": func(ctx context.Context, cfg config.Observability) (sdktrace.SpanExporter, error) {
		if cfg.TraceEndpoint == "" {
			return nil, errMissingEndpoint
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.TraceEndpoint)}
		if cfg.TraceInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		ctx, cancel := context.WithTimeout(ctx, otlpDialTimeout)
		defer cancel()
		return otlptracegrpc.New(ctx, opts...)
	},
}

func (m *Manager) setupTracing(ctx context.Context, resource *sdkresource.Resource) error {
	name := strings.ToLower(m.cfg.TraceExporter)
	factory, ok := spanExporters[name]
	if !ok {
		m.logger.Warn("unsupported trace exporter; tracing disabled", zap.String("exporter", name))
		return nil
	}
	exporter, err := factory(ctx, m.cfg)
	if err != nil || exporter == nil {
		return err
	}
	m.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
	)
	return nil
}

func (m *Manager) setupMetrics(resource *sdkresource.Resource) error {
	var reader sdkmetric.Reader
	switch name := strings.ToLower(m.cfg.MetricsExporter); name {
	case "prometheus":
		m.registry = newRegistry()
		m.http = newHTTPCollectors(m.registry)
		exporter, err := promexporter.New(promexporter.WithRegisterer(m.registry))
		if err != nil {
			return err
		}
		reader = exporter
		m.metricsHandler = promhttp.InstrumentMetricHandler(m.registry,
			promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return err
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(stdoutMetricInterval))
	default:
		m.logger.Warn("unsupported metrics exporter; metrics disabled", zap.String("exporter", name))
		return nil
	}

	m.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource),
	)
	return nil
}

// newRegistry returns a registry carrying runtime and domain collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		loginAttempts,
		menuMutations,
	)
	return reg
}
