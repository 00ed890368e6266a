// Package telemetry configures OpenTelemetry tracing and metrics.
// When export is disabled the system hands out no-op tracers and meters,
// so instrumented code never needs to check.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/notary/pkg/lifecycle"
)

const instrumentationName = "github.com/JaimeStill/notary"

// System provides tracers and meters and flushes exporters on shutdown.
type System interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	// Start registers a shutdown hook that flushes and stops the exporters.
	Start(lc *lifecycle.Coordinator) error
}

type telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger
}

// New creates the telemetry system. With cfg.Enabled false it returns
// no-op providers and makes no connections.
func New(ctx context.Context, cfg *Config, version string, logger *slog.Logger) (System, error) {
	t := &telemetry{
		logger: logger.With("system", "telemetry"),
	}

	if !cfg.Enabled {
		t.tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
		t.meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
		return t, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	t.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(cfg.ExportIntervalDuration()),
		)),
	)

	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.tracer = t.tracerProvider.Tracer(instrumentationName, trace.WithInstrumentationVersion(version))
	t.meter = t.meterProvider.Meter(instrumentationName, metric.WithInstrumentationVersion(version))

	t.logger.Info("telemetry export enabled", "endpoint", cfg.Endpoint, "sample_rate", cfg.SampleRate)
	return t, nil
}

func (t *telemetry) Tracer() trace.Tracer {
	return t.tracer
}

func (t *telemetry) Meter() metric.Meter {
	return t.meter
}

func (t *telemetry) Start(lc *lifecycle.Coordinator) error {
	if t.tracerProvider == nil {
		return nil
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		t.logger.Info("flushing telemetry")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			t.logger.Error("trace provider shutdown failed", "error", err)
		}
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			t.logger.Error("meter provider shutdown failed", "error", err)
		}
	})

	return nil
}
