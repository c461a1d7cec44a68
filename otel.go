package orderagent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	TracerNameEngine  = "order-engine"
	TracerNameMock    = "mock-generator"
	TracerNameBedrock = "bedrock-generator"
	TracerNameOllama  = "ollama-generator"
	TracerNameOpenAI  = "openai-generator"
)

// OtelConfig describes where telemetry goes and how the service is labelled. An empty endpoint
// keeps traces and metrics in process, which is how offline runs work without a collector.
type OtelConfig struct {
	Endpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION,default=0.1.0"`
	ServiceName    string `env:"OTEL_SERVICE_NAME,default=order-agent"`
	DeployEnv      string `env:"OTEL_DEPLOY_ENV,default=development"`
	AgentName      string `env:"AGENT_NAME,default=order_taking_agent"`
}

type otelShutdown func(ctx context.Context) error

// InitOtel decodes OtelConfig from the environment and installs the global providers.
func InitOtel(ctx context.Context) (*sdktrace.TracerProvider, *metric.MeterProvider, otelShutdown, error) {
	var cfg OtelConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, nil, nil, err
	}
	return InitOtelWith(ctx, cfg)
}

// InitOtelWith installs trace and metric providers labelled with the service and agent names.
// OTLP gRPC exporters are attached only when cfg.Endpoint is set; the exporters read the rest of
// their settings (headers, TLS) from the standard OTEL_EXPORTER_OTLP_* variables.
func InitOtelWith(ctx context.Context, cfg OtelConfig) (*sdktrace.TracerProvider, *metric.MeterProvider, otelShutdown, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.DeployEnv),
		attribute.String("order_agent.name", cfg.AgentName),
	))
	if err != nil {
		return nil, nil, nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOpts := []metric.Option{metric.WithResource(res)}

	if cfg.Endpoint != "" {
		traceExporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
		if err != nil {
			return nil, nil, nil, err
		}
		metricExporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))
		meterOpts = append(meterOpts, metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	} else {
		slog.Info("SETUP: No OTLP endpoint configured; telemetry stays in process")
	}

	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)
	meterProvider := metric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	shutdown := func(ctx context.Context) error {
		err := errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
		if err != nil && err.Error() == "gRPC exporter is shutdown" {
			return nil
		}
		return err
	}

	return tracerProvider, meterProvider, shutdown, nil
}
