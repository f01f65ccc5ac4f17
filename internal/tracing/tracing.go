// Package tracing installs the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/config"
	"github.com/mesh-intelligence/larder/internal/logging"
)

// DefaultServiceName is reported when TraceConfig.ServiceName is empty.
const DefaultServiceName = "larder"

// Shutdown flushes and stops span export.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP to cfg.Endpoint. With no endpoint the
// global no-op provider is kept and the returned Shutdown does nothing.
func Setup(ctx context.Context, cfg config.TraceConfig, logger *zap.Logger) (Shutdown, error) {
	logger = logging.OrNop(logger)
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled", zap.String("endpoint", cfg.Endpoint), zap.String("service", name))
	return tp.Shutdown, nil
}
