// Package telemetry wires the optional OpenTelemetry trace, metric, and log
// pipeline behind the daemon. All three signals export over one OTLP gRPC
// connection to the configured collector.
//
// Call [Setup] once at startup and defer the returned [ShutdownFunc]. When no
// telemetry block is configured the globals stay no-ops and sync passes pay
// nothing for instrumentation.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const defaultServiceName = "calsync"

// Config holds the collector connection settings, populated from the
// telemetry block of the YAML config.
type Config struct {
	// OTLPEndpoint is the collector's gRPC host:port, e.g. "localhost:4317".
	OTLPEndpoint string

	// Insecure disables TLS on the collector connection, for local
	// collectors without a certificate.
	Insecure bool

	// ServiceName overrides the service.name resource attribute.
	ServiceName string

	// Version becomes the service.version resource attribute. Usually the
	// build version injected into the binary.
	Version string

	// Headers is attached as gRPC metadata on every export, typically an
	// Authorization token for a hosted collector.
	Headers map[string]string
}

// ShutdownFunc flushes and closes every provider Setup created. Call it with
// a fresh context; the run context is usually already cancelled when shutdown
// happens.
type ShutdownFunc func(context.Context) error

// Setup installs global trace, metric, and log providers exporting to
// cfg.OTLPEndpoint. The returned ShutdownFunc is non-nil even on error, so
// callers can defer it unconditionally.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nopShutdown, err
	}

	conn, err := dialCollector(cfg)
	if err != nil {
		return nopShutdown, err
	}

	// Providers shut down in reverse registration order, the connection last.
	var closers []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing OTLP connection: %w", err))
		}
		return errors.Join(errs...)
	}

	fail := func(err error) (ShutdownFunc, error) {
		_ = shutdown(ctx)
		return nopShutdown, err
	}

	tp, err := newTraceProvider(ctx, cfg, conn, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp, err := newMeterProvider(ctx, cfg, conn, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, mp.Shutdown)
	otel.SetMeterProvider(mp)

	lp, err := newLoggerProvider(ctx, cfg, conn, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, lp.Shutdown)
	global.SetLoggerProvider(lp)

	return shutdown, nil
}

// buildResource describes this service instance. NewSchemaless sidesteps the
// schema URL conflict between resource.Default() and our semconv version.
func buildResource(cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	own := resource.NewSchemaless(
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.Version),
	)
	res, err := resource.Merge(resource.Default(), own)
	if err != nil {
		return nil, fmt.Errorf("building OTel resource: %w", err)
	}
	return res, nil
}

func dialCollector(cfg Config) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(nil) // system root CAs
	}
	conn, err := grpc.NewClient(cfg.OTLPEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dialling OTLP collector at %q: %w", cfg.OTLPEndpoint, err)
	}
	return conn, nil
}

func newTraceProvider(ctx context.Context, cfg Config, conn *grpc.ClientConn, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(conn),
		otlptracegrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, conn *grpc.ClientConn, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithGRPCConn(conn),
		otlpmetricgrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg Config, conn *grpc.ClientConn, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithGRPCConn(conn),
		otlploggrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

func nopShutdown(context.Context) error { return nil }
