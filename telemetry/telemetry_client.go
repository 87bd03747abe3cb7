// Package telemetry wraps OpenTelemetry tracing for tree builds and fills.
package telemetry

import (
	"context"

	"github.com/colorfulnotion/pushtree/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/colorfulnotion/pushtree"

// Client hands out tracers. A disabled client records nothing.
type Client struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
	disabled bool
}

// NewNoOpClient creates a disabled client that does nothing.
func NewNoOpClient() *Client {
	return &Client{
		provider: noop.NewTracerProvider(),
		disabled: true,
	}
}

// NewClient exports spans over OTLP/HTTP to endpoint (host:port).
func NewClient(ctx context.Context, endpoint, service string) (*Client, error) {
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "otlp exporter %s", endpoint)
	}
	log.Info("", "Telemetry enabled", "endpoint", endpoint, "service", service)
	return newClient(service, sdktrace.WithBatcher(exp)), nil
}

// NewClientWithExporter sends every span to exp as soon as it ends.
func NewClientWithExporter(exp sdktrace.SpanExporter, service string) *Client {
	return newClient(service, sdktrace.WithSyncer(exp))
}

func newClient(service string, opt sdktrace.TracerProviderOption) *Client {
	tp := sdktrace.NewTracerProvider(
		opt,
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	return &Client{provider: tp, shutdown: tp.Shutdown}
}

func (c *Client) Enabled() bool {
	return !c.disabled
}

func (c *Client) Tracer() trace.Tracer {
	return c.provider.Tracer(tracerName)
}

// StartSpan starts a span named name carrying attrs.
func (c *Client) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans.
func (c *Client) Shutdown(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}
	return c.shutdown(ctx)
}
