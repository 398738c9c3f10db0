// Package telemetry centralizes OpenTelemetry wiring so the rest of the
// module only deals with StartSpan/EndSpan pairs.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/lumoracare/lumora"

// StartSpan opens a span on the module tracer. It is safe to call before
// Setup; spans are no-ops until a tracer provider is installed.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan records err (if any) and ends the span. Intended for use with a
// named error return: defer telemetry.EndSpan(span, err) does the wrong
// thing, call it at the end of the deferred closure instead.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Setup installs an OTLP/HTTP trace exporter as the global tracer provider
// and returns a shutdown function. Endpoint selection follows the standard
// OTEL_EXPORTER_OTLP_* environment variables.
func Setup(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
