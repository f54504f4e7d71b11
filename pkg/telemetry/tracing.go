package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ----------------------------------------
// Tracer Setup and Teardown
// ----------------------------------------
func newTraceProvider() {
	if !isTracingEnabled() {
		log.Debug().Msgf("OLTP tracing endpoints are not defined. No traces will be exported")
		return
	}

	// The context passed in to the exporter is only passed to the client and used when connecting to the endpoint
	ctx := context.Background()
	client, err := getTraceClient()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize OLTP trace client")
		return
	}

	exp, err := otlptrace.New(ctx, client)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize OLTP trace exporter")
		return
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
}

func getTraceClient() (otlptrace.Client, error) {
	protocol := otlpProtocolHTTP
	if v := os.Getenv(otlpProtocol); v != "" {
		protocol = v
	}
	if protocol != otlpProtocolHTTP {
		return nil, fmt.Errorf("unknown or unsupported OLTP protocol: %s. No traces will be exported", protocol)
	}
	return otlptracehttp.NewClient(), nil
}

func isTracingEnabled() bool {
	if v, ok := os.LookupEnv(disableTracing); ok && v == "true" {
		return false
	}
	_, endpointDefined := os.LookupEnv(otlpEndpoint)
	_, tracingEndpointDefined := os.LookupEnv(otlpTracesEndpoint)
	return endpointDefined || tracingEndpointDefined
}

func cleanupTraceProvider() error {
	type shutdown interface {
		oteltrace.TracerProvider
		Shutdown(ctx context.Context) error
	}
	tracer, ok := otel.GetTracerProvider().(shutdown)
	if ok {
		return tracer.Shutdown(context.Background())
	}
	return nil
}

// ----------------------------------------
// Span helpers
// ----------------------------------------

// GetTracer returns the relay's tracer from the global provider.
func GetTracer() oteltrace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

// NewSpan starts a span named name, and returns a context containing it.
func NewSpan(
	ctx context.Context, t oteltrace.Tracer, name string, opts ...oteltrace.SpanStartOption,
) (context.Context, oteltrace.Span) {
	return t.Start(ctx, name, opts...)
}

// RecordErrorOnSpan records err on span and marks the span as failed. The
// span is not ended; callers end it with a deferred span.End().
func RecordErrorOnSpan(span oteltrace.Span) func(error) error {
	return func(err error) error {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// RecordErrorOnSpanTwo is RecordErrorOnSpan for functions returning a value
// and an error.
func RecordErrorOnSpanTwo[T any](span oteltrace.Span) func(T, error) (T, error) {
	return func(t T, err error) (T, error) {
		return t, RecordErrorOnSpan(span)(err)
	}
}
