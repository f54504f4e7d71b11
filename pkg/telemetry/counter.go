package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter is a synchronous Instrument which supports non-negative increments
type Counter struct {
	counter metric.Int64Counter
}

func NewCounter(meter metric.Meter, name string, description string) (*Counter, error) {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}

	return &Counter{
		counter: counter,
	}, nil
}

// MustNewCounter is NewCounter on the global meter, panicking on error. It
// is meant for package level instrument declarations.
func MustNewCounter(name string, description string) *Counter {
	c, err := NewCounter(Meter(), name, description)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Meter returns the relay's meter from the global provider.
func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}
