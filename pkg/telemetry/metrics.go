package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var meterProvider *sdkmetric.MeterProvider

func newMeterProvider() {
	// The context passed in to the exporter is only passed to the client and used when connecting to the endpoint
	ctx := context.Background()

	if !isMetricsEnabled() {
		log.Ctx(ctx).Debug().Msgf("OLTP metrics endpoints are not defined. No metrics will be exported")
		return
	}

	exp, err := getMetricsClient(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to initialize OLTP metric exporter")
		return
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(newResource()),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	)

	otel.SetMeterProvider(meterProvider)
}

func isMetricsEnabled() bool {
	if v, ok := os.LookupEnv(disableTracing); ok && v == "true" {
		return false
	}
	if _, ok := os.LookupEnv(otlpEndpoint); ok {
		return true
	}
	if _, ok := os.LookupEnv(otlpMetricsEndpoint); ok {
		return true
	}

	return false
}

func getMetricsClient(ctx context.Context) (sdkmetric.Exporter, error) {
	protocol := otlpProtocolHTTP
	if v := os.Getenv(otlpProtocol); v != "" {
		protocol = v
	}
	if protocol != otlpProtocolHTTP {
		return nil, fmt.Errorf("unknown or unsupported OLTP protocol: %s. No metrics will be exported", protocol)
	}
	return otlpmetrichttp.New(ctx)
}

func cleanupMeterProvider() error {
	if meterProvider == nil {
		return nil
	}
	ctx := context.Background()
	if err := meterProvider.ForceFlush(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to flush metrics")
	}
	return meterProvider.Shutdown(ctx)
}
