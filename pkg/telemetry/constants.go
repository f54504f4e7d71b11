package telemetry

const (
	otlpProtocolHTTP = "http/protobuf"

	otlpEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
	otlpTracesEndpoint  = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	otlpMetricsEndpoint = "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"
	otlpProtocol        = "OTEL_EXPORTER_OTLP_PROTOCOL"
	disableTracing      = "OTEL_SDK_DISABLED"

	instrumentationName = "github.com/bacalhau-project/callback-relay"
)
