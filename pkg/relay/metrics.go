package relay

import (
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

var (
	eventsReceived = telemetry.MustNewCounter(
		"relay_events_received",
		"Number of callback requests received from the chain")

	eventsSkipped = telemetry.MustNewCounter(
		"relay_events_skipped",
		"Number of callback requests skipped because they were already submitted or failed")

	eventsFailed = telemetry.MustNewCounter(
		"relay_events_failed",
		"Number of callback requests that failed, by error code")

	callbacksSubmitted = telemetry.MustNewCounter(
		"relay_callbacks_submitted",
		"Number of callback transactions confirmed on chain")

	resubscriptions = telemetry.MustNewCounter(
		"relay_resubscriptions",
		"Number of times the event subscription was re-established")

	eventDuration = telemetry.MustNewHistogram(
		"relay_event_duration",
		"Time taken to relay a single callback request")
)
