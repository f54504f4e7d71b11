package remote

import (
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

var (
	jobsSubmitted = telemetry.MustNewCounter(
		"remote_jobs_submitted",
		"Number of proving sessions created on the remote service")

	jobsFinished = telemetry.MustNewCounter(
		"remote_jobs_finished",
		"Number of proving sessions that reached a terminal state, by outcome")

	statusQueryErrors = telemetry.MustNewCounter(
		"remote_status_query_errors",
		"Number of failed session status queries that were retried")

	pollCount = telemetry.MustNewCounter(
		"remote_status_polls",
		"Number of session status queries")

	jobDuration = telemetry.MustNewHistogram(
		"remote_job_duration",
		"Time from upload to a terminal session state")
)
