package prover

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/callback-relay/pkg/executor"
	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

var (
	dispatchDuration = telemetry.MustNewHistogram(
		"prover_dispatch_duration",
		"Time taken to produce the output of a request")

	dispatchCount = telemetry.MustNewCounter(
		"prover_dispatches",
		"Number of dispatched requests, by mode and outcome")
)

// Dispatcher produces the output of an image run with the backend selected by
// its mode.
type Dispatcher struct {
	mode     Mode
	executor executor.Executor
	remote   RemoteProver
}

// NewDispatcher checks that the backend needed by mode is present. The other
// backend may be nil.
func NewDispatcher(mode Mode, exec executor.Executor, remote RemoteProver) (*Dispatcher, error) {
	switch {
	case mode.IsLocal() && exec == nil:
		return nil, relayerrors.New(relayerrors.InvalidBackendConfig, "mode %s needs a local executor", mode)
	case mode == ModeRemote && remote == nil:
		return nil, relayerrors.New(relayerrors.InvalidBackendConfig, "mode %s needs a proving service", mode).
			WithHint("set BONSAI_API_URL and BONSAI_API_KEY")
	}
	return &Dispatcher{mode: mode, executor: exec, remote: remote}, nil
}

func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Dispatch returns the journal of running entry over input. Local failures
// are reported as ExecutionFailed and are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, entry image.Entry, input []byte) ([]byte, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/prover.Dispatcher.Dispatch")
	span.SetAttributes(
		attribute.String("mode", d.mode.String()),
		attribute.String("image", entry.ID.String()),
	)
	defer span.End()

	modeAttr := attribute.String("mode", d.mode.String())
	stopTimer := telemetry.Timer(ctx, dispatchDuration, modeAttr)
	defer stopTimer()

	output, err := d.dispatch(ctx, entry, input)
	outcome := "success"
	if err != nil {
		outcome = string(relayerrors.CodeOf(err))
	}
	dispatchCount.Inc(ctx, modeAttr, attribute.String("outcome", outcome))
	return output, telemetry.RecordErrorOnSpan(span)(err)
}

func (d *Dispatcher) dispatch(ctx context.Context, entry image.Entry, input []byte) ([]byte, error) {
	switch d.mode {
	case ModeUnset, ModeLocal:
		return d.runLocal(ctx, entry, input, false)
	case ModeLocalWithAttestation:
		return d.runLocal(ctx, entry, input, true)
	case ModeRemote:
		return d.remote.Prove(ctx, entry, input)
	default:
		return nil, relayerrors.New(relayerrors.InvalidBackendConfig, "unsupported proving mode %q", string(d.mode))
	}
}

func (d *Dispatcher) runLocal(ctx context.Context, entry image.Entry, input []byte, attest bool) ([]byte, error) {
	request := &executor.RunCommandRequest{
		ExecutionID: uuid.NewString(),
		ImageID:     entry.ID,
		Binary:      entry.Binary,
		Input:       input,
		Attest:      attest,
	}
	result, err := d.executor.Run(ctx, request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		var coded *relayerrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, relayerrors.Wrap(err, relayerrors.ExecutionFailed, "running image %s", entry.Name)
	}
	if result.Attestation != nil {
		log.Ctx(ctx).Info().
			Str("execution", request.ExecutionID).
			Str("digest", result.Attestation.Digest.Hex()).
			Str("signer", result.Attestation.Signer.Hex()).
			Msg("execution attested")
	}
	return result.Journal, nil
}
