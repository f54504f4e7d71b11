package remote

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/receipt"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/system"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

const DefaultPollInterval = 4 * time.Second

type Option func(*Prover)

func WithPollInterval(d time.Duration) Option {
	return func(p *Prover) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithSleeper replaces the sleep between status queries.
func WithSleeper(sleep Sleeper) Option {
	return func(p *Prover) {
		p.sleep = sleep
	}
}

// Prover drives proving jobs on a remote ProvingService: upload, submit,
// poll until terminal, then download and decode the receipt.
type Prover struct {
	service      ProvingService
	pollInterval time.Duration
	sleep        Sleeper
}

func NewProver(service ProvingService, opts ...Option) *Prover {
	p := &Prover{
		service:      service,
		pollInterval: DefaultPollInterval,
		sleep:        system.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prove runs a job for entry over input and returns the journal of the
// resulting receipt.
func (p *Prover) Prove(ctx context.Context, entry image.Entry, input []byte) ([]byte, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/remote.Prover.Prove")
	span.SetAttributes(attribute.String("image", entry.ID.String()))
	defer span.End()

	stopTimer := telemetry.Timer(ctx, jobDuration)
	defer stopTimer()

	job, err := p.Submit(ctx, entry, input)
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(err)
	}
	span.SetAttributes(attribute.String("session", job.Handle))
	return telemetry.RecordErrorOnSpanTwo[[]byte](span)(p.Wait(ctx, job))
}

// Submit uploads the image and the input and creates a session. Upload
// failures are not retried.
func (p *Prover) Submit(ctx context.Context, entry image.Entry, input []byte) (*Job, error) {
	logger := log.Ctx(ctx).With().Str("image", entry.ID.String()).Logger()
	job := &Job{ImageID: entry.ID, State: JobStateUploading}

	exists, err := p.service.UploadImage(ctx, entry.ID, entry.Binary)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.UploadFailed, "uploading image %s", entry.ID)
	}
	logger.Debug().Bool("existed", exists).Msg("image uploaded")

	inputID, err := p.service.UploadInput(ctx, input)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.UploadFailed, "uploading input for image %s", entry.ID)
	}
	job.InputID = inputID

	handle, err := p.service.CreateSession(ctx, entry.ID, inputID)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.SubmissionFailed, "creating session for image %s", entry.ID).
			WithDetail("input", inputID)
	}
	job.Handle = handle
	job.State = JobStateSubmitted
	jobsSubmitted.Inc(ctx)

	logger.Info().Str("input", inputID).Str("session", handle).Msg("proving session created")
	return job, nil
}

// Wait polls a submitted job until it reaches a terminal state. Failed
// status queries are retried after the poll interval for as long as the
// context allows.
func (p *Prover) Wait(ctx context.Context, job *Job) ([]byte, error) {
	logger := log.Ctx(ctx).With().
		Str("image", job.ImageID.String()).
		Str("session", job.Handle).
		Logger()

	for {
		pollCount.Inc(ctx)
		status, err := p.service.Status(ctx, job.Handle)
		if err != nil {
			qerr := statusQueryError(ctx, err)
			if !qerr.Retryable() {
				return nil, qerr
			}
			statusQueryErrors.Inc(ctx)
			logger.Warn().
				Err(qerr).
				Dur("retry_in", p.pollInterval).
				Msg("status query failed, retrying")
			if err = p.sleep(ctx, p.pollInterval); err != nil {
				return nil, err
			}
			continue
		}
		job.LastStatus = status.Status

		switch status.Status {
		case StatusRunning:
			job.State = JobStateRunning
			logger.Trace().Msg("session running")
			if err = p.sleep(ctx, p.pollInterval); err != nil {
				return nil, err
			}
		case StatusSucceeded:
			journal, err := p.collect(ctx, status)
			if err != nil {
				return nil, p.fail(ctx, job, err)
			}
			job.State = JobStateSucceeded
			jobsFinished.Inc(ctx, attribute.String("outcome", "succeeded"))
			logger.Info().Int("journal_bytes", len(journal)).Msg("proving session succeeded")
			return journal, nil
		default:
			return nil, p.fail(ctx, job, relayerrors.New(relayerrors.BadJobStatus,
				"session %s finished with status %q", job.Handle, status.Status).
				WithDetail("status", status.Status))
		}
	}
}

func (p *Prover) collect(ctx context.Context, status SessionStatus) ([]byte, error) {
	if status.ReceiptURL == "" {
		return nil, relayerrors.New(relayerrors.MissingReceiptLocation, "succeeded session has no receipt url")
	}
	blob, err := p.service.Download(ctx, status.ReceiptURL)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.DownloadFailed, "downloading receipt").
			WithDetail("url", status.ReceiptURL)
	}
	r, err := receipt.Decode(blob)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.ReceiptDecodeFailed, "decoding receipt")
	}
	return r.Journal, nil
}

func (p *Prover) fail(ctx context.Context, job *Job, err error) error {
	job.State = JobStateFailed
	jobsFinished.Inc(ctx, attribute.String("outcome", string(relayerrors.CodeOf(err))))
	log.Ctx(ctx).Error().Err(err).Str("session", job.Handle).Msg("proving session failed")
	return err
}

// statusQueryError classifies a failed status query. Failures are retryable
// unless the context has ended.
func statusQueryError(ctx context.Context, err error) *relayerrors.Error {
	if ctx.Err() != nil {
		return relayerrors.Wrap(ctx.Err(), relayerrors.StatusQueryTransient, "querying session status")
	}
	return relayerrors.Wrap(err, relayerrors.StatusQueryTransient, "querying session status").WithRetryable()
}
