package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/logger"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/system"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

const DefaultResubscribeBackoff = 5 * time.Second

type Params struct {
	Source     EventSource
	Images     Resolver
	Dispatcher Dispatcher
	Sender     CallbackSender
	Store      requeststore.Store
	// StartBlock is used when the store has no checkpoint. Zero only relays
	// requests emitted after the relay subscribed.
	StartBlock uint64
	// ResubscribeBackoff is the wait before subscribing again after the
	// subscription failed.
	ResubscribeBackoff time.Duration
	// Sleep defaults to system.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Relay turns callback requests into callback transactions, one request at a
// time in the order they were emitted.
type Relay struct {
	source     EventSource
	images     Resolver
	dispatcher Dispatcher
	sender     CallbackSender
	store      requeststore.Store
	startBlock uint64
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRelay(params Params) (*Relay, error) {
	switch {
	case params.Source == nil:
		return nil, errors.New("relay: event source is required")
	case params.Images == nil:
		return nil, errors.New("relay: image resolver is required")
	case params.Dispatcher == nil:
		return nil, errors.New("relay: dispatcher is required")
	case params.Sender == nil:
		return nil, errors.New("relay: callback sender is required")
	case params.Store == nil:
		return nil, errors.New("relay: request store is required")
	}
	r := &Relay{
		source:     params.Source,
		images:     params.Images,
		dispatcher: params.Dispatcher,
		sender:     params.Sender,
		store:      params.Store,
		startBlock: params.StartBlock,
		backoff:    params.ResubscribeBackoff,
		sleep:      params.Sleep,
	}
	if r.backoff <= 0 {
		r.backoff = DefaultResubscribeBackoff
	}
	if r.sleep == nil {
		r.sleep = system.Sleep
	}
	return r, nil
}

// Run relays requests until ctx is cancelled. A failed subscription is
// re-established from the last checkpoint after the resubscribe backoff.
// Failures of individual requests are recorded and do not stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	for {
		err := r.runSubscription(ctx)
		if ctx.Err() != nil {
			log.Ctx(ctx).Info().Msg("relay stopped")
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Dur("backoff", r.backoff).Msg("event subscription ended, resubscribing")
		if err = r.sleep(ctx, r.backoff); err != nil {
			return nil
		}
		resubscriptions.Inc(ctx)
	}
}

func (r *Relay) runSubscription(ctx context.Context) error {
	from, err := r.resumeBlock(ctx)
	if err != nil {
		return err
	}
	sub, err := r.source.Subscribe(ctx, from)
	if err != nil {
		return relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "subscribing from block %d", from)
	}
	defer sub.Unsubscribe()
	log.Ctx(ctx).Info().Uint64("from", from).Msg("listening for callback requests")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return subscriptionError(err)
		case request, ok := <-sub.Events():
			if !ok {
				select {
				case err := <-sub.Err():
					return subscriptionError(err)
				default:
					return subscriptionError(nil)
				}
			}
			if err := r.HandleEvent(ctx, request); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// resumeBlock is where a new subscription starts: the checkpointed block is
// revisited since it may hold requests that were not handled yet.
func (r *Relay) resumeBlock(ctx context.Context) (uint64, error) {
	block, ok, err := r.store.Checkpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading checkpoint: %w", err)
	}
	if !ok {
		return r.startBlock, nil
	}
	return block, nil
}

// HandleEvent relays a single request. Requests already submitted or failed
// are skipped. Any failure is logged and recorded against the request before it
// is returned.
func (r *Relay) HandleEvent(ctx context.Context, request chain.CallbackRequest) error {
	ctx = logger.ContextWithRequestLogger(ctx, request.ID(), request.ImageID.String(), request.BlockNumber, uuid.NewString())
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/relay.Relay.HandleEvent")
	span.SetAttributes(
		attribute.String("request", request.ID()),
		attribute.String("image", request.ImageID.String()),
		attribute.Int64("block", int64(request.BlockNumber)),
	)
	defer span.End()

	stopTimer := telemetry.Timer(ctx, eventDuration)
	defer stopTimer()
	eventsReceived.Inc(ctx)

	err := r.handle(ctx, request)
	return telemetry.RecordErrorOnSpan(span)(err)
}

func (r *Relay) handle(ctx context.Context, request chain.CallbackRequest) error {
	l := log.Ctx(ctx)

	existing, err := r.store.Get(ctx, request.ID())
	if err == nil && existing.State.IsTerminal() {
		l.Debug().
			Stringer("state", existing.State).
			Str("tx", existing.TxHash).
			Msg("request already handled, skipping")
		eventsSkipped.Inc(ctx)
		return nil
	}

	record := requeststore.Record{
		ID:      request.ID(),
		ImageID: request.ImageID.String(),
		Block:   request.BlockNumber,
		State:   requeststore.StateReceived,
	}
	r.record(ctx, record)
	l.Info().Int("input_bytes", len(request.Input)).Msg("callback request received")

	entry, err := r.images.ResolveID(request.ImageID)
	if err != nil {
		return r.fail(ctx, record, err)
	}
	record.State = requeststore.StateResolved
	r.record(ctx, record)
	l.Debug().Str("name", entry.Name).Msg("image resolved")

	output, err := r.dispatcher.Dispatch(ctx, entry, request.Input)
	if err != nil {
		return r.fail(ctx, record, err)
	}
	record.State = requeststore.StateDispatched
	r.record(ctx, record)
	l.Debug().Int("output_bytes", len(output)).Msg("output produced")

	callback := chain.Callback{
		CallbackContract:      request.CallbackContract,
		JournalInclusionProof: [][32]byte{},
		Payload:               BuildPayload(request.FunctionSelector, output, request.ImageID),
		GasLimit:              request.GasLimit,
	}
	txHash, err := r.sender.SendCallbacks(ctx, []chain.Callback{callback})
	if err != nil {
		if relayerrors.CodeOf(err) == "" && ctx.Err() == nil {
			err = relayerrors.Wrap(err, relayerrors.TransactionFailed, "submitting callback")
		}
		if txHash != (common.Hash{}) {
			record.TxHash = txHash.Hex()
		}
		return r.fail(ctx, record, err)
	}

	record.State = requeststore.StateSubmitted
	record.TxHash = txHash.Hex()
	r.record(ctx, record)
	r.checkpoint(ctx, request.BlockNumber)
	callbacksSubmitted.Inc(ctx)
	l.Info().Str("tx", record.TxHash).Msg("callback submitted")
	return nil
}

// fail records a failed request. Cancellation is not a failure of the
// request, so it is left to be picked up again after a restart.
func (r *Relay) fail(ctx context.Context, record requeststore.Record, err error) error {
	if ctx.Err() != nil {
		return err
	}
	code := relayerrors.CodeOf(err)
	record.State = requeststore.StateFailed
	record.ErrorCode = string(code)
	record.Error = err.Error()
	r.record(ctx, record)
	r.checkpoint(ctx, record.Block)

	eventsFailed.Inc(ctx, attribute.String("code", string(code)))
	log.Ctx(ctx).Error().Err(err).Str("code", string(code)).Msg("callback request failed")
	return err
}

// record stores the request state. The store is bookkeeping, so a failing
// store is logged and does not stop the request.
func (r *Relay) record(ctx context.Context, record requeststore.Record) {
	if err := r.store.Put(ctx, record); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("state", record.State.String()).Msg("failed to record request state")
	}
}

func (r *Relay) checkpoint(ctx context.Context, block uint64) {
	if err := r.store.SetCheckpoint(ctx, block); err != nil {
		log.Ctx(ctx).Warn().Err(err).Uint64("block", block).Msg("failed to checkpoint block")
	}
}

func subscriptionError(err error) error {
	if err == nil {
		return relayerrors.New(relayerrors.ChainSubscriptionFailed, "event subscription closed")
	}
	return relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "event subscription failed")
}
