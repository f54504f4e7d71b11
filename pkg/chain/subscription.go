package chain

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

const logBufferSize = 64

type logSubscription struct {
	live   ethereum.Subscription
	events chan CallbackRequest
	errs   chan error
	quit   chan struct{}
	once   sync.Once
}

func newLogSubscription(live ethereum.Subscription) *logSubscription {
	return &logSubscription{
		live:   live,
		events: make(chan CallbackRequest),
		errs:   make(chan error, 1),
		quit:   make(chan struct{}),
	}
}

func (s *logSubscription) Events() <-chan CallbackRequest {
	return s.events
}

func (s *logSubscription) Err() <-chan error {
	return s.errs
}

func (s *logSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.quit)
		s.live.Unsubscribe()
	})
}

// run delivers the backlog and then live logs. Live logs at or below head
// were already part of the backlog.
func (s *logSubscription) run(ctx context.Context, backlog []types.Log, head uint64, logs <-chan types.Log) {
	defer close(s.events)

	for _, l := range backlog {
		if !s.deliver(ctx, l) {
			return
		}
	}
	for {
		select {
		case l := <-logs:
			if head > 0 && l.BlockNumber <= head {
				continue
			}
			if !s.deliver(ctx, l) {
				return
			}
		case err := <-s.live.Err():
			if err == nil {
				// unsubscribed
				return
			}
			s.errs <- relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "log subscription failed")
			return
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *logSubscription) deliver(ctx context.Context, l types.Log) bool {
	if l.Removed {
		log.Ctx(ctx).Warn().Str("tx", l.TxHash.Hex()).Uint("index", l.Index).Msg("ignoring log removed by a reorg")
		return true
	}
	request, err := DecodeCallbackRequest(l)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("ignoring undecodable log")
		return true
	}
	select {
	case s.events <- request:
		return true
	case <-s.quit:
		return false
	case <-ctx.Done():
		return false
	}
}
