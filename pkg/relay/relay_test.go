//go:build unit || !integration

package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/executor/wasm"
	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/logger"
	"github.com/bacalhau-project/callback-relay/pkg/prover"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore/inmemory"
	"github.com/bacalhau-project/callback-relay/pkg/test/guests"
)

type fakeSubscription struct {
	events chan chain.CallbackRequest
	errs   chan error
	once   sync.Once
	done   chan struct{}
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		events: make(chan chain.CallbackRequest, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (f *fakeSubscription) Events() <-chan chain.CallbackRequest { return f.events }
func (f *fakeSubscription) Err() <-chan error                    { return f.errs }
func (f *fakeSubscription) Unsubscribe()                         { f.once.Do(func() { close(f.done) }) }

type fakeSource struct {
	mu    sync.Mutex
	subs  []*fakeSubscription
	froms []uint64
	err   error
}

func (f *fakeSource) Subscribe(_ context.Context, from uint64) (chain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.froms = append(f.froms, from)
	if f.err != nil {
		err := f.err
		f.err = nil
		return nil, err
	}
	if len(f.subs) == 0 {
		// nothing left to deliver, block until the relay stops
		return newFakeSubscription(), nil
	}
	sub := f.subs[0]
	f.subs = f.subs[1:]
	return sub, nil
}

func (f *fakeSource) Froms() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.froms...)
}

type fakeSender struct {
	mu    sync.Mutex
	calls [][]chain.Callback
	err   error
}

func (f *fakeSender) SendCallbacks(_ context.Context, callbacks []chain.Callback) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return common.Hash{}, f.err
	}
	f.calls = append(f.calls, callbacks)
	return common.BytesToHash([]byte{byte(len(f.calls))}), nil
}

func (f *fakeSender) Calls() [][]chain.Callback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]chain.Callback(nil), f.calls...)
}

type RelayTestSuite struct {
	suite.Suite
	ctx      context.Context
	echo     image.Entry
	registry *image.Registry
	source   *fakeSource
	sender   *fakeSender
	store    *inmemory.Store
	sleeps   []time.Duration
	mu       sync.Mutex
}

func TestRelayTestSuite(t *testing.T) {
	suite.Run(t, new(RelayTestSuite))
}

func (s *RelayTestSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.ctx = context.Background()
	s.echo = image.NewEntry("echo", guests.Echo())
	registry, err := image.NewRegistry(s.echo)
	s.Require().NoError(err)
	s.registry = registry
	s.source = &fakeSource{}
	s.sender = &fakeSender{}
	s.store = inmemory.NewStore()
	s.sleeps = nil
}

func (s *RelayTestSuite) relay(startBlock uint64) *Relay {
	dispatcher, err := prover.NewDispatcher(prover.ModeLocal, wasm.NewExecutor(), nil)
	s.Require().NoError(err)
	r, err := NewRelay(Params{
		Source:             s.source,
		Images:             s.registry,
		Dispatcher:         dispatcher,
		Sender:             s.sender,
		Store:              s.store,
		StartBlock:         startBlock,
		ResubscribeBackoff: time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			s.mu.Lock()
			s.sleeps = append(s.sleeps, d)
			s.mu.Unlock()
			return ctx.Err()
		},
	})
	s.Require().NoError(err)
	return r
}

func (s *RelayTestSuite) request(id image.ID, block uint64, logIndex uint, input string) chain.CallbackRequest {
	return chain.CallbackRequest{
		Account:          common.HexToAddress("0x01"),
		ImageID:          id,
		Input:            []byte(input),
		CallbackContract: common.HexToAddress("0xcafe"),
		FunctionSelector: [4]byte{0xaa, 0xbb, 0xcc, 0xdd},
		GasLimit:         50_000,
		BlockNumber:      block,
		TxHash:           common.HexToHash("0xfeed"),
		LogIndex:         logIndex,
	}
}

func (s *RelayTestSuite) TestHandleEventLocal() {
	r := s.relay(0)
	req := s.request(s.echo.ID, 10, 0, "hello")
	s.Require().NoError(r.HandleEvent(s.ctx, req))

	calls := s.sender.Calls()
	s.Require().Len(calls, 1)
	s.Require().Len(calls[0], 1)
	callback := calls[0][0]
	s.Equal(req.CallbackContract, callback.CallbackContract)
	s.Equal(req.GasLimit, callback.GasLimit)
	s.Empty(callback.JournalInclusionProof)
	s.Equal(BuildPayload(req.FunctionSelector, []byte("hello"), s.echo.ID), callback.Payload)

	record, err := s.store.Get(s.ctx, req.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateSubmitted, record.State)
	s.NotEmpty(record.TxHash)
	s.Equal(s.echo.ID.String(), record.ImageID)

	block, ok, err := s.store.Checkpoint(s.ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(10), block)
}

func (s *RelayTestSuite) TestHandleEventUnknownImage() {
	r := s.relay(0)
	req := s.request(image.ComputeID([]byte("unknown")), 3, 1, "hello")
	err := r.HandleEvent(s.ctx, req)
	s.True(relayerrors.Is(err, relayerrors.UnknownImage))
	s.Empty(s.sender.Calls())

	record, err := s.store.Get(s.ctx, req.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateFailed, record.State)
	s.Equal(string(relayerrors.UnknownImage), record.ErrorCode)
	s.NotEmpty(record.Error)
}

func (s *RelayTestSuite) TestHandleEventSkipsSubmitted() {
	r := s.relay(0)
	req := s.request(s.echo.ID, 4, 0, "once")
	s.Require().NoError(r.HandleEvent(s.ctx, req))
	s.Require().NoError(r.HandleEvent(s.ctx, req))
	s.Len(s.sender.Calls(), 1)
}

func (s *RelayTestSuite) TestHandleEventSendFailure() {
	s.sender.err = errors.New("nonce too low")
	r := s.relay(0)
	req := s.request(s.echo.ID, 4, 0, "hello")
	err := r.HandleEvent(s.ctx, req)
	s.True(relayerrors.Is(err, relayerrors.TransactionFailed))

	record, err := s.store.Get(s.ctx, req.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateFailed, record.State)
	s.Equal(string(relayerrors.TransactionFailed), record.ErrorCode)
	s.Empty(record.TxHash)
}

func (s *RelayTestSuite) TestHandleEventSkipsFailed() {
	s.sender.err = errors.New("boom")
	r := s.relay(0)
	req := s.request(s.echo.ID, 4, 0, "hello")
	s.Require().Error(r.HandleEvent(s.ctx, req))

	s.sender.err = nil
	s.Require().NoError(r.HandleEvent(s.ctx, req))
	s.Empty(s.sender.Calls())
	record, err := s.store.Get(s.ctx, req.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateFailed, record.State)
	s.Equal(string(relayerrors.TransactionFailed), record.ErrorCode)
}

func (s *RelayTestSuite) TestRunContinuesAfterFailure() {
	sub := newFakeSubscription()
	failing := s.request(image.ComputeID([]byte("unknown")), 5, 0, "a")
	succeeding := s.request(s.echo.ID, 6, 1, "b")
	sub.events <- failing
	sub.events <- succeeding
	s.source.subs = []*fakeSubscription{sub}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.relay(0).Run(ctx) }()

	s.Eventually(func() bool { return len(s.sender.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	s.Require().NoError(<-done)

	s.Equal([]uint64{0}, s.source.Froms())
	callback := s.sender.Calls()[0][0]
	s.Equal(BuildPayload([4]byte{0xaa, 0xbb, 0xcc, 0xdd}, []byte("b"), s.echo.ID), callback.Payload)

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 2)
	record, err := s.store.Get(s.ctx, failing.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateFailed, record.State)
	record, err = s.store.Get(s.ctx, succeeding.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateSubmitted, record.State)
}

func (s *RelayTestSuite) TestRunResubscribesFromCheckpoint() {
	first := newFakeSubscription()
	first.events <- s.request(s.echo.ID, 7, 0, "a")
	second := newFakeSubscription()
	second.events <- s.request(s.echo.ID, 7, 0, "a")
	second.events <- s.request(s.echo.ID, 9, 2, "c")
	s.source.subs = []*fakeSubscription{first, second}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.relay(3).Run(ctx) }()

	s.Eventually(func() bool { return len(s.sender.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	first.errs <- errors.New("connection reset")
	s.Eventually(func() bool { return len(s.sender.Calls()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	s.Require().NoError(<-done)

	s.Equal([]uint64{3, 7}, s.source.Froms())
	s.mu.Lock()
	s.Equal([]time.Duration{time.Second}, s.sleeps)
	s.mu.Unlock()

	// the replayed request was skipped
	s.Equal([]byte("c"), s.sender.Calls()[1][0].Payload[4:5])
	select {
	case <-first.done:
	default:
		s.Fail("first subscription was not released")
	}
}

func (s *RelayTestSuite) TestRunDoesNotReplayFailedAfterResubscribe() {
	s.sender.err = errors.New("tx wait timed out")
	failing := s.request(s.echo.ID, 7, 0, "a")
	first := newFakeSubscription()
	first.events <- failing
	second := newFakeSubscription()
	s.source.subs = []*fakeSubscription{first, second}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.relay(0).Run(ctx) }()

	s.Eventually(func() bool {
		record, err := s.store.Get(s.ctx, failing.ID())
		return err == nil && record.State == requeststore.StateFailed
	}, 5*time.Second, 10*time.Millisecond)

	s.sender.mu.Lock()
	s.sender.err = nil
	s.sender.mu.Unlock()
	first.errs <- errors.New("connection reset")

	// the failed request comes again from the checkpointed block, followed by a new one
	second.events <- failing
	second.events <- s.request(s.echo.ID, 8, 0, "b")
	s.Eventually(func() bool { return len(s.sender.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	s.Require().NoError(<-done)

	s.Equal([]uint64{0, 7}, s.source.Froms())
	calls := s.sender.Calls()
	s.Require().Len(calls, 1)
	s.Equal([]byte("b"), calls[0][0].Payload[4:5])

	record, err := s.store.Get(s.ctx, failing.ID())
	s.Require().NoError(err)
	s.Equal(requeststore.StateFailed, record.State)
}

func (s *RelayTestSuite) TestRunRetriesSubscribe() {
	s.source.err = errors.New("dial tcp: connection refused")
	sub := newFakeSubscription()
	sub.events <- s.request(s.echo.ID, 2, 0, "x")
	s.source.subs = []*fakeSubscription{sub}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.relay(1).Run(ctx) }()

	s.Eventually(func() bool { return len(s.sender.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	s.Require().NoError(<-done)
	s.Equal([]uint64{1, 1}, s.source.Froms())
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	_, err := NewRelay(Params{})
	require.Error(t, err)
}

func TestBuildPayload(t *testing.T) {
	var id image.ID
	payload := BuildPayload([4]byte{0xaa, 0xbb, 0xcc, 0xdd}, []byte{0x01, 0x02}, id)
	expected := append([]byte{0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x02}, make([]byte, 32)...)
	require.Equal(t, expected, payload)
}
