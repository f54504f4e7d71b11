//go:build unit || !integration

package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

var proxyAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// fakeBackend implements the calls the client makes. Anything else panics
// through the nil embedded interface.
type fakeBackend struct {
	Backend

	mu            sync.Mutex
	head          uint64
	backlog       []types.Log
	filterQueries []ethereum.FilterQuery
	sink          chan<- types.Log
	subErr        chan error
	sent          []*types.Transaction
	receiptStatus uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		subErr:        make(chan error, 1),
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterQueries = append(f.filterQueries, q)
	return f.backlog, nil
}

func (f *fakeBackend) SubscribeFilterLogs(
	_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log,
) (ethereum.Subscription, error) {
	f.sink = ch
	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			return nil
		case err := <-f.subErr:
			return err
		}
	}), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(int64(f.head)), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 200_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(f.head + 1)),
		GasUsed:     150_000,
	}, nil
}

func requestLog(s *suite.Suite, block uint64, index uint, req CallbackRequest) types.Log {
	event := proxyABI.Events[callbackRequestEvent]
	data, err := event.Inputs.Pack(
		req.Account, [32]byte(req.ImageID), req.Input, req.CallbackContract, req.FunctionSelector, req.GasLimit)
	s.Require().NoError(err)
	return types.Log{
		Address:     proxyAddress,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       index,
	}
}

type ClientTestSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	backend *fakeBackend
	client  *Client
	request CallbackRequest
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.backend = newFakeBackend()

	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	s.client, err = NewClient(s.backend, Config{
		ChainID:      big.NewInt(31337),
		PrivateKey:   key,
		ProxyAddress: proxyAddress,
	})
	s.Require().NoError(err)

	s.request = CallbackRequest{
		Account:          common.HexToAddress("0x0000000000000000000000000000000000000001"),
		ImageID:          image.ComputeID([]byte("guest")),
		Input:            []byte{0x01, 0x02, 0x03},
		CallbackContract: common.HexToAddress("0x0000000000000000000000000000000000000002"),
		FunctionSelector: [4]byte{0xaa, 0xbb, 0xcc, 0xdd},
		GasLimit:         100_000,
	}
}

func (s *ClientTestSuite) TearDownTest() {
	s.cancel()
}

func (s *ClientTestSuite) TestDecodeCallbackRequest() {
	l := requestLog(&s.Suite, 12, 3, s.request)

	got, err := DecodeCallbackRequest(l)
	s.Require().NoError(err)
	s.Equal(s.request.Account, got.Account)
	s.Equal(s.request.ImageID, got.ImageID)
	s.Equal(s.request.Input, got.Input)
	s.Equal(s.request.CallbackContract, got.CallbackContract)
	s.Equal(s.request.FunctionSelector, got.FunctionSelector)
	s.Equal(s.request.GasLimit, got.GasLimit)
	s.Equal(uint64(12), got.BlockNumber)
	s.Equal(l.TxHash.Hex()+":3", got.ID())
}

func (s *ClientTestSuite) TestDecodeRejectsOtherEvents() {
	l := requestLog(&s.Suite, 1, 0, s.request)
	l.Topics = []common.Hash{crypto.Keccak256Hash([]byte("Other()"))}
	_, err := DecodeCallbackRequest(l)
	s.True(relayerrors.Is(err, relayerrors.InvalidInput))

	l = requestLog(&s.Suite, 1, 0, s.request)
	l.Data = l.Data[:10]
	_, err = DecodeCallbackRequest(l)
	s.True(relayerrors.Is(err, relayerrors.InvalidInput))
}

func (s *ClientTestSuite) TestSubscribeBackfillsThenStreams() {
	s.backend.head = 6
	s.backend.backlog = []types.Log{
		requestLog(&s.Suite, 5, 0, s.request),
		requestLog(&s.Suite, 6, 0, s.request),
	}

	sub, err := s.client.Subscribe(s.ctx, 5)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	s.Require().Len(s.backend.filterQueries, 1)
	s.Equal(uint64(5), s.backend.filterQueries[0].FromBlock.Uint64())
	s.Equal(uint64(6), s.backend.filterQueries[0].ToBlock.Uint64())

	duplicate := requestLog(&s.Suite, 6, 0, s.request)
	removed := requestLog(&s.Suite, 7, 0, s.request)
	removed.Removed = true
	junk := requestLog(&s.Suite, 7, 1, s.request)
	junk.Topics = nil
	s.backend.sink <- duplicate
	s.backend.sink <- removed
	s.backend.sink <- junk
	s.backend.sink <- requestLog(&s.Suite, 8, 2, s.request)

	var blocks []uint64
	for len(blocks) < 3 {
		select {
		case req := <-sub.Events():
			blocks = append(blocks, req.BlockNumber)
		case <-s.ctx.Done():
			s.FailNow("timed out waiting for events")
		}
	}
	s.Equal([]uint64{5, 6, 8}, blocks)
}

func (s *ClientTestSuite) TestSubscribeWithoutCheckpointOnlyStreams() {
	s.backend.head = 100

	sub, err := s.client.Subscribe(s.ctx, 0)
	s.Require().NoError(err)
	defer sub.Unsubscribe()
	s.Empty(s.backend.filterQueries)

	s.backend.sink <- requestLog(&s.Suite, 90, 0, s.request)
	select {
	case req := <-sub.Events():
		s.Equal(uint64(90), req.BlockNumber)
	case <-s.ctx.Done():
		s.FailNow("timed out waiting for event")
	}
}

func (s *ClientTestSuite) TestSubscriptionFailure() {
	sub, err := s.client.Subscribe(s.ctx, 0)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	s.backend.subErr <- errors.New("websocket closed")
	select {
	case err := <-sub.Err():
		s.True(relayerrors.Is(err, relayerrors.ChainSubscriptionFailed))
	case <-s.ctx.Done():
		s.FailNow("timed out waiting for subscription error")
	}
	_, open := <-sub.Events()
	s.False(open)
}

func (s *ClientTestSuite) TestSendCallbacks() {
	callbacks := []Callback{{
		CallbackContract:      s.request.CallbackContract,
		JournalInclusionProof: [][32]byte{},
		Payload:               []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x01},
		GasLimit:              s.request.GasLimit,
	}}

	hash, err := s.client.SendCallbacks(s.ctx, callbacks)
	s.Require().NoError(err)
	s.Require().Len(s.backend.sent, 1)

	tx := s.backend.sent[0]
	s.Equal(hash, tx.Hash())
	s.Equal(proxyAddress, *tx.To())

	method := proxyABI.Methods[invokeCallbacks]
	s.Equal(method.ID, tx.Data()[:4])
	s.Equal(crypto.Keccak256([]byte("invokeCallbacks((address,bytes32[],bytes,uint64)[])"))[:4], method.ID)

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	s.Require().NoError(err)
	decoded := *abi.ConvertType(args[0], new([]Callback)).(*[]Callback)
	s.Require().Len(decoded, 1)
	s.Equal(callbacks[0].CallbackContract, decoded[0].CallbackContract)
	s.Equal(callbacks[0].Payload, decoded[0].Payload)
	s.Equal(callbacks[0].GasLimit, decoded[0].GasLimit)
	s.Empty(decoded[0].JournalInclusionProof)
}

func (s *ClientTestSuite) TestSendCallbacksReverted() {
	s.backend.receiptStatus = types.ReceiptStatusFailed

	_, err := s.client.SendCallbacks(s.ctx, []Callback{{CallbackContract: s.request.CallbackContract}})
	s.Require().Error(err)
	s.True(relayerrors.Is(err, relayerrors.TransactionFailed))
}

func (s *ClientTestSuite) TestParsePrivateKey() {
	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	for _, in := range []string{hexKey, "0x" + hexKey, " " + hexKey + "\n"} {
		parsed, err := ParsePrivateKey(in)
		s.Require().NoError(err)
		s.Equal(crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))
	}

	_, err = ParsePrivateKey("nothex")
	s.Error(err)
}
