package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

// Backend is the subset of an Ethereum node client the relay needs.
// *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

type Config struct {
	NodeURL      string
	ChainID      *big.Int
	PrivateKey   *ecdsa.PrivateKey
	ProxyAddress common.Address
}

// ParsePrivateKey decodes a hex encoded secp256k1 key, with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"), "0X")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Client watches the proxy contract for callback requests and submits
// callback batches to it.
type Client struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	opts     *bind.TransactOpts
}

// Dial connects to the node at cfg.NodeURL. A websocket url is needed to
// subscribe.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, cfg.NodeURL)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "connecting to %s", cfg.NodeURL)
	}
	if cfg.ChainID == nil {
		if cfg.ChainID, err = backend.ChainID(ctx); err != nil {
			backend.Close()
			return nil, relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "querying chain id")
		}
	}
	client, err := NewClient(backend, cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return client, nil
}

func NewClient(backend Backend, cfg Config) (*Client, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("a private key is needed to submit callbacks")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id is not set")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend:  backend,
		contract: bind.NewBoundContract(cfg.ProxyAddress, proxyABI, backend, backend, backend),
		address:  cfg.ProxyAddress,
		opts:     opts,
	}, nil
}

// Sender is the account callbacks are sent from.
func (c *Client) Sender() common.Address {
	return c.opts.From
}

// Close closes the connection to the node when the backend holds one.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Subscribe delivers callback requests from block from onwards. Logs already
// on chain are fetched first, then new ones are streamed. A zero from only
// streams new logs.
func (c *Client) Subscribe(ctx context.Context, from uint64) (Subscription, error) {
	query := c.query()
	logs := make(chan types.Log, logBufferSize)
	live, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "subscribing to %s logs", callbackRequestEvent)
	}

	var backlog []types.Log
	var head uint64
	if from > 0 {
		head, err = c.backend.BlockNumber(ctx)
		if err != nil {
			live.Unsubscribe()
			return nil, relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed, "querying head block")
		}
		if from <= head {
			query.FromBlock = new(big.Int).SetUint64(from)
			query.ToBlock = new(big.Int).SetUint64(head)
			backlog, err = c.backend.FilterLogs(ctx, query)
			if err != nil {
				live.Unsubscribe()
				return nil, relayerrors.Wrap(err, relayerrors.ChainSubscriptionFailed,
					"fetching logs of blocks %d to %d", from, head)
			}
		}
	}
	log.Ctx(ctx).Debug().
		Uint64("from", from).
		Uint64("head", head).
		Int("backlog", len(backlog)).
		Msg("subscribed to callback requests")

	sub := newLogSubscription(live)
	go sub.run(ctx, backlog, head, logs)
	return sub, nil
}

func (c *Client) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{proxyABI.Events[callbackRequestEvent].ID}},
	}
}

// DecodeCallbackRequest parses a CallbackRequest log emitted by any proxy.
func DecodeCallbackRequest(l types.Log) (CallbackRequest, error) {
	event := proxyABI.Events[callbackRequestEvent]
	if len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return CallbackRequest{}, relayerrors.New(relayerrors.InvalidInput, "log %s:%d is not a %s event",
			l.TxHash.Hex(), l.Index, callbackRequestEvent)
	}
	var out callbackRequestLog
	if err := proxyABI.UnpackIntoInterface(&out, callbackRequestEvent, l.Data); err != nil {
		return CallbackRequest{}, relayerrors.Wrap(err, relayerrors.InvalidInput, "decoding log %s:%d",
			l.TxHash.Hex(), l.Index)
	}
	return CallbackRequest{
		Account:          out.Account,
		ImageID:          out.ImageId,
		Input:            out.Input,
		CallbackContract: out.CallbackContract,
		FunctionSelector: out.FunctionSelector,
		GasLimit:         out.GasLimit,
		BlockNumber:      l.BlockNumber,
		TxHash:           l.TxHash,
		LogIndex:         l.Index,
	}, nil
}

// SendCallbacks submits callbacks in a single invokeCallbacks transaction
// and waits for it to be mined.
func (c *Client) SendCallbacks(ctx context.Context, callbacks []Callback) (common.Hash, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/chain.Client.SendCallbacks")
	span.SetAttributes(attribute.Int("callbacks", len(callbacks)))
	defer span.End()

	hash, err := c.sendCallbacks(ctx, callbacks)
	return hash, telemetry.RecordErrorOnSpan(span)(err)
}

func (c *Client) sendCallbacks(ctx context.Context, callbacks []Callback) (common.Hash, error) {
	opts := *c.opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, invokeCallbacks, callbacks)
	if err != nil {
		return common.Hash{}, relayerrors.Wrap(err, relayerrors.TransactionFailed, "sending %s", invokeCallbacks)
	}
	logger := log.Ctx(ctx).With().Str("tx", tx.Hash().Hex()).Logger()
	logger.Debug().Uint64("nonce", tx.Nonce()).Msg("callback transaction sent")

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return tx.Hash(), relayerrors.Wrap(err, relayerrors.TransactionFailed, "waiting for %s", tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), relayerrors.New(relayerrors.TransactionFailed, "transaction %s reverted", tx.Hash().Hex()).
			WithDetail("block", receipt.BlockNumber.String())
	}
	logger.Debug().Uint64("block", receipt.BlockNumber.Uint64()).Uint64("gas_used", receipt.GasUsed).
		Msg("callback transaction mined")
	return tx.Hash(), nil
}
