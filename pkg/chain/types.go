package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// CallbackRequest is a decoded CallbackRequest event together with the
// position of the log that carried it.
type CallbackRequest struct {
	Account          common.Address
	ImageID          image.ID
	Input            []byte
	CallbackContract common.Address
	FunctionSelector [4]byte
	GasLimit         uint64

	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// ID identifies the request across restarts and resubscriptions.
func (r CallbackRequest) ID() string {
	return fmt.Sprintf("%s:%d", r.TxHash.Hex(), r.LogIndex)
}

// Callback is one entry of an invokeCallbacks batch. Field names match the
// ABI tuple components.
type Callback struct {
	CallbackContract      common.Address
	JournalInclusionProof [][32]byte
	Payload               []byte
	GasLimit              uint64
}

// Subscription delivers requests in log order until it fails or is
// unsubscribed. Events is closed when delivery stops.
type Subscription interface {
	Events() <-chan CallbackRequest
	Err() <-chan error
	Unsubscribe()
}

// callbackRequestLog is the unpack target for the event's data.
type callbackRequestLog struct {
	Account          common.Address
	ImageId          [32]byte //nolint:revive,stylecheck // must match the ABI argument name
	Input            []byte
	CallbackContract common.Address
	FunctionSelector [4]byte
	GasLimit         uint64
}
