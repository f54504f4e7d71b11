package relay

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// EventSource delivers callback requests from a block onwards.
type EventSource interface {
	Subscribe(ctx context.Context, from uint64) (chain.Subscription, error)
}

// Resolver finds the image a request refers to.
type Resolver interface {
	ResolveID(id image.ID) (image.Entry, error)
}

// Dispatcher produces the output of running an image over an input.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry image.Entry, input []byte) ([]byte, error)
}

// CallbackSender submits a batch of callbacks and waits for it to be mined.
type CallbackSender interface {
	SendCallbacks(ctx context.Context, callbacks []chain.Callback) (common.Hash, error)
}
