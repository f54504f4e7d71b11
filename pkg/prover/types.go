//go:generate mockgen --source types.go --destination mocks.go --package prover
package prover

import (
	"context"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// RemoteProver produces the journal of an image run on a remote service.
type RemoteProver interface {
	Prove(ctx context.Context, entry image.Entry, input []byte) ([]byte, error)
}
