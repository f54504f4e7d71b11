package executor

import (
	"github.com/bacalhau-project/callback-relay/pkg/image"
)

type RunCommandRequest struct {
	// ExecutionID correlates logs of a single run.
	ExecutionID string
	ImageID     image.ID
	Binary      []byte
	Input       []byte
	// Attest asks the executor to attest to the journal it produced.
	Attest bool
}

type RunCommandResult struct {
	Journal     []byte
	Stderr      string
	Attestation *Attestation
}
