//go:generate mockgen --source interface.go --destination mocks.go --package executor
package executor

import (
	"context"
)

// Executor runs an image binary against an input on the local machine.
type Executor interface {
	// Run executes the request to completion. Failures are deterministic for
	// a given binary and input, so callers should not retry them.
	Run(ctx context.Context, request *RunCommandRequest) (*RunCommandResult, error)
}
