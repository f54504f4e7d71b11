//go:generate mockgen --source types.go --destination mocks.go --package remote
package remote

import (
	"context"
	"time"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// Session statuses reported by the proving service.
const (
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED_OUT"
	StatusAborted   = "ABORTED"
)

// SessionStatus is one answer to a status query.
type SessionStatus struct {
	Status string
	// ReceiptURL is only set once the session has succeeded.
	ReceiptURL string
}

// ProvingService is the remote service that turns an image and an input into
// a receipt.
type ProvingService interface {
	// UploadImage makes binary available under id. exists is true when the
	// service already had it.
	UploadImage(ctx context.Context, id image.ID, binary []byte) (exists bool, err error)
	UploadInput(ctx context.Context, input []byte) (inputID string, err error)
	CreateSession(ctx context.Context, id image.ID, inputID string) (handle string, err error)
	Status(ctx context.Context, handle string) (SessionStatus, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Sleeper suspends the caller for d, returning early with the context error
// when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error
