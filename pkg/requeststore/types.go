package requeststore

import (
	"context"
	"time"
)

// Record is what the relay remembers about one callback request.
type Record struct {
	ID      string `json:"id"`
	ImageID string `json:"image_id"`
	Block   uint64 `json:"block"`
	State   State  `json:"state"`
	// ErrorCode and Error describe why the request failed.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	// TxHash is the callback transaction, once one was sent.
	TxHash     string    `json:"tx_hash,omitempty"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// Store persists request records and the relay's block checkpoint. Stores
// are safe for concurrent use.
type Store interface {
	// Get returns ErrRequestNotFound when there is no record for id.
	Get(ctx context.Context, id string) (Record, error)
	// Put creates or updates a record. The create time of an existing record
	// is kept and the update time is set by the store. A submitted request
	// cannot move to another state.
	Put(ctx context.Context, record Record) error
	// List returns every record, oldest first.
	List(ctx context.Context) ([]Record, error)
	// Checkpoint returns the block of the last request the relay handled.
	Checkpoint(ctx context.Context) (block uint64, ok bool, err error)
	// SetCheckpoint moves the checkpoint forward. Lower blocks are ignored.
	SetCheckpoint(ctx context.Context, block uint64) error
	Close(ctx context.Context) error
}
