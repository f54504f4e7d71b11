package util

import (
	"context"
	"os"
	"syscall"

	"github.com/bacalhau-project/callback-relay/pkg/system"
)

var ShutdownSignals = []os.Signal{
	syscall.SIGTERM,
	syscall.SIGINT,
}

type contextKey struct {
	name string
}

var SystemManagerKey = contextKey{name: "context key for storing the system manager"}

// GetCleanupManager returns the cleanup manager the root command stored in
// ctx, or a new one when there is none.
func GetCleanupManager(ctx context.Context) *system.CleanupManager {
	if cm, ok := ctx.Value(SystemManagerKey).(*system.CleanupManager); ok {
		return cm
	}
	return system.NewCleanupManager()
}
