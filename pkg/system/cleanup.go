package system

import (
	"context"
	"errors"
	realsync "sync"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// CleanupManager provides utilities for ensuring that sub-goroutines can
// clean up their resources before the main goroutine exits. Can be used to
// register callbacks for long-running system processes.
type CleanupManager struct {
	wg realsync.WaitGroup

	fnsMutex sync.Mutex
	fns      []func(context.Context) error
	fnsDone  bool
}

// NewCleanupManager returns a new CleanupManager instance.
func NewCleanupManager() *CleanupManager {
	c := &CleanupManager{}
	c.fnsMutex.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "CleanupManager.fnsMutex",
	})
	return c
}

// RegisterCallback registers a clean-up function.
func (cm *CleanupManager) RegisterCallback(fn func() error) {
	cm.RegisterCallbackWithContext(func(context.Context) error {
		return fn()
	})
}

// RegisterCallbackWithContext registers a clean-up function that is given
// the context passed to Cleanup.
func (cm *CleanupManager) RegisterCallbackWithContext(fn func(context.Context) error) {
	cm.fnsMutex.Lock()
	defer cm.fnsMutex.Unlock()

	if cm.fnsDone {
		log.Error().Msg("CleanupManager: RegisterCallback called after Cleanup")
		return
	}

	cm.wg.Add(1)
	cm.fns = append(cm.fns, fn)
}

// Cleanup runs all registered clean-up functions in sub-goroutines and
// waits for them all to complete. Errors other than context cancellation
// are logged and returned together.
func (cm *CleanupManager) Cleanup(ctx context.Context) error {
	cm.fnsMutex.Lock()
	defer cm.fnsMutex.Unlock()

	if cm.fnsDone {
		log.Warn().Msg("CleanupManager: Cleanup called again after already called")
		return nil
	}

	var errsMu realsync.Mutex
	var errs error
	for _, fn := range cm.fns {
		go func(fn func(context.Context) error) {
			defer cm.wg.Done()

			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Error during clean-up callback")
				errsMu.Lock()
				errs = multierr.Append(errs, err)
				errsMu.Unlock()
			}
		}(fn)
	}

	cm.wg.Wait()
	cm.fnsDone = true
	return errs
}
