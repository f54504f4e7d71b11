//go:build unit || !integration

package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"

	"github.com/bacalhau-project/callback-relay/pkg/logger"
)

type SystemCleanupSuite struct {
	suite.Suite
}

func TestSystemCleanupSuite(t *testing.T) {
	suite.Run(t, new(SystemCleanupSuite))
}

func (s *SystemCleanupSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
}

func (s *SystemCleanupSuite) TestCleanupManager() {
	clean := false

	cm := NewCleanupManager()
	cm.RegisterCallback(func() error {
		clean = true
		return nil
	})

	s.Require().NoError(cm.Cleanup(context.Background()))
	s.True(clean, "cleanup handler failed to run registered functions")
}

func (s *SystemCleanupSuite) TestCleanupCollectsErrors() {
	cm := NewCleanupManager()
	cm.RegisterCallback(func() error { return errors.New("first") })
	cm.RegisterCallbackWithContext(func(context.Context) error { return errors.New("second") })
	cm.RegisterCallback(func() error { return context.Canceled })

	err := cm.Cleanup(context.Background())
	s.Require().Error(err)
	s.Len(multierr.Errors(err), 2)
}

func (s *SystemCleanupSuite) TestCleanupOnlyRunsOnce() {
	calls := 0
	cm := NewCleanupManager()
	cm.RegisterCallback(func() error {
		calls++
		return nil
	})

	s.Require().NoError(cm.Cleanup(context.Background()))
	s.Require().NoError(cm.Cleanup(context.Background()))
	cm.RegisterCallback(func() error {
		calls++
		return nil
	})
	s.Equal(1, calls)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
