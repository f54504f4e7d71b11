//go:build unit || !integration

package inmemory

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore/storetest"
)

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storetest.StoreSuite{
		NewStore: func(c clock.Clock) requeststore.Store {
			return NewStore(WithClock(c))
		},
	})
}
