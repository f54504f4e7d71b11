// Package storetest holds the behaviour every request store must share.
package storetest

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
)

// StoreSuite runs against the store returned by NewStore. Stores must take
// their timestamps from Clock.
type StoreSuite struct {
	suite.Suite
	Ctx      context.Context
	Clock    *clock.Mock
	NewStore func(clock.Clock) requeststore.Store
	store    requeststore.Store
}

func (s *StoreSuite) SetupTest() {
	s.Ctx = context.Background()
	s.Clock = clock.NewMock()
	s.store = s.NewStore(s.Clock)
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close(s.Ctx))
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.Ctx, "0xabc:1")
	s.ErrorAs(err, &requeststore.ErrRequestNotFound{})
}

func (s *StoreSuite) TestPutAndGet() {
	s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{
		ID:      "0xabc:1",
		ImageID: "deadbeef",
		Block:   7,
		State:   requeststore.StateReceived,
	}))
	created := s.Clock.Now()

	s.Clock.Add(time.Minute)
	s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{
		ID:      "0xabc:1",
		ImageID: "deadbeef",
		Block:   7,
		State:   requeststore.StateSubmitted,
		TxHash:  "0x01",
	}))

	record, err := s.store.Get(s.Ctx, "0xabc:1")
	s.Require().NoError(err)
	s.Equal(requeststore.StateSubmitted, record.State)
	s.Equal("0x01", record.TxHash)
	s.Equal(uint64(7), record.Block)
	s.True(record.CreateTime.Equal(created), "create time kept")
	s.True(record.UpdateTime.Equal(created.Add(time.Minute)), "update time moved")
}

func (s *StoreSuite) TestSubmittedIsFinal() {
	s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{ID: "r", State: requeststore.StateSubmitted}))

	err := s.store.Put(s.Ctx, requeststore.Record{ID: "r", State: requeststore.StateFailed})
	s.ErrorAs(err, &requeststore.ErrRequestAlreadySubmitted{})

	record, err := s.store.Get(s.Ctx, "r")
	s.Require().NoError(err)
	s.Equal(requeststore.StateSubmitted, record.State)
}

func (s *StoreSuite) TestFailedCanBeRetried() {
	s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{ID: "r", State: requeststore.StateFailed, Error: "boom"}))
	s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{ID: "r", State: requeststore.StateSubmitted}))

	record, err := s.store.Get(s.Ctx, "r")
	s.Require().NoError(err)
	s.Equal(requeststore.StateSubmitted, record.State)
	s.Empty(record.Error)
}

func (s *StoreSuite) TestInvalidRecords() {
	s.Error(s.store.Put(s.Ctx, requeststore.Record{State: requeststore.StateReceived}))
	s.Error(s.store.Put(s.Ctx, requeststore.Record{ID: "r"}))
}

func (s *StoreSuite) TestListOldestFirst() {
	for _, id := range []string{"c", "a", "b"} {
		s.Require().NoError(s.store.Put(s.Ctx, requeststore.Record{ID: id, State: requeststore.StateReceived}))
		s.Clock.Add(time.Second)
	}

	records, err := s.store.List(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal("c", records[0].ID)
	s.Equal("a", records[1].ID)
	s.Equal("b", records[2].ID)
}

func (s *StoreSuite) TestCheckpointOnlyMovesForward() {
	_, ok, err := s.store.Checkpoint(s.Ctx)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetCheckpoint(s.Ctx, 10))
	s.Require().NoError(s.store.SetCheckpoint(s.Ctx, 4))

	block, ok, err := s.store.Checkpoint(s.Ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(10), block)

	s.Require().NoError(s.store.SetCheckpoint(s.Ctx, 11))
	block, _, err = s.store.Checkpoint(s.Ctx)
	s.Require().NoError(err)
	s.Equal(uint64(11), block)
}
