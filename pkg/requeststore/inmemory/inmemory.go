package inmemory

import (
	"context"
	"sort"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/benbjohnson/clock"
	"golang.org/x/exp/maps"

	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
)

type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

type Store struct {
	clock      clock.Clock
	records    map[string]requeststore.Record
	checkpoint uint64
	hasBlock   bool
	mu         sync.RWMutex
}

func NewStore(opts ...Option) *Store {
	res := &Store{
		clock:   clock.New(),
		records: make(map[string]requeststore.Record),
	}
	for _, opt := range opts {
		opt(res)
	}
	res.mu.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "InMemoryRequestStore.mu",
	})
	return res
}

func (s *Store) Get(ctx context.Context, id string) (requeststore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return record, requeststore.NewErrRequestNotFound(id)
	}
	return record, nil
}

func (s *Store) Put(ctx context.Context, record requeststore.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()
	record.CreateTime = now
	if existing, ok := s.records[record.ID]; ok {
		if err := requeststore.ValidateTransition(record.ID, existing.State, record.State); err != nil {
			return err
		}
		record.CreateTime = existing.CreateTime
	}
	record.UpdateTime = now
	s.records[record.ID] = record
	return nil
}

func (s *Store) List(ctx context.Context) ([]requeststore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := maps.Values(s.records)
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreateTime.Equal(records[j].CreateTime) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreateTime.Before(records[j].CreateTime)
	})
	return records, nil
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint, s.hasBlock, nil
}

func (s *Store) SetCheckpoint(ctx context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBlock || block > s.checkpoint {
		s.checkpoint = block
		s.hasBlock = true
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// compile time check that Store implements requeststore.Store
var _ requeststore.Store = (*Store)(nil)
