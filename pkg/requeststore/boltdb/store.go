package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
)

const (
	DefaultDatabasePermissions = 0600
	openTimeout                = 2 * time.Second

	requestsBucket   = "requests"
	checkpointBucket = "checkpoint"
	checkpointKey    = "block"
)

type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// Store is a request store backed by a boltdb file, so the relay can skip
// requests it already submitted and resume from its checkpoint after a
// restart.
//
// The schema (<key> -> {json-value}) is:
//
// requests
//
//	|--> <request-id> -> {requeststore.Record}
//
// checkpoint
//
//	|--> <"block"> -> big endian uint64
type Store struct {
	database *bolt.DB
	clock    clock.Clock
}

// NewStore opens or creates the database at dbPath and makes sure the
// buckets exist.
func NewStore(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	log.Ctx(ctx).Debug().Msgf("opening bbolt request store at %s", dbPath)

	database, err := bolt.Open(dbPath, DefaultDatabasePermissions, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening request store %s: %w", dbPath, err)
	}

	err = database.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{requestsBucket, checkpointBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("error creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("error creating database structure: %w", err)
	}

	s := &Store{database: database, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, id string) (requeststore.Record, error) {
	var record requeststore.Record
	err := s.database.View(func(tx *bolt.Tx) error {
		var err error
		record, err = getInTx(tx, id)
		return err
	})
	return record, err
}

func getInTx(tx *bolt.Tx, id string) (requeststore.Record, error) {
	var record requeststore.Record
	data := tx.Bucket([]byte(requestsBucket)).Get([]byte(id))
	if data == nil {
		return record, requeststore.NewErrRequestNotFound(id)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal request %s: %w", id, err)
	}
	return record, nil
}

func (s *Store) Put(ctx context.Context, record requeststore.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.database.Update(func(tx *bolt.Tx) error {
		now := s.clock.Now().UTC()
		record.CreateTime = now
		existing, err := getInTx(tx, record.ID)
		switch err.(type) {
		case nil:
			if err = requeststore.ValidateTransition(record.ID, existing.State, record.State); err != nil {
				return err
			}
			record.CreateTime = existing.CreateTime
		case requeststore.ErrRequestNotFound:
		default:
			return err
		}
		record.UpdateTime = now

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal request %s: %w", record.ID, err)
		}
		return tx.Bucket([]byte(requestsBucket)).Put([]byte(record.ID), data)
	})
}

func (s *Store) List(ctx context.Context) ([]requeststore.Record, error) {
	var records []requeststore.Record
	err := s.database.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(requestsBucket)).ForEach(func(k, v []byte) error {
			var record requeststore.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal request %s: %w", k, err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreateTime.Before(records[j].CreateTime)
	})
	return records, nil
}

func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	var block uint64
	var ok bool
	err := s.database.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(checkpointBucket)).Get([]byte(checkpointKey))
		if data == nil {
			return nil
		}
		if len(data) != 8 { //nolint:mnd
			return fmt.Errorf("corrupt checkpoint of %d bytes", len(data))
		}
		block, ok = binary.BigEndian.Uint64(data), true
		return nil
	})
	return block, ok, err
}

func (s *Store) SetCheckpoint(ctx context.Context, block uint64) error {
	return s.database.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(checkpointBucket))
		if data := b.Get([]byte(checkpointKey)); len(data) == 8 && binary.BigEndian.Uint64(data) >= block {
			return nil
		}
		return b.Put([]byte(checkpointKey), uint64ToBytes(block))
	})
}

func (s *Store) Close(ctx context.Context) error {
	return s.database.Close()
}

func uint64ToBytes(i uint64) []byte {
	//nolint:mnd
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, i)
	return buf
}

// compile time check that Store implements requeststore.Store
var _ requeststore.Store = (*Store)(nil)
