package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/types"
	"github.com/dgraph-io/badger/v4"
)

// Validate that BadgerStore implements the Store interface
var _ Store = &BadgerStore{}

const rollupKeyPrefix = "rollup/"

// BadgerStore implements the Store interface using BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger log.Logger
}

// NewBadgerStore creates a new BadgerDB-backed store.
func NewBadgerStore(logger log.Logger) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("store")
	} else {
		logger = logger.WithComponent("store")
	}

	return &BadgerStore{logger: logger}
}

// Open opens the BadgerDB database.
func (s *BadgerStore) Open(path string) error {
	s.path = path

	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogAdapter{logger: s.logger}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	s.db = db

	s.logger.Info("Rollup store opened", log.Str("path", path))
	return nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		s.logger.Info("Closing rollup store", log.Str("path", s.path))
		return s.db.Close()
	}
	return nil
}

// CreateRollup creates a new rollup record.
func (s *BadgerStore) CreateRollup(ctx context.Context, rollup *types.Rollup) error {
	key := makeKey(rollup.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("rollup %s already exists", rollup.ID)
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to check for existing rollup: %w", err)
		}

		data, err := json.Marshal(rollup)
		if err != nil {
			return fmt.Errorf("failed to serialize rollup: %w", err)
		}

		return txn.Set(key, data)
	})
}

// GetRollup retrieves a rollup record by ID.
func (s *BadgerStore) GetRollup(ctx context.Context, id string) (*types.Rollup, error) {
	var rollup types.Rollup

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(id))
		if err == badger.ErrKeyNotFound {
			return types.NewNotFoundError(id)
		}
		if err != nil {
			return fmt.Errorf("failed to get rollup: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rollup)
		})
	})
	if err != nil {
		return nil, err
	}

	return &rollup, nil
}

// ListRollups retrieves all rollup records.
func (s *BadgerStore) ListRollups(ctx context.Context) ([]*types.Rollup, error) {
	var rollups []*types.Rollup

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(rollupKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rollup types.Rollup
				if err := json.Unmarshal(val, &rollup); err != nil {
					return fmt.Errorf("failed to deserialize rollup: %w", err)
				}
				rollups = append(rollups, &rollup)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rollups, nil
}

// UpdateRollup updates an existing rollup record.
func (s *BadgerStore) UpdateRollup(ctx context.Context, rollup *types.Rollup) error {
	key := makeKey(rollup.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return types.NewNotFoundError(rollup.ID)
		} else if err != nil {
			return fmt.Errorf("failed to check for existing rollup: %w", err)
		}

		data, err := json.Marshal(rollup)
		if err != nil {
			return fmt.Errorf("failed to serialize rollup: %w", err)
		}

		return txn.Set(key, data)
	})
}

// DeleteRollup deletes a rollup record.
func (s *BadgerStore) DeleteRollup(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := makeKey(id)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return types.NewNotFoundError(id)
		} else if err != nil {
			return fmt.Errorf("failed to check for existing rollup: %w", err)
		}
		return txn.Delete(key)
	})
}

func makeKey(id string) []byte {
	return []byte(rollupKeyPrefix + id)
}

// badgerLogAdapter routes badger's internal logging through our logger.
type badgerLogAdapter struct {
	logger log.Logger
}

func (a *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
