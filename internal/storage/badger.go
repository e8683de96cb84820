package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var keyPushToken = []byte("messaging:token")

// BadgerStore persists bridge state across process restarts.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the store in dir. An empty dir opens an
// in-memory store.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	logger.Debug("state store opened", "dir", dir, "inMemory", dir == "")
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) LoadToken() (string, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyPushToken)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load push token: %w", err)
	}
	return token, nil
}

func (s *BadgerStore) StoreToken(token string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyPushToken, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("store push token: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
