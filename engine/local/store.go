// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package local

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

var (
	ErrNotFound    = errors.New("not found")
	errStoreClosed = errors.New("store closed")
)

// Store is the network's key-value storage.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Healthy() error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)

type MemoryStore struct {
	lock   sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, errStoreClosed
	}
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Put(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return errStoreClosed
	}
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Healthy() error {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return errStoreClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

// BadgerStore persists the network state in a badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the database in dir. An empty dir keeps the
// database in memory.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *BadgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) Healthy() error {
	if s.db.IsClosed() {
		return errStoreClosed
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
