// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/log"
	"golang.org/x/sync/singleflight"

	"github.com/luxfi/fhevm"
)

const initFlight = "initialize"

// Builder creates a session handle from a configuration.
type Builder interface {
	Build(ctx context.Context, cfg fhevm.Config) (*Handle, error)
}

// Store holds at most one session handle. Concurrent Initialize calls share
// one build; the first successful configuration wins until Reset. The lock
// is never held while building, so Get, Ready and Reset do not wait on an
// in-flight initialization.
type Store struct {
	log     log.Logger
	builder Builder
	group   singleflight.Group

	lock       sync.Mutex
	handle     *Handle
	generation uint64 // bumped by Reset and Close
}

func NewStore(logger log.Logger, builder Builder) *Store {
	return &Store{
		log:     logger,
		builder: builder,
	}
}

// Initialize returns the existing handle, or builds and stores one.
//
// If Reset or Close runs while the build is in flight, the built instance
// is closed and Initialize fails with fhevm.ErrSessionNotReady.
func (s *Store) Initialize(ctx context.Context, cfg fhevm.Config) (*Handle, error) {
	if h, err := s.Get(); err == nil {
		s.warnIgnored(h, cfg)
		return h, nil
	}

	res, err, _ := s.group.Do(initFlight, func() (any, error) {
		return s.build(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	h := res.(*Handle)
	s.warnIgnored(h, cfg)
	return h, nil
}

func (s *Store) build(ctx context.Context, cfg fhevm.Config) (*Handle, error) {
	s.lock.Lock()
	if s.handle != nil {
		h := s.handle
		s.lock.Unlock()
		return h, nil
	}
	generation := s.generation
	s.lock.Unlock()

	h, err := s.builder.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	if s.generation != generation {
		s.lock.Unlock()
		s.log.Info("session reset during initialization, discarding", log.Stringer("sessionID", h.ID()))
		if err := h.Instance().Close(); err != nil {
			s.log.Warn("failed to close discarded session", log.Err(err))
		}
		return nil, fmt.Errorf("%w: reset during initialization", fhevm.ErrSessionNotReady)
	}
	s.handle = h
	s.lock.Unlock()

	s.log.Info(
		"session initialized",
		log.Stringer("sessionID", h.ID()),
		log.String("engine", h.Engine()),
		log.Uint64("chainID", h.ChainID()),
	)
	return h, nil
}

func (s *Store) warnIgnored(h *Handle, cfg fhevm.Config) {
	if id := cfg.Fingerprint(); id != h.ID() {
		s.log.Warn(
			"session already initialized, ignoring new configuration",
			log.Stringer("sessionID", h.ID()),
			log.Stringer("ignoredID", id),
		)
	}
}

// Get returns the current handle or fhevm.ErrNotInitialized.
func (s *Store) Get() (*Handle, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.handle == nil {
		return nil, fhevm.ErrNotInitialized
	}
	return s.handle, nil
}

// Ready reports whether a handle is present.
func (s *Store) Ready() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.handle != nil
}

// Reset discards the handle. Operations that already hold it keep working
// with it; the underlying instance is not closed.
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.handle != nil {
		s.log.Info("session reset", log.Stringer("sessionID", s.handle.ID()))
	}
	s.handle = nil
	s.generation++
}

// Close discards the handle and releases its engine instance.
func (s *Store) Close() error {
	s.lock.Lock()
	h := s.handle
	s.handle = nil
	s.generation++
	s.lock.Unlock()

	if h == nil {
		return nil
	}
	return h.Instance().Close()
}
