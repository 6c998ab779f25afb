// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package adapter holds the state machine shared by every binding. The
// bindings in the subpackages only translate State changes into their
// host's idiom.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/contract"
	"github.com/luxfi/fhevm/input"
	"github.com/luxfi/fhevm/reencrypt"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

const (
	OpInitialize = "initialize"
	OpEncrypt    = "encrypt"
	OpDecrypt    = "decrypt"

	StatusInitializing = "Initializing FHE instance"
	StatusEncrypting   = "Encrypting value"
	StatusDecrypting   = "Decrypting value"
)

// State is what a binding exposes to its host.
type State struct {
	IsInitialized bool
	IsBusy        bool
	StatusMessage string
	LastError     string
}

// Deps are the components a machine drives. Store and Binder may be shared
// between machines.
type Deps struct {
	Store   *session.Store
	Binder  *contract.Binder
	Metrics *Metrics
}

// Machine is one adapter instance. IsBusy stays set while any operation is
// in flight and is always cleared when the last one returns.
type Machine struct {
	log       log.Logger
	store     *session.Store
	inputs    *input.Builder
	keys      *reencrypt.Generator
	decryptor *reencrypt.Decryptor
	binder    *contract.Binder
	metrics   *Metrics

	// notifyLock orders deliveries. Subscribers must not start operations
	// on the machine.
	notifyLock sync.Mutex

	lock      sync.Mutex
	state     State
	inFlight  int
	nextSubID int
	subs      map[int]func(State)
}

func NewMachine(logger log.Logger, deps Deps) *Machine {
	binder := deps.Binder
	if binder == nil {
		binder = contract.NewBinder(logger, contract.DefaultABICacheSize)
	}
	return &Machine{
		log:       logger,
		store:     deps.Store,
		inputs:    input.NewBuilder(logger, deps.Store),
		keys:      reencrypt.NewGenerator(logger, deps.Store),
		decryptor: reencrypt.NewDecryptor(logger, deps.Store),
		binder:    binder,
		metrics:   deps.Metrics,
		subs:      make(map[int]func(State)),
	}
}

// State returns a snapshot.
func (m *Machine) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.state
}

// Subscribe registers fn to receive every state change, in order. The
// returned func removes the subscription.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()

		delete(m.subs, id)
	}
}

// Dispose drops every subscription. The shared session is untouched.
func (m *Machine) Dispose() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.subs = make(map[int]func(State))
}

// Initialize initializes the shared session and marks this adapter ready.
func (m *Machine) Initialize(ctx context.Context, cfg fhevm.Config) (*session.Handle, error) {
	var h *session.Handle
	err := m.run(OpInitialize, StatusInitializing, func() error {
		var err error
		h, err = m.store.Initialize(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Encrypt encrypts a single value for contract on behalf of user.
func (m *Machine) Encrypt(ctx context.Context, contract, user common.Address, value any, t fhevm.ValueType) (*fhevm.SealedPayload, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	var payload *fhevm.SealedPayload
	err := m.run(OpEncrypt, StatusEncrypting, func() error {
		var err error
		payload, err = m.inputs.Encrypt(ctx, contract, user, value, t)
		return err
	})
	return payload, err
}

// Decrypt generates a single-use key signed by s and decrypts handle with it.
func (m *Machine) Decrypt(ctx context.Context, handle fhevm.Handle, contract, user common.Address, s signer.Signer) (fhevm.ClearValue, error) {
	if err := m.ready(); err != nil {
		return fhevm.ClearValue{}, err
	}
	var v fhevm.ClearValue
	err := m.run(OpDecrypt, StatusDecrypting, func() error {
		key, err := m.keys.GenerateKey(ctx, contract, user, s)
		if err != nil {
			return err
		}
		v, err = m.decryptor.Decrypt(ctx, handle, key)
		return err
	})
	return v, err
}

// GetContractHandle binds a contract. It does not touch the adapter state.
func (m *Machine) GetContractHandle(address common.Address, abiJSON string, backend contract.Backend) (*contract.Handle, error) {
	return m.binder.Bind(address, abiJSON, backend)
}

func (m *Machine) ready() error {
	m.lock.Lock()
	initialized := m.state.IsInitialized
	m.lock.Unlock()
	if initialized {
		return nil
	}
	err := fhevm.ErrAdapterNotInitialized
	m.update(func(s *State) {
		s.LastError = err.Error()
	})
	return err
}

func (m *Machine) run(op, status string, fn func() error) error {
	opID := uuid.New()
	m.update(func(s *State) {
		m.inFlight++
		s.IsBusy = true
		s.StatusMessage = status
		s.LastError = ""
	})
	m.log.Debug("Starting operation", log.String("op", op), log.Stringer("opID", opID))

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	m.metrics.observe(op, err, elapsed)

	m.update(func(s *State) {
		m.inFlight--
		s.IsBusy = m.inFlight > 0
		if !s.IsBusy {
			s.StatusMessage = ""
		}
		if err != nil {
			s.LastError = err.Error()
		} else if op == OpInitialize {
			s.IsInitialized = true
		}
	})
	if err != nil {
		m.log.Warn(
			"Operation failed",
			log.String("op", op),
			log.Stringer("opID", opID),
			log.Int("code", int(fhevm.ErrorCode(err))),
			log.Err(err),
		)
		return err
	}
	m.log.Debug(
		"Finished operation",
		log.String("op", op),
		log.Stringer("opID", opID),
		log.Stringer("elapsed", elapsed),
	)
	return nil
}

// update applies fn under the lock and notifies subscribers outside it.
func (m *Machine) update(fn func(*State)) {
	m.notifyLock.Lock()
	defer m.notifyLock.Unlock()

	m.lock.Lock()
	fn(&m.state)
	state := m.state
	subs := make([]func(State), 0, len(m.subs))
	for id := 0; id < m.nextSubID; id++ {
		if sub, ok := m.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	m.lock.Unlock()

	for _, sub := range subs {
		sub(state)
	}
}
