// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package input builds encrypted inputs for contract calls.
package input

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/session"
)

// Sessions provides the current session handle.
type Sessions interface {
	Get() (*session.Handle, error)
}

// Builder creates drafts against the current session.
type Builder struct {
	log      log.Logger
	sessions Sessions
}

func NewBuilder(logger log.Logger, sessions Sessions) *Builder {
	return &Builder{
		log:      logger,
		sessions: sessions,
	}
}

// CreateInput starts a draft bound to contract and user.
func (b *Builder) CreateInput(contract, user common.Address) (*Draft, error) {
	h, err := b.sessions.Get()
	if err != nil {
		return nil, err
	}
	in, err := h.Instance().CreateEncryptedInput(contract, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted input: %w", err)
	}
	return &Draft{
		id:       uuid.New(),
		log:      b.log,
		contract: contract,
		user:     user,
		input:    in,
	}, nil
}

// Encrypt creates a draft holding the single value and seals it.
func (b *Builder) Encrypt(ctx context.Context, contract, user common.Address, raw any, t fhevm.ValueType) (*fhevm.SealedPayload, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", fhevm.ErrUnsupportedType, t)
	}
	d, err := b.CreateInput(contract, user)
	if err != nil {
		return nil, err
	}
	if err := d.AddValue(raw, t); err != nil {
		return nil, err
	}
	return d.Seal(ctx)
}

// Draft is an append-then-seal list of typed values. It may be sealed once.
type Draft struct {
	id       uuid.UUID
	log      log.Logger
	contract common.Address
	user     common.Address
	input    engine.EncryptedInput

	lock   sync.Mutex
	types  []fhevm.ValueType
	bits   int
	sealed bool
}

func (d *Draft) ID() uuid.UUID {
	return d.id
}

func (d *Draft) Contract() common.Address {
	return d.contract
}

func (d *Draft) User() common.Address {
	return d.user
}

// Types returns the types appended so far, in order.
func (d *Draft) Types() []fhevm.ValueType {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]fhevm.ValueType(nil), d.types...)
}

// AddValue converts raw to type t and appends it. Types outside the closed
// set fail with fhevm.ErrUnsupportedType before anything else is checked.
func (d *Draft) AddValue(raw any, t fhevm.ValueType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %s", fhevm.ErrUnsupportedType, t)
	}
	v, err := fhevm.NewValue(t, raw)
	if err != nil {
		return err
	}
	return d.Add(v)
}

// Add appends v.
func (d *Draft) Add(v fhevm.Value) error {
	if err := v.Validate(); err != nil {
		return err
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	if d.sealed {
		return fhevm.ErrDraftSealed
	}
	if len(d.types) >= fhevm.MaxInputValues {
		return fmt.Errorf("%w: more than %d values", fhevm.ErrInputTooLarge, fhevm.MaxInputValues)
	}
	if bits := d.bits + v.Type.Bits(); bits > fhevm.MaxInputBits {
		return fmt.Errorf("%w: %d bits exceeds %d", fhevm.ErrInputTooLarge, bits, fhevm.MaxInputBits)
	}
	if err := add(d.input, v); err != nil {
		return err
	}
	d.types = append(d.types, v.Type)
	d.bits += v.Type.Bits()
	return nil
}

// Seal encrypts the values and returns the handles and input proof. The
// draft is consumed even if sealing fails.
func (d *Draft) Seal(ctx context.Context) (*fhevm.SealedPayload, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.sealed {
		return nil, fhevm.ErrDraftSealed
	}
	if len(d.types) == 0 {
		return nil, fhevm.ErrEmptyInput
	}
	d.sealed = true

	payload, err := d.input.Encrypt(ctx)
	if err != nil {
		d.log.Debug("failed to seal encrypted input",
			log.Stringer("draftID", d.id),
			log.Err(err),
		)
		return nil, err
	}
	if len(payload.Handles) != len(d.types) {
		return nil, fmt.Errorf("engine returned %d handles for %d values", len(payload.Handles), len(d.types))
	}
	for i, h := range payload.Handles {
		if h.Type() != d.types[i] {
			return nil, fmt.Errorf("handle %d has type %s, expected %s", i, h.Type(), d.types[i])
		}
	}

	d.log.Debug("sealed encrypted input",
		log.Stringer("draftID", d.id),
		log.Stringer("contract", d.contract),
		log.Int("values", len(d.types)),
	)
	return payload, nil
}
