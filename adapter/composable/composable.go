// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package composable exposes the adapter state as individually watchable
// refs.
package composable

import (
	"context"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/adapter"
	"github.com/luxfi/fhevm/contract"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

type Composable struct {
	IsInitialized *Ref[bool]
	IsBusy        *Ref[bool]
	StatusMessage *Ref[string]
	LastError     *Ref[string]

	machine     *adapter.Machine
	unsubscribe func()
}

func New(m *adapter.Machine) *Composable {
	s := m.State()
	c := &Composable{
		IsInitialized: newRef(s.IsInitialized),
		IsBusy:        newRef(s.IsBusy),
		StatusMessage: newRef(s.StatusMessage),
		LastError:     newRef(s.LastError),
		machine:       m,
	}
	c.unsubscribe = m.Subscribe(c.apply)
	return c
}

func (c *Composable) apply(s adapter.State) {
	c.IsInitialized.set(s.IsInitialized)
	c.IsBusy.set(s.IsBusy)
	c.StatusMessage.set(s.StatusMessage)
	c.LastError.set(s.LastError)
}

// Dispose detaches the refs from the machine.
func (c *Composable) Dispose() {
	c.unsubscribe()
}

func (c *Composable) Initialize(ctx context.Context, cfg fhevm.Config) (*session.Handle, error) {
	return c.machine.Initialize(ctx, cfg)
}

func (c *Composable) Encrypt(ctx context.Context, contract, user common.Address, value any, t fhevm.ValueType) (*fhevm.SealedPayload, error) {
	return c.machine.Encrypt(ctx, contract, user, value, t)
}

func (c *Composable) Decrypt(ctx context.Context, handle fhevm.Handle, contract, user common.Address, s signer.Signer) (fhevm.ClearValue, error) {
	return c.machine.Decrypt(ctx, handle, contract, user, s)
}

func (c *Composable) GetContractHandle(address common.Address, abiJSON string, backend contract.Backend) (*contract.Handle, error) {
	return c.machine.GetContractHandle(address, abiJSON, backend)
}
