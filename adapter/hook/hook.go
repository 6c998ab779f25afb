// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package hook binds the adapter to hosts that re-render from a state
// setter, in the style of a reactive hook.
package hook

import (
	"context"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/adapter"
	"github.com/luxfi/fhevm/contract"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

// SetState is the host's state dispatcher.
type SetState func(adapter.State)

// Hook is what Use returns: a state snapshot plus the operations.
type Hook struct {
	machine     *adapter.Machine
	unsubscribe func()
}

// Use mounts the hook. setState receives the current state immediately and
// every change after it until Unmount.
func Use(m *adapter.Machine, setState SetState) *Hook {
	h := &Hook{
		machine:     m,
		unsubscribe: m.Subscribe(setState),
	}
	setState(m.State())
	return h
}

// Unmount stops state delivery.
func (h *Hook) Unmount() {
	h.unsubscribe()
}

func (h *Hook) State() adapter.State {
	return h.machine.State()
}

func (h *Hook) Initialize(ctx context.Context, cfg fhevm.Config) (*session.Handle, error) {
	return h.machine.Initialize(ctx, cfg)
}

func (h *Hook) Encrypt(ctx context.Context, contract, user common.Address, value any, t fhevm.ValueType) (*fhevm.SealedPayload, error) {
	return h.machine.Encrypt(ctx, contract, user, value, t)
}

func (h *Hook) Decrypt(ctx context.Context, handle fhevm.Handle, contract, user common.Address, s signer.Signer) (fhevm.ClearValue, error) {
	return h.machine.Decrypt(ctx, handle, contract, user, s)
}

func (h *Hook) GetContractHandle(address common.Address, abiJSON string, backend contract.Backend) (*contract.Handle, error) {
	return h.machine.GetContractHandle(address, abiJSON, backend)
}
