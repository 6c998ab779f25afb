// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package node is the server-side binding: plain methods, with state
// changes reported as log lines.
package node

import (
	"context"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/adapter"
	"github.com/luxfi/fhevm/contract"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

type Client struct {
	log         log.Logger
	machine     *adapter.Machine
	unsubscribe func()
}

func New(logger log.Logger, m *adapter.Machine) *Client {
	c := &Client{
		log:     logger,
		machine: m,
	}
	c.unsubscribe = m.Subscribe(c.logState)
	return c
}

func (c *Client) logState(s adapter.State) {
	fields := []any{
		log.Bool("initialized", s.IsInitialized),
		log.Bool("busy", s.IsBusy),
	}
	if s.StatusMessage != "" {
		fields = append(fields, log.String("status", s.StatusMessage))
	}
	if s.LastError != "" {
		fields = append(fields, log.String("lastError", s.LastError))
	}
	c.log.Debug("fhevm state changed", fields...)
}

func (c *Client) State() adapter.State {
	return c.machine.State()
}

func (c *Client) Close() {
	c.unsubscribe()
}

func (c *Client) Initialize(ctx context.Context, cfg fhevm.Config) (*session.Handle, error) {
	h, err := c.machine.Initialize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.log.Info(
		"fhevm ready",
		log.Uint64("chainID", h.ChainID()),
		log.String("engine", h.Engine()),
	)
	return h, nil
}

func (c *Client) Encrypt(ctx context.Context, contract, user common.Address, value any, t fhevm.ValueType) (*fhevm.SealedPayload, error) {
	return c.machine.Encrypt(ctx, contract, user, value, t)
}

func (c *Client) Decrypt(ctx context.Context, handle fhevm.Handle, contract, user common.Address, s signer.Signer) (fhevm.ClearValue, error) {
	return c.machine.Decrypt(ctx, handle, contract, user, s)
}

func (c *Client) GetContractHandle(address common.Address, abiJSON string, backend contract.Backend) (*contract.Handle, error) {
	return c.machine.GetContractHandle(address, abiJSON, backend)
}
