// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package vanilla publishes adapter state changes on an event bus.
package vanilla

import (
	"context"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/adapter"
	"github.com/luxfi/fhevm/contract"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

// Topics. Handlers for TopicStateChanged take an adapter.State, handlers
// for TopicError take a string and handlers for TopicInitialized take no
// arguments.
const (
	TopicStateChanged = "fhevm:state"
	TopicInitialized  = "fhevm:initialized"
	TopicError        = "fhevm:error"
)

type Client struct {
	bus         EventBus.Bus
	machine     *adapter.Machine
	unsubscribe func()

	lock sync.Mutex
	last adapter.State
}

func New(m *adapter.Machine) *Client {
	c := &Client{
		bus:     EventBus.New(),
		machine: m,
		last:    m.State(),
	}
	c.unsubscribe = m.Subscribe(c.publish)
	return c
}

func (c *Client) publish(s adapter.State) {
	c.lock.Lock()
	defer c.lock.Unlock()

	prev := c.last
	c.last = s

	c.bus.Publish(TopicStateChanged, s)
	if s.IsInitialized && !prev.IsInitialized {
		c.bus.Publish(TopicInitialized)
	}
	if s.LastError != "" && s.LastError != prev.LastError {
		c.bus.Publish(TopicError, s.LastError)
	}
}

// On subscribes fn to topic.
func (c *Client) On(topic string, fn any) error {
	return c.bus.Subscribe(topic, fn)
}

// Off removes a handler added with On.
func (c *Client) Off(topic string, fn any) error {
	return c.bus.Unsubscribe(topic, fn)
}

func (c *Client) State() adapter.State {
	return c.machine.State()
}

func (c *Client) Destroy() {
	c.unsubscribe()
}

func (c *Client) Initialize(ctx context.Context, cfg fhevm.Config) (*session.Handle, error) {
	return c.machine.Initialize(ctx, cfg)
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
