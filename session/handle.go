// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package session owns the lifecycle of the engine instance shared by all
// fhEVM operations of a process.
package session

import (
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

// Handle is the capability to perform encryption and re-encryption against
// one chain. It is never mutated after creation.
type Handle struct {
	id        ids.ID
	config    fhevm.Config
	engine    string
	instance  engine.Instance
	createdAt time.Time
}

func newHandle(cfg fhevm.Config, engineName string, inst engine.Instance) *Handle {
	return &Handle{
		id:        cfg.Fingerprint(),
		config:    cfg,
		engine:    engineName,
		instance:  inst,
		createdAt: time.Now(),
	}
}

// ID is the fingerprint of the configuration the handle was built from.
func (h *Handle) ID() ids.ID {
	return h.id
}

func (h *Handle) Config() fhevm.Config {
	return h.config
}

func (h *Handle) ChainID() uint64 {
	return h.config.ChainID
}

// Engine is the name of the engine candidate that produced the instance.
func (h *Handle) Engine() string {
	return h.engine
}

func (h *Handle) Instance() engine.Instance {
	return h.instance
}

func (h *Handle) CreatedAt() time.Time {
	return h.createdAt
}
