// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package enginetest provides a deterministic in-memory engine for tests.
// Ciphertexts are the cleartexts themselves; handles and proofs are derived
// only from the inputs, so identical calls yield identical payloads.
package enginetest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

var (
	_ engine.Engine         = (*Engine)(nil)
	_ engine.Instance       = (*Instance)(nil)
	_ engine.EncryptedInput = (*Input)(nil)
)

type entry struct {
	value    fhevm.Value
	contract common.Address
	user     common.Address
}

// Engine is a fake engine. Set InitErr or CreateErr to make the
// corresponding step fail.
type Engine struct {
	EngineName string
	InitErr    error
	CreateErr  error

	lock      sync.Mutex
	initCalls int
	configs   []engine.InstanceConfig
	ledger    map[fhevm.Handle]entry
}

// New returns a fake engine with the given name.
func New(name string) *Engine {
	return &Engine{
		EngineName: name,
		ledger:     make(map[fhevm.Handle]entry),
	}
}

func (e *Engine) Name() string {
	return e.EngineName
}

func (e *Engine) Init(context.Context, engine.InitOptions) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.initCalls++
	return e.InitErr
}

func (e *Engine) CreateInstance(_ context.Context, cfg engine.InstanceConfig) (engine.Instance, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.configs = append(e.configs, cfg)
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	pk := cfg.PublicKey
	if len(pk) == 0 {
		pk = common.Keccak256([]byte(e.EngineName), []byte(cfg.GatewayURL))
	}
	return &Instance{
		engine:    e,
		chainID:   cfg.ChainID,
		publicKey: pk,
	}, nil
}

// InitCalls returns how many times Init was called.
func (e *Engine) InitCalls() int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.initCalls
}

// Configs returns the instance configs CreateInstance received.
func (e *Engine) Configs() []engine.InstanceConfig {
	e.lock.Lock()
	defer e.lock.Unlock()

	return append([]engine.InstanceConfig(nil), e.configs...)
}

// Stored returns the cleartext behind a handle.
func (e *Engine) Stored(h fhevm.Handle) (fhevm.Value, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	ent, ok := e.ledger[h]
	return ent.value, ok
}

// Instance is a fake engine instance.
type Instance struct {
	engine    *Engine
	chainID   uint64
	publicKey []byte

	lock     sync.Mutex
	keyNonce uint64
	closed   bool
}

func (i *Instance) ChainID() uint64 {
	return i.chainID
}

func (i *Instance) PublicKey() []byte {
	return i.publicKey
}

func (i *Instance) CreateEncryptedInput(contract, user common.Address) (engine.EncryptedInput, error) {
	return &Input{
		instance: i,
		contract: contract,
		user:     user,
	}, nil
}

// GenerateKeypair derives keypairs from a per-instance counter so that two
// instances driven identically produce identical keys.
func (i *Instance) GenerateKeypair() (*engine.Keypair, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	i.keyNonce++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], i.keyNonce)
	priv := common.Keccak256(i.publicKey, nonce[:])
	return &engine.Keypair{
		PublicKey:  common.Keccak256(priv),
		PrivateKey: priv,
	}, nil
}

func (i *Instance) Reencrypt(_ context.Context, req *engine.ReencryptRequest) (*uint256.Int, error) {
	auth := fhevm.Authorization{
		ChainID:           i.chainID,
		VerifyingContract: req.Contract,
		PublicKey:         req.Keypair.PublicKey,
	}
	signer, err := auth.RecoverSigner(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnauthorized, err)
	}
	if signer != req.User {
		return nil, fmt.Errorf("%w: signature from %s, expected %s", engine.ErrUnauthorized, signer, req.User)
	}

	i.engine.lock.Lock()
	ent, ok := i.engine.ledger[req.Handle]
	i.engine.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownHandle, req.Handle)
	}
	if ent.contract != req.Contract || ent.user != req.User {
		return nil, fmt.Errorf("%w: %s not allowed for %s on %s", engine.ErrUnauthorized, req.Handle, req.User, req.Contract)
	}
	v := ent.value.Int
	return &v, nil
}

func (i *Instance) Close() error {
	i.lock.Lock()
	defer i.lock.Unlock()

	i.closed = true
	return nil
}

// Closed reports whether Close was called.
func (i *Instance) Closed() bool {
	i.lock.Lock()
	defer i.lock.Unlock()

	return i.closed
}

// Input is a fake encrypted input. Calls lists the add methods invoked.
type Input struct {
	instance *Instance
	contract common.Address
	user     common.Address

	Calls  []string
	values []fhevm.Value
}

func (in *Input) add(call string, t fhevm.ValueType, raw any) error {
	v, err := fhevm.NewValue(t, raw)
	if err != nil {
		return err
	}
	in.Calls = append(in.Calls, call)
	in.values = append(in.values, v)
	return nil
}

func (in *Input) AddBool(v bool) error { return in.add("AddBool", fhevm.TypeBool, v) }
func (in *Input) Add8(v uint8) error { return in.add("Add8", fhevm.TypeUint8, v) }
func (in *Input) Add16(v uint16) error { return in.add("Add16", fhevm.TypeUint16, v) }
func (in *Input) Add32(v uint32) error { return in.add("Add32", fhevm.TypeUint32, v) }
func (in *Input) Add64(v uint64) error { return in.add("Add64", fhevm.TypeUint64, v) }
func (in *Input) Add128(v *uint256.Int) error { return in.add("Add128", fhevm.TypeUint128, v) }
func (in *Input) Add256(v *uint256.Int) error { return in.add("Add256", fhevm.TypeUint256, v) }
func (in *Input) AddAddress(v common.Address) error {
	return in.add("AddAddress", fhevm.TypeAddress, v)
}

func (in *Input) Encrypt(ctx context.Context) (*fhevm.SealedPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in.values) == 0 {
		return nil, fhevm.ErrEmptyInput
	}

	chunks := [][]byte{in.contract.Bytes(), in.user.Bytes()}
	for _, v := range in.values {
		word := v.Int.Bytes32()
		chunks = append(chunks, []byte{byte(v.Type)}, word[:])
	}
	inputHash := common.Keccak256Hash(chunks...)

	payload := &fhevm.SealedPayload{
		Handles: make([]fhevm.Handle, len(in.values)),
		Proof:   append([]byte{byte(len(in.values))}, inputHash.Bytes()...),
	}

	e := in.instance.engine
	e.lock.Lock()
	defer e.lock.Unlock()
	for idx, v := range in.values {
		h := fhevm.NewHandle(inputHash, uint8(idx), in.instance.chainID, v.Type)
		payload.Handles[idx] = h
		e.ledger[h] = entry{value: v, contract: in.contract, user: in.user}
	}
	return payload, nil
}
