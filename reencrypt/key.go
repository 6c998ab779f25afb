// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package reencrypt generates user re-encryption keys and uses them to
// decrypt ciphertext handles.
package reencrypt

import (
	"sync"

	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

// Key is a single-use re-encryption key scoped to one (contract, user) pair.
type Key struct {
	id        uuid.UUID
	sessionID ids.ID
	chainID   uint64
	contract  common.Address
	user      common.Address
	signer    common.Address
	signature []byte

	lock     sync.Mutex
	keypair  engine.Keypair
	consumed bool
}

func (k *Key) ID() uuid.UUID {
	return k.id
}

func (k *Key) Contract() common.Address {
	return k.contract
}

func (k *Key) User() common.Address {
	return k.user
}

// Signer is the address of the signer that produced the authorization.
func (k *Key) Signer() common.Address {
	return k.signer
}

func (k *Key) PublicKey() []byte {
	return k.keypair.PublicKey
}

func (k *Key) Signature() []byte {
	return k.signature
}

// Allows reports whether the key is scoped to contract and user.
func (k *Key) Allows(contract, user common.Address) bool {
	return k.contract == contract && k.user == user
}

// Consumed reports whether the key was already used.
func (k *Key) Consumed() bool {
	k.lock.Lock()
	defer k.lock.Unlock()

	return k.consumed
}

func (k *Key) authorization() fhevm.Authorization {
	return fhevm.Authorization{
		ChainID:           k.chainID,
		VerifyingContract: k.contract,
		PublicKey:         k.keypair.PublicKey,
	}
}

// consume marks the key used and hands out its keypair exactly once.
func (k *Key) consume() (engine.Keypair, bool) {
	k.lock.Lock()
	defer k.lock.Unlock()

	if k.consumed {
		return engine.Keypair{}, false
	}
	k.consumed = true
	kp := engine.Keypair{
		PublicKey:  k.keypair.PublicKey,
		PrivateKey: append([]byte(nil), k.keypair.PrivateKey...),
	}
	clear(k.keypair.PrivateKey)
	k.keypair.PrivateKey = nil
	return kp, true
}
