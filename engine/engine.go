// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine defines the encryption engine contract the session layer
// drives. The homomorphic cryptography lives behind these interfaces.
package engine

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
)

var (
	// ErrPublicKeyFetch is returned when the network public key cannot be
	// obtained from the gateway.
	ErrPublicKeyFetch = errors.New("failed to fetch network public key")

	// ErrAllocation is returned when engine components cannot allocate their
	// working memory, usually because their versions do not match.
	ErrAllocation = errors.New("engine allocation failed")

	// ErrUnauthorized is returned by the network when a re-encryption request
	// fails the signature or ACL check.
	ErrUnauthorized = errors.New("re-encryption not authorized")

	// ErrUnknownHandle is returned when a handle has no stored ciphertext.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")

	// ErrInvalidProof is returned when an input proof does not verify.
	ErrInvalidProof = errors.New("invalid input proof")
)

// InitOptions locates the engine's local assets. Empty paths select the
// engine defaults.
type InitOptions struct {
	ParamsPath string
	KeysPath   string
}

// InstanceConfig configures one engine instance.
type InstanceConfig struct {
	ChainID    uint64
	PublicKey  []byte
	GatewayURL string

	// Network is the chain RPC endpoint. Engines may fall back to an ambient
	// provider when empty; the session layer always sets it.
	Network string
}

// Engine produces instances bound to one chain.
type Engine interface {
	Name() string

	// Init loads engine assets. It must be called before CreateInstance and
	// is safe to call more than once.
	Init(ctx context.Context, opts InitOptions) error

	CreateInstance(ctx context.Context, cfg InstanceConfig) (Instance, error)
}

// Instance is a live engine session for one chain.
type Instance interface {
	ChainID() uint64
	PublicKey() []byte

	CreateEncryptedInput(contract, user common.Address) (EncryptedInput, error)

	// GenerateKeypair returns a fresh ephemeral keypair for re-encryption.
	GenerateKeypair() (*Keypair, error)

	// Reencrypt asks the network to re-encrypt the handle under the request's
	// public key and returns the opened cleartext.
	Reencrypt(ctx context.Context, req *ReencryptRequest) (*uint256.Int, error)

	Close() error
}

// EncryptedInput accumulates typed cleartexts and encrypts them in one batch.
type EncryptedInput interface {
	AddBool(v bool) error
	Add8(v uint8) error
	Add16(v uint16) error
	Add32(v uint32) error
	Add64(v uint64) error
	Add128(v *uint256.Int) error
	Add256(v *uint256.Int) error
	AddAddress(v common.Address) error

	Encrypt(ctx context.Context) (*fhevm.SealedPayload, error)
}

// Keypair is an ephemeral re-encryption keypair.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// ReencryptRequest carries everything the network needs to authorize a
// re-encryption, and the private key needed to open the result.
type ReencryptRequest struct {
	Handle    fhevm.Handle
	Keypair   Keypair
	Signature []byte
	Contract  common.Address
	User      common.Address
}
