// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm/cache"
)

const DefaultABICacheSize = 32

var (
	ErrNoBackend  = errors.New("contract requires a provider or signer")
	ErrInvalidABI = errors.New("invalid contract ABI")
)

// Binder creates contract handles. Parsed ABIs are cached by content hash.
type Binder struct {
	log  log.Logger
	abis *cache.LRUCache[common.Hash, *abi.ABI]
}

func NewBinder(logger log.Logger, cacheSize int) *Binder {
	if cacheSize <= 0 {
		cacheSize = DefaultABICacheSize
	}
	return &Binder{
		log:  logger,
		abis: cache.NewLRUCache[common.Hash, *abi.ABI](cacheSize),
	}
}

// Bind returns a handle to the contract at address. backend is either a
// read-only provider or a Wallet. Only handles bound to a Wallet can send
// transactions.
func (b *Binder) Bind(address common.Address, abiJSON string, backend Backend) (*Handle, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	parsed, err := b.parse(abiJSON)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		log:     b.log,
		address: address,
		abi:     parsed,
		backend: backend,
	}
	if s, ok := backend.(TxSigner); ok {
		h.signer = s
	}
	b.log.Debug(
		"Bound contract",
		log.Stringer("address", address),
		log.Int("methods", len(parsed.Methods)),
	)
	return h, nil
}

func (b *Binder) parse(abiJSON string) (*abi.ABI, error) {
	key := common.Keccak256Hash([]byte(abiJSON))
	return b.abis.Get(context.Background(), key, func(context.Context, common.Hash) (*abi.ABI, error) {
		parsed, err := abi.JSON(strings.NewReader(abiJSON))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidABI, err)
		}
		return &parsed, nil
	}, false)
}
