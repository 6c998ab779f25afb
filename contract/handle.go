// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"
)

// If the base fee is known, allow it to triple before the transaction is
// included.
const baseFeeFactor = 3

var ErrReadOnly = errors.New("contract bound without a signer")

// Handle is a bound contract.
type Handle struct {
	log     log.Logger
	address common.Address
	abi     *abi.ABI
	backend Backend
	signer  TxSigner

	// Held from nonce lookup until the transaction is sent so concurrent
	// Transact calls do not reuse a nonce.
	nonceLock sync.Mutex
}

func (h *Handle) Address() common.Address {
	return h.address
}

func (h *Handle) ABI() *abi.ABI {
	return h.abi
}

// CanTransact reports whether the handle was bound with a signer.
func (h *Handle) CanTransact() bool {
	return h.signer != nil
}

// Pack encodes a call to method.
func (h *Handle) Pack(method string, args ...any) ([]byte, error) {
	return h.abi.Pack(method, args...)
}

// Call executes a read-only call against the latest block.
func (h *Handle) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := h.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	msg := ethereum.CallMsg{To: &h.address, Data: data}
	if h.signer != nil {
		msg.From = h.signer.Address()
	}
	out, err := h.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return h.abi.Unpack(method, out)
}

// Transact signs and sends a transaction calling method. It returns once the
// node accepted the transaction.
func (h *Handle) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if h.signer == nil {
		return nil, ErrReadOnly
	}
	data, err := h.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	from := h.signer.Address()

	chainID, err := h.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := h.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &h.address, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s: %w", method, err)
	}
	head, err := h.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}

	h.nonceLock.Lock()
	defer h.nonceLock.Unlock()

	nonce, err := h.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := h.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, err
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(baseFeeFactor))
		feeCap.Add(feeCap, tip)
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &h.address,
			Data:      data,
		})
	} else {
		price, err := h.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &h.address,
			Data:     data,
		})
	}

	signed, err := h.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	if err := h.backend.SendTransaction(ctx, signed); err != nil {
		h.log.Error(
			"Failed to send transaction",
			log.Stringer("contract", h.address),
			log.String("method", method),
			log.Err(err),
		)
		return nil, err
	}
	h.log.Info(
		"Sent transaction",
		log.Stringer("txID", signed.Hash()),
		log.Stringer("contract", h.address),
		log.String("method", method),
		log.Uint64("nonce", nonce),
	)
	return signed, nil
}
