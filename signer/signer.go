// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer signs re-encryption authorizations on behalf of a user.
package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rpc"

	"github.com/luxfi/fhevm"
)

// codeUserRejected is the EIP-1193 error code for a declined request.
const codeUserRejected = 4001

// Signer signs EIP-712 authorizations.
type Signer interface {
	Address() common.Address

	// SignTypedData returns a 65-byte [R || S || V] signature over
	// auth.Digest(). Declined requests fail with fhevm.ErrSigningRejected.
	SignTypedData(ctx context.Context, auth fhevm.Authorization) ([]byte, error)
}

// Func adapts a function to the Signer interface.
type Func struct {
	Addr common.Address
	Sign func(ctx context.Context, auth fhevm.Authorization) ([]byte, error)
}

func (f Func) Address() common.Address {
	return f.Addr
}

func (f Func) SignTypedData(ctx context.Context, auth fhevm.Authorization) ([]byte, error) {
	sig, err := f.Sign(ctx, auth)
	if err != nil {
		return nil, Classify(err)
	}
	return sig, nil
}

// Classify wraps err with fhevm.ErrSigningRejected when it represents a user
// declining the request. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, fhevm.ErrSigningRejected) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return fmt.Errorf("%w: %w", fhevm.ErrSigningRejected, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") {
		return fmt.Errorf("%w: %w", fhevm.ErrSigningRejected, err)
	}
	return err
}
