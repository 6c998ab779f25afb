// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/geth/rpc"

	"github.com/luxfi/fhevm"
)

var _ Signer = (*RemoteSigner)(nil)

// RemoteSigner delegates signing to a wallet or node exposing
// eth_signTypedData_v4.
type RemoteSigner struct {
	client *rpc.Client
	addr   common.Address
}

// DialRemoteSigner connects to the JSON-RPC endpoint at url.
func DialRemoteSigner(ctx context.Context, url string, addr common.Address) (*RemoteSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial signer %s: %w", url, err)
	}
	return NewRemoteSigner(client, addr), nil
}

func NewRemoteSigner(client *rpc.Client, addr common.Address) *RemoteSigner {
	return &RemoteSigner{
		client: client,
		addr:   addr,
	}
}

func (s *RemoteSigner) Address() common.Address {
	return s.addr
}

func (s *RemoteSigner) SignTypedData(ctx context.Context, auth fhevm.Authorization) ([]byte, error) {
	typed, err := json.Marshal(auth.TypedData())
	if err != nil {
		return nil, err
	}
	var sig hexutil.Bytes
	if err := s.client.CallContext(ctx, &sig, "eth_signTypedData_v4", s.addr, string(typed)); err != nil {
		return nil, Classify(err)
	}
	if len(sig) != fhevm.SignatureLen {
		return nil, fmt.Errorf("signer returned %d byte signature", len(sig))
	}
	return sig, nil
}

func (s *RemoteSigner) Close() {
	s.client.Close()
}
