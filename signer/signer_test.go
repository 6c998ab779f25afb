// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/geth/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhevm"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var testAuth = fhevm.Authorization{
	ChainID:           fhevm.SepoliaChainID,
	VerifyingContract: common.HexToAddress("0x1000000000000000000000000000000000000001"),
	PublicKey:         []byte{0xde, 0xad, 0xbe, 0xef},
}

type codedError struct {
	code int
}

func (e codedError) Error() string  { return "rpc failure" }
func (e codedError) ErrorCode() int { return e.code }

func TestLocalSignerRecovers(t *testing.T) {
	require := require.New(t)

	s, err := NewLocalSignerFromHex("0x" + testKey)
	require.NoError(err)

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(err)
	require.Equal(common.PubkeyToAddress(key.PublicKey), s.Address())

	sig, err := s.SignTypedData(context.Background(), testAuth)
	require.NoError(err)
	require.Len(sig, fhevm.SignatureLen)
	require.Contains([]byte{27, 28}, sig[64])

	recovered, err := testAuth.RecoverSigner(sig)
	require.NoError(err)
	require.Equal(s.Address(), recovered)

	other := testAuth
	other.VerifyingContract = common.HexToAddress("0x3000000000000000000000000000000000000003")
	recovered, err = other.RecoverSigner(sig)
	require.NoError(err)
	require.NotEqual(s.Address(), recovered)
}

func TestNewLocalSignerFromHexInvalid(t *testing.T) {
	_, err := NewLocalSignerFromHex("0x1234")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("connection reset")},
		{name: "eip-1193 code", err: codedError{code: 4001}, rejected: true},
		{name: "other code", err: codedError{code: -32000}},
		{name: "wallet message", err: errors.New("MetaMask Tx Signature: User denied message signature."), rejected: true},
		{name: "already classified", err: fhevm.ErrSigningRejected, rejected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			require.Equal(t, tt.rejected, errors.Is(err, fhevm.ErrSigningRejected))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestFuncSigner(t *testing.T) {
	s := Func{
		Addr: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Sign: func(context.Context, fhevm.Authorization) ([]byte, error) {
			return nil, codedError{code: 4001}
		},
	}
	_, err := s.SignTypedData(context.Background(), testAuth)
	require.ErrorIs(t, err, fhevm.ErrSigningRejected)
	require.True(t, fhevm.IsRetryable(err))
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

func newWalletServer(t *testing.T, local *LocalSigner, reject bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_signTypedData_v4", req.Method)
		require.Len(t, req.Params, 2)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if reject {
			resp["error"] = map[string]any{"code": 4001, "message": "User rejected the request."}
		} else {
			// Hash the payload the way a wallet would, from the JSON alone.
			payload, ok := req.Params[1].(string)
			require.True(t, ok)
			var typed apitypes.TypedData
			require.NoError(t, json.Unmarshal([]byte(payload), &typed))
			digest, _, err := apitypes.TypedDataAndHash(typed)
			require.NoError(t, err)
			sig, err := crypto.Sign(digest, local.key)
			require.NoError(t, err)
			sig[64] += 27
			resp["result"] = hexutil.Encode(sig)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestRemoteSigner(t *testing.T) {
	local, err := NewLocalSignerFromHex(testKey)
	require.NoError(t, err)

	t.Run("signs", func(t *testing.T) {
		require := require.New(t)

		srv := newWalletServer(t, local, false)
		defer srv.Close()

		remote, err := DialRemoteSigner(context.Background(), srv.URL, local.Address())
		require.NoError(err)
		defer remote.Close()

		sig, err := remote.SignTypedData(context.Background(), testAuth)
		require.NoError(err)
		recovered, err := testAuth.RecoverSigner(sig)
		require.NoError(err)
		require.Equal(local.Address(), recovered)
	})

	t.Run("rejects", func(t *testing.T) {
		require := require.New(t)

		srv := newWalletServer(t, local, true)
		defer srv.Close()

		remote, err := DialRemoteSigner(context.Background(), srv.URL, local.Address())
		require.NoError(err)
		defer remote.Close()

		_, err = remote.SignTypedData(context.Background(), testAuth)
		require.ErrorIs(err, fhevm.ErrSigningRejected)
	})
}
