// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationRecover(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	addr := common.PubkeyToAddress(key.PublicKey)

	auth := Authorization{
		ChainID:           SepoliaChainID,
		VerifyingContract: common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
		PublicKey:         make([]byte, 32),
	}
	digest, err := auth.Digest()
	require.NoError(err)
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(err)

	got, err := auth.RecoverSigner(sig)
	require.NoError(err)
	require.Equal(addr, got)

	// Wallets return V as 27/28.
	sig[64] += 27
	got, err = auth.RecoverSigner(sig)
	require.NoError(err)
	require.Equal(addr, got)

	_, err = auth.RecoverSigner(sig[:64])
	require.ErrorIs(err, errBadSignatureLength)
}

func TestAuthorizationDigestBinding(t *testing.T) {
	base := Authorization{
		ChainID:           LocalChainID,
		VerifyingContract: common.HexToAddress("0x01"),
		PublicKey:         []byte{1, 2, 3},
	}
	tests := []struct {
		name   string
		modify func(*Authorization)
	}{
		{name: "chain", modify: func(a *Authorization) { a.ChainID++ }},
		{name: "contract", modify: func(a *Authorization) { a.VerifyingContract = common.HexToAddress("0x02") }},
		{name: "public key", modify: func(a *Authorization) { a.PublicKey = []byte{1, 2, 4} }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			other := base
			test.modify(&other)
			baseDigest, err := base.Digest()
			require.NoError(t, err)
			otherDigest, err := other.Digest()
			require.NoError(t, err)
			require.NotEqual(t, baseDigest, otherDigest)
		})
	}
}

func TestAuthorizationTypedData(t *testing.T) {
	require := require.New(t)

	auth := Authorization{
		ChainID:           LocalChainID,
		VerifyingContract: common.HexToAddress("0x01"),
		PublicKey:         []byte{0xab},
	}
	td := auth.TypedData()
	require.Equal(AuthorizationPrimaryType, td.PrimaryType)
	require.Equal(AuthorizationDomainName, td.Domain.Name)
	require.Equal(AuthorizationDomainVersion, td.Domain.Version)
	require.Equal(uint64(LocalChainID), (*big.Int)(td.Domain.ChainId).Uint64())
	require.Equal(hexutil.Bytes{0xab}, td.Message["publicKey"])

	encoded, err := json.Marshal(td)
	require.NoError(err)
	var decoded map[string]any
	require.NoError(json.Unmarshal(encoded, &decoded))
	require.Equal("Reencrypt", decoded["primaryType"])
	require.Equal(map[string]any{"publicKey": "0xab"}, decoded["message"])
}

// The digest must match the EIP-712 encoding of
// Reencrypt(bytes publicKey) under the authorization domain.
func TestAuthorizationDigestEncoding(t *testing.T) {
	tests := []struct {
		name string
		auth Authorization
	}{
		{
			name: "sepolia",
			auth: Authorization{
				ChainID:           SepoliaChainID,
				VerifyingContract: common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
				PublicKey:         bytes.Repeat([]byte{0x42}, 32),
			},
		},
		{
			name: "empty public key",
			auth: Authorization{
				ChainID:           LocalChainID,
				VerifyingContract: common.HexToAddress("0x01"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			domainType := common.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
			chainID := uint256.NewInt(test.auth.ChainID).Bytes32()
			domain := common.Keccak256(
				domainType,
				common.Keccak256([]byte(AuthorizationDomainName)),
				common.Keccak256([]byte(AuthorizationDomainVersion)),
				chainID[:],
				common.LeftPadBytes(test.auth.VerifyingContract.Bytes(), 32),
			)
			structHash := common.Keccak256(
				common.Keccak256([]byte("Reencrypt(bytes publicKey)")),
				common.Keccak256(test.auth.PublicKey),
			)
			want := common.Keccak256Hash([]byte{0x19, 0x01}, domain, structHash)

			got, err := test.auth.Digest()
			require.NoError(err)
			require.Equal(want, got)
		})
	}
}
