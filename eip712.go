// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/geth/common/math"
	"github.com/luxfi/geth/signer/core/apitypes"
)

const (
	AuthorizationDomainName    = "Authorization token"
	AuthorizationDomainVersion = "1"
	AuthorizationPrimaryType   = "Reencrypt"

	// SignatureLen is the length of an [R || S || V] secp256k1 signature
	SignatureLen = 65
)

var (
	authorizationTypes = apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		AuthorizationPrimaryType: {
			{Name: "publicKey", Type: "bytes"},
		},
	}

	errBadSignatureLength = errors.New("invalid signature length")
)

// Authorization is the typed-data message a user signs to allow the gateway
// to re-encrypt values of verifyingContract under publicKey.
type Authorization struct {
	ChainID           uint64
	VerifyingContract common.Address
	PublicKey         []byte
}

// TypedData returns the eth_signTypedData_v4 payload for the authorization.
func (a Authorization) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types:       authorizationTypes,
		PrimaryType: AuthorizationPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              AuthorizationDomainName,
			Version:           AuthorizationDomainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(a.ChainID)),
			VerifyingContract: a.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey": hexutil.Bytes(a.PublicKey),
		},
	}
}

// Digest returns keccak256("\x19\x01" || domainSeparator || hashStruct(Reencrypt)).
func (a Authorization) Digest() (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(a.TypedData())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash authorization: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// RecoverSigner returns the address that produced sig over the authorization.
func (a Authorization) RecoverSigner(sig []byte) (common.Address, error) {
	digest, err := a.Digest()
	if err != nil {
		return common.Address{}, err
	}
	return RecoverDigestSigner(digest, sig)
}

// RecoverDigestSigner recovers the signer of a 32-byte digest. V may be
// either 0/1 or 27/28.
func RecoverDigestSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLen {
		return common.Address{}, fmt.Errorf("%w: %d", errBadSignatureLength, len(sig))
	}
	normalized := make([]byte, SignatureLen)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return common.PubkeyToAddress(*pub), nil
}
