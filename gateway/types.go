// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway implements the HTTP API between fhEVM clients and the
// network's relayer: key discovery, input verification and user decryption.
package gateway

import (
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/fhevm"
)

const (
	KeyURLPath      = "/keyurl"
	PublicKeyPath   = "/publickey"
	InputProofPath  = "/input-proof"
	UserDecryptPath = "/user-decrypt"
	HealthPath      = "/health"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Envelope wraps every successful response.
type Envelope[T any] struct {
	Status   string `json:"status"`
	Response T      `json:"response"`
}

type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// KeyRef locates key material. Data is set when the key is served inline.
type KeyRef struct {
	DataID string        `json:"data_id"`
	URLs   []string      `json:"urls"`
	Data   hexutil.Bytes `json:"data,omitempty"`
}

type FheKeyInfo struct {
	FhePublicKey KeyRef `json:"fhe_public_key"`
}

// KeyURLResult describes the network keys.
type KeyURLResult struct {
	ChainID           uint64        `json:"chain_id"`
	FheKeyInfo        []FheKeyInfo  `json:"fhe_key_info"`
	VerifierPublicKey hexutil.Bytes `json:"verifier_public_key"`
}

// InputProofRequest submits encrypted values for verification. All values
// of one input are packed into a single ciphertext, in Types order.
type InputProofRequest struct {
	ContractChainID uint64            `json:"contractChainId"`
	ContractAddress common.Address    `json:"contractAddress"`
	UserAddress     common.Address    `json:"userAddress"`
	Types           []fhevm.ValueType `json:"types"`
	Ciphertext      hexutil.Bytes     `json:"ciphertext"`
}

// InputProofResult carries the handles assigned to the ciphertexts and the
// verifier's attestation over them.
type InputProofResult struct {
	Handles []fhevm.Handle `json:"handles"`
	Proof   hexutil.Bytes  `json:"inputProof"`
}

// UserDecryptRequest asks for a handle to be re-encrypted under PublicKey.
type UserDecryptRequest struct {
	ContractChainID uint64         `json:"contractChainId"`
	Handle          fhevm.Handle   `json:"handle"`
	ContractAddress common.Address `json:"contractAddress"`
	UserAddress     common.Address `json:"userAddress"`
	PublicKey       hexutil.Bytes  `json:"publicKey"`
	Signature       hexutil.Bytes  `json:"signature"`
}

// UserDecryptResult is the cleartext sealed to the request's public key.
type UserDecryptResult struct {
	Payload hexutil.Bytes `json:"payload"`
}
