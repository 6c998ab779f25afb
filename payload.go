// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"bytes"

	"github.com/luxfi/geth/common/hexutil"
)

const (
	// MaxInputValues is the maximum number of values in one encrypted input
	MaxInputValues = 256

	// MaxInputBits is the maximum number of plaintext bits in one encrypted input
	MaxInputBits = 2048
)

// SealedPayload is the result of sealing an encrypted input: the handles to
// pass as externalEuintXX arguments and the proof to pass as inputProof.
type SealedPayload struct {
	Handles []Handle      `json:"handles"`
	Proof   hexutil.Bytes `json:"inputProof"`
}

// Bytes32 returns the handles in the form expected by ABI packing.
func (p *SealedPayload) Bytes32() [][32]byte {
	out := make([][32]byte, len(p.Handles))
	for i, h := range p.Handles {
		out[i] = h
	}
	return out
}

// Equal reports whether both payloads carry the same handles and proof.
func (p *SealedPayload) Equal(other *SealedPayload) bool {
	if p == nil || other == nil {
		return p == other
	}
	if len(p.Handles) != len(other.Handles) {
		return false
	}
	for i := range p.Handles {
		if p.Handles[i] != other.Handles[i] {
			return false
		}
	}
	return bytes.Equal(p.Proof, other.Proof)
}
