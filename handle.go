// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
)

const (
	// HandleLen is the length of a ciphertext handle
	HandleLen = 32

	// HandleVersion is written in the last byte of every handle
	HandleVersion = 0

	handleHashLen = 21
)

// Handle is an opaque on-chain reference to a ciphertext.
//
// Layout: hash[0:21] | index[21] | chainID[22:30] | type[30] | version[31]
type Handle [HandleLen]byte

// NewHandle derives the handle of the index-th ciphertext of an input whose
// ciphertexts hash to inputHash.
func NewHandle(inputHash common.Hash, index uint8, chainID uint64, t ValueType) Handle {
	digest := common.Keccak256(inputHash.Bytes(), []byte{index})

	var h Handle
	copy(h[:handleHashLen], digest[:handleHashLen])
	h[21] = index
	binary.BigEndian.PutUint64(h[22:30], chainID)
	h[30] = byte(t)
	h[31] = HandleVersion
	return h
}

// HandleFromBytes parses a 32-byte handle.
func HandleFromBytes(b []byte) (Handle, error) {
	var h Handle
	if len(b) != HandleLen {
		return h, fmt.Errorf("invalid handle length %d, expected %d", len(b), HandleLen)
	}
	copy(h[:], b)
	return h, nil
}

// HandleFromHex parses a 0x-prefixed hex handle.
func HandleFromHex(s string) (Handle, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return HandleFromBytes(b)
}

// Index is the position of the ciphertext within its sealed input.
func (h Handle) Index() uint8 {
	return h[21]
}

// ChainID is the chain the handle was produced for.
func (h Handle) ChainID() uint64 {
	return binary.BigEndian.Uint64(h[22:30])
}

// Type is the encrypted type of the referenced ciphertext.
func (h Handle) Type() ValueType {
	return ValueType(h[30])
}

// Version is the handle layout version.
func (h Handle) Version() uint8 {
	return h[31]
}

// Bytes returns a copy of the handle bytes.
func (h Handle) Bytes() []byte {
	b := make([]byte, HandleLen)
	copy(b, h[:])
	return b
}

// Hash returns the handle as a common.Hash (bytes32 in ABI calls).
func (h Handle) Hash() common.Hash {
	return common.Hash(h)
}

func (h Handle) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(b []byte) error {
	v, err := HandleFromHex(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
