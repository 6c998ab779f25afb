// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
)

// CodecVersion is prefixed to every encoded record.
const CodecVersion uint16 = 0

var errUnknownCodecVersion = errors.New("unknown codec version")

// CodecImpl serializes input proofs and stored records as a two byte version
// followed by the RLP encoding of the value.
type CodecImpl struct{}

// Codec is the default codec instance
var Codec = &CodecImpl{}

// Marshal serializes v under the given version.
func (*CodecImpl) Marshal(version uint16, v any) ([]byte, error) {
	if version != CodecVersion {
		return nil, fmt.Errorf("%w: %d", errUnknownCodecVersion, version)
	}
	body, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2+len(body))
	out[0] = byte(version >> 8)
	out[1] = byte(version)
	copy(out[2:], body)
	return out, nil
}

// Unmarshal deserializes b into v and returns the version it was encoded with.
func (*CodecImpl) Unmarshal(b []byte, v any) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("codec: record too short (%d bytes)", len(b))
	}
	version := uint16(b[0])<<8 | uint16(b[1])
	if version != CodecVersion {
		return version, fmt.Errorf("%w: %d", errUnknownCodecVersion, version)
	}
	return version, rlp.DecodeBytes(b[2:], v)
}
