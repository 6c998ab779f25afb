// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package fhevm holds the types shared by the fhEVM client components:
// value types and cleartext values, ciphertext handles, sealed payloads,
// configuration and the error taxonomy.
package fhevm

import (
	"fmt"
	"strings"
)

// ValueType is the encrypted type of a value. The set is closed.
type ValueType uint8

// Type ids match the on-chain FheType encoding stored in byte 30 of a handle.
const (
	TypeBool    ValueType = 0
	TypeUint8   ValueType = 2
	TypeUint16  ValueType = 3
	TypeUint32  ValueType = 4
	TypeUint64  ValueType = 5
	TypeUint128 ValueType = 6
	TypeAddress ValueType = 7
	TypeUint256 ValueType = 8
)

// ValueTypes lists every supported type in declaration order.
var ValueTypes = []ValueType{
	TypeBool,
	TypeUint8,
	TypeUint16,
	TypeUint32,
	TypeUint64,
	TypeUint128,
	TypeUint256,
	TypeAddress,
}

// Valid reports whether t belongs to the closed set.
func (t ValueType) Valid() bool {
	switch t {
	case TypeBool, TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeUint128, TypeUint256, TypeAddress:
		return true
	default:
		return false
	}
}

// Bits is the plaintext width of the type. Bool counts as 2 bits, as it
// does against the per-input bit budget on chain.
func (t ValueType) Bits() int {
	switch t {
	case TypeBool:
		return 2
	case TypeUint8:
		return 8
	case TypeUint16:
		return 16
	case TypeUint32:
		return 32
	case TypeUint64:
		return 64
	case TypeUint128:
		return 128
	case TypeAddress:
		return 160
	case TypeUint256:
		return 256
	default:
		return 0
	}
}

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "ebool"
	case TypeUint8:
		return "euint8"
	case TypeUint16:
		return "euint16"
	case TypeUint32:
		return "euint32"
	case TypeUint64:
		return "euint64"
	case TypeUint128:
		return "euint128"
	case TypeUint256:
		return "euint256"
	case TypeAddress:
		return "eaddress"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseValueType parses "ebool", "euint8".."euint256" and "eaddress". The
// leading "e" may be omitted.
func ParseValueType(s string) (ValueType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "e") {
		name = "e" + name
	}
	for _, t := range ValueTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ValueType) UnmarshalText(b []byte) error {
	v, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
