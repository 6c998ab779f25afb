// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Value is a validated cleartext bound to its encrypted type.
type Value struct {
	Type ValueType
	Int  uint256.Int
}

// NewValue converts raw into a Value of type t. Accepted shapes are bool,
// Go integer kinds, *big.Int, *uint256.Int, common.Address and strings in
// decimal or 0x-prefixed hex. Any other shape is rejected.
func NewValue(t ValueType, raw any) (Value, error) {
	if !t.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(t))
	}

	v := Value{Type: t}
	switch x := raw.(type) {
	case bool:
		if t != TypeBool {
			return Value{}, fmt.Errorf("%w: bool given for %s", ErrValueOutOfRange, t)
		}
		if x {
			v.Int.SetOne()
		}
	case uint8:
		v.Int.SetUint64(uint64(x))
	case uint16:
		v.Int.SetUint64(uint64(x))
	case uint32:
		v.Int.SetUint64(uint64(x))
	case uint64:
		v.Int.SetUint64(x)
	case uint:
		v.Int.SetUint64(uint64(x))
	case int:
		if err := setSigned(&v.Int, int64(x)); err != nil {
			return Value{}, err
		}
	case int8:
		if err := setSigned(&v.Int, int64(x)); err != nil {
			return Value{}, err
		}
	case int16:
		if err := setSigned(&v.Int, int64(x)); err != nil {
			return Value{}, err
		}
	case int32:
		if err := setSigned(&v.Int, int64(x)); err != nil {
			return Value{}, err
		}
	case int64:
		if err := setSigned(&v.Int, x); err != nil {
			return Value{}, err
		}
	case *big.Int:
		if x == nil || x.Sign() < 0 {
			return Value{}, fmt.Errorf("%w: negative or nil integer", ErrValueOutOfRange)
		}
		if v.Int.SetFromBig(x) {
			return Value{}, fmt.Errorf("%w: %s overflows 256 bits", ErrValueOutOfRange, x)
		}
	case *uint256.Int:
		if x == nil {
			return Value{}, fmt.Errorf("%w: nil integer", ErrValueOutOfRange)
		}
		v.Int.Set(x)
	case uint256.Int:
		v.Int.Set(&x)
	case common.Address:
		v.Int.SetBytes(x.Bytes())
	case string:
		if err := setString(&v.Int, t, x); err != nil {
			return Value{}, err
		}
	default:
		return Value{}, fmt.Errorf("%w: cannot encode %T as %s", ErrValueOutOfRange, raw, t)
	}

	if err := v.Validate(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// MustValue is like NewValue but panics on error. Intended for constants.
func MustValue(t ValueType, raw any) Value {
	v, err := NewValue(t, raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks that the value fits the domain of its type.
func (v Value) Validate() error {
	if !v.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedType, uint8(v.Type))
	}
	if v.Type == TypeBool {
		if v.Int.GtUint64(1) {
			return fmt.Errorf("%w: %s is not a boolean", ErrValueOutOfRange, v.Int.Dec())
		}
		return nil
	}
	if bits := v.Type.Bits(); v.Int.BitLen() > bits {
		return fmt.Errorf("%w: %s needs %d bits, %s holds %d", ErrValueOutOfRange, v.Int.Dec(), v.Int.BitLen(), v.Type, bits)
	}
	return nil
}

// Bool returns the value as a boolean.
func (v Value) Bool() bool {
	return !v.Int.IsZero()
}

// Uint64 returns the low 64 bits of the value.
func (v Value) Uint64() uint64 {
	return v.Int.Uint64()
}

// Address returns the value as a 20-byte address.
func (v Value) Address() common.Address {
	b := v.Int.Bytes20()
	return common.Address(b)
}

// Big returns a copy of the value as a *big.Int.
func (v Value) Big() *big.Int {
	return v.Int.ToBig()
}

func (v Value) String() string {
	switch v.Type {
	case TypeBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TypeAddress:
		return v.Address().Hex()
	default:
		return v.Int.Dec()
	}
}

// ClearValue is the result of decrypting a handle.
type ClearValue = Value

func setSigned(z *uint256.Int, x int64) error {
	if x < 0 {
		return fmt.Errorf("%w: negative value %d", ErrValueOutOfRange, x)
	}
	z.SetUint64(uint64(x))
	return nil
}

// setString parses decimal or 0x-prefixed hex. The literals "true" and
// "false" are only accepted for ebool.
func setString(z *uint256.Int, t ValueType, s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "true" || s == "false":
		if t != TypeBool {
			return fmt.Errorf("%w: %q is not a %s", ErrValueOutOfRange, s, t)
		}
		if s == "true" {
			z.SetOne()
		} else {
			z.Clear()
		}
		return nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		hex := strings.TrimLeft(s[2:], "0")
		if hex == "" {
			z.Clear()
			return nil
		}
		if err := z.SetFromHex("0x" + hex); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrValueOutOfRange, s, err)
		}
		return nil
	default:
		if err := z.SetFromDecimal(s); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrValueOutOfRange, s, err)
		}
		return nil
	}
}
