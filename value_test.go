// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestNewValue(t *testing.T) {
	addr := common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	maxU256 := new(uint256.Int).SetAllOne()
	twoTo128 := new(big.Int).Lsh(big.NewInt(1), 128)

	tests := []struct {
		name string
		t    ValueType
		raw  any
		want string
		err  error
	}{
		{name: "bool", t: TypeBool, raw: true, want: "true"},
		{name: "bool from int", t: TypeBool, raw: 1, want: "true"},
		{name: "bool from string", t: TypeBool, raw: "false", want: "false"},
		{name: "bool overflow", t: TypeBool, raw: 2, err: ErrValueOutOfRange},
		{name: "bool for uint8", t: TypeUint8, raw: true, err: ErrValueOutOfRange},
		{name: "bool string for uint8", t: TypeUint8, raw: "true", err: ErrValueOutOfRange},
		{name: "bool string for uint256", t: TypeUint256, raw: "false", err: ErrValueOutOfRange},
		{name: "bool string for address", t: TypeAddress, raw: "true", err: ErrValueOutOfRange},
		{name: "uint8 max", t: TypeUint8, raw: uint8(255), want: "255"},
		{name: "uint8 overflow", t: TypeUint8, raw: 256, err: ErrValueOutOfRange},
		{name: "negative", t: TypeUint32, raw: -1, err: ErrValueOutOfRange},
		{name: "decimal string", t: TypeUint64, raw: "18446744073709551615", want: "18446744073709551615"},
		{name: "hex string", t: TypeUint16, raw: "0x00ff", want: "255"},
		{name: "zero hex", t: TypeUint16, raw: "0x0", want: "0"},
		{name: "bad string", t: TypeUint16, raw: "twelve", err: ErrValueOutOfRange},
		{name: "uint128 overflow", t: TypeUint128, raw: twoTo128, err: ErrValueOutOfRange},
		{name: "negative big", t: TypeUint128, raw: big.NewInt(-5), err: ErrValueOutOfRange},
		{name: "uint256 max", t: TypeUint256, raw: maxU256, want: maxU256.Dec()},
		{name: "address", t: TypeAddress, raw: addr, want: addr.Hex()},
		{name: "unsupported type", t: ValueType(1), raw: 1, err: ErrUnsupportedType},
		{name: "unsupported shape", t: TypeUint64, raw: 1.5, err: ErrValueOutOfRange},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			v, err := NewValue(test.t, test.raw)
			require.ErrorIs(err, test.err)
			if test.err != nil {
				return
			}
			require.Equal(test.t, v.Type)
			require.Equal(test.want, v.String())
		})
	}
}

func TestValueAccessors(t *testing.T) {
	require := require.New(t)

	addr := common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	require.Equal(addr, MustValue(TypeAddress, addr).Address())
	require.Equal(uint64(42), MustValue(TypeUint8, 42).Uint64())
	require.True(MustValue(TypeBool, true).Bool())
	require.Zero(MustValue(TypeUint256, "1").Big().Cmp(big.NewInt(1)))

	require.Panics(func() { MustValue(TypeUint8, 300) })
}
