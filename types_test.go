// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueTypeBits(t *testing.T) {
	tests := []struct {
		t    ValueType
		bits int
	}{
		{TypeBool, 2},
		{TypeUint8, 8},
		{TypeUint16, 16},
		{TypeUint32, 32},
		{TypeUint64, 64},
		{TypeUint128, 128},
		{TypeAddress, 160},
		{TypeUint256, 256},
		{ValueType(1), 0},
	}
	for _, test := range tests {
		require.Equal(t, test.bits, test.t.Bits(), test.t.String())
		require.Equal(t, test.bits != 0, test.t.Valid(), test.t.String())
	}
}

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in   string
		want ValueType
		err  error
	}{
		{in: "ebool", want: TypeBool},
		{in: "uint8", want: TypeUint8},
		{in: " EUINT128 ", want: TypeUint128},
		{in: "address", want: TypeAddress},
		{in: "euint4", err: ErrUnsupportedType},
		{in: "", err: ErrUnsupportedType},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseValueType(test.in)
			require.ErrorIs(t, err, test.err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestValueTypeText(t *testing.T) {
	require := require.New(t)

	for _, typ := range ValueTypes {
		b, err := typ.MarshalText()
		require.NoError(err)
		var parsed ValueType
		require.NoError(parsed.UnmarshalText(b))
		require.Equal(typ, parsed)
	}

	_, err := ValueType(9).MarshalText()
	require.ErrorIs(err, ErrUnsupportedType)
}
