// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Index uint8
	Data  []byte
}

func TestCodec(t *testing.T) {
	require := require.New(t)

	in := testRecord{Index: 7, Data: []byte("ciphertext")}
	b, err := Codec.Marshal(CodecVersion, in)
	require.NoError(err)
	require.Equal([]byte{0, 0}, b[:2])

	var out testRecord
	version, err := Codec.Unmarshal(b, &out)
	require.NoError(err)
	require.Equal(CodecVersion, version)
	require.Equal(in, out)
}

func TestCodecErrors(t *testing.T) {
	require := require.New(t)

	_, err := Codec.Marshal(1, testRecord{})
	require.ErrorIs(err, errUnknownCodecVersion)

	var out testRecord
	_, err = Codec.Unmarshal([]byte{0}, &out)
	require.Error(err)

	version, err := Codec.Unmarshal([]byte{0, 1, 0xc0}, &out)
	require.ErrorIs(err, errUnknownCodecVersion)
	require.Equal(uint16(1), version)
}
