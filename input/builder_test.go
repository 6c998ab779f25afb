// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package input

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/engine/enginetest"
	"github.com/luxfi/fhevm/session"
)

var (
	testContract = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testUser     = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func newTestBuilder(t *testing.T) (*Builder, *enginetest.Engine) {
	t.Helper()

	eng := enginetest.New("test")
	store := session.NewStore(
		log.NewNoOpLogger(),
		session.NewInitializer(
			log.NewNoOpLogger(),
			eng,
			session.WithPreloaded(func() (engine.Engine, bool) { return nil, false }),
		),
	)
	_, err := store.Initialize(context.Background(), fhevm.Config{
		ChainID:    fhevm.SepoliaChainID,
		PublicKey:  []byte{0x01},
		GatewayURL: "https://gateway.example",
		NetworkURL: "https://rpc.example",
	})
	require.NoError(t, err)
	return NewBuilder(log.NewNoOpLogger(), store), eng
}

func TestCreateInputBeforeInitialize(t *testing.T) {
	store := session.NewStore(log.NewNoOpLogger(), session.NewInitializer(log.NewNoOpLogger(), nil))
	b := NewBuilder(log.NewNoOpLogger(), store)

	_, err := b.CreateInput(testContract, testUser)
	require.ErrorIs(t, err, fhevm.ErrNotInitialized)
}

func TestTypeDispatch(t *testing.T) {
	tests := []struct {
		typ          fhevm.ValueType
		raw          any
		expectedCall string
	}{
		{fhevm.TypeBool, true, "AddBool"},
		{fhevm.TypeUint8, uint8(200), "Add8"},
		{fhevm.TypeUint16, 60000, "Add16"},
		{fhevm.TypeUint32, uint32(1 << 31), "Add32"},
		{fhevm.TypeUint64, uint64(1 << 63), "Add64"},
		{fhevm.TypeUint128, "340282366920938463463374607431768211455", "Add128"},
		{fhevm.TypeUint256, new(uint256.Int).Lsh(uint256.NewInt(1), 255), "Add256"},
		{fhevm.TypeAddress, testUser, "AddAddress"},
	}
	require.Len(t, tests, len(fhevm.ValueTypes))

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			require := require.New(t)

			b, eng := newTestBuilder(t)
			d, err := b.CreateInput(testContract, testUser)
			require.NoError(err)

			require.NoError(d.AddValue(tt.raw, tt.typ))
			require.Equal([]string{tt.expectedCall}, d.input.(*enginetest.Input).Calls)

			payload, err := d.Seal(context.Background())
			require.NoError(err)
			require.Len(payload.Handles, 1)
			require.Equal(tt.typ, payload.Handles[0].Type())
			require.Equal(uint64(fhevm.SepoliaChainID), payload.Handles[0].ChainID())

			stored, ok := eng.Stored(payload.Handles[0])
			require.True(ok)
			expected := fhevm.MustValue(tt.typ, tt.raw)
			require.Equal(expected, stored)
		})
	}
}

func TestUnsupportedTypeFailsFast(t *testing.T) {
	require := require.New(t)

	b, _ := newTestBuilder(t)
	d, err := b.CreateInput(testContract, testUser)
	require.NoError(err)

	for _, typ := range []fhevm.ValueType{1, 9, 255} {
		err := d.AddValue(1, typ)
		require.ErrorIs(err, fhevm.ErrUnsupportedType)
		require.ErrorIs(d.Add(fhevm.Value{Type: typ}), fhevm.ErrUnsupportedType)
	}
	require.Empty(d.input.(*enginetest.Input).Calls)

	_, err = b.Encrypt(context.Background(), testContract, testUser, 1, fhevm.ValueType(1))
	require.ErrorIs(err, fhevm.ErrUnsupportedType)
}

func TestValueOutOfRange(t *testing.T) {
	b, _ := newTestBuilder(t)
	d, err := b.CreateInput(testContract, testUser)
	require.NoError(t, err)

	require.ErrorIs(t, d.AddValue(256, fhevm.TypeUint8), fhevm.ErrValueOutOfRange)
	require.ErrorIs(t, d.AddValue(-1, fhevm.TypeUint32), fhevm.ErrValueOutOfRange)
	require.ErrorIs(t, d.AddValue(2, fhevm.TypeBool), fhevm.ErrValueOutOfRange)
	require.Empty(t, d.Types())
}

func TestSealIsSingleUse(t *testing.T) {
	require := require.New(t)

	b, _ := newTestBuilder(t)
	d, err := b.CreateInput(testContract, testUser)
	require.NoError(err)
	require.NoError(d.AddValue(uint64(25), fhevm.TypeUint64))
	require.NoError(d.AddValue(false, fhevm.TypeBool))

	payload, err := d.Seal(context.Background())
	require.NoError(err)
	require.Len(payload.Handles, 2)
	require.NotEmpty(payload.Proof)
	require.Equal(uint8(0), payload.Handles[0].Index())
	require.Equal(uint8(1), payload.Handles[1].Index())

	_, err = d.Seal(context.Background())
	require.ErrorIs(err, fhevm.ErrDraftSealed)
	require.ErrorIs(d.AddValue(1, fhevm.TypeUint8), fhevm.ErrDraftSealed)
}

func TestSealFailureConsumesDraft(t *testing.T) {
	require := require.New(t)

	b, _ := newTestBuilder(t)
	d, err := b.CreateInput(testContract, testUser)
	require.NoError(err)
	require.NoError(d.AddValue(7, fhevm.TypeUint8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Seal(ctx)
	require.ErrorIs(err, context.Canceled)

	_, err = d.Seal(context.Background())
	require.ErrorIs(err, fhevm.ErrDraftSealed)
}

func TestSealEmptyDraft(t *testing.T) {
	b, _ := newTestBuilder(t)
	d, err := b.CreateInput(testContract, testUser)
	require.NoError(t, err)

	_, err = d.Seal(context.Background())
	require.ErrorIs(t, err, fhevm.ErrEmptyInput)
}

func TestInputLimits(t *testing.T) {
	t.Run("bits", func(t *testing.T) {
		require := require.New(t)

		b, _ := newTestBuilder(t)
		d, err := b.CreateInput(testContract, testUser)
		require.NoError(err)
		for i := 0; i < fhevm.MaxInputBits/256; i++ {
			require.NoError(d.AddValue(i, fhevm.TypeUint256))
		}
		require.ErrorIs(d.AddValue(1, fhevm.TypeUint8), fhevm.ErrInputTooLarge)
	})

	t.Run("count", func(t *testing.T) {
		require := require.New(t)

		b, _ := newTestBuilder(t)
		d, err := b.CreateInput(testContract, testUser)
		require.NoError(err)
		for i := 0; i < fhevm.MaxInputValues; i++ {
			require.NoError(d.AddValue(i%2 == 0, fhevm.TypeBool))
		}
		require.ErrorIs(d.AddValue(true, fhevm.TypeBool), fhevm.ErrInputTooLarge)
		require.Len(d.Types(), fhevm.MaxInputValues)
	})
}

func TestEncryptIsDeterministicWithStubEngine(t *testing.T) {
	require := require.New(t)

	b1, _ := newTestBuilder(t)
	b2, _ := newTestBuilder(t)

	p1, err := b1.Encrypt(context.Background(), testContract, testUser, 25, fhevm.TypeUint64)
	require.NoError(err)
	p2, err := b2.Encrypt(context.Background(), testContract, testUser, 25, fhevm.TypeUint64)
	require.NoError(err)
	require.True(p1.Equal(p2))
}
