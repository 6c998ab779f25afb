// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/engine/enginetest"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

var (
	testContract = common.HexToAddress("0xc000000000000000000000000000000000000001")
	testConfig   = fhevm.Config{
		ChainID:    fhevm.SepoliaChainID,
		PublicKey:  []byte{0x01},
		GatewayURL: "https://gateway.example",
		NetworkURL: "https://rpc.example",
	}
)

func newTestMachine(t *testing.T, e engine.Engine, metrics *Metrics) *Machine {
	t.Helper()

	store := session.NewStore(
		log.NewNoOpLogger(),
		session.NewInitializer(
			log.NewNoOpLogger(),
			e,
			session.WithPreloaded(func() (engine.Engine, bool) { return nil, false }),
		),
	)
	return NewMachine(log.NewNoOpLogger(), Deps{Store: store, Metrics: metrics})
}

type recorder struct {
	lock   sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.states = append(r.states, s)
}

func (r *recorder) all() []State {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]State(nil), r.states...)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	require := require.New(t)

	m := newTestMachine(t, enginetest.New("stub"), nil)

	_, err := m.Encrypt(context.Background(), testContract, common.Address{}, 1, fhevm.TypeUint8)
	require.ErrorIs(err, fhevm.ErrAdapterNotInitialized)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	_, err = m.Decrypt(context.Background(), fhevm.Handle{}, testContract, common.Address{}, signer.NewLocalSigner(key))
	require.ErrorIs(err, fhevm.ErrAdapterNotInitialized)

	s := m.State()
	require.False(s.IsInitialized)
	require.False(s.IsBusy)
	require.Equal(fhevm.ErrAdapterNotInitialized.Error(), s.LastError)
}

func TestInitializeTransitions(t *testing.T) {
	require := require.New(t)

	m := newTestMachine(t, enginetest.New("stub"), nil)
	rec := &recorder{}
	m.Subscribe(rec.record)

	_, err := m.Initialize(context.Background(), testConfig)
	require.NoError(err)

	require.Equal([]State{
		{IsBusy: true, StatusMessage: StatusInitializing},
		{IsInitialized: true},
	}, rec.all())
}

func TestInitializeFailure(t *testing.T) {
	require := require.New(t)

	e := enginetest.New("stub")
	e.InitErr = engine.ErrAllocation
	m := newTestMachine(t, e, nil)

	_, err := m.Initialize(context.Background(), testConfig)
	var initErr *fhevm.EngineInitError
	require.ErrorAs(err, &initErr)

	s := m.State()
	require.False(s.IsInitialized)
	require.False(s.IsBusy)
	require.Empty(s.StatusMessage)
	require.Equal(err.Error(), s.LastError)
}

func TestEncryptDecrypt(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	m := newTestMachine(t, enginetest.New("stub"), metrics)
	rec := &recorder{}

	_, err := m.Initialize(context.Background(), testConfig)
	require.NoError(err)
	m.Subscribe(rec.record)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	user := signer.NewLocalSigner(key)

	payload, err := m.Encrypt(context.Background(), testContract, user.Address(), 25, fhevm.TypeUint8)
	require.NoError(err)
	require.Len(payload.Handles, 1)

	v, err := m.Decrypt(context.Background(), payload.Handles[0], testContract, user.Address(), user)
	require.NoError(err)
	require.Equal(uint64(25), v.Uint64())
	require.Equal(fhevm.TypeUint8, v.Type)

	require.Equal([]State{
		{IsInitialized: true, IsBusy: true, StatusMessage: StatusEncrypting},
		{IsInitialized: true},
		{IsInitialized: true, IsBusy: true, StatusMessage: StatusDecrypting},
		{IsInitialized: true},
	}, rec.all())

	require.Equal(1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpEncrypt, statusSuccess)))
	require.Equal(1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpDecrypt, statusSuccess)))
}

func TestErrorsClearBusy(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	m := newTestMachine(t, enginetest.New("stub"), metrics)
	_, err := m.Initialize(context.Background(), testConfig)
	require.NoError(err)

	_, err = m.Encrypt(context.Background(), testContract, common.Address{}, 1, fhevm.ValueType(1))
	require.ErrorIs(err, fhevm.ErrUnsupportedType)
	s := m.State()
	require.True(s.IsInitialized)
	require.False(s.IsBusy)
	require.Empty(s.StatusMessage)
	require.Equal(err.Error(), s.LastError)

	errDeclined := errors.New("user rejected the request")
	declining := signer.Func{
		Addr: common.HexToAddress("0x01"),
		Sign: func(context.Context, fhevm.Authorization) ([]byte, error) { return nil, errDeclined },
	}
	_, err = m.Decrypt(context.Background(), fhevm.Handle{}, testContract, declining.Addr, declining)
	require.ErrorIs(err, fhevm.ErrSigningRejected)
	require.False(m.State().IsBusy)

	require.Equal(1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpEncrypt, statusFailure)))
	require.Equal(1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpDecrypt, statusFailure)))
}

func TestConcurrentOperationsKeepBusy(t *testing.T) {
	require := require.New(t)

	m := newTestMachine(t, enginetest.New("stub"), nil)
	_, err := m.Initialize(context.Background(), testConfig)
	require.NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Encrypt(context.Background(), testContract, common.Address{}, i, fhevm.TypeUint8)
			require.NoError(err)
		}(i)
	}
	wg.Wait()

	s := m.State()
	require.False(s.IsBusy)
	require.Empty(s.StatusMessage)
}

func TestDispose(t *testing.T) {
	require := require.New(t)

	m := newTestMachine(t, enginetest.New("stub"), nil)
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.record)
	unsubscribe()
	m.Subscribe(rec.record)
	m.Dispose()

	_, err := m.Initialize(context.Background(), testConfig)
	require.NoError(err)
	require.Empty(rec.all())
	require.True(m.store.Ready())
}

func TestGetContractHandle(t *testing.T) {
	m := newTestMachine(t, enginetest.New("stub"), nil)

	_, err := m.GetContractHandle(testContract, `[]`, nil)
	require.Error(t, err)
	require.Equal(t, State{}, m.State())
}
