// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

type fakeBackend struct {
	keyCalls  atomic.Int32
	inline    bool
	publicKey []byte
	healthErr error
	decrypt   func(*UserDecryptRequest) (*UserDecryptResult, error)
}

func (b *fakeBackend) KeyInfo(context.Context) (*KeyURLResult, error) {
	b.keyCalls.Add(1)
	ref := KeyRef{DataID: "pk-1", URLs: []string{PublicKeyPath}}
	if b.inline {
		ref.Data = b.publicKey
	}
	return &KeyURLResult{
		ChainID:    fhevm.LocalChainID,
		FheKeyInfo: []FheKeyInfo{{FhePublicKey: ref}},
	}, nil
}

func (b *fakeBackend) PublicKey(context.Context) ([]byte, error) {
	return b.publicKey, nil
}

func (b *fakeBackend) VerifyInput(_ context.Context, req *InputProofRequest) (*InputProofResult, error) {
	if len(req.Types) == 0 {
		return nil, fhevm.ErrEmptyInput
	}
	if len(req.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: no ciphertext", engine.ErrInvalidProof)
	}
	res := &InputProofResult{Proof: []byte{0x01}}
	for i, t := range req.Types {
		res.Handles = append(res.Handles, fhevm.NewHandle(common.Hash{1}, uint8(i), req.ContractChainID, t))
	}
	return res, nil
}

func (b *fakeBackend) UserDecrypt(_ context.Context, req *UserDecryptRequest) (*UserDecryptResult, error) {
	return b.decrypt(req)
}

func (b *fakeBackend) HealthCheck(context.Context) error {
	return b.healthErr
}

func newTestServer(t *testing.T, backend *fakeBackend, metrics *Metrics) *httptest.Server {
	srv := httptest.NewServer(NewHandler(log.NewNoOpLogger(), metrics, backend))
	t.Cleanup(srv.Close)
	return srv
}

func TestKeyURLIsCached(t *testing.T) {
	require := require.New(t)

	backend := &fakeBackend{inline: true, publicKey: []byte{0xaa}}
	srv := newTestServer(t, backend, nil)
	client := NewClient(srv.URL)

	for i := 0; i < 3; i++ {
		info, err := client.KeyURL(context.Background())
		require.NoError(err)
		require.Equal(uint64(fhevm.LocalChainID), info.ChainID)
	}
	require.Equal(int32(1), backend.keyCalls.Load())
}

func TestPublicKey(t *testing.T) {
	tests := []struct {
		name   string
		inline bool
	}{
		{name: "inline", inline: true},
		{name: "download", inline: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			backend := &fakeBackend{inline: tt.inline, publicKey: []byte{0xde, 0xad}}
			srv := newTestServer(t, backend, nil)

			pk, err := NewKeyFetcher(nil, time.Minute).FetchPublicKey(context.Background(), srv.URL)
			require.NoError(err)
			require.Equal([]byte{0xde, 0xad}, pk)
		})
	}
}

func TestPublicKeyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL).PublicKey(context.Background())
	require.ErrorIs(t, err, engine.ErrPublicKeyFetch)
}

func TestInputProof(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	srv := newTestServer(t, &fakeBackend{}, metrics)
	client := NewClient(srv.URL)

	res, err := client.InputProof(context.Background(), &InputProofRequest{
		ContractChainID: fhevm.LocalChainID,
		Types:           []fhevm.ValueType{fhevm.TypeUint8, fhevm.TypeAddress},
		Ciphertext:      []byte{1, 2},
	})
	require.NoError(err)
	require.Len(res.Handles, 2)
	require.Equal(fhevm.TypeAddress, res.Handles[1].Type())

	_, err = client.InputProof(context.Background(), &InputProofRequest{
		Types: []fhevm.ValueType{fhevm.TypeUint8},
	})
	require.ErrorIs(err, engine.ErrInvalidProof)

	require.Equal(1.0, testutil.ToFloat64(metrics.requestCount.WithLabelValues(InputProofPath, "200")))
	require.Equal(1.0, testutil.ToFloat64(metrics.requestCount.WithLabelValues(InputProofPath, "400")))
}

func TestUserDecryptErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedErr error
	}{
		{name: "unauthorized", err: engine.ErrUnauthorized, expectedErr: engine.ErrUnauthorized},
		{name: "unknown handle", err: engine.ErrUnknownHandle, expectedErr: engine.ErrUnknownHandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				decrypt: func(*UserDecryptRequest) (*UserDecryptResult, error) {
					return nil, tt.err
				},
			}
			srv := newTestServer(t, backend, nil)

			_, err := NewClient(srv.URL).UserDecrypt(context.Background(), &UserDecryptRequest{})
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestUserDecrypt(t *testing.T) {
	require := require.New(t)

	handle := fhevm.NewHandle(common.Hash{2}, 0, fhevm.LocalChainID, fhevm.TypeUint64)
	backend := &fakeBackend{
		decrypt: func(req *UserDecryptRequest) (*UserDecryptResult, error) {
			require.Equal(handle, req.Handle)
			return &UserDecryptResult{Payload: []byte("sealed")}, nil
		},
	}
	srv := newTestServer(t, backend, nil)

	res, err := NewClient(srv.URL).UserDecrypt(context.Background(), &UserDecryptRequest{Handle: handle})
	require.NoError(err)
	require.Equal([]byte("sealed"), []byte(res.Payload))
}

func TestMalformedRequest(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{}, nil)

	resp, err := http.Post(srv.URL+InputProofPath, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	require := require.New(t)

	backend := &fakeBackend{}
	srv := newTestServer(t, backend, nil)
	client := NewClient(srv.URL)

	require.NoError(client.Health(context.Background()))

	backend.healthErr = errors.New("store closed")
	require.Error(client.Health(context.Background()))
}
