// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		invalidate    bool
		expectedCount int
	}{
		{
			name:          "fresh cache, fetch",
			key:           "erc20",
			expectedCount: 1,
		},
		{
			name:          "use cache, no fetch",
			key:           "erc20",
			expectedCount: 1,
		},
		{
			name:          "invalidate, fetch again",
			key:           "erc20",
			invalidate:    true,
			expectedCount: 2,
		},
		{
			name:          "different key, fetch",
			key:           "counter",
			expectedCount: 3,
		},
		{
			name:          "both keys fit, no fetch",
			key:           "erc20",
			expectedCount: 3,
		},
	}

	cache := NewLRUCache[string, int](2)
	fetchCount := 0
	fetch := func(context.Context, string) (int, error) {
		fetchCount++
		return 42, nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			val, err := cache.Get(context.Background(), tt.key, fetch, tt.invalidate)
			require.NoError(err)
			require.Equal(42, val)
			require.Equal(tt.expectedCount, fetchCount)
		})
	}
	require.Equal(t, 2, cache.Len())
}

func TestLRUCacheEviction(t *testing.T) {
	require := require.New(t)

	cache := NewLRUCache[int, int](1)
	fetchCount := 0
	fetch := func(_ context.Context, k int) (int, error) {
		fetchCount++
		return k * 2, nil
	}

	for _, k := range []int{1, 2, 1} {
		v, err := cache.Get(context.Background(), k, fetch, false)
		require.NoError(err)
		require.Equal(k*2, v)
	}
	require.Equal(3, fetchCount)
	require.Equal(1, cache.Len())
}

func TestLRUCacheFetchError(t *testing.T) {
	cache := NewLRUCache[string, int](4)
	errFetch := errors.New("bad abi")

	_, err := cache.Get(context.Background(), "k", func(context.Context, string) (int, error) {
		return 0, errFetch
	}, false)
	require.ErrorIs(t, err, errFetch)
	require.Zero(t, cache.Len())
}
