// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"sync"

	"github.com/luxfi/geth/common/lru"
)

// LRUCache is a bounded cache for values that never go stale, such as parsed
// contract ABIs.
type LRUCache[K comparable, V any] struct {
	// BasicLRU updates recency on Get, so reads take the write lock.
	lock  sync.Mutex
	cache lru.BasicLRU[K, V]
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		cache: lru.NewBasicLRU[K, V](size),
	}
}

// Get returns the cached value for key, otherwise fetches and caches it. If
// [invalidate] is true the entry is dropped before fetching.
func (c *LRUCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V], invalidate bool) (V, error) {
	c.lock.Lock()
	if invalidate {
		c.cache.Remove(key)
	} else if v, ok := c.cache.Get(key); ok {
		c.lock.Unlock()
		return v, nil
	}
	c.lock.Unlock()

	v, err := fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.lock.Lock()
	c.cache.Add(key, v)
	c.lock.Unlock()
	return v, nil
}

func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.cache.Len()
}
