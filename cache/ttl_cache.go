// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for key on a cache miss.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

type ttlItem[V any] struct {
	value   V
	fetched time.Time
}

// TTLCache caches values for a fixed duration. Concurrent misses for the
// same key share a single fetch.
type TTLCache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	lock  sync.RWMutex
	data  map[K]ttlItem[V]
	group singleflight.Group
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[K]ttlItem[V]),
	}
}

// Get returns the cached value for key if it is younger than the TTL,
// otherwise it fetches it. If [invalidate] is true the entry is dropped before
// fetching so no other caller can read the stale value meanwhile.
//
// The fetch runs with the context of the caller that triggered it; callers
// sharing the flight receive its result even if their own context differs.
func (c *TTLCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V], invalidate bool) (V, error) {
	if invalidate {
		c.Invalidate(key)
	} else if v, ok := c.Peek(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(keyToString(key), func() (any, error) {
		v, err := fetch(ctx, key)
		if err != nil {
			return v, err
		}
		c.lock.Lock()
		c.data[key] = ttlItem[V]{value: v, fetched: c.now()}
		c.lock.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns a fresh cached value without fetching.
func (c *TTLCache[K, V]) Peek(key K) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	item, ok := c.data[key]
	if !ok || c.now().Sub(item.fetched) >= c.ttl {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *TTLCache[K, V]) Invalidate(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.data, key)
}

// Purge drops every entry.
func (c *TTLCache[K, V]) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()

	clear(c.data)
}

// keyToString allows both fmt.Stringer and primitive key types.
func keyToString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
