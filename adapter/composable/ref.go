// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package composable

import "sync"

// Ref is a watchable value.
type Ref[T comparable] struct {
	lock     sync.RWMutex
	value    T
	nextID   int
	watchers map[int]func(value, old T)
}

func newRef[T comparable](v T) *Ref[T] {
	return &Ref[T]{
		value:    v,
		watchers: make(map[int]func(value, old T)),
	}
}

func (r *Ref[T]) Value() T {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.value
}

// Watch calls fn whenever the value changes. The returned func stops it.
func (r *Ref[T]) Watch(fn func(value, old T)) func() {
	r.lock.Lock()
	defer r.lock.Unlock()

	id := r.nextID
	r.nextID++
	r.watchers[id] = fn
	return func() {
		r.lock.Lock()
		defer r.lock.Unlock()

		delete(r.watchers, id)
	}
}

// set stores v and notifies watchers if it differs from the current value.
func (r *Ref[T]) set(v T) {
	r.lock.Lock()
	old := r.value
	if old == v {
		r.lock.Unlock()
		return
	}
	r.value = v
	watchers := make([]func(value, old T), 0, len(r.watchers))
	for id := 0; id < r.nextID; id++ {
		if w, ok := r.watchers[id]; ok {
			watchers = append(watchers, w)
		}
	}
	r.lock.Unlock()

	for _, w := range watchers {
		w(v, old)
	}
}
