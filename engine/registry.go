// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "sync"

var (
	preloadedLock sync.RWMutex
	preloaded     Engine
)

// Preload registers an engine loaded by the host process ahead of any
// session. Session initialization tries it before the bundled engine.
func Preload(e Engine) {
	preloadedLock.Lock()
	defer preloadedLock.Unlock()

	preloaded = e
}

// Preloaded returns the registered engine, if any.
func Preloaded() (Engine, bool) {
	preloadedLock.RLock()
	defer preloadedLock.RUnlock()

	return preloaded, preloaded != nil
}

// ClearPreloaded removes the registered engine.
func ClearPreloaded() {
	Preload(nil)
}
