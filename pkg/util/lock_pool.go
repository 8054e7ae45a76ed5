// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"sync"
)

// LockPool hands out one mutex per key. The zero value is ready to use.
type LockPool[K comparable] struct {
	locks sync.Map
}

// Get returns the mutex for id, creating it on first use.
func (p *LockPool[K]) Get(id K) *sync.Mutex {
	if obj, ok := p.locks.Load(id); ok {
		return obj.(*sync.Mutex)
	}
	obj, _ := p.locks.LoadOrStore(id, &sync.Mutex{})
	return obj.(*sync.Mutex)
}

// With runs fn while holding the mutex for id.
func (p *LockPool[K]) With(id K, fn func() error) error {
	l := p.Get(id)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Delete removes the mutex for id from the pool. Callers still holding it
// are unaffected.
func (p *LockPool[K]) Delete(id K) {
	p.locks.Delete(id)
}
