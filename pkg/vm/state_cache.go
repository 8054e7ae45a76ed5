// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"sync"
	"time"
)

// stateCache holds the last state read for a single VM.
type stateCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	state     State
	fetchedAt time.Time
	valid     bool
}

func (c *stateCache) get() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || time.Since(c.fetchedAt) >= c.ttl {
		return "", false
	}
	return c.state, true
}

func (c *stateCache) set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.fetchedAt = time.Now()
	c.valid = true
}

func (c *stateCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
