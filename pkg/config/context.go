// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"sync"
)

type configContextKey uint8

const configContextKeyValue configContextKey = 0

type lockedConfig struct {
	sync.RWMutex
	Config
}

// NewContextWithDefaultConfig returns a new context with a default Config.
func NewContextWithDefaultConfig() context.Context {
	return WithContext(context.Background(), Default())
}

// WithContext returns a child of parent that carries config.
func WithContext(parent context.Context, config Config) context.Context {
	if parent == nil {
		panic("parent context is nil")
	}
	return context.WithValue(
		parent,
		configContextKeyValue,
		&lockedConfig{Config: config})
}

// UpdateContext applies setFn to the Config in ctx. The update is visible to
// every context that shares the Config.
// This function panics if ctx is nil, does not contain a Config, or setFn is
// nil.
func UpdateContext(ctx context.Context, setFn func(config *Config)) {
	if ctx == nil {
		panic("context is nil")
	}
	if setFn == nil {
		panic("setFn is nil")
	}
	obj, ok := ctx.Value(configContextKeyValue).(*lockedConfig)
	if !ok {
		panic("config is missing from context")
	}
	obj.Lock()
	defer obj.Unlock()
	c := obj.Config
	setFn(&c)
	obj.Config = c
}

// FromContext returns a copy of the Config from ctx.
// This function panics if ctx is nil or does not contain a Config.
func FromContext(ctx context.Context) Config {
	if ctx == nil {
		panic("context is nil")
	}
	obj, ok := ctx.Value(configContextKeyValue).(*lockedConfig)
	if !ok {
		panic("config is missing from context")
	}
	obj.RLock()
	defer obj.RUnlock()
	return obj.Config
}

// FromContextOrDefault returns the Config from ctx, or Default if ctx does
// not carry one.
func FromContextOrDefault(ctx context.Context) Config {
	if ctx != nil {
		if _, ok := ctx.Value(configContextKeyValue).(*lockedConfig); ok {
			return FromContext(ctx)
		}
	}
	return Default()
}
