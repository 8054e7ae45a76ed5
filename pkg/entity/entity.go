// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package entity describes remote objects, ex. VMs and templates, that are
// mirrored locally with an identity and a lazily fetched snapshot of their
// backend data.
package entity

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

// System is the backend that owns an entity. Entities hold a shared reference
// to their System and never mutate it.
//
// Implementations must be comparable with ==, which is true of any pointer
// type.
type System interface {
	Name() string
}

// Attrs are the key/value pairs that identify an entity on its backend. They
// must be sufficient to re-fetch the entity without consulting its raw data.
type Attrs map[string]string

// Clone returns a copy of the attributes.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return Attrs{}
	}
	return maps.Clone(a)
}

// Equal returns true if both sets of attributes contain the same pairs.
func (a Attrs) Equal(b Attrs) bool {
	return maps.Equal(a, b)
}

// String returns the attributes as comma-separated key=value pairs sorted by
// key.
func (a Attrs) String() string {
	keys := slices.Sorted(maps.Keys(a))
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + a[k]
	}
	return strings.Join(pairs, ",")
}

// Entity is any remote object managed through a System.
type Entity interface {
	// System returns the backend that owns this entity.
	System() System

	// IdentifyingAttrs returns a copy of the identifying attributes.
	IdentifyingAttrs() Attrs

	// Refresh re-fetches the raw data from the backend. It returns a
	// NotFoundError if the entity no longer exists.
	Refresh(ctx context.Context) error

	// Exists returns false if Refresh reports NotFound, true if it succeeds,
	// and propagates any other error.
	Exists(ctx context.Context) (bool, error)

	// Delete removes the entity from the backend.
	Delete(ctx context.Context) error

	// Cleanup removes the entity along with the resources that depend on it.
	Cleanup(ctx context.Context) error
}

// Equal returns true if both entities are owned by the same System and have
// equal identifying attributes. Raw data is never compared since it mutates.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.System() != b.System() {
		return false
	}
	return a.IdentifyingAttrs().Equal(b.IdentifyingAttrs())
}

// FetchFunc retrieves the raw backend data for an entity.
type FetchFunc[R any] func(ctx context.Context) (R, error)

// Base implements the identity and raw-data caching parts of Entity. Backends
// embed a *Base and supply Delete and Cleanup.
type Base[R any] struct {
	system System
	attrs  Attrs
	fetch  FetchFunc[R]

	mu        sync.RWMutex
	raw       R
	populated bool
}

// NewBase returns a Base whose raw data is fetched on first use.
func NewBase[R any](system System, attrs Attrs, fetch FetchFunc[R]) *Base[R] {
	if fetch == nil {
		panic("fetch is nil")
	}
	return &Base[R]{
		system: system,
		attrs:  attrs.Clone(),
		fetch:  fetch,
	}
}

// NewBaseWithRaw returns a Base that is already populated with raw data the
// caller fetched while listing or creating the entity.
func NewBaseWithRaw[R any](system System, attrs Attrs, fetch FetchFunc[R], raw R) *Base[R] {
	b := NewBase(system, attrs, fetch)
	b.raw = raw
	b.populated = true
	return b
}

// System returns the backend that owns this entity.
func (b *Base[R]) System() System {
	return b.system
}

// IdentifyingAttrs returns a copy of the identifying attributes.
func (b *Base[R]) IdentifyingAttrs() Attrs {
	return b.attrs.Clone()
}

// Attr returns a single identifying attribute.
func (b *Base[R]) Attr(key string) string {
	return b.attrs[key]
}

// Refresh re-fetches the raw data and replaces the cached snapshot.
func (b *Base[R]) Refresh(ctx context.Context) error {
	_, err := b.RefreshRaw(ctx)
	return err
}

// RefreshRaw re-fetches the raw data, replaces the cached snapshot, and
// returns it. The previous snapshot is left untouched if the fetch fails.
func (b *Base[R]) RefreshRaw(ctx context.Context) (R, error) {
	raw, err := b.fetch(ctx)
	if err != nil {
		var empty R
		return empty, err
	}

	b.mu.Lock()
	b.raw = raw
	b.populated = true
	b.mu.Unlock()

	return raw, nil
}

// Raw returns the cached snapshot, fetching it once if it was never
// populated. It does not refresh on every call.
func (b *Base[R]) Raw(ctx context.Context) (R, error) {
	b.mu.RLock()
	raw, ok := b.raw, b.populated
	b.mu.RUnlock()

	if ok {
		return raw, nil
	}
	return b.RefreshRaw(ctx)
}

// Exists returns false if the entity is not found on the backend.
func (b *Base[R]) Exists(ctx context.Context) (bool, error) {
	if err := b.Refresh(ctx); err != nil {
		if pkgerr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// String returns the system name and identifying attributes.
func (b *Base[R]) String() string {
	name := ""
	if b.system != nil {
		name = b.system.Name()
	}
	return name + "{" + b.attrs.String() + "}"
}
