// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"context"
	"maps"
	"slices"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	pkglog "github.com/manageiq/wrapanapi/pkg/log"
	"github.com/manageiq/wrapanapi/pkg/metrics"
)

// StateMap translates a backend's native status strings into States.
type StateMap struct {
	m map[string]State
}

// NewStateMap returns a StateMap for m. An InvalidStateMapError is returned
// if any value is not a valid State.
func NewStateMap(m map[string]State) (StateMap, error) {
	for _, native := range slices.Sorted(maps.Keys(m)) {
		if s := m[native]; !s.IsValid() {
			return StateMap{}, pkgerr.InvalidStateMapError{
				Native: native,
				Value:  string(s),
			}
		}
	}
	return StateMap{m: maps.Clone(m)}, nil
}

// MustStateMap is like NewStateMap but panics on an invalid map. It is meant
// for package-level variables.
func MustStateMap(m map[string]State) StateMap {
	sm, err := NewStateMap(m)
	if err != nil {
		panic(err)
	}
	return sm
}

// Translate returns the State for a native status. A status missing from
// the map yields StateUnknown and a warning.
func (sm StateMap) Translate(ctx context.Context, native string) State {
	if s, ok := sm.m[native]; ok {
		return s
	}
	pkglog.Warn(
		pkglog.FromContextOrDefault(ctx),
		"Unmapped native VM status, treating it as unknown",
		"nativeState", native)
	metrics.VM().RecordUnmappedState(native)
	return StateUnknown
}

// Reachable returns the distinct States the map can produce, sorted.
func (sm StateMap) Reachable() []State {
	seen := map[State]struct{}{}
	for _, s := range sm.m {
		seen[s] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// CanReach returns true if some native status maps to s.
func (sm StateMap) CanReach(s State) bool {
	for _, v := range sm.m {
		if v == s {
			return true
		}
	}
	return false
}
