// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"strings"
)

// State is the backend-independent state of a VM.
type State string

const (
	StateRunning          State = "running"
	StateStopped          State = "stopped"
	StatePaused           State = "paused"
	StateSuspended        State = "suspended"
	StateDeleted          State = "deleted"
	StateStarting         State = "starting"
	StateStopping         State = "stopping"
	StateError            State = "error"
	StateUnknown          State = "unknown"
	StateShelved          State = "shelved"
	StateShelvedOffloaded State = "shelved_offloaded"
)

var validStates = []State{
	StateRunning,
	StateStopped,
	StatePaused,
	StateSuspended,
	StateDeleted,
	StateStarting,
	StateStopping,
	StateError,
	StateUnknown,
	StateShelved,
	StateShelvedOffloaded,
}

// ValidStates returns every State a VM may be in.
func ValidStates() []State {
	return append([]State(nil), validStates...)
}

// IsValid returns true if s is one of ValidStates.
func (s State) IsValid() bool {
	for i := range validStates {
		if validStates[i] == s {
			return true
		}
	}
	return false
}

// IsSteady returns true if s is a state a VM stays in without further
// action, ex. running or stopped.
func (s State) IsSteady() bool {
	switch s {
	case StateRunning, StateStopped, StatePaused, StateSuspended:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	return string(s)
}

// ParseState parses a case-insensitive state name and returns the State. The
// second return value is false if the name is not a valid state.
func ParseState(s string) (State, bool) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}
