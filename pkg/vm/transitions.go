// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"context"
	"slices"
)

// Action is a backend power operation.
type Action string

const (
	ActionNone    Action = ""
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionSuspend Action = "suspend"
	ActionPause   Action = "pause"
)

// Step is what EnsureState does after classifying the current state.
type Step uint8

const (
	// StepWait means no action applies and the state is polled again.
	StepWait Step = iota

	// StepDesired means the current state is the target.
	StepDesired

	// StepPrep means the preparatory action must run before the main one.
	StepPrep

	// StepAct means the main action can run.
	StepAct
)

func (s Step) String() string {
	switch s {
	case StepDesired:
		return "desired"
	case StepPrep:
		return "prep"
	case StepAct:
		return "act"
	default:
		return "wait"
	}
}

type transition struct {
	desired    State
	prepFrom   []State
	actFrom    []State
	prep       Action
	action     Action
	capability Capability
}

// transitions is keyed by the target state. Preparation brings the VM to
// running so the main action applies.
var transitions = map[State]transition{
	StateRunning: {
		desired: StateRunning,
		actFrom: []State{StateStopped, StateSuspended, StatePaused},
		action:  ActionStart,
	},
	StateStopped: {
		desired:  StateStopped,
		prepFrom: []State{StateSuspended, StatePaused},
		actFrom:  []State{StateRunning},
		prep:     ActionStart,
		action:   ActionStop,
	},
	StateSuspended: {
		desired:    StateSuspended,
		prepFrom:   []State{StateStopped, StatePaused},
		actFrom:    []State{StateRunning},
		prep:       ActionStart,
		action:     ActionSuspend,
		capability: CapabilitySuspend,
	},
	StatePaused: {
		desired:    StatePaused,
		prepFrom:   []State{StateStopped, StateSuspended},
		actFrom:    []State{StateRunning},
		prep:       ActionStart,
		action:     ActionPause,
		capability: CapabilityPause,
	},
}

func (t transition) classify(current State) (Step, Action) {
	switch {
	case current == t.desired:
		return StepDesired, ActionNone
	case slices.Contains(t.prepFrom, current):
		return StepPrep, t.prep
	case slices.Contains(t.actFrom, current):
		return StepAct, t.action
	default:
		return StepWait, ActionNone
	}
}

// Plan returns the step and action EnsureState takes toward target when the
// VM is in current. The second return value is false if target cannot be
// ensured at all.
func Plan(current, target State) (Step, Action, bool) {
	t, ok := transitions[target]
	if !ok {
		return StepWait, ActionNone, false
	}
	step, action := t.classify(current)
	return step, action, true
}

// EnsurableStates returns the states EnsureState accepts.
func EnsurableStates() []State {
	return []State{StateRunning, StateStopped, StateSuspended, StatePaused}
}

func (v *VM) actionFunc(a Action) func(context.Context) error {
	switch a {
	case ActionStart:
		return v.handle.Start
	case ActionStop:
		return v.handle.Stop
	case ActionSuspend:
		return v.handle.Suspend
	case ActionPause:
		return v.handle.Pause
	}
	panic("unknown action " + string(a))
}
