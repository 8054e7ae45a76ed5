// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package simulated

import (
	"fmt"
	"slices"

	"github.com/manageiq/wrapanapi/pkg/vm"
)

// Status is the native status of a simulated VM.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusPaused     Status = "paused"
	StatusSuspended  Status = "suspended"
	StatusStarting   Status = "starting"
	StatusStopping   Status = "stopping"
	StatusTerminated Status = "terminated"
	StatusError      Status = "error"
)

var stateMap = vm.MustStateMap(map[string]vm.State{
	string(StatusPending):    vm.StateStarting,
	string(StatusRunning):    vm.StateRunning,
	string(StatusStopped):    vm.StateStopped,
	string(StatusPaused):     vm.StatePaused,
	string(StatusSuspended):  vm.StateSuspended,
	string(StatusStarting):   vm.StateStarting,
	string(StatusStopping):   vm.StateStopping,
	string(StatusTerminated): vm.StateDeleted,
	string(StatusError):      vm.StateError,
})

type powerRule struct {
	from []Status
	via  Status
	to   Status
}

var powerRules = map[vm.Action]powerRule{
	vm.ActionStart: {
		from: []Status{StatusStopped, StatusSuspended, StatusPaused},
		via:  StatusStarting,
		to:   StatusRunning,
	},
	vm.ActionStop: {
		from: []Status{StatusRunning, StatusPaused},
		via:  StatusStopping,
		to:   StatusStopped,
	},
	vm.ActionSuspend: {
		from: []Status{StatusRunning},
		via:  StatusStopping,
		to:   StatusSuspended,
	},
	vm.ActionPause: {
		from: []Status{StatusRunning},
		to:   StatusPaused,
	},
}

func (r powerRule) allows(s Status) bool {
	return slices.Contains(r.from, s)
}

// IllegalTransitionError is returned when an action is not valid from the
// VM's current status, ex. stopping a suspended VM.
type IllegalTransitionError struct {
	VM     string
	Action vm.Action
	Status Status
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s vm %s while it is %s", e.Action, e.VM, e.Status)
}
