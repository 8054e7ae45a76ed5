// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package openstack

import (
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// Nova server statuses.
const (
	StatusActive           = "ACTIVE"
	StatusShutoff          = "SHUTOFF"
	StatusPaused           = "PAUSED"
	StatusSuspended        = "SUSPENDED"
	StatusShelved          = "SHELVED"
	StatusShelvedOffloaded = "SHELVED_OFFLOADED"
	StatusBuild            = "BUILD"
	StatusReboot           = "REBOOT"
	StatusHardReboot       = "HARD_REBOOT"
	StatusDeleted          = "DELETED"
	StatusSoftDeleted      = "SOFT_DELETED"
	StatusError            = "ERROR"
	StatusUnknown          = "UNKNOWN"
)

var stateMap = vm.MustStateMap(map[string]vm.State{
	StatusActive:           vm.StateRunning,
	StatusShutoff:          vm.StateStopped,
	StatusPaused:           vm.StatePaused,
	StatusSuspended:        vm.StateSuspended,
	StatusShelved:          vm.StateShelved,
	StatusShelvedOffloaded: vm.StateShelvedOffloaded,
	StatusBuild:            vm.StateStarting,
	StatusReboot:           vm.StateStarting,
	StatusHardReboot:       vm.StateStarting,
	StatusDeleted:          vm.StateDeleted,
	StatusSoftDeleted:      vm.StateDeleted,
	StatusError:            vm.StateError,
	StatusUnknown:          vm.StateUnknown,
})
