// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package kubevirt

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/manageiq/wrapanapi/pkg/vm"
)

var (
	// GroupVersion is the KubeVirt API served by the cluster.
	GroupVersion = schema.GroupVersion{Group: "kubevirt.io", Version: "v1"}

	VirtualMachineGVK             = GroupVersion.WithKind("VirtualMachine")
	VirtualMachineListGVK         = GroupVersion.WithKind("VirtualMachineList")
	VirtualMachineInstanceGVK     = GroupVersion.WithKind("VirtualMachineInstance")
	VirtualMachineInstanceListGVK = GroupVersion.WithKind("VirtualMachineInstanceList")
)

// Values of a VirtualMachine's status.printableStatus.
const (
	StatusStopped                 = "Stopped"
	StatusProvisioning            = "Provisioning"
	StatusStarting                = "Starting"
	StatusRunning                 = "Running"
	StatusPaused                  = "Paused"
	StatusStopping                = "Stopping"
	StatusTerminating             = "Terminating"
	StatusMigrating               = "Migrating"
	StatusWaitingForVolumeBinding = "WaitingForVolumeBinding"
	StatusWaitingForReceiver      = "WaitingForReceiver"
	StatusCrashLoopBackOff        = "CrashLoopBackOff"
	StatusErrorUnschedulable      = "ErrorUnschedulable"
	StatusErrImagePull            = "ErrImagePull"
	StatusImagePullBackOff        = "ImagePullBackOff"
	StatusErrorPvcNotFound        = "ErrorPvcNotFound"
	StatusDataVolumeError         = "DataVolumeError"
	StatusUnknown                 = "Unknown"
)

// Values of spec.runStrategy.
const (
	RunStrategyAlways = "Always"
	RunStrategyHalted = "Halted"
)

var stateMap = vm.MustStateMap(map[string]vm.State{
	StatusRunning:                 vm.StateRunning,
	StatusStopped:                 vm.StateStopped,
	StatusPaused:                  vm.StatePaused,
	StatusProvisioning:            vm.StateStarting,
	StatusStarting:                vm.StateStarting,
	StatusWaitingForVolumeBinding: vm.StateStarting,
	StatusWaitingForReceiver:      vm.StateStarting,
	StatusStopping:                vm.StateStopping,
	StatusTerminating:             vm.StateStopping,
	StatusMigrating:               vm.StateStopping,
	StatusCrashLoopBackOff:        vm.StateError,
	StatusErrorUnschedulable:      vm.StateError,
	StatusErrImagePull:            vm.StateError,
	StatusImagePullBackOff:        vm.StateError,
	StatusErrorPvcNotFound:        vm.StateError,
	StatusDataVolumeError:         vm.StateError,
	StatusUnknown:                 vm.StateUnknown,
})
