// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"context"
	"time"

	"github.com/manageiq/wrapanapi/pkg/entity"
)

// Handle is the contract every backend implements for a single VM. The
// power operations block until the backend reports the operation complete.
type Handle interface {
	entity.Entity

	// Name returns the display name of the VM.
	Name() string

	// StateMap returns the backend's native status translation.
	StateMap() StateMap

	// GetState refreshes the VM and translates its native status. It does
	// not cache.
	GetState(ctx context.Context) (State, error)

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Suspend(ctx context.Context) error
	Pause(ctx context.Context) error
}

// IPAddresser is implemented by handles that can report the VM's primary IP.
type IPAddresser interface {
	IP(ctx context.Context) (string, error)
}

// CreationTimer is implemented by handles that know when the VM was created.
type CreationTimer interface {
	CreationTime(ctx context.Context) (time.Time, error)
}

// Renamer is implemented by handles that can rename the VM.
type Renamer interface {
	Rename(ctx context.Context, name string) error
}

// Cloner is implemented by handles that can clone the VM.
type Cloner interface {
	Clone(ctx context.Context, name string) (Handle, error)
}

// Capabilities are the optional operations a system supports.
type Capabilities struct {
	CanSuspend bool
	CanPause   bool

	// SteadyWaitTime bounds WaitForSteadyState when no timeout is given.
	SteadyWaitTime time.Duration
}

// Capability names an optional operation.
type Capability string

const (
	CapabilitySuspend Capability = "can_suspend"
	CapabilityPause   Capability = "can_pause"
)

// Has returns true if c is supported. The empty capability is always
// supported.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case "":
		return true
	case CapabilitySuspend:
		return c.CanSuspend
	case CapabilityPause:
		return c.CanPause
	default:
		return false
	}
}
