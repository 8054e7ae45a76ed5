// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"context"
	"time"

	"github.com/manageiq/wrapanapi/pkg/entity"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// Template is an image a system can deploy new VMs from.
type Template interface {
	entity.Entity

	Name() string

	// Deploy creates a new VM from the template. The VM is not started.
	Deploy(ctx context.Context, opts DeployOptions) (*vm.VM, error)
}

// DeployOptions describe the VM to create from a template.
type DeployOptions struct {
	// Name of the new VM.
	Name string

	// PowerOn starts the VM after it is created.
	PowerOn bool

	// Timeout bounds the wait for the VM to be running when PowerOn is set.
	// Zero uses the VM's default.
	Timeout time.Duration
}

// Deploy deploys t and, if opts.PowerOn is set, ensures the new VM is
// running. The VM is returned even if it failed to start.
func Deploy(ctx context.Context, t Template, opts DeployOptions) (*vm.VM, error) {
	v, err := t.Deploy(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.PowerOn {
		if err := v.EnsureState(ctx, vm.StateRunning, opts.Timeout, 0); err != nil {
			return v, err
		}
	}
	return v, nil
}
