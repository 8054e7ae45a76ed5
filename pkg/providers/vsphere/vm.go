// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vsphere

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/fault"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/task"
	"github.com/vmware/govmomi/vim25/mo"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

var stateMap = vm.MustStateMap(map[string]vm.State{
	string(vimtypes.VirtualMachinePowerStatePoweredOn):  vm.StateRunning,
	string(vimtypes.VirtualMachinePowerStatePoweredOff): vm.StateStopped,
	string(vimtypes.VirtualMachinePowerStateSuspended):  vm.StateSuspended,
})

type vmHandle struct {
	*entity.Base[mo.VirtualMachine]

	sys *System
	obj *object.VirtualMachine

	mu   sync.RWMutex
	name string
}

var (
	_ vm.Handle        = &vmHandle{}
	_ vm.IPAddresser   = &vmHandle{}
	_ vm.CreationTimer = &vmHandle{}
	_ vm.Renamer       = &vmHandle{}
	_ vm.Cloner        = &vmHandle{}
)

func (s *System) newHandle(o mo.VirtualMachine) *vmHandle {
	h := &vmHandle{
		sys:  s,
		obj:  object.NewVirtualMachine(s.client.VimClient(), o.Self),
		name: o.Name,
	}
	h.Base = entity.NewBaseWithRaw(s, entity.Attrs{"moid": o.Self.Value}, h.fetch, o)
	return h
}

func (s *System) newVM(o mo.VirtualMachine) *vm.VM {
	return vm.New(s.newHandle(o), s.Capabilities(), s.vmOpts...)
}

func (h *vmHandle) fetch(ctx context.Context) (mo.VirtualMachine, error) {
	o, err := h.sys.fetch(ctx, h.obj.Reference())
	if err != nil {
		return mo.VirtualMachine{}, err
	}
	h.mu.Lock()
	h.name = o.Name
	h.mu.Unlock()
	return o, nil
}

func (h *vmHandle) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

func (h *vmHandle) StateMap() vm.StateMap {
	return stateMap
}

func (h *vmHandle) GetState(ctx context.Context) (vm.State, error) {
	o, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	return stateMap.Translate(ctx, string(o.Runtime.PowerState)), nil
}

func (h *vmHandle) Start(ctx context.Context) error {
	return h.power(ctx, vimtypes.VirtualMachinePowerStatePoweredOn, h.obj.PowerOn)
}

func (h *vmHandle) Stop(ctx context.Context) error {
	return h.power(ctx, vimtypes.VirtualMachinePowerStatePoweredOff, h.obj.PowerOff)
}

func (h *vmHandle) Suspend(ctx context.Context) error {
	return h.power(ctx, vimtypes.VirtualMachinePowerStateSuspended, h.obj.Suspend)
}

func (h *vmHandle) Pause(_ context.Context) error {
	return pkgerr.UnsupportedOperationError{Kind: "vsphere vm", Operation: "pause"}
}

// power invokes a hard power op and waits on its task. A fault saying the
// VM is already in the desired state is not an error.
func (h *vmHandle) power(
	ctx context.Context,
	desired vimtypes.VirtualMachinePowerState,
	op func(context.Context) (*object.Task, error)) error {

	log := logr.FromContextOrDiscard(ctx).WithValues("vm", h.Name(), "desiredPowerState", desired)

	if h.sys.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sys.actionTimeout)
		defer cancel()
	}

	t, err := op(ctx)
	if err != nil {
		return fmt.Errorf("failed to invoke power op for %s: %w", desired, err)
	}
	if ti, err := t.WaitForResult(ctx); err != nil {
		if err, ok := err.(task.Error); ok {
			if ips, ok := err.Fault().(*vimtypes.InvalidPowerState); ok && ips.ExistingState == ips.RequestedState {
				log.Info("Power state already set")
				return nil
			}
		}
		if ti != nil {
			log.Error(err, "Change power state task failed", "taskInfo", ti)
		}
		return fmt.Errorf("set power state to %s failed: %w", desired, err)
	}
	return nil
}

// Delete powers the VM off if needed and destroys it.
func (h *vmHandle) Delete(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("vm", h.Name())

	o, err := h.RefreshRaw(ctx)
	if err != nil {
		return err
	}
	if o.Runtime.PowerState != vimtypes.VirtualMachinePowerStatePoweredOff {
		if err := h.Stop(ctx); err != nil {
			return err
		}
	}

	t, err := h.obj.Destroy(ctx)
	if err != nil {
		return err
	}
	if ti, err := t.WaitForResult(ctx); err != nil {
		if ti != nil {
			log.V(5).Error(err, "destroy VM task failed", "taskInfo", ti)
		}
		return fmt.Errorf("destroy VM task failed: %w", err)
	}
	log.Info("Destroyed VM")
	return nil
}

// Cleanup is Delete. Destroying a VM also removes its disks.
func (h *vmHandle) Cleanup(ctx context.Context) error {
	return h.Delete(ctx)
}

func (h *vmHandle) IP(ctx context.Context) (string, error) {
	o, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	if o.Guest == nil {
		return "", nil
	}
	return o.Guest.IpAddress, nil
}

func (h *vmHandle) CreationTime(ctx context.Context) (time.Time, error) {
	o, err := h.Raw(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if o.Config == nil || o.Config.CreateDate == nil {
		return time.Time{}, nil
	}
	return *o.Config.CreateDate, nil
}

func (h *vmHandle) Rename(ctx context.Context, name string) error {
	t, err := h.obj.Rename(ctx, name)
	if err != nil {
		return err
	}
	if err := t.Wait(ctx); err != nil {
		return fmt.Errorf("rename VM task failed: %w", err)
	}
	return h.Refresh(ctx)
}

func (h *vmHandle) Clone(ctx context.Context, name string) (vm.Handle, error) {
	ref, err := h.sys.clone(ctx, h.obj, name, false)
	if err != nil {
		return nil, err
	}
	o, err := h.sys.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return h.sys.newHandle(o), nil
}

func (h *vmHandle) String() string {
	return h.sys.String() + "{vm=" + h.Name() + ",moid=" + h.Attr("moid") + "}"
}

func isNotFound(err error) bool {
	return fault.Is(err, &vimtypes.ManagedObjectNotFound{})
}
