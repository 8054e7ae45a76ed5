// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vsphere

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"

	"github.com/manageiq/wrapanapi/pkg/entity"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type templateHandle struct {
	*entity.Base[mo.VirtualMachine]

	sys  *System
	obj  *object.VirtualMachine
	name string
}

var _ template.Template = &templateHandle{}

func (s *System) newTemplate(o mo.VirtualMachine) *templateHandle {
	t := &templateHandle{
		sys:  s,
		obj:  object.NewVirtualMachine(s.client.VimClient(), o.Self),
		name: o.Name,
	}
	t.Base = entity.NewBaseWithRaw(s, entity.Attrs{"moid": o.Self.Value}, t.fetch, o)
	return t
}

func (t *templateHandle) fetch(ctx context.Context) (mo.VirtualMachine, error) {
	return t.sys.fetch(ctx, t.obj.Reference())
}

func (t *templateHandle) Name() string {
	return t.name
}

func (t *templateHandle) Delete(ctx context.Context) error {
	task, err := t.obj.Destroy(ctx)
	if err != nil {
		if isNotFound(err) {
			return t.Refresh(ctx)
		}
		return err
	}
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("destroy template task failed: %w", err)
	}
	logr.FromContextOrDiscard(ctx).Info("Destroyed template", "template", t.name)
	return nil
}

// Cleanup is Delete.
func (t *templateHandle) Cleanup(ctx context.Context) error {
	return t.Delete(ctx)
}

// Deploy clones the template into the default resource pool.
func (t *templateHandle) Deploy(ctx context.Context, opts template.DeployOptions) (*vm.VM, error) {
	ref, err := t.sys.clone(ctx, t.obj, opts.Name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy template %s: %w", t.name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Deployed template", "template", t.name, "vm", opts.Name, "moid", ref.Value)
	return t.sys.vmFromRef(ctx, ref)
}
