// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package vsphere is the vCenter backend. VMs and templates are both
// VirtualMachine managed objects, told apart by config.template.
package vsphere

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

const virtualMachineType = "VirtualMachine"

// vmProperties are retrieved whenever a VM or template is listed or
// refreshed.
var vmProperties = []string{
	"name",
	"config.template",
	"config.createDate",
	"runtime.powerState",
	"guest.ipAddress",
}

// System is a vCenter datacenter.
type System struct {
	client        *Client
	actionTimeout time.Duration
	vmOpts        []vm.Option
}

var (
	_ system.VMSystem       = &System{}
	_ system.TemplateSystem = &System{}
)

// New logs in to the vCenter described by the config in ctx.
func New(ctx context.Context) (*System, error) {
	cfg := config.FromContextOrDefault(ctx)
	c, err := NewClient(ctx, cfg.VSphere)
	if err != nil {
		return nil, err
	}
	return NewWithClient(c, cfg), nil
}

// NewWithClient returns a System that uses an existing session.
func NewWithClient(c *Client, cfg config.Config) *System {
	return &System{
		client:        c,
		actionTimeout: cfg.ActionTimeout,
		vmOpts:        []vm.Option{vm.WithConfig(cfg)},
	}
}

func (s *System) Name() string {
	return s.client.Config().Host
}

func (s *System) Info(_ context.Context) (string, error) {
	about := s.client.VimClient().ServiceContent.About
	return fmt.Sprintf("%s (datacenter %s)", about.FullName, s.client.Datacenter().Name()), nil
}

func (s *System) Disconnect(ctx context.Context) error {
	s.client.Logout(ctx)
	return nil
}

func (s *System) Stats() system.Stats {
	return system.DefaultVMStats(s)
}

func (s *System) Capabilities() vm.Capabilities {
	return vm.Capabilities{
		CanSuspend:     true,
		SteadyWaitTime: 3 * time.Minute,
	}
}

// retrieve returns every VirtualMachine in the datacenter, templates
// included.
func (s *System) retrieve(ctx context.Context) ([]mo.VirtualMachine, error) {
	m := view.NewManager(s.client.VimClient())
	v, err := m.CreateContainerView(
		ctx,
		s.client.Datacenter().Reference(),
		[]string{virtualMachineType},
		true)
	if err != nil {
		return nil, fmt.Errorf("failed to create container view: %w", err)
	}
	defer func() {
		_ = v.Destroy(context.Background())
	}()

	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{virtualMachineType}, vmProperties, &vms); err != nil {
		return nil, fmt.Errorf("failed to retrieve virtual machines: %w", err)
	}
	return vms, nil
}

func isTemplate(o mo.VirtualMachine) bool {
	return o.Config != nil && o.Config.Template
}

func (s *System) GetVM(ctx context.Context, name string) (*vm.VM, error) {
	vms, err := s.FindVMs(ctx, name)
	if err != nil {
		return nil, err
	}
	return system.OnlyOne(vms, "vm", name)
}

func (s *System) ListVMs(ctx context.Context) ([]*vm.VM, error) {
	return s.FindVMs(ctx, "*")
}

func (s *System) FindVMs(ctx context.Context, pattern string) ([]*vm.VM, error) {
	objs, err := s.retrieve(ctx)
	if err != nil {
		return nil, err
	}
	var out []*vm.VM
	for _, o := range objs {
		if isTemplate(o) || !system.MatchName(pattern, o.Name) {
			continue
		}
		out = append(out, s.newVM(o))
	}
	return out, nil
}

// CreateVM deploys opts.Template when it is set. Otherwise an empty VM is
// created in the default resource pool on the first datastore.
func (s *System) CreateVM(ctx context.Context, opts system.CreateVMOptions) (*vm.VM, error) {
	if opts.Name == "" {
		return nil, pkgerr.InvalidArgumentError{Argument: "name", Message: "must not be empty"}
	}

	var (
		v   *vm.VM
		err error
	)
	if opts.Template != "" {
		var t template.Template
		if t, err = s.GetTemplate(ctx, opts.Template); err != nil {
			return nil, err
		}
		v, err = t.Deploy(ctx, template.DeployOptions{Name: opts.Name})
	} else {
		v, err = s.createEmpty(ctx, opts.Name)
	}
	if err != nil {
		return nil, err
	}

	if opts.PowerOn {
		if err := v.Start(ctx); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *System) createEmpty(ctx context.Context, name string) (*vm.VM, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("vm", name)

	folders, err := s.client.Datacenter().Folders(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := s.client.Finder().DefaultResourcePool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find the default resource pool: %w", err)
	}
	ds, err := s.client.Finder().DefaultDatastore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find the default datastore: %w", err)
	}

	spec := vimtypes.VirtualMachineConfigSpec{
		Name:    name,
		GuestId: string(vimtypes.VirtualMachineGuestOsIdentifierOtherGuest),
		Files: &vimtypes.VirtualMachineFileInfo{
			VmPathName: fmt.Sprintf("[%s]", ds.Name()),
		},
		NumCPUs:  1,
		MemoryMB: 128,
	}

	log.V(4).Info("Creating VM", "pool", pool.Reference().Value)
	t, err := folders.VmFolder.CreateVM(ctx, spec, pool, nil)
	if err != nil {
		return nil, err
	}
	result, err := t.WaitForResult(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create VM %q task failed: %w", name, err)
	}

	ref := result.Result.(vimtypes.ManagedObjectReference)
	log.Info("Created VM", "moid", ref.Value)
	return s.vmFromRef(ctx, ref)
}

// clone copies src into the datacenter's VM folder and returns the new
// object's reference.
func (s *System) clone(
	ctx context.Context,
	src *object.VirtualMachine,
	name string,
	withPool bool) (vimtypes.ManagedObjectReference, error) {

	folders, err := s.client.Datacenter().Folders(ctx)
	if err != nil {
		return vimtypes.ManagedObjectReference{}, err
	}

	spec := vimtypes.VirtualMachineCloneSpec{}
	if withPool {
		pool, err := s.client.Finder().DefaultResourcePool(ctx)
		if err != nil {
			return vimtypes.ManagedObjectReference{}, fmt.Errorf(
				"failed to find the default resource pool: %w", err)
		}
		poolRef := pool.Reference()
		spec.Location.Pool = &poolRef
	}

	t, err := src.Clone(ctx, folders.VmFolder, name, spec)
	if err != nil {
		return vimtypes.ManagedObjectReference{}, err
	}
	result, err := t.WaitForResult(ctx, nil)
	if err != nil {
		return vimtypes.ManagedObjectReference{}, fmt.Errorf("clone VM task failed: %w", err)
	}
	return result.Result.(vimtypes.ManagedObjectReference), nil
}

func (s *System) fetch(ctx context.Context, ref vimtypes.ManagedObjectReference) (mo.VirtualMachine, error) {
	var o mo.VirtualMachine
	obj := object.NewVirtualMachine(s.client.VimClient(), ref)
	if err := obj.Properties(ctx, ref, vmProperties, &o); err != nil {
		if isNotFound(err) {
			return mo.VirtualMachine{}, pkgerr.NotFoundError{Kind: "vm", Name: ref.Value}
		}
		return mo.VirtualMachine{}, fmt.Errorf("error retrieving VM %s: %w", ref.Value, err)
	}
	return o, nil
}

func (s *System) vmFromRef(ctx context.Context, ref vimtypes.ManagedObjectReference) (*vm.VM, error) {
	o, err := s.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.newVM(o), nil
}

func (s *System) GetTemplate(ctx context.Context, name string) (template.Template, error) {
	templates, err := s.FindTemplates(ctx, name)
	if err != nil {
		return nil, err
	}
	return system.OnlyOne(templates, "template", name)
}

func (s *System) ListTemplates(ctx context.Context) ([]template.Template, error) {
	return s.FindTemplates(ctx, "*")
}

func (s *System) FindTemplates(ctx context.Context, pattern string) ([]template.Template, error) {
	objs, err := s.retrieve(ctx)
	if err != nil {
		return nil, err
	}
	var out []template.Template
	for _, o := range objs {
		if !isTemplate(o) || !system.MatchName(pattern, o.Name) {
			continue
		}
		out = append(out, s.newTemplate(o))
	}
	return out, nil
}

// CreateTemplate clones the VM named vmName and marks the copy as a
// template. The source VM is left untouched.
func (s *System) CreateTemplate(ctx context.Context, vmName, name string) (template.Template, error) {
	v, err := s.GetVM(ctx, vmName)
	if err != nil {
		return nil, err
	}
	h := v.Handle().(*vmHandle)

	ref, err := s.clone(ctx, h.obj, name, false)
	if err != nil {
		return nil, err
	}
	obj := object.NewVirtualMachine(s.client.VimClient(), ref)
	if err := obj.MarkAsTemplate(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark %s as a template: %w", name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Created template", "vm", vmName, "template", name, "moid", ref.Value)

	o, err := s.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.newTemplate(o), nil
}

func (s *System) String() string {
	return "vsphere(" + s.Name() + ")"
}
