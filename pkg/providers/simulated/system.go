// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package simulated is a local backend whose VMs live in a badger database.
// Every power operation is supported and native transitions are enforced
// the way a real hypervisor would.
package simulated

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/util"
	"github.com/manageiq/wrapanapi/pkg/util/poll"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// System is a simulated backend.
type System struct {
	name    string
	path    string
	store   *store
	locks   util.LockPool[string]
	latency time.Duration
	vmOpts  []vm.Option
}

var (
	_ system.VMSystem       = &System{}
	_ system.TemplateSystem = &System{}
)

// New opens the simulated backend described by the config in ctx.
func New(ctx context.Context) (*System, error) {
	cfg := config.FromContextOrDefault(ctx)
	st, err := openStore(cfg.Simulated.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open simulated store: %w", err)
	}
	logr.FromContextOrDiscard(ctx).V(4).Info("Opened simulated backend",
		"path", cfg.Simulated.DBPath)
	return &System{
		name:    "simulated",
		path:    cfg.Simulated.DBPath,
		store:   st,
		latency: cfg.Simulated.ActionLatency,
		vmOpts:  []vm.Option{vm.WithConfig(cfg)},
	}, nil
}

func (s *System) Name() string {
	return s.name
}

func (s *System) Info(_ context.Context) (string, error) {
	if s.path == "" {
		return "simulated backend (in-memory)", nil
	}
	return "simulated backend at " + s.path, nil
}

func (s *System) Disconnect(_ context.Context) error {
	return s.store.close()
}

func (s *System) Stats() system.Stats {
	return system.DefaultVMStats(s)
}

func (s *System) Capabilities() vm.Capabilities {
	return vm.Capabilities{
		CanSuspend:     true,
		CanPause:       true,
		SteadyWaitTime: s.latency*4 + time.Minute,
	}
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

// FindVMs returns the VMs matching pattern. Terminated VMs are not listed.
func (s *System) FindVMs(_ context.Context, pattern string) ([]*vm.VM, error) {
	machines, err := s.store.listMachines()
	if err != nil {
		return nil, err
	}
	var out []*vm.VM
	for _, m := range machines {
		if m.Status == StatusTerminated || !system.MatchName(pattern, m.Name) {
			continue
		}
		out = append(out, s.newVM(m))
	}
	return out, nil
}

// CreateVM creates a stopped VM, starting it if opts.PowerOn is set.
func (s *System) CreateVM(ctx context.Context, opts system.CreateVMOptions) (*vm.VM, error) {
	if opts.Name == "" {
		return nil, pkgerr.InvalidArgumentError{Argument: "name", Message: "must not be empty"}
	}
	m := Machine{
		ID:        uuid.NewString(),
		Name:      opts.Name,
		Status:    StatusStopped,
		Template:  opts.Template,
		Flavor:    opts.Flavor,
		Network:   opts.Network,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.putMachine(m); err != nil {
		return nil, fmt.Errorf("failed to create vm %s: %w", opts.Name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Created simulated VM", "vm", m.Name, "id", m.ID)

	v := s.newVM(m)
	if opts.PowerOn {
		if err := v.Start(ctx); err != nil {
			return v, err
		}
	}
	return v, nil
}

// SetStatus forces the native status of the VM with the given id. It lets
// callers reproduce backend faults, ex. a VM stuck in error.
func (s *System) SetStatus(_ context.Context, id string, status Status) error {
	return s.locks.With(id, func() error {
		m, err := s.store.getMachine(id)
		if err != nil {
			return err
		}
		m.Status = status
		return s.store.putMachine(m)
	})
}

// power applies action to the VM with the given id. With a latency the VM
// sits in the rule's transitional status before reaching its final status.
func (s *System) power(ctx context.Context, id string, action vm.Action) error {
	rule := powerRules[action]

	var via bool
	err := s.locks.With(id, func() error {
		m, err := s.store.getMachine(id)
		if err != nil {
			return err
		}
		if !rule.allows(m.Status) {
			return IllegalTransitionError{VM: m.Name, Action: action, Status: m.Status}
		}
		m.Status = rule.to
		if s.latency > 0 && rule.via != "" {
			m.Status = rule.via
			via = true
		}
		return s.store.putMachine(m)
	})
	if err != nil || !via {
		return err
	}

	if err := poll.Sleep(ctx, s.latency); err != nil {
		return err
	}

	return s.locks.With(id, func() error {
		m, err := s.store.getMachine(id)
		if err != nil {
			return err
		}
		if m.Status != rule.via {
			return nil
		}
		m.Status = rule.to
		return s.store.putMachine(m)
	})
}

func (s *System) terminate(ctx context.Context, id string) error {
	return s.locks.With(id, func() error {
		m, err := s.store.getMachine(id)
		if err != nil {
			return err
		}
		m.Status = StatusTerminated
		logr.FromContextOrDiscard(ctx).Info("Terminated simulated VM", "vm", m.Name, "id", id)
		return s.store.putMachine(m)
	})
}

func (s *System) remove(ctx context.Context, id string) error {
	err := s.locks.With(id, func() error {
		if _, err := s.store.getMachine(id); err != nil {
			return err
		}
		return s.store.delete(vmKeyPrefix + id)
	})
	if err != nil {
		return err
	}
	s.locks.Delete(id)
	logr.FromContextOrDiscard(ctx).Info("Removed simulated VM", "id", id)
	return nil
}

func (s *System) rename(id, name string) error {
	return s.locks.With(id, func() error {
		m, err := s.store.getMachine(id)
		if err != nil {
			return err
		}
		m.Name = name
		return s.store.putMachine(m)
	})
}

func (s *System) clone(ctx context.Context, id, name string) (Machine, error) {
	src, err := s.store.getMachine(id)
	if err != nil {
		return Machine{}, err
	}
	v, err := s.CreateVM(ctx, system.CreateVMOptions{
		Name:     name,
		Template: src.Template,
		Flavor:   src.Flavor,
		Network:  src.Network,
	})
	if err != nil {
		return Machine{}, err
	}
	return s.store.getMachine(v.IdentifyingAttrs()["id"])
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

func (s *System) FindTemplates(_ context.Context, pattern string) ([]template.Template, error) {
	images, err := s.store.listImages()
	if err != nil {
		return nil, err
	}
	var out []template.Template
	for _, i := range images {
		if system.MatchName(pattern, i.Name) {
			out = append(out, s.newTemplate(i))
		}
	}
	return out, nil
}

// CreateTemplate copies the stopped VM named vmName into a template.
func (s *System) CreateTemplate(ctx context.Context, vmName, name string) (template.Template, error) {
	v, err := s.GetVM(ctx, vmName)
	if err != nil {
		return nil, err
	}
	h := v.Handle().(*vmHandle)
	m, err := h.RefreshRaw(ctx)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusStopped {
		return nil, pkgerr.InvalidArgumentError{
			Argument: "vm",
			Message:  fmt.Sprintf("%s must be stopped to create a template, it is %s", vmName, m.Status),
		}
	}
	i := Image{
		ID:        uuid.NewString(),
		Name:      name,
		SourceVM:  m.ID,
		Flavor:    m.Flavor,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.putImage(i); err != nil {
		return nil, fmt.Errorf("failed to create template %s: %w", name, err)
	}
	return s.newTemplate(i), nil
}

func (s *System) String() string {
	return s.name
}
