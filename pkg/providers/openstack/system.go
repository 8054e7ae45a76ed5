// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package openstack is the Nova backend. Templates are Glance images.
package openstack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/util/poll"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// System is an OpenStack project.
type System struct {
	clients       Clients
	actionTimeout time.Duration
	actionDelay   time.Duration
	vmOpts        []vm.Option
}

var _ system.VMSystem = &System{}

// New authenticates with the config in ctx.
func New(ctx context.Context) (*System, error) {
	cfg := config.FromContextOrDefault(ctx)
	clients, err := NewClients(ctx, cfg.OpenStack)
	if err != nil {
		return nil, err
	}
	return NewWithClients(clients, cfg), nil
}

// NewWithClients returns a System that uses existing service clients.
func NewWithClients(clients Clients, cfg config.Config) *System {
	return &System{
		clients:       clients,
		actionTimeout: cfg.ActionTimeout,
		actionDelay:   cfg.DefaultDelay,
		vmOpts:        []vm.Option{vm.WithConfig(cfg)},
	}
}

// Templates returns a TemplateSystem backed by Glance, or false if the
// cloud has no image endpoint.
func (s *System) Templates() (system.TemplateSystem, bool) {
	if s.clients.Images == nil {
		return nil, false
	}
	return templateSystem{s}, true
}

func (s *System) Name() string {
	if u, err := url.Parse(s.clients.Compute.Endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return s.clients.Compute.Endpoint
}

func (s *System) Info(_ context.Context) (string, error) {
	return "OpenStack compute at " + s.clients.Compute.Endpoint, nil
}

func (s *System) Disconnect(_ context.Context) error {
	return nil
}

func (s *System) Stats() system.Stats {
	stats := system.DefaultVMStats(s)
	if ts, ok := s.Templates(); ok {
		stats[system.StatNumTemplate] = func(ctx context.Context) (int, error) {
			t, err := ts.ListTemplates(ctx)
			return len(t), err
		}
	}
	return stats
}

func (s *System) Capabilities() vm.Capabilities {
	return vm.Capabilities{
		CanSuspend:     true,
		CanPause:       true,
		SteadyWaitTime: 5 * time.Minute,
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

// FindVMs returns the servers matching pattern. Deleted servers are not
// listed.
func (s *System) FindVMs(ctx context.Context, pattern string) ([]*vm.VM, error) {
	pages, err := servers.List(s.clients.Compute, servers.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	all, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, err
	}
	var out []*vm.VM
	for _, srv := range all {
		if stateMap.Translate(ctx, srv.Status) == vm.StateDeleted || !system.MatchName(pattern, srv.Name) {
			continue
		}
		out = append(out, s.newVM(srv))
	}
	return out, nil
}

// CreateVM boots a server. opts.Template names a Glance image, or is used
// as an image reference if the cloud has no image endpoint.
func (s *System) CreateVM(ctx context.Context, opts system.CreateVMOptions) (*vm.VM, error) {
	if opts.Name == "" {
		return nil, pkgerr.InvalidArgumentError{Argument: "name", Message: "must not be empty"}
	}

	imageRef := opts.Template
	if ts, ok := s.Templates(); ok && opts.Template != "" {
		t, err := ts.GetTemplate(ctx, opts.Template)
		if err != nil {
			return nil, err
		}
		imageRef = t.(*templateHandle).id
	}
	return s.boot(ctx, opts, imageRef)
}

func (s *System) boot(ctx context.Context, opts system.CreateVMOptions, imageRef string) (*vm.VM, error) {
	createOpts := servers.CreateOpts{
		Name:      opts.Name,
		ImageRef:  imageRef,
		FlavorRef: opts.Flavor,
	}
	if opts.Network != "" {
		createOpts.Networks = []servers.Network{{UUID: opts.Network}}
	}

	srv, err := servers.Create(ctx, s.clients.Compute, createOpts, nil).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Created server", "vm", opts.Name, "id", srv.ID)

	v, err := s.vmFromID(ctx, srv.ID)
	if err != nil {
		return nil, err
	}
	if opts.PowerOn {
		if err := v.EnsureState(ctx, vm.StateRunning, 0, 0); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *System) fetch(ctx context.Context, id string) (servers.Server, error) {
	srv, err := servers.Get(ctx, s.clients.Compute, id).Extract()
	if err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return servers.Server{}, pkgerr.NotFoundError{Kind: "vm", Name: id}
		}
		return servers.Server{}, fmt.Errorf("error retrieving server %s: %w", id, err)
	}
	return *srv, nil
}

func (s *System) vmFromID(ctx context.Context, id string) (*vm.VM, error) {
	srv, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.newVM(srv), nil
}

// waitForStatus polls the server until its status is one of want. A
// server in ERROR fails the wait. NotFound satisfies the wait when gone is
// set.
func (s *System) waitForStatus(ctx context.Context, id string, gone bool, want ...string) error {
	timeout, delay := s.actionTimeout, s.actionDelay
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if delay <= 0 {
		delay = time.Second
	}
	return poll.WaitFor(ctx, timeout, delay,
		fmt.Sprintf("server %s to reach %v", id, want),
		func(ctx context.Context) (bool, error) {
			srv, err := s.fetch(ctx, id)
			if err != nil {
				if gone && pkgerr.IsNotFound(err) {
					return true, nil
				}
				return false, err
			}
			for _, w := range want {
				if srv.Status == w {
					return true, nil
				}
			}
			if srv.Status == StatusError {
				return false, fmt.Errorf("server %s is in %s: %s", id, StatusError, srv.Fault.Message)
			}
			return false, nil
		})
}

func (s *System) String() string {
	return "openstack(" + s.Name() + ")"
}

type templateSystem struct {
	*System
}

var _ system.TemplateSystem = templateSystem{}

func (ts templateSystem) GetTemplate(ctx context.Context, name string) (template.Template, error) {
	templates, err := ts.FindTemplates(ctx, name)
	if err != nil {
		return nil, err
	}
	return system.OnlyOne(templates, "template", name)
}

func (ts templateSystem) ListTemplates(ctx context.Context) ([]template.Template, error) {
	return ts.FindTemplates(ctx, "*")
}

func (ts templateSystem) FindTemplates(ctx context.Context, pattern string) ([]template.Template, error) {
	pages, err := images.List(ts.clients.Images, images.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	all, err := images.ExtractImages(pages)
	if err != nil {
		return nil, err
	}
	var out []template.Template
	for _, img := range all {
		if system.MatchName(pattern, img.Name) {
			out = append(out, ts.newTemplate(img))
		}
	}
	return out, nil
}

// CreateTemplate snapshots the server named vmName into an image.
func (ts templateSystem) CreateTemplate(ctx context.Context, vmName, name string) (template.Template, error) {
	v, err := ts.GetVM(ctx, vmName)
	if err != nil {
		return nil, err
	}
	id := v.Handle().(*vmHandle).id

	imageID, err := servers.CreateImage(ctx, ts.clients.Compute, id, servers.CreateImageOpts{Name: name}).ExtractImageID()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot server %s: %w", vmName, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Created image", "vm", vmName, "template", name, "id", imageID)

	img, err := ts.fetchImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return ts.newTemplate(img), nil
}
