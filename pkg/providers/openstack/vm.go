// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package openstack

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumes"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/volumeattach"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type vmHandle struct {
	*entity.Base[servers.Server]

	sys *System
	id  string

	mu   sync.RWMutex
	name string
}

var (
	_ vm.Handle        = &vmHandle{}
	_ vm.IPAddresser   = &vmHandle{}
	_ vm.CreationTimer = &vmHandle{}
	_ vm.Renamer       = &vmHandle{}
)

func (s *System) newVM(srv servers.Server) *vm.VM {
	h := &vmHandle{sys: s, id: srv.ID, name: srv.Name}
	h.Base = entity.NewBaseWithRaw(s, entity.Attrs{"id": srv.ID}, h.fetch, srv)
	return vm.New(h, s.Capabilities(), s.vmOpts...)
}

func (h *vmHandle) fetch(ctx context.Context) (servers.Server, error) {
	srv, err := h.sys.fetch(ctx, h.id)
	if err != nil {
		return servers.Server{}, err
	}
	h.mu.Lock()
	h.name = srv.Name
	h.mu.Unlock()
	return srv, nil
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
	srv, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	return stateMap.Translate(ctx, srv.Status), nil
}

// Start picks the Nova action that brings the server back to ACTIVE from
// its current status.
func (h *vmHandle) Start(ctx context.Context) error {
	srv, err := h.RefreshRaw(ctx)
	if err != nil {
		return err
	}

	c := h.sys.clients.Compute
	switch srv.Status {
	case StatusActive:
		return nil
	case StatusSuspended:
		err = servers.Resume(ctx, c, h.id).ExtractErr()
	case StatusPaused:
		err = servers.Unpause(ctx, c, h.id).ExtractErr()
	case StatusShelved, StatusShelvedOffloaded:
		err = servers.Unshelve(ctx, c, h.id, servers.UnshelveOpts{}).ExtractErr()
	default:
		err = servers.Start(ctx, c, h.id).ExtractErr()
	}
	return h.finish(ctx, "start", err, StatusActive)
}

func (h *vmHandle) Stop(ctx context.Context) error {
	err := servers.Stop(ctx, h.sys.clients.Compute, h.id).ExtractErr()
	return h.finish(ctx, "stop", err, StatusShutoff)
}

func (h *vmHandle) Suspend(ctx context.Context) error {
	err := servers.Suspend(ctx, h.sys.clients.Compute, h.id).ExtractErr()
	return h.finish(ctx, "suspend", err, StatusSuspended)
}

func (h *vmHandle) Pause(ctx context.Context) error {
	err := servers.Pause(ctx, h.sys.clients.Compute, h.id).ExtractErr()
	return h.finish(ctx, "pause", err, StatusPaused)
}

func (h *vmHandle) finish(ctx context.Context, action string, err error, want string) error {
	if err != nil {
		return fmt.Errorf("failed to %s server %s: %w", action, h.Name(), err)
	}
	logr.FromContextOrDiscard(ctx).V(4).Info("Waiting for server status",
		"vm", h.Name(), "action", action, "status", want)
	return h.sys.waitForStatus(ctx, h.id, false, want)
}

func (h *vmHandle) Delete(ctx context.Context) error {
	if err := servers.Delete(ctx, h.sys.clients.Compute, h.id).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete server %s: %w", h.Name(), err)
	}
	logr.FromContextOrDiscard(ctx).Info("Deleted server", "vm", h.Name(), "id", h.id)
	return nil
}

// Cleanup deletes the server, waits for it to be gone, and then deletes the
// volumes that were attached to it. Volume errors are aggregated.
func (h *vmHandle) Cleanup(ctx context.Context) error {
	if h.sys.clients.Volumes == nil {
		return pkgerr.UnsupportedOperationError{Kind: "openstack vm", Operation: "cleanup"}
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("vm", h.Name())

	pages, err := volumeattach.List(h.sys.clients.Compute, h.id).AllPages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list volume attachments: %w", err)
	}
	attachments, err := volumeattach.ExtractVolumeAttachments(pages)
	if err != nil {
		return err
	}

	if err := h.Delete(ctx); err != nil {
		return err
	}
	if err := h.sys.waitForStatus(ctx, h.id, true, StatusDeleted, StatusSoftDeleted); err != nil {
		return err
	}

	var errs []error
	for _, a := range attachments {
		log.Info("Deleting volume", "volumeID", a.VolumeID)
		if err := volumes.Delete(ctx, h.sys.clients.Volumes, a.VolumeID, volumes.DeleteOpts{}).ExtractErr(); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete volume %s: %w", a.VolumeID, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// IP returns the access address if set, otherwise the first IPv4 address
// of the networks sorted by name.
func (h *vmHandle) IP(ctx context.Context) (string, error) {
	srv, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	if srv.AccessIPv4 != "" {
		return srv.AccessIPv4, nil
	}
	for _, network := range slices.Sorted(maps.Keys(srv.Addresses)) {
		addrs, _ := srv.Addresses[network].([]any)
		for _, a := range addrs {
			m, _ := a.(map[string]any)
			if v, _ := m["version"].(float64); v == 4 {
				if addr, _ := m["addr"].(string); addr != "" {
					return addr, nil
				}
			}
		}
	}
	return "", nil
}

func (h *vmHandle) CreationTime(ctx context.Context) (time.Time, error) {
	srv, err := h.Raw(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return srv.Created, nil
}

func (h *vmHandle) Rename(ctx context.Context, name string) error {
	if _, err := servers.Update(ctx, h.sys.clients.Compute, h.id, servers.UpdateOpts{Name: name}).Extract(); err != nil {
		return fmt.Errorf("failed to rename server %s: %w", h.Name(), err)
	}
	return h.Refresh(ctx)
}

func (h *vmHandle) String() string {
	return h.sys.String() + "{vm=" + h.Name() + ",id=" + h.id + "}"
}
