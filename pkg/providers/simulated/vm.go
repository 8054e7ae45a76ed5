// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package simulated

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manageiq/wrapanapi/pkg/entity"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type vmHandle struct {
	*entity.Base[Machine]

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
	_ vm.Cloner        = &vmHandle{}
)

func (s *System) newHandle(m Machine) *vmHandle {
	h := &vmHandle{sys: s, id: m.ID, name: m.Name}
	h.Base = entity.NewBaseWithRaw(s, entity.Attrs{"id": m.ID}, h.fetch, m)
	return h
}

func (s *System) newVM(m Machine) *vm.VM {
	return vm.New(s.newHandle(m), s.Capabilities(), s.vmOpts...)
}

func (h *vmHandle) fetch(_ context.Context) (Machine, error) {
	m, err := h.sys.store.getMachine(h.id)
	if err != nil {
		return Machine{}, err
	}
	h.mu.Lock()
	h.name = m.Name
	h.mu.Unlock()
	return m, nil
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
	m, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	return stateMap.Translate(ctx, string(m.Status)), nil
}

func (h *vmHandle) Start(ctx context.Context) error {
	return h.sys.power(ctx, h.id, vm.ActionStart)
}

func (h *vmHandle) Stop(ctx context.Context) error {
	return h.sys.power(ctx, h.id, vm.ActionStop)
}

func (h *vmHandle) Suspend(ctx context.Context) error {
	return h.sys.power(ctx, h.id, vm.ActionSuspend)
}

func (h *vmHandle) Pause(ctx context.Context) error {
	return h.sys.power(ctx, h.id, vm.ActionPause)
}

// Delete marks the VM terminated. The record remains so the VM reports as
// deleted rather than missing.
func (h *vmHandle) Delete(ctx context.Context) error {
	return h.sys.terminate(ctx, h.id)
}

// Cleanup removes the VM record entirely.
func (h *vmHandle) Cleanup(ctx context.Context) error {
	return h.sys.remove(ctx, h.id)
}

// IP returns an address derived from the VM id while it is running, and an
// empty string otherwise.
func (h *vmHandle) IP(ctx context.Context) (string, error) {
	m, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	if m.Status != StatusRunning {
		return "", nil
	}
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("10.%d.%d.%d", id[0], id[1], id[2]%254+1), nil
}

func (h *vmHandle) CreationTime(ctx context.Context) (time.Time, error) {
	m, err := h.Raw(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return m.CreatedAt, nil
}

func (h *vmHandle) Rename(ctx context.Context, name string) error {
	if err := h.sys.rename(h.id, name); err != nil {
		return err
	}
	return h.Refresh(ctx)
}

func (h *vmHandle) Clone(ctx context.Context, name string) (vm.Handle, error) {
	m, err := h.sys.clone(ctx, h.id, name)
	if err != nil {
		return nil, err
	}
	return h.sys.newHandle(m), nil
}
