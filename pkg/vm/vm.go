// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package vm drives virtual machines on any backend toward a desired state.
package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/manageiq/wrapanapi/pkg/config"
	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

// VM wraps a backend Handle with a state cache and the state machine.
type VM struct {
	handle Handle
	caps   Capabilities
	opts   options
	cache  stateCache
}

type options struct {
	stateCacheTTL    time.Duration
	debounceInterval time.Duration
	defaultTimeout   time.Duration
	defaultDelay     time.Duration
	steadyWaitTime   time.Duration
}

// Option configures a VM.
type Option func(*options)

// WithConfig applies the timing values from c.
func WithConfig(c config.Config) Option {
	return func(o *options) {
		o.stateCacheTTL = c.StateCacheTTL
		o.debounceInterval = c.GetDebounceInterval()
		o.defaultTimeout = c.DefaultTimeout
		o.defaultDelay = c.DefaultDelay
		o.steadyWaitTime = c.SteadyWaitTime
	}
}

// WithStateCacheTTL sets how long a state read is reused.
func WithStateCacheTTL(d time.Duration) Option {
	return func(o *options) {
		o.stateCacheTTL = d
	}
}

// WithDebounceInterval sets how long EnsureState waits before confirming
// that a desired state held. When unset it is the cache TTL plus
// config.DebounceMargin.
func WithDebounceInterval(d time.Duration) Option {
	return func(o *options) {
		o.debounceInterval = d
	}
}

// WithDefaults sets the timeout and delay used when a wait is given zero
// values.
func WithDefaults(timeout, delay time.Duration) Option {
	return func(o *options) {
		o.defaultTimeout = timeout
		o.defaultDelay = delay
	}
}

// New returns a VM for h on a system with the given capabilities.
func New(h Handle, caps Capabilities, opts ...Option) *VM {
	if h == nil {
		panic("handle is nil")
	}
	o := options{}
	WithConfig(config.Default())(&o)
	for i := range opts {
		opts[i](&o)
	}
	v := &VM{
		handle: h,
		caps:   caps,
		opts:   o,
	}
	v.cache.ttl = o.stateCacheTTL
	return v
}

// Handle returns the backend handle.
func (v *VM) Handle() Handle {
	return v.handle
}

// Capabilities returns the capabilities of the owning system.
func (v *VM) Capabilities() Capabilities {
	return v.caps
}

// Name returns the display name of the VM.
func (v *VM) Name() string {
	return v.handle.Name()
}

// System returns the backend that owns the VM.
func (v *VM) System() entity.System {
	return v.handle.System()
}

// IdentifyingAttrs returns a copy of the VM's identifying attributes.
func (v *VM) IdentifyingAttrs() entity.Attrs {
	return v.handle.IdentifyingAttrs()
}

// Equal returns true if both VMs identify the same backend object.
func (v *VM) Equal(other *VM) bool {
	if v == nil || other == nil {
		return v == other
	}
	return entity.Equal(v.handle, other.handle)
}

func (v *VM) String() string {
	if s, ok := v.handle.(fmt.Stringer); ok {
		return s.String()
	}
	return v.handle.Name()
}

// State returns the VM's state, reusing a read younger than the cache TTL.
func (v *VM) State(ctx context.Context) (State, error) {
	if s, ok := v.cache.get(); ok {
		return s, nil
	}
	return v.FreshState(ctx)
}

// FreshState reads the state from the backend and repopulates the cache.
func (v *VM) FreshState(ctx context.Context) (State, error) {
	s, err := v.handle.GetState(ctx)
	if err != nil {
		v.cache.invalidate()
		return "", err
	}
	v.cache.set(s)
	return s, nil
}

// InvalidateState drops the cached state so the next read hits the backend.
func (v *VM) InvalidateState() {
	v.cache.invalidate()
}

func (v *VM) is(ctx context.Context, want State) (bool, error) {
	s, err := v.State(ctx)
	if err != nil {
		return false, err
	}
	return s == want, nil
}

func (v *VM) IsRunning(ctx context.Context) (bool, error) {
	return v.is(ctx, StateRunning)
}

func (v *VM) IsStopped(ctx context.Context) (bool, error) {
	return v.is(ctx, StateStopped)
}

func (v *VM) IsPaused(ctx context.Context) (bool, error) {
	return v.is(ctx, StatePaused)
}

func (v *VM) IsSuspended(ctx context.Context) (bool, error) {
	return v.is(ctx, StateSuspended)
}

func (v *VM) IsStarting(ctx context.Context) (bool, error) {
	return v.is(ctx, StateStarting)
}

func (v *VM) IsStopping(ctx context.Context) (bool, error) {
	return v.is(ctx, StateStopping)
}

// InSteadyState returns true if the VM is running, stopped, paused, or
// suspended.
func (v *VM) InSteadyState(ctx context.Context) (bool, error) {
	s, err := v.State(ctx)
	if err != nil {
		return false, err
	}
	return s.IsSteady(), nil
}

// Exists returns false if the backend no longer has the VM or reports it as
// deleted.
func (v *VM) Exists(ctx context.Context) (bool, error) {
	s, err := v.FreshState(ctx)
	if err != nil {
		if pkgerr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s != StateDeleted, nil
}

// Refresh re-fetches the VM's raw data and drops the cached state.
func (v *VM) Refresh(ctx context.Context) error {
	v.cache.invalidate()
	return v.handle.Refresh(ctx)
}

// Delete removes the VM from the backend.
func (v *VM) Delete(ctx context.Context) error {
	defer v.cache.invalidate()
	return v.handle.Delete(ctx)
}

// Cleanup removes the VM and its dependent resources.
func (v *VM) Cleanup(ctx context.Context) error {
	defer v.cache.invalidate()
	return v.handle.Cleanup(ctx)
}

// Start powers on the VM.
func (v *VM) Start(ctx context.Context) error {
	return v.do(ctx, ActionStart)
}

// Stop powers off the VM.
func (v *VM) Stop(ctx context.Context) error {
	return v.do(ctx, ActionStop)
}

// Suspend suspends the VM. A CapabilityError is returned if the system
// cannot suspend.
func (v *VM) Suspend(ctx context.Context) error {
	if err := v.requireCapability(CapabilitySuspend); err != nil {
		return err
	}
	return v.do(ctx, ActionSuspend)
}

// Pause pauses the VM. A CapabilityError is returned if the system cannot
// pause.
func (v *VM) Pause(ctx context.Context) error {
	if err := v.requireCapability(CapabilityPause); err != nil {
		return err
	}
	return v.do(ctx, ActionPause)
}

func (v *VM) do(ctx context.Context, a Action) error {
	defer v.cache.invalidate()
	return v.actionFunc(a)(ctx)
}

func (v *VM) requireCapability(c Capability) error {
	if v.caps.Has(c) {
		return nil
	}
	return pkgerr.CapabilityError{
		System:     systemName(v.handle.System()),
		Capability: string(c),
	}
}

// IP returns the VM's primary IP address.
func (v *VM) IP(ctx context.Context) (string, error) {
	h, ok := v.handle.(IPAddresser)
	if !ok {
		return "", v.unsupported("ip")
	}
	return h.IP(ctx)
}

// CreationTime returns when the VM was created.
func (v *VM) CreationTime(ctx context.Context) (time.Time, error) {
	h, ok := v.handle.(CreationTimer)
	if !ok {
		return time.Time{}, v.unsupported("creation time")
	}
	return h.CreationTime(ctx)
}

// Rename changes the VM's display name.
func (v *VM) Rename(ctx context.Context, name string) error {
	h, ok := v.handle.(Renamer)
	if !ok {
		return v.unsupported("rename")
	}
	return h.Rename(ctx, name)
}

// Clone copies the VM to a new VM named name on the same system.
func (v *VM) Clone(ctx context.Context, name string) (*VM, error) {
	h, ok := v.handle.(Cloner)
	if !ok {
		return nil, v.unsupported("clone")
	}
	nh, err := h.Clone(ctx, name)
	if err != nil {
		return nil, err
	}
	return &VM{handle: nh, caps: v.caps, opts: v.opts, cache: stateCache{ttl: v.opts.stateCacheTTL}}, nil
}

func (v *VM) unsupported(op string) error {
	return pkgerr.UnsupportedOperationError{Kind: "vm", Operation: op}
}

func systemName(s entity.System) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
