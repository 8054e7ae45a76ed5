// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package providers selects a backend system from the configuration.
package providers

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/go-logr/logr"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/providers/kubevirt"
	"github.com/manageiq/wrapanapi/pkg/providers/openstack"
	"github.com/manageiq/wrapanapi/pkg/providers/simulated"
	"github.com/manageiq/wrapanapi/pkg/providers/vsphere"
	"github.com/manageiq/wrapanapi/pkg/system"
)

// Factory connects to a backend using the config in ctx.
type Factory func(ctx context.Context) (system.VMSystem, error)

var factories = map[config.ProviderType]Factory{
	config.ProviderTypeSimulated: func(ctx context.Context) (system.VMSystem, error) {
		return simulated.New(ctx)
	},
	config.ProviderTypeVSphere: func(ctx context.Context) (system.VMSystem, error) {
		return vsphere.New(ctx)
	},
	config.ProviderTypeOpenStack: func(ctx context.Context) (system.VMSystem, error) {
		return openstack.New(ctx)
	},
	config.ProviderTypeKubeVirt: func(ctx context.Context) (system.VMSystem, error) {
		return kubevirt.New(ctx)
	},
}

// Types returns the supported provider types, sorted.
func Types() []config.ProviderType {
	return slices.Sorted(maps.Keys(factories))
}

// New connects to the backend named by the Provider field of the config in
// ctx. An InvalidArgumentError is returned for an unknown provider.
func New(ctx context.Context) (system.VMSystem, error) {
	cfg := config.FromContextOrDefault(ctx)
	factory, ok := factories[cfg.Provider]
	if !ok {
		return nil, pkgerr.InvalidArgumentError{
			Argument: "provider",
			Message:  fmt.Sprintf("%q is not one of %v", cfg.Provider, Types()),
		}
	}

	logr.FromContextOrDiscard(ctx).V(4).Info("Connecting to backend", "provider", cfg.Provider)
	sys, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Provider, err)
	}
	return sys, nil
}

// Templates returns the template side of sys, if it has one.
func Templates(sys system.VMSystem) (system.TemplateSystem, bool) {
	switch s := sys.(type) {
	case system.TemplateSystem:
		return s, true
	case interface {
		Templates() (system.TemplateSystem, bool)
	}:
		return s.Templates()
	default:
		return nil, false
	}
}
