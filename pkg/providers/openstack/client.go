// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package openstack

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	osconfig "github.com/gophercloud/gophercloud/v2/openstack/config"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkglog "github.com/manageiq/wrapanapi/pkg/log"
)

// Clients are the service clients the backend talks to. Volumes and Images
// are optional.
type Clients struct {
	Compute *gophercloud.ServiceClient
	Volumes *gophercloud.ServiceClient
	Images  *gophercloud.ServiceClient
}

// NewClients authenticates against Keystone and returns the service
// clients. The named cloud is read from clouds.yaml. Without one, the OS_*
// environment variables are used.
func NewClients(ctx context.Context, cfg config.OpenStack) (Clients, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("NewClients")

	provider, eo, err := newProviderClient(ctx, cfg)
	if err != nil {
		return Clients{}, err
	}

	compute, err := openstack.NewComputeV2(provider, eo)
	if err != nil {
		return Clients{}, fmt.Errorf("cannot find the compute endpoint: %w", err)
	}
	clients := Clients{Compute: compute}

	if clients.Volumes, err = openstack.NewBlockStorageV3(provider, eo); err != nil {
		pkglog.Warn(log, "No block storage endpoint, cleanup will not remove volumes", "error", err.Error())
		clients.Volumes = nil
	}
	if clients.Images, err = openstack.NewImageV2(provider, eo); err != nil {
		pkglog.Warn(log, "No image endpoint, templates are not available", "error", err.Error())
		clients.Images = nil
	}

	return clients, nil
}

func newProviderClient(
	ctx context.Context,
	cfg config.OpenStack) (*gophercloud.ProviderClient, gophercloud.EndpointOpts, error) {

	if cfg.Cloud != "" {
		ao, eo, tlsConfig, err := clouds.Parse(clouds.WithCloudName(cfg.Cloud))
		if err != nil {
			return nil, gophercloud.EndpointOpts{}, fmt.Errorf(
				"cannot read cloud %q from clouds.yaml: %w", cfg.Cloud, err)
		}
		ao.AllowReauth = true
		provider, err := osconfig.NewProviderClient(ctx, ao, osconfig.WithTLSConfig(tlsConfig))
		if err != nil {
			return nil, gophercloud.EndpointOpts{}, fmt.Errorf(
				"cannot authenticate to cloud %q: %w", cfg.Cloud, err)
		}
		return provider, eo, nil
	}

	ao, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, gophercloud.EndpointOpts{}, fmt.Errorf(
			"cannot initialize OpenStack client from OS_* variables: %w", err)
	}
	ao.AllowReauth = true
	provider, err := openstack.AuthenticatedClient(ctx, ao)
	if err != nil {
		return nil, gophercloud.EndpointOpts{}, fmt.Errorf(
			"cannot initialize OpenStack client from OS_* variables: %w", err)
	}
	eo := gophercloud.EndpointOpts{
		Availability: gophercloud.Availability(os.Getenv("OS_INTERFACE")),
		Region:       os.Getenv("OS_REGION_NAME"),
	}
	return provider, eo, nil
}
