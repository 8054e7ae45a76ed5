// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// Config represents the internal configuration of wrapanapi. It should only
// be read/written via the context functions.
//
// Please note that all fields in this type MUST be types that are copied by
// value, not reference. That means no string slices, maps, etc. The reason is
// to prevent the possibility of race conditions when reading/writing data to
// a Config instance stored in a context.
type Config struct {
	BuildCommit  string
	BuildVersion string

	// Provider selects the backend system.
	//
	// Defaults to "simulated".
	Provider ProviderType

	// StateCacheTTL is how long a VM's state is served from its cache before
	// the backend is queried again.
	//
	// Defaults to 1s.
	StateCacheTTL time.Duration

	// DebounceInterval is how long EnsureState waits before re-reading a
	// state that matched the desired state. A value of zero means
	// StateCacheTTL plus a small margin.
	//
	// Defaults to 0.
	DebounceInterval time.Duration

	// DefaultTimeout bounds state waits when the caller passes no timeout.
	//
	// Defaults to 10m.
	DefaultTimeout time.Duration

	// DefaultDelay is the interval between polls when the caller passes no
	// delay.
	//
	// Defaults to 5s.
	DefaultDelay time.Duration

	// SteadyWaitTime bounds WaitForSteadyState when no timeout is given.
	//
	// Defaults to 3m.
	SteadyWaitTime time.Duration

	// ActionTimeout bounds a single backend action, ex. a power-on request
	// and the wait for the backend to report it complete.
	//
	// Defaults to 5m.
	ActionTimeout time.Duration

	// LogVerbosity is the klog verbosity of the default logger.
	LogVerbosity int

	VSphere   VSphere
	OpenStack OpenStack
	KubeVirt  KubeVirt
	Simulated Simulated
	NATS      NATS
}

// VSphere contains the connection details for a vCenter.
type VSphere struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Datacenter string
	Insecure   bool
}

// OpenStack contains the details used to authenticate against Nova.
type OpenStack struct {
	// Cloud is the name of an entry in clouds.yaml. If empty, the standard
	// OS_* environment variables are used.
	Cloud string
}

// KubeVirt contains the details used to reach a Kubernetes cluster running
// KubeVirt.
type KubeVirt struct {
	// Kubeconfig is the path to a kubeconfig file. If empty, the in-cluster
	// config or the default loading rules are used.
	Kubeconfig string

	// Namespace is where VirtualMachine resources are managed.
	//
	// Defaults to "default".
	Namespace string
}

// Simulated configures the local simulated backend.
type Simulated struct {
	// DBPath is the directory of the badger database. If empty, the
	// database is kept in memory.
	DBPath string

	// ActionLatency is how long each simulated power operation spends in
	// its transitional status.
	ActionLatency time.Duration
}

// NATS configures publishing of VM transition events.
type NATS struct {
	// URL of the NATS server. Events are not published if empty.
	URL string

	// Subject is the subject prefix events are published under.
	//
	// Defaults to "wrapanapi.vm".
	Subject string
}

// ProviderType is the name of a backend system implementation.
type ProviderType string

const (
	ProviderTypeSimulated ProviderType = "simulated"
	ProviderTypeVSphere   ProviderType = "vsphere"
	ProviderTypeOpenStack ProviderType = "openstack"
	ProviderTypeKubeVirt  ProviderType = "kubevirt"
)

// GetDebounceInterval returns DebounceInterval if it is >0, otherwise the
// StateCacheTTL plus a margin so the re-read cannot be served from the
// cache.
func (c Config) GetDebounceInterval() time.Duration {
	if c.DebounceInterval > 0 {
		return c.DebounceInterval
	}
	return c.StateCacheTTL + DebounceMargin
}

// DebounceMargin is added to StateCacheTTL to derive the default debounce
// interval.
const DebounceMargin = 100 * time.Millisecond
