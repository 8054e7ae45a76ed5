// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
)

// VarName is the name of an environment variable.
type VarName uint8

const (
	_varNameBegin VarName = iota

	Provider
	StateCacheTTL
	DebounceInterval
	DefaultTimeout
	DefaultDelay
	SteadyWaitTime
	ActionTimeout
	LogVerbosity
	VSphereHost
	VSpherePort
	VSphereUsername
	VSpherePassword
	VSphereDatacenter
	VSphereInsecure
	OpenStackCloud
	Kubeconfig
	KubeVirtNamespace
	SimulatedDBPath
	SimulatedActionLatency
	NATSURL
	NATSSubject

	_varNameEnd
)

// Unset unsets all environment variables related to wrapanapi.
func Unset() {
	for _, n := range All() {
		_ = os.Unsetenv(n.String())
	}
}

// All returns all of the environment variable names.
func All() []VarName {
	all := make([]VarName, _varNameEnd-1)
	i := 0
	for n := _varNameBegin + 1; n < _varNameEnd; n++ {
		all[i] = n
		i++
	}
	return all
}

// String returns the stringified version of the environment variable name.
//
//nolint:gocyclo
func (n VarName) String() string {
	switch n {
	case Provider:
		return "WRAPANAPI_PROVIDER"
	case StateCacheTTL:
		return "WRAPANAPI_STATE_CACHE_TTL"
	case DebounceInterval:
		return "WRAPANAPI_DEBOUNCE_INTERVAL"
	case DefaultTimeout:
		return "WRAPANAPI_DEFAULT_TIMEOUT"
	case DefaultDelay:
		return "WRAPANAPI_DEFAULT_DELAY"
	case SteadyWaitTime:
		return "WRAPANAPI_STEADY_WAIT_TIME"
	case ActionTimeout:
		return "WRAPANAPI_ACTION_TIMEOUT"
	case LogVerbosity:
		return "WRAPANAPI_LOG_VERBOSITY"
	case VSphereHost:
		return "VSPHERE_HOST"
	case VSpherePort:
		return "VSPHERE_PORT"
	case VSphereUsername:
		return "VSPHERE_USERNAME"
	case VSpherePassword:
		return "VSPHERE_PASSWORD"
	case VSphereDatacenter:
		return "VSPHERE_DATACENTER"
	case VSphereInsecure:
		return "VSPHERE_INSECURE"
	case OpenStackCloud:
		return "OS_CLOUD"
	case Kubeconfig:
		return "KUBECONFIG"
	case KubeVirtNamespace:
		return "KUBEVIRT_NAMESPACE"
	case SimulatedDBPath:
		return "WRAPANAPI_SIMULATED_DB"
	case SimulatedActionLatency:
		return "WRAPANAPI_SIMULATED_ACTION_LATENCY"
	case NATSURL:
		return "WRAPANAPI_NATS_URL"
	case NATSSubject:
		return "WRAPANAPI_NATS_SUBJECT"
	}
	panic("unknown environment variable")
}
