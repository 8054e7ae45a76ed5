// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/manageiq/wrapanapi/pkg/config/env"
)

// FromEnv returns a new Config that has been initialized from environment
// variables.
func FromEnv() Config {
	config := Default()

	setProviderType(env.Provider, &config.Provider)
	setDuration(env.StateCacheTTL, &config.StateCacheTTL)
	setDuration(env.DebounceInterval, &config.DebounceInterval)
	setDuration(env.DefaultTimeout, &config.DefaultTimeout)
	setDuration(env.DefaultDelay, &config.DefaultDelay)
	setDuration(env.SteadyWaitTime, &config.SteadyWaitTime)
	setDuration(env.ActionTimeout, &config.ActionTimeout)
	setInt(env.LogVerbosity, &config.LogVerbosity)

	setString(env.VSphereHost, &config.VSphere.Host)
	setString(env.VSpherePort, &config.VSphere.Port)
	setString(env.VSphereUsername, &config.VSphere.Username)
	setString(env.VSpherePassword, &config.VSphere.Password)
	setString(env.VSphereDatacenter, &config.VSphere.Datacenter)
	setBool(env.VSphereInsecure, &config.VSphere.Insecure)

	setString(env.OpenStackCloud, &config.OpenStack.Cloud)

	setString(env.Kubeconfig, &config.KubeVirt.Kubeconfig)
	setString(env.KubeVirtNamespace, &config.KubeVirt.Namespace)

	setString(env.SimulatedDBPath, &config.Simulated.DBPath)
	setDuration(env.SimulatedActionLatency, &config.Simulated.ActionLatency)

	setString(env.NATSURL, &config.NATS.URL)
	setString(env.NATSSubject, &config.NATS.Subject)

	return config
}

func setBool(n env.VarName, p *bool) {
	if v := os.Getenv(n.String()); v != "" {
		if v, err := strconv.ParseBool(v); err == nil {
			*p = v
		}
	}
}

func setDuration(n env.VarName, p *time.Duration) {
	if v := os.Getenv(n.String()); v != "" {
		if v, err := time.ParseDuration(v); err == nil {
			*p = v
		}
	}
}

func setInt(n env.VarName, p *int) {
	if v := os.Getenv(n.String()); v != "" {
		if v, err := strconv.Atoi(v); err == nil {
			*p = v
		}
	}
}

func setProviderType(n env.VarName, p *ProviderType) {
	if v := os.Getenv(n.String()); v != "" {
		*p = ProviderType(v)
	}
}

func setString(n env.VarName, p *string) {
	if v := os.Getenv(n.String()); v != "" {
		*p = v
	}
}
