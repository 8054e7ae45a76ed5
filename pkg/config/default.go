// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/manageiq/wrapanapi/pkg"
)

// Default returns a Config object with default values.
func Default() Config {
	return Config{
		BuildCommit:  pkg.BuildCommit,
		BuildVersion: pkg.BuildVersion,

		Provider:       ProviderTypeSimulated,
		StateCacheTTL:  1 * time.Second,
		DefaultTimeout: 10 * time.Minute,
		DefaultDelay:   5 * time.Second,
		SteadyWaitTime: 3 * time.Minute,
		ActionTimeout:  5 * time.Minute,
		VSphere: VSphere{
			Port: "443",
		},
		KubeVirt: KubeVirt{
			Namespace: "default",
		},
		NATS: NATS{
			Subject: "wrapanapi.vm",
		},
	}
}
