// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package pkg

var (
	// BuildCommit is injected at build-time.
	BuildCommit string

	// BuildVersion is injected at build-time.
	BuildVersion = "v0.0.0"
)
