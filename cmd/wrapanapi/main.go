// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	ctrlsig "sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/manageiq/wrapanapi/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(ctrlsig.SetupSignalHandler()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
