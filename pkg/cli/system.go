// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manageiq/wrapanapi/pkg/system"
)

func addSystemCommandsTo(parent *cobra.Command, a *app) {
	parent.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Describe the backend.",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
				info, err := a.sys.Info(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), info)
				return nil
			}),
		},
		newStatsCommand(a),
	)
}

func newStatsCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "stats [name]...",
		Short:   "Print backend statistics, all of them if no name is given.",
		Example: "  wrapanapi stats num_vm num_running_vm",
		PreRunE: func(*cobra.Command, []string) error {
			return validateOutput(output)
		},
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			stats, err := system.CollectStats(ctx, a.sys, args...)
			if err != nil {
				return err
			}
			if output == outputYAML {
				return writeYAML(cmd.OutOrStdout(), stats)
			}
			names := args
			if len(names) == 0 {
				names = a.sys.Stats().Names()
			}
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", n, stats[n])
			}
			return nil
		}),
	}
	addOutputFlag(cmd, &output)
	return cmd
}
