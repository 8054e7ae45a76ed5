// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/providers"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
)

func addTemplateCommandsTo(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Template commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [pattern]",
			Short: "List templates.",
			Args:  cobra.MaximumNArgs(1),
			RunE: a.runTemplates(func(ctx context.Context, cmd *cobra.Command, ts system.TemplateSystem, args []string) error {
				pattern := "*"
				if len(args) > 0 {
					pattern = args[0]
				}
				templates, err := ts.FindTemplates(ctx, pattern)
				if err != nil {
					return err
				}
				for _, t := range templates {
					fmt.Fprintln(cmd.OutOrStdout(), t.Name())
				}
				return nil
			}),
		},
		newDeployCommand(a),
		&cobra.Command{
			Use:   "create <vm> <template>",
			Short: "Create a template from a VM.",
			Args:  cobra.ExactArgs(2),
			RunE: a.runTemplates(func(ctx context.Context, cmd *cobra.Command, ts system.TemplateSystem, args []string) error {
				t, err := ts.CreateTemplate(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Name())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <template>",
			Short: "Delete a template.",
			Args:  cobra.ExactArgs(1),
			RunE: a.runTemplates(func(ctx context.Context, _ *cobra.Command, ts system.TemplateSystem, args []string) error {
				t, err := ts.GetTemplate(ctx, args[0])
				if err != nil {
					return err
				}
				return t.Delete(ctx)
			}),
		},
	)
	parent.AddCommand(cmd)
}

func newDeployCommand(a *app) *cobra.Command {
	var powerOn bool
	cmd := &cobra.Command{
		Use:   "deploy <template> <vm>",
		Short: "Deploy a new VM from a template.",
		Args:  cobra.ExactArgs(2),
		RunE: a.runTemplates(func(ctx context.Context, cmd *cobra.Command, ts system.TemplateSystem, args []string) error {
			t, err := ts.GetTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			v, err := template.Deploy(ctx, t, template.DeployOptions{
				Name:    args[1],
				PowerOn: powerOn,
				Timeout: a.opts.timeout,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Name())
			return nil
		}),
	}
	cmd.Flags().BoolVar(&powerOn, "power-on", false, "Wait for the new VM to be running.")
	return cmd
}

type templateRunFunc func(ctx context.Context, cmd *cobra.Command, ts system.TemplateSystem, args []string) error

// runTemplates is run for commands that need the template side of the
// backend.
func (a *app) runTemplates(fn templateRunFunc) func(*cobra.Command, []string) error {
	return a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		ts, ok := providers.Templates(a.sys)
		if !ok {
			return pkgerr.UnsupportedOperationError{Kind: a.sys.Name(), Operation: "templates"}
		}
		return fn(ctx, cmd, ts, args)
	})
}
