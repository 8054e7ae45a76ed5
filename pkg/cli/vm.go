// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

func addVMCommandsTo(parent *cobra.Command, a *app) {
	parent.AddCommand(
		newListCommand(a),
		&cobra.Command{
			Use:   "state <vm>",
			Short: "Print the state of a VM.",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				s, err := v.FreshState(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}),
		},
		&cobra.Command{
			Use:     "ensure <vm> <state>",
			Short:   "Drive a VM to the given state.",
			Long:    "Drive a VM to one of: " + joinStates(vm.EnsurableStates()) + ".",
			Example: "  wrapanapi ensure db-0 stopped --timeout 5m",
			Args:    cobra.ExactArgs(2),
			RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
				desired, err := parseState(args[1])
				if err != nil {
					return err
				}
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				return v.EnsureState(ctx, desired, a.opts.timeout, a.opts.delay)
			}),
		},
		newWaitCommand(a),
		&cobra.Command{
			Use:   "restart <vm>",
			Short: "Stop and then start a VM.",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				return v.Restart(ctx, a.opts.timeout, a.opts.delay)
			}),
		},
		&cobra.Command{
			Use:   "exists <vm>",
			Short: "Print whether a VM exists.",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
				ok, err := system.DoesVMExist(ctx, a.sys, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			}),
		},
		newCreateCommand(a),
		newDeleteCommand(a),
		&cobra.Command{
			Use:   "rename <vm> <new-name>",
			Short: "Rename a VM.",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				return v.Rename(ctx, args[1])
			}),
		},
		&cobra.Command{
			Use:   "clone <vm> <new-name>",
			Short: "Copy a VM.",
			Args:  cobra.ExactArgs(2),
			RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				c, err := v.Clone(ctx, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c.Name())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "ip <vm>",
			Short: "Print the primary IP address of a VM.",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
				v, err := a.sys.GetVM(ctx, args[0])
				if err != nil {
					return err
				}
				ip, err := v.IP(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ip)
				return nil
			}),
		},
	)
}

type vmInfo struct {
	Name  string   `json:"name"`
	State vm.State `json:"state"`
}

func newListCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list [pattern]",
		Short:   "List VMs and their states.",
		Example: "  wrapanapi list 'web-*' -o yaml",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return validateOutput(output)
		},
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			vms, err := a.sys.FindVMs(ctx, pattern)
			if err != nil {
				return err
			}
			infos := make([]vmInfo, 0, len(vms))
			for _, v := range vms {
				s, err := v.State(ctx)
				if err != nil {
					// Deleted between the list and the state read.
					if pkgerr.IsNotFound(err) {
						continue
					}
					return err
				}
				infos = append(infos, vmInfo{Name: v.Name(), State: s})
			}

			w := cmd.OutOrStdout()
			if output == outputYAML {
				return writeYAML(w, infos)
			}
			for _, i := range infos {
				fmt.Fprintf(w, "%s\t%s\n", i.Name, i.State)
			}
			return nil
		}),
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newWaitCommand(a *app) *cobra.Command {
	var steady bool
	cmd := &cobra.Command{
		Use:   "wait <vm> [state]",
		Short: "Wait for a VM to reach a state without acting on it.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			if steady == (len(args) == 2) {
				return pkgerr.InvalidArgumentError{
					Argument: "state",
					Message:  "give either a state or --steady",
				}
			}
			v, err := a.sys.GetVM(ctx, args[0])
			if err != nil {
				return err
			}
			if steady {
				return v.WaitForSteadyState(ctx, a.opts.timeout, a.opts.delay)
			}
			desired, err := parseState(args[1])
			if err != nil {
				return err
			}
			return v.WaitForState(ctx, desired, a.opts.timeout, a.opts.delay)
		}),
	}
	cmd.Flags().BoolVar(&steady, "steady", false, "Wait for any steady state.")
	return cmd
}

func newCreateCommand(a *app) *cobra.Command {
	var opts system.CreateVMOptions
	cmd := &cobra.Command{
		Use:     "create <vm>",
		Short:   "Create a VM.",
		Example: "  wrapanapi create web-0 --template rhel9 --power-on",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			v, err := a.sys.CreateVM(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Name())
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.Template, "template", "", "Template or image to create the VM from.")
	cmd.Flags().StringVar(&opts.Flavor, "flavor", "", "Flavor or instance type of the VM.")
	cmd.Flags().StringVar(&opts.Network, "network", "", "Network to attach the VM to.")
	cmd.Flags().BoolVar(&opts.PowerOn, "power-on", false, "Start the VM once it is created.")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var cleanup bool
	cmd := &cobra.Command{
		Use:   "delete <vm>",
		Short: "Delete a VM.",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			v, err := a.sys.GetVM(ctx, args[0])
			if err != nil {
				return err
			}
			if cleanup {
				return v.Cleanup(ctx)
			}
			return v.Delete(ctx)
		}),
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Also remove the VM's disks and volumes.")
	return cmd
}

func parseState(s string) (vm.State, error) {
	st, ok := vm.ParseState(s)
	if !ok {
		return "", pkgerr.InvalidArgumentError{
			Argument: "state",
			Message:  fmt.Sprintf("%q is not one of %s", s, joinStates(vm.ValidStates())),
		}
	}
	return st, nil
}

func joinStates(states []vm.State) string {
	s := make([]string, len(states))
	for i := range states {
		s[i] = string(states[i])
	}
	return strings.Join(s, ", ")
}
