// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package cli is the wrapanapi command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/manageiq/wrapanapi/pkg"
	"github.com/manageiq/wrapanapi/pkg/config"
	pkglog "github.com/manageiq/wrapanapi/pkg/log"
	"github.com/manageiq/wrapanapi/pkg/providers"
	"github.com/manageiq/wrapanapi/pkg/record"
	"github.com/manageiq/wrapanapi/pkg/system"
)

// SystemFunc connects to the backend described by the config in ctx.
type SystemFunc func(ctx context.Context) (system.VMSystem, error)

type options struct {
	provider    string
	dbPath      string
	timeout     time.Duration
	delay       time.Duration
	verbosity   int
	trace       bool
	dumpMetrics bool
}

type app struct {
	opts      options
	newSystem SystemFunc

	sys     system.VMSystem
	closers []func(context.Context) error
}

// Option configures the root command.
type Option func(*app)

// WithSystemFunc replaces the function used to connect to the backend.
func WithSystemFunc(fn SystemFunc) Option {
	return func(a *app) {
		a.newSystem = fn
	}
}

// NewRootCommand returns the wrapanapi command with every subcommand
// mounted.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{newSystem: providers.New}
	for _, o := range opts {
		o(a)
	}

	rootCmd := &cobra.Command{
		Use:   "wrapanapi",
		Short: "Manage VMs and templates across virtualization backends.",
		Long: `wrapanapi drives VMs and templates on vSphere, OpenStack, KubeVirt or a
local simulated backend through one set of commands. Power commands converge
on the desired state and tolerate VMs that are still transitioning.`,
		Version:       pkg.BuildVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.provider, "provider", "", "Backend to use, overrides WRAPANAPI_PROVIDER.")
	flags.StringVar(&a.opts.dbPath, "simulated-db", "", "Directory of the simulated backend's database.")
	flags.DurationVar(&a.opts.timeout, "timeout", 0, "How long to wait for a VM to converge. Zero uses the configured default.")
	flags.DurationVar(&a.opts.delay, "delay", 0, "Interval between state polls. Zero uses the configured default.")
	flags.IntVarP(&a.opts.verbosity, "verbosity", "v", 0, "Log verbosity.")
	flags.BoolVar(&a.opts.trace, "trace", false, "Write OpenTelemetry spans to stderr.")
	flags.BoolVar(&a.opts.dumpMetrics, "metrics", false, "Write Prometheus metrics to stderr on exit.")

	addVMCommandsTo(rootCmd, a)
	addTemplateCommandsTo(rootCmd, a)
	addSystemCommandsTo(rootCmd, a)
	return rootCmd
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

// run wraps fn so it executes connected to the backend. Everything acquired
// while connecting is released once fn returns, even if it failed.
func (a *app) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (retErr error) {
		defer func() {
			if err := a.teardown(cmd.ErrOrStderr()); err != nil {
				retErr = utilerrors.NewAggregate([]error{retErr, err})
			}
		}()
		ctx, err := a.setup(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, args)
	}
}

// setup builds the command context and connects to the backend.
func (a *app) setup(cmd *cobra.Command) (context.Context, error) {
	cfg := config.FromEnv()
	cfg.BuildVersion = pkg.BuildVersion
	cfg.BuildCommit = pkg.BuildCommit
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = config.ProviderType(a.opts.provider)
	}
	if flags.Changed("simulated-db") {
		cfg.Simulated.DBPath = a.opts.dbPath
	}
	if flags.Changed("verbosity") {
		cfg.LogVerbosity = a.opts.verbosity
	}

	logger := pkglog.NewLogger(cmd.ErrOrStderr(), cfg.LogVerbosity).WithName("wrapanapi")
	pkglog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logr.NewContext(config.WithContext(ctx, cfg), logger)

	if a.opts.trace {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(cmd.ErrOrStderr()),
			stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		otel.SetTracerProvider(tp)
		a.closers = append(a.closers, tp.Shutdown)
	}

	if cfg.NATS.URL != "" {
		nc, err := record.ConnectNATS(cfg.NATS.URL, logger.WithName("nats"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		ctx = record.WithContext(ctx, record.NewNATSRecorder(nc, cfg.NATS.Subject))
		a.closers = append(a.closers, func(context.Context) error {
			return nc.Drain()
		})
	}

	sys, err := a.newSystem(ctx)
	if err != nil {
		return nil, err
	}
	a.sys = sys
	a.closers = append(a.closers, sys.Disconnect)
	logger.V(4).Info("Connected", "system", sys.Name(), "provider", cfg.Provider)

	return ctx, nil
}

// teardown releases everything setup acquired, most recent first.
func (a *app) teardown(stderr io.Writer) error {
	ctx := context.Background()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.sys = nil

	if a.opts.dumpMetrics {
		if err := writeMetrics(stderr); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func writeMetrics(w io.Writer) error {
	families, err := ctrlmetrics.Registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
