// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package kubevirt is the KubeVirt backend. VirtualMachine resources are
// handled as unstructured objects so no KubeVirt client is required.
package kubevirt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/util/poll"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// System is a namespace of a cluster running KubeVirt.
type System struct {
	client        ctrlclient.Client
	host          string
	namespace     string
	actionTimeout time.Duration
	actionDelay   time.Duration
	vmOpts        []vm.Option
}

var _ system.VMSystem = &System{}

// New connects to the cluster described by the config in ctx.
func New(ctx context.Context) (*System, error) {
	cfg := config.FromContextOrDefault(ctx)
	restConfig, err := RestConfig(cfg.KubeVirt)
	if err != nil {
		return nil, err
	}
	c, err := ctrlclient.New(restConfig, ctrlclient.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", restConfig.Host, err)
	}
	logr.FromContextOrDiscard(ctx).V(4).Info("Connected to cluster",
		"host", restConfig.Host, "namespace", cfg.KubeVirt.Namespace)
	return NewWithClient(c, restConfig.Host, cfg), nil
}

// RestConfig loads the kubeconfig at cfg.Kubeconfig. If it is empty the
// default loading rules apply, falling back to the in-cluster config.
func RestConfig(cfg config.KubeVirt) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = cfg.Kubeconfig
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return restConfig, nil
}

// NewWithClient returns a System that uses an existing client.
func NewWithClient(c ctrlclient.Client, host string, cfg config.Config) *System {
	namespace := cfg.KubeVirt.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return &System{
		client:        c,
		host:          host,
		namespace:     namespace,
		actionTimeout: cfg.ActionTimeout,
		actionDelay:   cfg.DefaultDelay,
		vmOpts:        []vm.Option{vm.WithConfig(cfg)},
	}
}

func (s *System) Name() string {
	return s.host
}

func (s *System) Info(_ context.Context) (string, error) {
	return fmt.Sprintf("KubeVirt at %s (namespace %s)", s.host, s.namespace), nil
}

func (s *System) Disconnect(_ context.Context) error {
	return nil
}

func (s *System) Stats() system.Stats {
	return system.DefaultVMStats(s)
}

func (s *System) Capabilities() vm.Capabilities {
	return vm.Capabilities{
		SteadyWaitTime: 5 * time.Minute,
	}
}

func (s *System) GetVM(ctx context.Context, name string) (*vm.VM, error) {
	vms, err := s.FindVMs(ctx, name)
	if err != nil {
		return nil, err
	}
	return system.OnlyOne(vms, "vm", name)
}

func (s *System) ListVMs(ctx context.Context) ([]*vm.VM, error) {
	return s.FindVMs(ctx, "*")
}

func (s *System) FindVMs(ctx context.Context, pattern string) ([]*vm.VM, error) {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(VirtualMachineListGVK)
	if err := s.client.List(ctx, list, ctrlclient.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}
	var out []*vm.VM
	for i := range list.Items {
		u := &list.Items[i]
		if system.MatchName(pattern, u.GetName()) {
			out = append(out, s.newVM(u))
		}
	}
	return out, nil
}

// CreateVM creates a VirtualMachine. opts.Template is used as a
// containerDisk image and opts.Flavor as an instancetype.
func (s *System) CreateVM(ctx context.Context, opts system.CreateVMOptions) (*vm.VM, error) {
	if opts.Name == "" {
		return nil, pkgerr.InvalidArgumentError{Argument: "name", Message: "must not be empty"}
	}

	runStrategy := RunStrategyHalted
	if opts.PowerOn {
		runStrategy = RunStrategyAlways
	}

	domain := map[string]any{
		"devices": map[string]any{},
	}
	spec := map[string]any{
		"runStrategy": runStrategy,
		"template": map[string]any{
			"spec": map[string]any{
				"domain": domain,
			},
		},
	}
	if opts.Flavor != "" {
		spec["instancetype"] = map[string]any{"name": opts.Flavor}
	} else {
		domain["resources"] = map[string]any{
			"requests": map[string]any{"memory": "128Mi"},
		}
	}
	if opts.Template != "" {
		tmplSpec := spec["template"].(map[string]any)["spec"].(map[string]any)
		domain["devices"] = map[string]any{
			"disks": []any{
				map[string]any{"name": "rootdisk", "disk": map[string]any{"bus": "virtio"}},
			},
		}
		tmplSpec["volumes"] = []any{
			map[string]any{
				"name":          "rootdisk",
				"containerDisk": map[string]any{"image": opts.Template},
			},
		}
	}

	u := &unstructured.Unstructured{Object: map[string]any{"spec": spec}}
	u.SetGroupVersionKind(VirtualMachineGVK)
	u.SetNamespace(s.namespace)
	u.SetName(opts.Name)

	if err := s.client.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create virtual machine %s: %w", opts.Name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Created virtual machine",
		"vm", opts.Name, "namespace", s.namespace, "runStrategy", runStrategy)
	return s.newVM(u), nil
}

func (s *System) fetch(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(VirtualMachineGVK)
	if err := s.client.Get(ctx, ctrlclient.ObjectKey{Namespace: s.namespace, Name: name}, u); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, pkgerr.NotFoundError{Kind: "vm", Name: name}
		}
		return nil, fmt.Errorf("error retrieving virtual machine %s: %w", name, err)
	}
	return u, nil
}

// waitForStatus polls the VirtualMachine until its printable status is
// want.
func (s *System) waitForStatus(ctx context.Context, name, want string) error {
	timeout, delay := s.actionTimeout, s.actionDelay
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if delay <= 0 {
		delay = time.Second
	}
	return poll.WaitFor(ctx, timeout, delay,
		fmt.Sprintf("virtual machine %s to be %s", name, want),
		func(ctx context.Context) (bool, error) {
			u, err := s.fetch(ctx, name)
			if err != nil {
				return false, err
			}
			return printableStatus(u) == want, nil
		})
}

func (s *System) String() string {
	return "kubevirt(" + s.host + "/" + s.namespace + ")"
}
