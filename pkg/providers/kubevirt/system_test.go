// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package kubevirt_test

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/manageiq/wrapanapi/pkg/config"
	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/providers/kubevirt"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

var _ = Describe("System", func() {
	var (
		ctx      context.Context
		client   ctrlclient.Client
		sys      *kubevirt.System
		withObjs []ctrlclient.Object
	)

	BeforeEach(func() {
		withObjs = nil
	})

	JustBeforeEach(func() {
		cfg := config.Default()
		cfg.StateCacheTTL = 0
		cfg.DebounceInterval = 10 * time.Millisecond
		cfg.DefaultDelay = 10 * time.Millisecond
		cfg.DefaultTimeout = 5 * time.Second
		cfg.ActionTimeout = 5 * time.Second
		cfg.KubeVirt.Namespace = namespace
		ctx = logr.NewContext(config.WithContext(context.Background(), cfg), GinkgoLogr)

		client = newFakeClient(withObjs...)
		sys = kubevirt.NewWithClient(client, "https://cluster.example:6443", cfg)
	})

	getVM := func(name string) *vm.VM {
		v, err := sys.GetVM(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		return v
	}

	runStrategy := func(name string) string {
		u := &unstructured.Unstructured{}
		u.SetGroupVersionKind(kubevirt.VirtualMachineGVK)
		Expect(client.Get(ctx, ctrlclient.ObjectKey{Namespace: namespace, Name: name}, u)).To(Succeed())
		rs, _, _ := unstructured.NestedString(u.Object, "spec", "runStrategy")
		return rs
	}

	It("should describe the cluster", func() {
		Expect(sys.Name()).To(Equal("https://cluster.example:6443"))
		info, err := sys.Info(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(info).To(ContainSubstring("namespace vms"))

		caps := sys.Capabilities()
		Expect(caps.CanSuspend).To(BeFalse())
		Expect(caps.CanPause).To(BeFalse())
	})

	Describe("lookups", func() {
		BeforeEach(func() {
			withObjs = append(withObjs,
				newVirtualMachine("web-1", kubevirt.RunStrategyAlways, kubevirt.StatusRunning),
				newVirtualMachine("web-2", kubevirt.RunStrategyHalted, kubevirt.StatusStopped),
				newVirtualMachine("db", kubevirt.RunStrategyAlways, kubevirt.StatusRunning),
			)
			other := newVirtualMachine("elsewhere", kubevirt.RunStrategyAlways, kubevirt.StatusRunning)
			other.SetNamespace("other")
			withObjs = append(withObjs, other)
		})

		It("should only list VMs in the namespace", func() {
			vms, err := sys.ListVMs(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(3))

			ok, err := system.DoesVMExist(ctx, sys, "elsewhere")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should find VMs by pattern", func() {
			vms, err := sys.FindVMs(ctx, "web-?")
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(2))
		})

		It("should collect stats", func() {
			stats, err := system.CollectStats(ctx, sys, system.StatNumVM, system.StatNumRunningVM)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(map[string]int{
				system.StatNumVM:        3,
				system.StatNumRunningVM: 2,
			}))
		})

		It("should identify VMs by namespace and name", func() {
			Expect(getVM("db").IdentifyingAttrs()).To(Equal(entity.Attrs{
				"namespace": namespace,
				"name":      "db",
			}))
		})
	})

	Describe("state", func() {
		DescribeTable("printable status translation",
			func(runStrategy, status string, want vm.State) {
				Expect(client.Create(ctx, newVirtualMachine("vm", runStrategy, status))).To(Succeed())
				Expect(getVM("vm").State(ctx)).To(Equal(want))
			},
			Entry("Running", kubevirt.RunStrategyAlways, kubevirt.StatusRunning, vm.StateRunning),
			Entry("Stopped", kubevirt.RunStrategyHalted, kubevirt.StatusStopped, vm.StateStopped),
			Entry("Paused", kubevirt.RunStrategyAlways, kubevirt.StatusPaused, vm.StatePaused),
			Entry("Provisioning", kubevirt.RunStrategyAlways, kubevirt.StatusProvisioning, vm.StateStarting),
			Entry("Terminating", kubevirt.RunStrategyHalted, kubevirt.StatusTerminating, vm.StateStopping),
			Entry("ErrImagePull", kubevirt.RunStrategyAlways, kubevirt.StatusErrImagePull, vm.StateError),
			Entry("no status and halted", kubevirt.RunStrategyHalted, "", vm.StateStopped),
			Entry("no status and running", kubevirt.RunStrategyAlways, "", vm.StateStarting),
			Entry("unmapped", kubevirt.RunStrategyAlways, "Hibernating", vm.StateUnknown),
		)
	})

	Describe("power", func() {
		BeforeEach(func() {
			withObjs = append(withObjs,
				newVirtualMachine("vm", kubevirt.RunStrategyHalted, kubevirt.StatusStopped))
		})

		It("should start and stop through the runStrategy", func() {
			v := getVM("vm")
			Expect(v.EnsureState(ctx, vm.StateRunning, 0, 0)).To(Succeed())
			Expect(v.IsRunning(ctx)).To(BeTrue())
			Expect(runStrategy("vm")).To(Equal(kubevirt.RunStrategyAlways))

			Expect(v.EnsureState(ctx, vm.StateStopped, 0, 0)).To(Succeed())
			Expect(v.IsStopped(ctx)).To(BeTrue())
			Expect(runStrategy("vm")).To(Equal(kubevirt.RunStrategyHalted))
		})

		It("should reject suspend before touching the cluster", func() {
			err := getVM("vm").EnsureState(ctx, vm.StateSuspended, 0, 0)
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
			Expect(runStrategy("vm")).To(Equal(kubevirt.RunStrategyHalted))
		})

		It("should refuse to pause", func() {
			err := getVM("vm").EnsureState(ctx, vm.StatePaused, 0, 0)
			Expect(pkgerr.IsCapability(err)).To(BeTrue())
		})

		It("should clone a halted copy", func() {
			Expect(getVM("vm").Start(ctx)).To(Succeed())

			c, err := getVM("vm").Clone(ctx, "copy")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.Name()).To(Equal("copy"))
			Expect(c.IsStopped(ctx)).To(BeTrue())
			Expect(runStrategy("copy")).To(Equal(kubevirt.RunStrategyHalted))
		})

		It("should report the instance address", func() {
			v := getVM("vm")
			Expect(v.IP(ctx)).To(BeEmpty())

			Expect(client.Create(ctx, newVirtualMachineInstance("vm", "10.244.0.12"))).To(Succeed())
			Expect(v.IP(ctx)).To(Equal("10.244.0.12"))
		})
	})

	Describe("delete", func() {
		BeforeEach(func() {
			withObjs = append(withObjs,
				newVirtualMachine("vm", kubevirt.RunStrategyAlways, kubevirt.StatusRunning))
		})

		It("should delete the VirtualMachine", func() {
			v := getVM("vm")
			Expect(v.Delete(ctx)).To(Succeed())
			Expect(v.Exists(ctx)).To(BeFalse())
			Expect(pkgerr.IsNotFound(v.Delete(ctx))).To(BeTrue())
		})

		It("should clean up the VirtualMachine", func() {
			v := getVM("vm")
			Expect(v.Cleanup(ctx)).To(Succeed())
			Expect(v.Exists(ctx)).To(BeFalse())
		})
	})

	Describe("CreateVM", func() {
		It("should create a halted VM from an image", func() {
			v, err := sys.CreateVM(ctx, system.CreateVMOptions{
				Name:     "new",
				Template: "quay.io/containerdisks/fedora:latest",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.IsStopped(ctx)).To(BeTrue())

			u := &unstructured.Unstructured{}
			u.SetGroupVersionKind(kubevirt.VirtualMachineGVK)
			Expect(client.Get(ctx, ctrlclient.ObjectKey{Namespace: namespace, Name: "new"}, u)).To(Succeed())
			volumes, _, _ := unstructured.NestedSlice(u.Object, "spec", "template", "spec", "volumes")
			Expect(volumes).To(HaveLen(1))
		})

		It("should request an instancetype for a flavor", func() {
			_, err := sys.CreateVM(ctx, system.CreateVMOptions{Name: "new", Flavor: "u1.small", PowerOn: true})
			Expect(err).ToNot(HaveOccurred())

			u := &unstructured.Unstructured{}
			u.SetGroupVersionKind(kubevirt.VirtualMachineGVK)
			Expect(client.Get(ctx, ctrlclient.ObjectKey{Namespace: namespace, Name: "new"}, u)).To(Succeed())
			name, _, _ := unstructured.NestedString(u.Object, "spec", "instancetype", "name")
			Expect(name).To(Equal("u1.small"))
			Expect(runStrategy("new")).To(Equal(kubevirt.RunStrategyAlways))
		})

		It("should reject an empty name", func() {
			_, err := sys.CreateVM(ctx, system.CreateVMOptions{})
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})
	})

	When("the API server fails", func() {
		It("should propagate the error", func() {
			forbidden := apierrors.NewForbidden(
				schema.GroupResource{Group: "kubevirt.io", Resource: "virtualmachines"},
				"", errors.New("denied"))
			failing := kubevirt.NewWithClient(&failingClient{Client: client, err: forbidden}, "h", config.Default())
			_, err := failing.ListVMs(ctx)
			Expect(err).To(MatchError(ContainSubstring("denied")))
			Expect(pkgerr.IsNotFound(err)).To(BeFalse())
		})
	})
})

type failingClient struct {
	ctrlclient.Client
	err error
}

func (c *failingClient) List(context.Context, ctrlclient.ObjectList, ...ctrlclient.ListOption) error {
	return c.err
}
