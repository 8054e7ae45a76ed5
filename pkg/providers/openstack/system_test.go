// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package openstack_test

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/providers/openstack"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

var _ = Describe("System", func() {
	var (
		ctx          context.Context
		cloud        *fakeCloud
		sys          *openstack.System
		withOptional bool
	)

	BeforeEach(func() {
		withOptional = true
	})

	JustBeforeEach(func() {
		cfg := config.Default()
		cfg.StateCacheTTL = 0
		cfg.DebounceInterval = 10 * time.Millisecond
		cfg.DefaultDelay = 10 * time.Millisecond
		cfg.DefaultTimeout = 5 * time.Second
		cfg.ActionTimeout = 5 * time.Second
		ctx = logr.NewContext(config.WithContext(context.Background(), cfg), GinkgoLogr)

		cloud = newFakeCloud()
		DeferCleanup(cloud.Close)
		sys = openstack.NewWithClients(cloud.clients(withOptional), cfg)
	})

	getVM := func(name string) *vm.VM {
		v, err := sys.GetVM(ctx, name)
		Expect(err).ToNot(HaveOccurred())
		return v
	}

	It("should be named after the compute endpoint", func() {
		Expect(sys.Name()).To(Equal(cloud.Listener.Addr().String()))
		info, err := sys.Info(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(info).To(ContainSubstring("/compute/"))
	})

	Describe("lookups", func() {
		JustBeforeEach(func() {
			cloud.addServer("web-1", openstack.StatusActive)
			cloud.addServer("web-2", openstack.StatusShutoff)
			cloud.addServer("db", openstack.StatusActive)
			cloud.addServer("dup", openstack.StatusActive)
			cloud.addServer("dup", openstack.StatusActive)
			cloud.addServer("gone", openstack.StatusDeleted)
		})

		It("should find servers by pattern", func() {
			vms, err := sys.FindVMs(ctx, "web-*")
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(2))
		})

		It("should not list deleted servers", func() {
			vms, err := sys.ListVMs(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(5))

			ok, err := system.DoesVMExist(ctx, sys, "gone")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should refuse an ambiguous name", func() {
			_, err := sys.GetVM(ctx, "dup")
			Expect(pkgerr.IsMultipleItems(err)).To(BeTrue())

			ok, err := system.DoesVMExist(ctx, sys, "dup")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should collect stats", func() {
			stats, err := system.CollectStats(ctx, sys)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(map[string]int{
				system.StatNumVM:        5,
				system.StatNumRunningVM: 4,
				system.StatNumTemplate:  0,
			}))
		})

		It("should report the IPv4 address and creation time", func() {
			v := getVM("db")
			Expect(v.IP(ctx)).To(Equal("10.0.0.5"))
			Expect(v.CreationTime(ctx)).To(BeTemporally("==", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
		})
	})

	Describe("state", func() {
		DescribeTable("native status translation",
			func(native string, want vm.State) {
				cloud.addServer("vm", native)
				Expect(getVM("vm").State(ctx)).To(Equal(want))
			},
			Entry("ACTIVE", openstack.StatusActive, vm.StateRunning),
			Entry("SHUTOFF", openstack.StatusShutoff, vm.StateStopped),
			Entry("PAUSED", openstack.StatusPaused, vm.StatePaused),
			Entry("SUSPENDED", openstack.StatusSuspended, vm.StateSuspended),
			Entry("SHELVED", openstack.StatusShelved, vm.StateShelved),
			Entry("SHELVED_OFFLOADED", openstack.StatusShelvedOffloaded, vm.StateShelvedOffloaded),
			Entry("HARD_REBOOT", openstack.StatusHardReboot, vm.StateStarting),
			Entry("ERROR", openstack.StatusError, vm.StateError),
			Entry("RESCUE", "RESCUE", vm.StateUnknown),
		)
	})

	Describe("power", func() {
		var id string

		JustBeforeEach(func() {
			id = cloud.addServer("vm", openstack.StatusShutoff)
		})

		It("should walk through every steady state", func() {
			v := getVM("vm")
			for _, s := range []vm.State{
				vm.StateRunning,
				vm.StatePaused,
				vm.StateSuspended,
				vm.StateStopped,
				vm.StateRunning,
			} {
				Expect(v.EnsureState(ctx, s, 0, 0)).To(Succeed(), "ensuring %s", s)
				Expect(v.State(ctx)).To(Equal(s))
			}
			Expect(cloud.actionLog()).To(Equal([]string{
				"os-start",
				"pause",
				"unpause",
				"suspend",
				"resume",
				"os-stop",
				"os-start",
			}))
		})

		It("should unshelve a shelved server on start", func() {
			cloud.setStatus(id, openstack.StatusShelvedOffloaded)
			v := getVM("vm")
			Expect(v.Start(ctx)).To(Succeed())
			Expect(v.IsRunning(ctx)).To(BeTrue())
			Expect(cloud.actionLog()).To(Equal([]string{"unshelve"}))
		})

		It("should surface a rejected action", func() {
			v := getVM("vm")
			err := v.Stop(ctx)
			Expect(err).To(MatchError(ContainSubstring("failed to stop server vm")))
		})

		It("should rename the server", func() {
			v := getVM("vm")
			Expect(v.Rename(ctx, "renamed")).To(Succeed())
			Expect(v.Name()).To(Equal("renamed"))
			Expect(getVM("renamed").Equal(v)).To(BeTrue())
		})
	})

	Describe("delete", func() {
		JustBeforeEach(func() {
			cloud.addServer("vm", openstack.StatusActive, "vol-1", "vol-2")
		})

		It("should delete the server only", func() {
			v := getVM("vm")
			Expect(v.Delete(ctx)).To(Succeed())
			Expect(v.Exists(ctx)).To(BeFalse())
			Expect(cloud.volumesDeleted()).To(BeEmpty())
		})

		It("should delete the attached volumes on cleanup", func() {
			v := getVM("vm")
			Expect(v.Cleanup(ctx)).To(Succeed())
			Expect(v.Exists(ctx)).To(BeFalse())
			Expect(cloud.volumesDeleted()).To(ConsistOf("vol-1", "vol-2"))
		})

		When("there is no block storage endpoint", func() {
			BeforeEach(func() {
				withOptional = false
			})

			It("should not support cleanup", func() {
				err := getVM("vm").Cleanup(ctx)
				Expect(pkgerr.IsUnsupportedOperation(err)).To(BeTrue())
			})
		})
	})

	Describe("CreateVM", func() {
		It("should boot a server and wait for it to run", func() {
			v, err := sys.CreateVM(ctx, system.CreateVMOptions{Name: "new", PowerOn: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.IsRunning(ctx)).To(BeTrue())
		})

		It("should reject an empty name", func() {
			_, err := sys.CreateVM(ctx, system.CreateVMOptions{})
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})

		It("should fail for a missing image", func() {
			_, err := sys.CreateVM(ctx, system.CreateVMOptions{Name: "new", Template: "nope"})
			Expect(pkgerr.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("templates", func() {
		It("should snapshot, deploy, and delete an image", func() {
			cloud.addServer("src", openstack.StatusActive)

			ts, ok := sys.Templates()
			Expect(ok).To(BeTrue())

			t, err := ts.CreateTemplate(ctx, "src", "golden")
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Name()).To(Equal("golden"))

			ok, err = system.DoesTemplateExist(ctx, ts, "golden")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())

			v, err := template.Deploy(ctx, t, template.DeployOptions{Name: "copy", PowerOn: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.IsRunning(ctx)).To(BeTrue())

			v, err = sys.CreateVM(ctx, system.CreateVMOptions{Name: "copy-2", Template: "golden"})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.Name()).To(Equal("copy-2"))

			Expect(t.Delete(ctx)).To(Succeed())
			Expect(t.Exists(ctx)).To(BeFalse())
			Expect(pkgerr.IsUnsupportedOperation(t.Cleanup(ctx))).To(BeTrue())
		})

		When("there is no image endpoint", func() {
			BeforeEach(func() {
				withOptional = false
			})

			It("should not offer templates", func() {
				_, ok := sys.Templates()
				Expect(ok).To(BeFalse())
				Expect(sys.Stats().Names()).ToNot(ContainElement(system.StatNumTemplate))
			})
		})
	})
})
