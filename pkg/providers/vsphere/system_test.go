// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vsphere_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

const (
	vm0 = "DC0_C0_RP0_VM0"
	vm1 = "DC0_C0_RP0_VM1"
)

var _ = Describe("System", func() {
	var vc *vcsimContext

	BeforeEach(func() {
		vc = newVcsimContext()
		DeferCleanup(vc.close)
	})

	getVM := func(name string) *vm.VM {
		v, err := vc.sys.GetVM(vc.ctx, name)
		Expect(err).ToNot(HaveOccurred())
		return v
	}

	It("should describe the vCenter", func() {
		Expect(vc.sys.Name()).To(Equal(vc.cfg.VSphere.Host))
		info, err := vc.sys.Info(vc.ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(info).To(ContainSubstring("DC0"))
	})

	It("should not support pause", func() {
		caps := vc.sys.Capabilities()
		Expect(caps.CanSuspend).To(BeTrue())
		Expect(caps.CanPause).To(BeFalse())

		err := getVM(vm0).Pause(vc.ctx)
		Expect(pkgerr.IsCapability(err)).To(BeTrue())
	})

	Describe("lookups", func() {
		It("should list the VMs", func() {
			vms, err := vc.sys.ListVMs(vc.ctx)
			Expect(err).ToNot(HaveOccurred())
			var names []string
			for _, v := range vms {
				names = append(names, v.Name())
			}
			Expect(names).To(ConsistOf(vm0, vm1))
		})

		It("should find VMs by pattern", func() {
			vms, err := vc.sys.FindVMs(vc.ctx, "*_VM1")
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(1))
			Expect(vms[0].Name()).To(Equal(vm1))

			vms, err = vc.sys.FindVMs(vc.ctx, "nope*")
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(BeEmpty())
		})

		It("should return NotFound for a missing VM", func() {
			_, err := vc.sys.GetVM(vc.ctx, "missing")
			Expect(pkgerr.IsNotFound(err)).To(BeTrue())

			ok, err := system.DoesVMExist(vc.ctx, vc.sys, "missing")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should identify VMs by moid", func() {
			a, b := getVM(vm0), getVM(vm0)
			Expect(a.IdentifyingAttrs()).To(HaveKey("moid"))
			Expect(a.Equal(b)).To(BeTrue())
			Expect(a.Equal(getVM(vm1))).To(BeFalse())
		})
	})

	Describe("power", func() {
		It("should report the VM as running", func() {
			Expect(getVM(vm0).State(vc.ctx)).To(Equal(vm.StateRunning))
		})

		It("should stop and start the VM", func() {
			v := getVM(vm0)
			Expect(v.EnsureState(vc.ctx, vm.StateStopped, 0, 0)).To(Succeed())
			Expect(v.IsStopped(vc.ctx)).To(BeTrue())

			Expect(v.EnsureState(vc.ctx, vm.StateRunning, 0, 0)).To(Succeed())
			Expect(v.IsRunning(vc.ctx)).To(BeTrue())
		})

		It("should suspend and resume the VM", func() {
			v := getVM(vm0)
			Expect(v.EnsureState(vc.ctx, vm.StateSuspended, 0, 0)).To(Succeed())
			Expect(v.IsSuspended(vc.ctx)).To(BeTrue())

			Expect(v.EnsureState(vc.ctx, vm.StateRunning, 0, 0)).To(Succeed())
			Expect(v.IsRunning(vc.ctx)).To(BeTrue())
		})

		It("should tolerate starting a running VM", func() {
			v := getVM(vm0)
			Expect(v.Start(vc.ctx)).To(Succeed())
			Expect(v.IsRunning(vc.ctx)).To(BeTrue())
		})

		It("should restart the VM", func() {
			v := getVM(vm1)
			Expect(v.Restart(vc.ctx, 0, 0)).To(Succeed())
			Expect(v.IsRunning(vc.ctx)).To(BeTrue())
		})

		It("should reject an unreachable state", func() {
			err := getVM(vm0).EnsureState(vc.ctx, vm.StatePaused, 0, 0)
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})
	})

	Describe("lifecycle", func() {
		It("should delete a running VM", func() {
			v := getVM(vm0)
			Expect(v.Delete(vc.ctx)).To(Succeed())
			Expect(v.Exists(vc.ctx)).To(BeFalse())

			_, err := vc.sys.GetVM(vc.ctx, vm0)
			Expect(pkgerr.IsNotFound(err)).To(BeTrue())
		})

		It("should rename a VM without changing its identity", func() {
			v := getVM(vm0)
			attrs := v.IdentifyingAttrs()
			Expect(v.Rename(vc.ctx, "renamed")).To(Succeed())
			Expect(v.Name()).To(Equal("renamed"))
			Expect(v.IdentifyingAttrs()).To(Equal(attrs))
			Expect(getVM("renamed").Equal(v)).To(BeTrue())
		})

		It("should clone a VM", func() {
			c, err := getVM(vm0).Clone(vc.ctx, "copy")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.Name()).To(Equal("copy"))
			Expect(c.Equal(getVM("copy"))).To(BeTrue())
		})

		It("should create an empty VM", func() {
			v, err := vc.sys.CreateVM(vc.ctx, system.CreateVMOptions{Name: "empty"})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.Name()).To(Equal("empty"))
			Expect(v.State(vc.ctx)).To(Equal(vm.StateStopped))

			ok, err := system.DoesVMExist(vc.ctx, vc.sys, "empty")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should reject an empty name", func() {
			_, err := vc.sys.CreateVM(vc.ctx, system.CreateVMOptions{})
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})
	})

	Describe("templates", func() {
		var tmpl template.Template

		BeforeEach(func() {
			var err error
			tmpl, err = vc.sys.CreateTemplate(vc.ctx, vm1, "golden")
			Expect(err).ToNot(HaveOccurred())
		})

		It("should list templates apart from VMs", func() {
			Expect(tmpl.Name()).To(Equal("golden"))

			templates, err := vc.sys.ListTemplates(vc.ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(templates).To(HaveLen(1))

			ok, err := system.DoesVMExist(vc.ctx, vc.sys, "golden")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = system.DoesTemplateExist(vc.ctx, vc.sys, "golden")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should deploy and power on a VM", func() {
			v, err := template.Deploy(vc.ctx, tmpl, template.DeployOptions{
				Name:    "deployed",
				PowerOn: true,
				Timeout: timeout,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.IsRunning(vc.ctx)).To(BeTrue())
		})

		It("should create a VM from the template", func() {
			v, err := vc.sys.CreateVM(vc.ctx, system.CreateVMOptions{
				Name:     "from-golden",
				Template: "golden",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.Name()).To(Equal("from-golden"))
		})

		It("should delete the template", func() {
			Expect(tmpl.Delete(vc.ctx)).To(Succeed())
			Expect(tmpl.Exists(vc.ctx)).To(BeFalse())
		})

		It("should count templates", func() {
			stats, err := system.CollectStats(vc.ctx, vc.sys)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(map[string]int{
				system.StatNumVM:        2,
				system.StatNumRunningVM: 2,
				system.StatNumTemplate:  1,
			}))
		})
	})
})
