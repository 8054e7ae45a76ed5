// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package simulated_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/providers/simulated"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

const (
	timeout = 5 * time.Second
	delay   = 10 * time.Millisecond
)

var _ = Describe("System", func() {
	var (
		ctx     context.Context
		cfg     config.Config
		sys     *simulated.System
		latency time.Duration
	)

	BeforeEach(func() {
		latency = 0
	})

	JustBeforeEach(func() {
		cfg = config.Default()
		cfg.StateCacheTTL = 0
		cfg.DebounceInterval = 20 * time.Millisecond
		cfg.DefaultDelay = delay
		cfg.Simulated.ActionLatency = latency
		ctx = config.WithContext(context.Background(), cfg)

		var err error
		sys, err = simulated.New(ctx)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() {
			Expect(sys.Disconnect(ctx)).To(Succeed())
		})
	})

	create := func(name string, powerOn bool) *vm.VM {
		v, err := sys.CreateVM(ctx, system.CreateVMOptions{Name: name, PowerOn: powerOn})
		Expect(err).ToNot(HaveOccurred())
		return v
	}

	Describe("CreateVM", func() {
		It("should create a stopped VM", func() {
			v := create("web", false)
			Expect(v.State(ctx)).To(Equal(vm.StateStopped))
			Expect(v.IdentifyingAttrs()).To(HaveKey("id"))
		})

		It("should start the VM when asked", func() {
			v := create("web", true)
			Expect(v.IsRunning(ctx)).To(BeTrue())
		})

		It("should reject an empty name", func() {
			_, err := sys.CreateVM(ctx, system.CreateVMOptions{})
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})
	})

	Describe("lookups", func() {
		JustBeforeEach(func() {
			create("web-1", false)
			create("web-2", false)
			create("db", false)
			create("db", false)
		})

		It("should list every VM", func() {
			Expect(sys.ListVMs(ctx)).To(HaveLen(4))
		})

		It("should find VMs by glob", func() {
			vms, err := sys.FindVMs(ctx, "web-*")
			Expect(err).ToNot(HaveOccurred())
			Expect(vms).To(HaveLen(2))
			Expect(sys.FindVMs(ctx, "nothing*")).To(BeEmpty())
		})

		It("should get a VM by name", func() {
			v, err := sys.GetVM(ctx, "web-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(v.Name()).To(Equal("web-1"))
		})

		It("should return equal VMs for the same record", func() {
			a, err := sys.GetVM(ctx, "web-1")
			Expect(err).ToNot(HaveOccurred())
			b, err := sys.GetVM(ctx, "web-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(a.Equal(b)).To(BeTrue())
		})

		It("should refuse an ambiguous name", func() {
			_, err := sys.GetVM(ctx, "db")
			Expect(pkgerr.IsMultipleItems(err)).To(BeTrue())
			Expect(system.DoesVMExist(ctx, sys, "db")).To(BeTrue())
		})

		It("should report a missing VM", func() {
			_, err := sys.GetVM(ctx, "mail")
			Expect(pkgerr.IsNotFound(err)).To(BeTrue())
			Expect(system.DoesVMExist(ctx, sys, "mail")).To(BeFalse())
		})

		It("should collect stats", func() {
			v, err := sys.GetVM(ctx, "web-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(v.Start(ctx)).To(Succeed())

			stats, err := system.CollectStats(ctx, sys)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(map[string]int{
				system.StatNumVM:        4,
				system.StatNumRunningVM: 1,
				system.StatNumTemplate:  0,
			}))
		})
	})

	Describe("power operations", func() {
		var v *vm.VM

		JustBeforeEach(func() {
			v = create("web", false)
		})

		It("should refuse illegal native transitions", func() {
			Expect(v.Start(ctx)).To(Succeed())
			Expect(v.Suspend(ctx)).To(Succeed())
			err := v.Stop(ctx)
			var illegal simulated.IllegalTransitionError
			Expect(errors.As(err, &illegal)).To(BeTrue())
			Expect(illegal.Status).To(Equal(simulated.StatusSuspended))
		})

		It("should stop a suspended VM by resuming it first", func() {
			Expect(v.Start(ctx)).To(Succeed())
			Expect(v.Suspend(ctx)).To(Succeed())
			Expect(v.EnsureState(ctx, vm.StateStopped, timeout, delay)).To(Succeed())
			Expect(v.IsStopped(ctx)).To(BeTrue())
		})

		DescribeTable("EnsureState",
			func(target vm.State) {
				Expect(v.EnsureState(ctx, target, timeout, delay)).To(Succeed())
				Expect(v.FreshState(ctx)).To(Equal(target))
			},
			Entry("running", vm.StateRunning),
			Entry("stopped", vm.StateStopped),
			Entry("suspended", vm.StateSuspended),
			Entry("paused", vm.StatePaused),
		)

		It("should restart the VM", func() {
			Expect(v.Start(ctx)).To(Succeed())
			Expect(v.Restart(ctx, timeout, delay)).To(Succeed())
			Expect(v.IsRunning(ctx)).To(BeTrue())
		})

		When("the VM is stuck in error", func() {
			It("should time out", func() {
				Expect(sys.SetStatus(ctx, v.IdentifyingAttrs()["id"], simulated.StatusError)).To(Succeed())
				err := v.EnsureState(ctx, vm.StateRunning, 200*time.Millisecond, 20*time.Millisecond)
				Expect(pkgerr.IsTimedOut(err)).To(BeTrue())
			})
		})

		When("actions take time", func() {
			BeforeEach(func() {
				latency = 100 * time.Millisecond
			})
			It("should pass through the transitional status", func() {
				done := make(chan error, 1)
				go func() {
					defer GinkgoRecover()
					done <- v.Start(ctx)
				}()
				Eventually(func() (vm.State, error) {
					return v.FreshState(ctx)
				}).WithPolling(5 * time.Millisecond).Should(Equal(vm.StateStarting))
				Eventually(done).Should(Receive(BeNil()))
				Expect(v.FreshState(ctx)).To(Equal(vm.StateRunning))
			})
			It("should settle with WaitForSteadyState", func() {
				go func() {
					defer GinkgoRecover()
					_ = v.Start(ctx)
				}()
				Expect(v.WaitForSteadyState(ctx, timeout, delay)).To(Succeed())
			})
		})
	})

	Describe("Delete and Cleanup", func() {
		var v *vm.VM

		JustBeforeEach(func() {
			v = create("web", true)
		})

		It("should keep a deleted VM queryable but not existing", func() {
			Expect(v.Delete(ctx)).To(Succeed())
			Expect(v.Refresh(ctx)).To(Succeed())
			Expect(v.Exists(ctx)).To(BeFalse())
			Expect(v.State(ctx)).To(Equal(vm.StateDeleted))
			Expect(system.DoesVMExist(ctx, sys, "web")).To(BeFalse())
		})

		It("should remove the record on Cleanup", func() {
			Expect(v.Cleanup(ctx)).To(Succeed())
			Expect(pkgerr.IsNotFound(v.Refresh(ctx))).To(BeTrue())
			Expect(v.Exists(ctx)).To(BeFalse())
		})
	})

	Describe("extras", func() {
		var v *vm.VM

		JustBeforeEach(func() {
			v = create("web", false)
		})

		It("should report an IP only while running", func() {
			Expect(v.IP(ctx)).To(BeEmpty())
			Expect(v.Start(ctx)).To(Succeed())
			Expect(v.IP(ctx)).To(MatchRegexp(`^10\.\d+\.\d+\.\d+$`))
		})

		It("should report the creation time", func() {
			Expect(v.CreationTime(ctx)).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("should rename the VM", func() {
			Expect(v.Rename(ctx, "www")).To(Succeed())
			Expect(v.Name()).To(Equal("www"))
			Expect(system.DoesVMExist(ctx, sys, "www")).To(BeTrue())
		})

		It("should clone the VM", func() {
			c, err := v.Clone(ctx, "web-copy")
			Expect(err).ToNot(HaveOccurred())
			Expect(c.Name()).To(Equal("web-copy"))
			Expect(c.Equal(v)).To(BeFalse())
			Expect(c.EnsureState(ctx, vm.StateRunning, timeout, delay)).To(Succeed())
		})
	})

	Describe("templates", func() {
		var v *vm.VM

		JustBeforeEach(func() {
			v = create("golden", false)
		})

		It("should create and deploy a template", func() {
			t, err := sys.CreateTemplate(ctx, "golden", "golden-tmpl")
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Name()).To(Equal("golden-tmpl"))
			Expect(system.DoesTemplateExist(ctx, sys, "golden-tmpl")).To(BeTrue())

			deployed, err := template.Deploy(ctx, t, template.DeployOptions{
				Name:    "web",
				PowerOn: true,
				Timeout: timeout,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(deployed.IsRunning(ctx)).To(BeTrue())

			stats, err := system.CollectStats(ctx, sys, system.StatNumTemplate, system.StatNumVM)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(map[string]int{
				system.StatNumTemplate: 1,
				system.StatNumVM:       2,
			}))
		})

		It("should require a stopped VM", func() {
			Expect(v.Start(ctx)).To(Succeed())
			_, err := sys.CreateTemplate(ctx, "golden", "golden-tmpl")
			Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		})

		It("should delete a template", func() {
			t, err := sys.CreateTemplate(ctx, "golden", "golden-tmpl")
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Delete(ctx)).To(Succeed())
			Expect(t.Exists(ctx)).To(BeFalse())
			Expect(pkgerr.IsUnsupportedOperation(t.Cleanup(ctx))).To(BeTrue())
		})
	})

	Describe("persistence", func() {
		It("should keep VMs across reopening an on-disk store", func() {
			dir := GinkgoT().TempDir()
			c := config.Default()
			c.Simulated.DBPath = dir
			dctx := config.WithContext(context.Background(), c)

			first, err := simulated.New(dctx)
			Expect(err).ToNot(HaveOccurred())
			_, err = first.CreateVM(dctx, system.CreateVMOptions{Name: "kept", PowerOn: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Disconnect(dctx)).To(Succeed())

			second, err := simulated.New(dctx)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = second.Disconnect(dctx) }()
			v, err := second.GetVM(dctx, "kept")
			Expect(err).ToNot(HaveOccurred())
			Expect(v.IsRunning(dctx)).To(BeTrue())
		})
	})

	It("should describe itself", func() {
		Expect(sys.Info(ctx)).To(ContainSubstring("in-memory"))
		Expect(sys.Capabilities().CanPause).To(BeTrue())
	})

	It("should reject an unknown stat", func() {
		_, err := system.CollectStats(ctx, sys, "num_cpus")
		Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
	})
})
