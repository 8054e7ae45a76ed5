// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pkgcfg "github.com/manageiq/wrapanapi/pkg/config"
)

var _ = Describe("Context", func() {

	Describe("NewContextWithDefaultConfig", func() {
		It("Should return a new context with a default config", func() {
			ctx := pkgcfg.NewContextWithDefaultConfig()
			Expect(pkgcfg.FromContext(ctx)).To(Equal(pkgcfg.Default()))
		})
	})

	Describe("FromContext", func() {
		When("Context is nil", func() {
			It("Should panic", func() {
				Expect(func() {
					_ = pkgcfg.FromContext(nil) //nolint:staticcheck
				}).Should(PanicWith("context is nil"))
			})
		})
		When("Context is missing the config", func() {
			It("Should panic", func() {
				Expect(func() {
					_ = pkgcfg.FromContext(context.Background())
				}).Should(PanicWith("config is missing from context"))
			})
		})
	})

	Describe("FromContextOrDefault", func() {
		When("Context is missing the config", func() {
			It("Should return the default config", func() {
				Expect(pkgcfg.FromContextOrDefault(context.Background())).
					To(Equal(pkgcfg.Default()))
			})
		})
		When("Context has a config", func() {
			It("Should return it", func() {
				ctx := pkgcfg.WithContext(
					context.Background(),
					pkgcfg.Config{StateCacheTTL: time.Hour})
				Expect(pkgcfg.FromContextOrDefault(ctx).StateCacheTTL).
					To(Equal(time.Hour))
			})
		})
	})

	Describe("WithContext", func() {
		When("Parent context is nil", func() {
			It("Should panic", func() {
				Expect(func() {
					_ = pkgcfg.WithContext(nil, pkgcfg.Config{}) //nolint:staticcheck
				}).Should(PanicWith("parent context is nil"))
			})
		})
	})

	Describe("UpdateContext", func() {
		When("SetFn is nil", func() {
			It("Should panic", func() {
				Expect(func() {
					pkgcfg.UpdateContext(pkgcfg.NewContextWithDefaultConfig(), nil)
				}).Should(PanicWith("setFn is nil"))
			})
		})
		When("Context is missing the config", func() {
			It("Should panic", func() {
				Expect(func() {
					pkgcfg.UpdateContext(context.Background(), func(*pkgcfg.Config) {})
				}).Should(PanicWith("config is missing from context"))
			})
		})
		When("All arguments are valid", func() {
			It("Should update the config seen by child contexts", func() {
				ctx := pkgcfg.NewContextWithDefaultConfig()
				child, cancel := context.WithCancel(ctx)
				defer cancel()
				pkgcfg.UpdateContext(ctx, func(config *pkgcfg.Config) {
					config.Provider = pkgcfg.ProviderTypeKubeVirt
					config.DefaultDelay = 100 * time.Hour
				})
				Expect(pkgcfg.FromContext(child).Provider).To(Equal(pkgcfg.ProviderTypeKubeVirt))
				Expect(pkgcfg.FromContext(child).DefaultDelay).To(Equal(100 * time.Hour))
			})
			It("Should not race with readers", func() {
				ctx := pkgcfg.NewContextWithDefaultConfig()
				var wg sync.WaitGroup
				for i := range 10 {
					wg.Add(2)
					go func() {
						defer wg.Done()
						pkgcfg.UpdateContext(ctx, func(config *pkgcfg.Config) {
							config.LogVerbosity = i + 1
						})
					}()
					go func() {
						defer wg.Done()
						_ = pkgcfg.FromContextOrDefault(ctx).LogVerbosity
					}()
				}
				wg.Wait()
				Expect(pkgcfg.FromContext(ctx).LogVerbosity).To(BeNumerically(">", 0))
			})
		})
	})
})
