// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package system_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
)

type statsSystem struct {
	system.System
	stats system.Stats
}

func (s statsSystem) Name() string {
	return "stats"
}

func (s statsSystem) Stats() system.Stats {
	return s.stats
}

var _ = Describe("CollectStats", func() {
	var (
		calls int
		sys   statsSystem
	)

	BeforeEach(func() {
		calls = 0
		sys = statsSystem{stats: system.Stats{
			"num_vm": func(context.Context) (int, error) {
				calls++
				return 3, nil
			},
			"num_host": func(context.Context) (int, error) {
				calls++
				return 1, nil
			},
		}}
	})

	It("should collect every stat when none are named", func() {
		Expect(system.CollectStats(context.Background(), sys)).To(Equal(map[string]int{
			"num_vm":   3,
			"num_host": 1,
		}))
	})

	It("should collect only the named stats", func() {
		Expect(system.CollectStats(context.Background(), sys, "num_host")).To(Equal(map[string]int{
			"num_host": 1,
		}))
		Expect(calls).To(Equal(1))
	})

	It("should reject unknown stats before collecting any", func() {
		_, err := system.CollectStats(context.Background(), sys, "num_vm", "num_disk")
		Expect(pkgerr.IsInvalidArgument(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("num_host, num_vm"))
		Expect(calls).To(BeZero())
	})

	It("should wrap collection errors", func() {
		cause := errors.New("quota exceeded")
		sys.stats["num_vm"] = func(context.Context) (int, error) { return 0, cause }
		_, err := system.CollectStats(context.Background(), sys, "num_vm")
		Expect(err).To(MatchError(cause))
	})
})
