// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package system

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

const (
	StatNumVM        = "num_vm"
	StatNumRunningVM = "num_running_vm"
	StatNumTemplate  = "num_template"
)

// StatFunc computes a single statistic.
type StatFunc func(ctx context.Context) (int, error)

// Stats maps a statistic name to the function computing it.
type Stats map[string]StatFunc

// Names returns the statistic names, sorted.
func (s Stats) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// DefaultVMStats returns the statistics every VMSystem supports, plus
// num_template when s is also a TemplateSystem.
func DefaultVMStats(s VMSystem) Stats {
	stats := Stats{
		StatNumVM: func(ctx context.Context) (int, error) {
			vms, err := s.ListVMs(ctx)
			return len(vms), err
		},
		StatNumRunningVM: func(ctx context.Context) (int, error) {
			vms, err := s.ListVMs(ctx)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, v := range vms {
				ok, err := v.IsRunning(ctx)
				if err != nil {
					if pkgerr.IsNotFound(err) {
						continue
					}
					return 0, err
				}
				if ok {
					n++
				}
			}
			return n, nil
		},
	}
	if ts, ok := s.(TemplateSystem); ok {
		stats[StatNumTemplate] = func(ctx context.Context) (int, error) {
			templates, err := ts.ListTemplates(ctx)
			return len(templates), err
		}
	}
	return stats
}

// CollectStats computes the named statistics of s, or all of them if no
// names are given. An InvalidArgumentError is returned for an unknown name
// before any statistic is computed.
func CollectStats(ctx context.Context, s System, names ...string) (map[string]int, error) {
	stats := s.Stats()
	if len(names) == 0 {
		names = stats.Names()
	}
	for _, n := range names {
		if _, ok := stats[n]; !ok {
			return nil, pkgerr.InvalidArgumentError{
				Argument: "stat",
				Message: fmt.Sprintf("%s does not provide %q, valid stats are %s",
					describe(s), n, strings.Join(stats.Names(), ", ")),
			}
		}
	}
	out := make(map[string]int, len(names))
	for _, n := range names {
		v, err := stats[n](ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to collect %s: %w", n, err)
		}
		out[n] = v
	}
	return out, nil
}
