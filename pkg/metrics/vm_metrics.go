// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	once      sync.Once
	vmMetrics *VMMetrics
)

// VMMetrics holds the collectors for the VM state machine.
type VMMetrics struct {
	Transitions         *prometheus.CounterVec
	EnsureStateDuration *prometheus.HistogramVec
	UnmappedStates      *prometheus.CounterVec
}

// VM returns the process-wide VM metrics, registering them with the
// controller-runtime registry on first use.
func VM() *VMMetrics {
	once.Do(func() {
		vmMetrics = newVMMetrics()
		metrics.Registry.MustRegister(
			vmMetrics.Transitions,
			vmMetrics.EnsureStateDuration,
			vmMetrics.UnmappedStates,
		)
	})
	return vmMetrics
}

func newVMMetrics() *VMMetrics {
	return &VMMetrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "vm_transitions_total",
				Help:      "Backend actions invoked by EnsureState, by action and state"},
			[]string{actionLabel, fromLabel, toLabel},
		),
		EnsureStateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "vm_ensure_state_duration_seconds",
				Help:      "Duration of EnsureState calls by desired state and result",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12)},
			[]string{stateLabel, resultLabel},
		),
		UnmappedStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "vm_unmapped_state_total",
				Help:      "Native statuses that had no entry in a backend state map"},
			[]string{nativeLabel},
		),
	}
}

// RecordTransition counts a backend action taken to move a VM from one state
// toward another.
func (m *VMMetrics) RecordTransition(action, from, to string) {
	m.Transitions.With(prometheus.Labels{
		actionLabel: action,
		fromLabel:   from,
		toLabel:     to,
	}).Inc()
}

// ObserveEnsureState records how long an EnsureState call took.
func (m *VMMetrics) ObserveEnsureState(state, result string, d time.Duration) {
	m.EnsureStateDuration.With(prometheus.Labels{
		stateLabel:  state,
		resultLabel: result,
	}).Observe(d.Seconds())
}

// RecordUnmappedState counts a native status missing from a state map.
func (m *VMMetrics) RecordUnmappedState(native string) {
	m.UnmappedStates.With(prometheus.Labels{nativeLabel: native}).Inc()
}
