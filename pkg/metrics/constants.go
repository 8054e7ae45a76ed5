// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package metrics

const (
	// If this changes, dashboards scraping these metrics must be updated as
	// well.
	metricsNamespace = "wrapanapi"

	actionLabel = "action"
	fromLabel   = "from"
	toLabel     = "to"
	stateLabel  = "state"
	resultLabel = "result"
	nativeLabel = "native"
)

const (
	// ResultSuccess and the other Result values label the outcome of an
	// EnsureState call.
	ResultSuccess  = "success"
	ResultTimeout  = "timeout"
	ResultError    = "error"
	ResultCanceled = "canceled"
)
