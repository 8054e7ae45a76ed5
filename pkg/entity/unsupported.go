// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

// NoCleanup may be embedded by entities whose backend has no notion of
// dependent resources to remove.
type NoCleanup struct {
	Kind string
}

// Cleanup always returns an UnsupportedOperationError.
func (n NoCleanup) Cleanup(_ context.Context) error {
	return pkgerr.UnsupportedOperationError{Kind: n.Kind, Operation: "cleanup"}
}

// NoDelete may be embedded by entities that cannot be deleted, ex. read-only
// images.
type NoDelete struct {
	Kind string
}

// Delete always returns an UnsupportedOperationError.
func (n NoDelete) Delete(_ context.Context) error {
	return pkgerr.UnsupportedOperationError{Kind: n.Kind, Operation: "delete"}
}
