// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
)

type contextKeyType uint8

const contextKeyValue contextKeyType = 0

// FromContext returns the recorder from the specified context, or a no-op
// recorder if there is none.
func FromContext(ctx context.Context) Recorder {
	if ctx != nil {
		if val, ok := ctx.Value(contextKeyValue).(Recorder); ok {
			return val
		}
	}
	return Noop()
}

// WithContext returns a new recorder context.
func WithContext(parent context.Context, val Recorder) context.Context {
	if parent == nil {
		panic("parent context is nil")
	}
	if val == nil {
		panic("recorder is nil")
	}
	return context.WithValue(parent, contextKeyValue, val)
}
