// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"time"
)

// Event describes an action the state machine took against a VM.
type Event struct {
	VM     string    `json:"vm"`
	Action string    `json:"action"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Time   time.Time `json:"time"`
}

// Recorder receives transition events. Implementations must not block the
// caller for long and never fail the transition.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// RecorderFunc adapts a function to a Recorder.
type RecorderFunc func(ctx context.Context, event Event)

func (f RecorderFunc) Record(ctx context.Context, event Event) {
	f(ctx, event)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, Event) {}

// Noop returns a Recorder that discards events.
func Noop() Recorder {
	return noopRecorder{}
}
