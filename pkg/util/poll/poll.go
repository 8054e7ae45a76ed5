// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package poll retries a condition until it is true or a timeout elapses.
package poll

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

// ConditionFunc returns true when the wait is complete. A non-nil error aborts
// the wait and is returned to the caller unchanged.
type ConditionFunc func(ctx context.Context) (bool, error)

// WaitFor calls fn immediately and then every delay until fn returns true, fn
// returns an error, or timeout elapses. When the timeout elapses a
// TimedOutError with the provided message is returned. If the parent context
// is canceled, its error is returned instead.
//
// The context passed to fn is canceled when the timeout elapses, so blocking
// calls made by fn are bounded by the same timeout.
func WaitFor(
	ctx context.Context,
	timeout, delay time.Duration,
	message string,
	fn ConditionFunc) error {

	if timeout <= 0 {
		return pkgerr.InvalidArgumentError{
			Argument: "timeout",
			Message:  "must be greater than zero",
		}
	}
	if delay <= 0 {
		return pkgerr.InvalidArgumentError{
			Argument: "delay",
			Message:  "must be greater than zero",
		}
	}

	err := wait.PollUntilContextTimeout(
		ctx,
		delay,
		timeout,
		true,
		wait.ConditionWithContextFunc(fn))
	if err == nil {
		return nil
	}

	if wait.Interrupted(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pkgerr.TimedOutError{
			Message: message,
			Timeout: timeout,
		}
	}

	return err
}

// Sleep blocks for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
