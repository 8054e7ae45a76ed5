// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	pkglog "github.com/manageiq/wrapanapi/pkg/log"
	"github.com/manageiq/wrapanapi/pkg/metrics"
	"github.com/manageiq/wrapanapi/pkg/record"
	"github.com/manageiq/wrapanapi/pkg/util/poll"
)

const tracerName = "github.com/manageiq/wrapanapi/pkg/vm"

// EnsureState drives the VM to desired, invoking backend actions as needed,
// and returns once the state has held for the debounce interval.
//
// A timeout or delay of zero uses the VM's defaults. The desired state is
// validated before any backend call: an InvalidArgumentError is returned if
// no transition or native status leads to it, and a CapabilityError if the
// system lacks the required operation. A TimedOutError is returned if the
// state is not reached in time.
func (v *VM) EnsureState(
	ctx context.Context,
	desired State,
	timeout, delay time.Duration) (err error) {

	t, ok := transitions[desired]
	if !ok {
		return pkgerr.InvalidArgumentError{
			Argument: "state",
			Message:  fmt.Sprintf("%s cannot be ensured", desired),
		}
	}
	if !v.handle.StateMap().CanReach(desired) {
		return v.unreachable(desired)
	}
	if err := v.requireCapability(t.capability); err != nil {
		return err
	}
	timeout, delay = v.timing(timeout, delay)

	ctx, span := v.startSpan(ctx, "vm.EnsureState", desired)
	defer span.End()

	logger := pkglog.FromContextOrDefault(ctx).WithValues(
		"vm", v.String(), "desiredState", desired)
	ctx = logr.NewContext(ctx, logger)

	start := time.Now()
	defer func() {
		metrics.VM().ObserveEnsureState(string(desired), resultOf(err), time.Since(start))
		endSpan(span, err)
	}()

	logger.V(4).Info("Ensuring VM state")

	err = poll.WaitFor(
		ctx, timeout, delay,
		fmt.Sprintf("%s to reach %s", v, desired),
		func(ctx context.Context) (bool, error) {
			return v.ensureStep(ctx, t)
		})
	return v.waitResult(ctx, err, string(desired), timeout)
}

func (v *VM) ensureStep(ctx context.Context, t transition) (bool, error) {
	logger := pkglog.FromContextOrDefault(ctx)

	current, err := v.State(ctx)
	if err != nil {
		return false, fromBackend(ctx, fmt.Errorf("failed to get state of %s: %w", v, err))
	}

	step, action := t.classify(current)
	switch step {
	case StepDesired:
		if err := poll.Sleep(ctx, v.debounceInterval()); err != nil {
			return false, err
		}
		current, err = v.FreshState(ctx)
		if err != nil {
			return false, fromBackend(ctx, fmt.Errorf("failed to get state of %s: %w", v, err))
		}
		if current == t.desired {
			logger.V(4).Info("VM reached desired state")
			return true, nil
		}
		logger.V(4).Info("VM left desired state", "currentState", current)
	case StepPrep, StepAct:
		if err := v.invoke(ctx, action, current, t.desired); err != nil {
			return false, fromBackend(ctx, err)
		}
	default:
		logger.V(5).Info("Waiting for VM to reach an actionable state",
			"currentState", current)
	}
	return false, nil
}

func (v *VM) invoke(ctx context.Context, a Action, from, to State) error {
	logger := pkglog.FromContextOrDefault(ctx)
	logger.Info("Invoking VM action", "action", a, "currentState", from)

	record.FromContext(ctx).Record(ctx, record.Event{
		VM:     v.Name(),
		Action: string(a),
		From:   string(from),
		To:     string(to),
		Time:   time.Now(),
	})
	metrics.VM().RecordTransition(string(a), string(from), string(to))
	trace.SpanFromContext(ctx).AddEvent("action", trace.WithAttributes(
		attribute.String("vm.action", string(a)),
		attribute.String("vm.current_state", string(from))))

	if err := v.do(ctx, a); err != nil {
		return fmt.Errorf("failed to %s %s: %w", a, v, err)
	}
	return nil
}

// WaitForState polls until the VM is in desired. An InvalidArgumentError is
// returned without polling if no native status maps to desired.
func (v *VM) WaitForState(
	ctx context.Context,
	desired State,
	timeout, delay time.Duration) (err error) {

	if !v.handle.StateMap().CanReach(desired) {
		return v.unreachable(desired)
	}
	timeout, delay = v.timing(timeout, delay)

	ctx, span := v.startSpan(ctx, "vm.WaitForState", desired)
	defer func() {
		endSpan(span, err)
		span.End()
	}()

	err = poll.WaitFor(
		ctx, timeout, delay,
		fmt.Sprintf("%s to reach %s", v, desired),
		func(ctx context.Context) (bool, error) {
			ok, err := v.is(ctx, desired)
			return ok, fromBackend(ctx, err)
		})
	return v.waitResult(ctx, err, string(desired), timeout)
}

// WaitForSteadyState polls until the VM is in a steady state. A timeout of
// zero uses the system's SteadyWaitTime.
func (v *VM) WaitForSteadyState(ctx context.Context, timeout, delay time.Duration) error {
	if timeout == 0 {
		timeout = v.caps.SteadyWaitTime
		if timeout == 0 {
			timeout = v.opts.steadyWaitTime
		}
	}
	timeout, delay = v.timing(timeout, delay)

	err := poll.WaitFor(
		ctx, timeout, delay,
		fmt.Sprintf("%s to reach a steady state", v),
		func(ctx context.Context) (bool, error) {
			ok, err := v.InSteadyState(ctx)
			return ok, fromBackend(ctx, err)
		})
	err = v.waitResult(ctx, err, "a steady state", timeout)
	if pkgerr.IsTimedOut(err) {
		s, _ := v.State(ctx)
		pkglog.FromContextOrDefault(ctx).Error(err, "VM is stuck in a transitional state",
			"vm", v.String(), "currentState", s)
	}
	return err
}

// Restart stops and then starts the VM.
func (v *VM) Restart(ctx context.Context, timeout, delay time.Duration) error {
	if err := v.EnsureState(ctx, StateStopped, timeout, delay); err != nil {
		return err
	}
	return v.EnsureState(ctx, StateRunning, timeout, delay)
}

func (v *VM) timing(timeout, delay time.Duration) (time.Duration, time.Duration) {
	if timeout == 0 {
		timeout = v.opts.defaultTimeout
	}
	if delay == 0 {
		delay = v.opts.defaultDelay
	}
	return timeout, delay
}

func (v *VM) debounceInterval() time.Duration {
	return config.Config{
		StateCacheTTL:    v.opts.stateCacheTTL,
		DebounceInterval: v.opts.debounceInterval,
	}.GetDebounceInterval()
}

func (v *VM) unreachable(desired State) error {
	return pkgerr.InvalidArgumentError{
		Argument: "state",
		Message:  fmt.Sprintf("%s is not reachable on %s", desired, systemName(v.handle.System())),
	}
}

// backendError carries an error the backend returned while the wait still
// had time left. It is handed to the caller unchanged, even when it is a
// timeout of the backend's own.
type backendError struct {
	err error
}

func (e backendError) Error() string {
	return e.err.Error()
}

func (e backendError) Unwrap() error {
	return e.err
}

// fromBackend marks err as a backend error unless ctx, the context given to
// the poll condition, is already done.
func fromBackend(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	return backendError{err: err}
}

// waitResult converts a poll timeout, or a backend call cut short by the
// poll deadline, into a TimedOutError for the VM. Backend errors are
// returned unchanged.
func (v *VM) waitResult(ctx context.Context, err error, desired string, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	var be backendError
	if errors.As(err, &be) {
		return be.err
	}
	if ctx.Err() != nil {
		return err
	}
	if pkgerr.IsTimedOut(err) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerr.TimedOutError{
			Object:  v.String(),
			Desired: desired,
			Timeout: timeout,
		}
	}
	return err
}

func (v *VM) startSpan(ctx context.Context, name string, desired State) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(
		attribute.String("vm.name", v.Name()),
		attribute.String("vm.desired_state", string(desired))))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case pkgerr.IsTimedOut(err):
		return metrics.ResultTimeout
	case errors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultError
	}
}
