// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError is returned when an entity does not exist on the backend.
type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", kindOrDefault(e.Kind))
	}
	return fmt.Sprintf("%s %q not found", kindOrDefault(e.Kind), e.Name)
}

// MultipleItemsError is returned when a lookup by name matches more than one
// entity. It is never resolved silently.
type MultipleItemsError struct {
	Kind  string
	Name  string
	Count int
}

func (e MultipleItemsError) Error() string {
	return fmt.Sprintf(
		"found %d %s objects named %q, expected one",
		e.Count, kindOrDefault(e.Kind), e.Name)
}

// InvalidArgumentError is returned before any backend call is made when an
// argument cannot be satisfied, ex. an unreachable desired state.
type InvalidArgumentError struct {
	Argument string
	Message  string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Argument, e.Message)
}

// CapabilityError is returned when an operation requires a capability the
// backend system does not declare, ex. suspending on a system that cannot
// suspend.
type CapabilityError struct {
	System     string
	Capability string
}

func (e CapabilityError) Error() string {
	if e.System == "" {
		return fmt.Sprintf("system does not support %s", e.Capability)
	}
	return fmt.Sprintf("system %s does not support %s", e.System, e.Capability)
}

// UnsupportedOperationError is returned by entities that cannot perform an
// operation at all, ex. a backend whose VMs cannot be cleaned up.
type UnsupportedOperationError struct {
	Kind      string
	Operation string
}

func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf(
		"operation %s is not supported for %s", e.Operation, kindOrDefault(e.Kind))
}

// TimedOutError is returned when a wait did not converge within the allotted
// time.
type TimedOutError struct {
	// Object identifies the entity being waited on.
	Object string

	// Desired is the state or condition that was not reached.
	Desired string

	Timeout time.Duration

	// Message is an optional description of the wait.
	Message string
}

func (e TimedOutError) Error() string {
	switch {
	case e.Object != "" && e.Desired != "":
		return fmt.Sprintf(
			"timed out after %s waiting for %s to reach %s",
			e.Timeout, e.Object, e.Desired)
	case e.Message != "":
		return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Message)
	default:
		return fmt.Sprintf("timed out after %s", e.Timeout)
	}
}

// InvalidStateMapError is returned when a backend declares a native status
// that maps to a value outside of the closed set of VM states.
type InvalidStateMapError struct {
	Native string
	Value  string
}

func (e InvalidStateMapError) Error() string {
	return fmt.Sprintf(
		"invalid state map: native status %q maps to unknown state %q",
		e.Native, e.Value)
}

// IsNotFound returns true if the error or a nested error is a NotFoundError.
func IsNotFound(err error) bool {
	var e NotFoundError
	return errors.As(err, &e)
}

// IsMultipleItems returns true if the error or a nested error is a
// MultipleItemsError.
func IsMultipleItems(err error) bool {
	var e MultipleItemsError
	return errors.As(err, &e)
}

// IsInvalidArgument returns true if the error or a nested error is an
// InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var e InvalidArgumentError
	return errors.As(err, &e)
}

// IsCapability returns true if the error or a nested error is a
// CapabilityError.
func IsCapability(err error) bool {
	var e CapabilityError
	return errors.As(err, &e)
}

// IsUnsupportedOperation returns true if the error or a nested error is an
// UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	var e UnsupportedOperationError
	return errors.As(err, &e)
}

// IsTimedOut returns true if the error or a nested error is a TimedOutError.
func IsTimedOut(err error) bool {
	var e TimedOutError
	return errors.As(err, &e)
}

// IsInvalidStateMap returns true if the error or a nested error is an
// InvalidStateMapError.
func IsInvalidStateMap(err error) bool {
	var e InvalidStateMapError
	return errors.As(err, &e)
}

func kindOrDefault(kind string) string {
	if kind == "" {
		return "object"
	}
	return kind
}
