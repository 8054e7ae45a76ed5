// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

// Package system describes the backends that own VMs and templates.
package system

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

// System is a connection to a backend.
type System interface {
	// Name identifies the backend, ex. the vCenter host.
	Name() string

	// Info returns a human readable description of the backend.
	Info(ctx context.Context) (string, error)

	// Disconnect releases the connection.
	Disconnect(ctx context.Context) error

	// Stats returns the statistics this system can collect.
	Stats() Stats
}

// CreateVMOptions describe a VM to create. Backends ignore fields that do not
// apply to them.
type CreateVMOptions struct {
	Name string

	// Template or image to create the VM from.
	Template string

	// Flavor or size of the VM.
	Flavor string

	// Network to attach the VM to.
	Network string

	// PowerOn starts the VM after it is created.
	PowerOn bool
}

// VMSystem is a backend that manages VMs.
type VMSystem interface {
	System

	Capabilities() vm.Capabilities

	// GetVM returns the VM named name. A NotFoundError is returned if there
	// is none, and a MultipleItemsError if the name is ambiguous.
	GetVM(ctx context.Context, name string) (*vm.VM, error)

	CreateVM(ctx context.Context, opts CreateVMOptions) (*vm.VM, error)

	ListVMs(ctx context.Context) ([]*vm.VM, error)

	// FindVMs returns the VMs whose name matches the glob pattern. No match
	// is not an error.
	FindVMs(ctx context.Context, pattern string) ([]*vm.VM, error)
}

// TemplateSystem is a backend that manages templates.
type TemplateSystem interface {
	System

	GetTemplate(ctx context.Context, name string) (template.Template, error)

	ListTemplates(ctx context.Context) ([]template.Template, error)

	FindTemplates(ctx context.Context, pattern string) ([]template.Template, error)

	// CreateTemplate converts or copies the VM named vmName into a template
	// named name.
	CreateTemplate(ctx context.Context, vmName, name string) (template.Template, error)
}

// DoesVMExist returns true if at least one VM is named name.
func DoesVMExist(ctx context.Context, s VMSystem, name string) (bool, error) {
	_, err := s.GetVM(ctx, name)
	return existsResult(err)
}

// DoesTemplateExist returns true if at least one template is named name.
func DoesTemplateExist(ctx context.Context, s TemplateSystem, name string) (bool, error) {
	_, err := s.GetTemplate(ctx, name)
	return existsResult(err)
}

func existsResult(err error) (bool, error) {
	switch {
	case err == nil, pkgerr.IsMultipleItems(err):
		return true, nil
	case pkgerr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// MatchName returns true if name matches the glob pattern. A malformed
// pattern only matches itself.
func MatchName(pattern, name string) bool {
	if !strings.ContainsAny(pattern, "*?[\\") {
		return pattern == name
	}
	ok, err := path.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return ok
}

// Filter returns the items whose name matches pattern.
func Filter[T interface{ Name() string }](items []T, pattern string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(t T) bool {
		return !MatchName(pattern, t.Name())
	})
}

// OnlyOne returns the single item in items, or a NotFoundError or
// MultipleItemsError naming kind and name.
func OnlyOne[T any](items []T, kind, name string) (T, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, pkgerr.NotFoundError{Kind: kind, Name: name}
	case 1:
		return items[0], nil
	default:
		return zero, pkgerr.MultipleItemsError{Kind: kind, Name: name, Count: len(items)}
	}
}

func describe(s System) string {
	return fmt.Sprintf("%T(%s)", s, s.Name())
}
