// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package kubevirt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type vmHandle struct {
	*entity.Base[*unstructured.Unstructured]

	sys  *System
	name string
}

var (
	_ vm.Handle        = &vmHandle{}
	_ vm.IPAddresser   = &vmHandle{}
	_ vm.CreationTimer = &vmHandle{}
	_ vm.Cloner        = &vmHandle{}
)

func (s *System) newHandle(u *unstructured.Unstructured) *vmHandle {
	h := &vmHandle{sys: s, name: u.GetName()}
	attrs := entity.Attrs{"namespace": u.GetNamespace(), "name": u.GetName()}
	h.Base = entity.NewBaseWithRaw(s, attrs, h.fetch, u)
	return h
}

func (s *System) newVM(u *unstructured.Unstructured) *vm.VM {
	return vm.New(s.newHandle(u), s.Capabilities(), s.vmOpts...)
}

func (h *vmHandle) fetch(ctx context.Context) (*unstructured.Unstructured, error) {
	return h.sys.fetch(ctx, h.name)
}

func (h *vmHandle) Name() string {
	return h.name
}

func (h *vmHandle) StateMap() vm.StateMap {
	return stateMap
}

func printableStatus(u *unstructured.Unstructured) string {
	s, _, _ := unstructured.NestedString(u.Object, "status", "printableStatus")
	return s
}

// GetState translates status.printableStatus. A VirtualMachine the
// controller has not reported on yet is stopped if it is halted and
// starting otherwise.
func (h *vmHandle) GetState(ctx context.Context) (vm.State, error) {
	u, err := h.RefreshRaw(ctx)
	if err != nil {
		return "", err
	}
	status := printableStatus(u)
	if status == "" {
		if rs, _, _ := unstructured.NestedString(u.Object, "spec", "runStrategy"); rs == RunStrategyHalted {
			return vm.StateStopped, nil
		}
		return vm.StateStarting, nil
	}
	return stateMap.Translate(ctx, status), nil
}

func (h *vmHandle) Start(ctx context.Context) error {
	return h.setRunStrategy(ctx, RunStrategyAlways, StatusRunning)
}

func (h *vmHandle) Stop(ctx context.Context) error {
	return h.setRunStrategy(ctx, RunStrategyHalted, StatusStopped)
}

func (h *vmHandle) Suspend(_ context.Context) error {
	return pkgerr.UnsupportedOperationError{Kind: "kubevirt vm", Operation: "suspend"}
}

func (h *vmHandle) Pause(_ context.Context) error {
	return pkgerr.UnsupportedOperationError{Kind: "kubevirt vm", Operation: "pause"}
}

// setRunStrategy patches spec.runStrategy, clearing the legacy
// spec.running field, and waits for the printable status.
func (h *vmHandle) setRunStrategy(ctx context.Context, runStrategy, want string) error {
	u, err := h.RefreshRaw(ctx)
	if err != nil {
		return err
	}

	modified := u.DeepCopy()
	if err := unstructured.SetNestedField(modified.Object, runStrategy, "spec", "runStrategy"); err != nil {
		return err
	}
	unstructured.RemoveNestedField(modified.Object, "spec", "running")

	if err := h.sys.client.Patch(ctx, modified, ctrlclient.MergeFrom(u)); err != nil {
		if apierrors.IsNotFound(err) {
			return pkgerr.NotFoundError{Kind: "vm", Name: h.name}
		}
		return fmt.Errorf("failed to set runStrategy of %s to %s: %w", h.name, runStrategy, err)
	}
	logr.FromContextOrDiscard(ctx).V(4).Info("Patched runStrategy",
		"vm", h.name, "runStrategy", runStrategy)

	return h.sys.waitForStatus(ctx, h.name, want)
}

func (h *vmHandle) Delete(ctx context.Context) error {
	return h.delete(ctx, metav1.DeletePropagationBackground)
}

// Cleanup deletes the VirtualMachine and waits on the garbage collector to
// remove its dependents, ex. DataVolumes.
func (h *vmHandle) Cleanup(ctx context.Context) error {
	return h.delete(ctx, metav1.DeletePropagationForeground)
}

func (h *vmHandle) delete(ctx context.Context, policy metav1.DeletionPropagation) error {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(VirtualMachineGVK)
	u.SetNamespace(h.sys.namespace)
	u.SetName(h.name)
	if err := h.sys.client.Delete(ctx, u, ctrlclient.PropagationPolicy(policy)); err != nil {
		if apierrors.IsNotFound(err) {
			return pkgerr.NotFoundError{Kind: "vm", Name: h.name}
		}
		return fmt.Errorf("failed to delete virtual machine %s: %w", h.name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Deleted virtual machine",
		"vm", h.name, "propagationPolicy", policy)
	return nil
}

// IP returns the first interface address of the running instance. It is
// empty when the VM has no instance.
func (h *vmHandle) IP(ctx context.Context) (string, error) {
	vmi := &unstructured.Unstructured{}
	vmi.SetGroupVersionKind(VirtualMachineInstanceGVK)
	key := ctrlclient.ObjectKey{Namespace: h.sys.namespace, Name: h.name}
	if err := h.sys.client.Get(ctx, key, vmi); err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	interfaces, _, _ := unstructured.NestedSlice(vmi.Object, "status", "interfaces")
	for _, i := range interfaces {
		m, _ := i.(map[string]any)
		if ip, _ := m["ipAddress"].(string); ip != "" {
			return ip, nil
		}
	}
	return "", nil
}

func (h *vmHandle) CreationTime(ctx context.Context) (time.Time, error) {
	u, err := h.Raw(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return u.GetCreationTimestamp().Time, nil
}

// Clone creates a halted VirtualMachine with a copy of the spec.
func (h *vmHandle) Clone(ctx context.Context, name string) (vm.Handle, error) {
	src, err := h.RefreshRaw(ctx)
	if err != nil {
		return nil, err
	}
	spec, _, err := unstructured.NestedMap(src.Object, "spec")
	if err != nil {
		return nil, err
	}
	spec["runStrategy"] = RunStrategyHalted
	delete(spec, "running")

	u := &unstructured.Unstructured{Object: map[string]any{"spec": spec}}
	u.SetGroupVersionKind(VirtualMachineGVK)
	u.SetNamespace(h.sys.namespace)
	u.SetName(name)
	u.SetLabels(src.GetLabels())
	if err := h.sys.client.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to clone %s to %s: %w", h.name, name, err)
	}
	logr.FromContextOrDiscard(ctx).Info("Cloned virtual machine", "vm", h.name, "clone", name)
	return h.sys.newHandle(u), nil
}

func (h *vmHandle) String() string {
	return h.sys.String() + "{vm=" + h.name + "}"
}
