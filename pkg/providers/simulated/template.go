// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package simulated

import (
	"context"

	"github.com/manageiq/wrapanapi/pkg/entity"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type templateHandle struct {
	*entity.Base[Image]
	entity.NoCleanup

	sys *System
	id  string
	img Image
}

var _ template.Template = &templateHandle{}

func (s *System) newTemplate(i Image) *templateHandle {
	t := &templateHandle{
		NoCleanup: entity.NoCleanup{Kind: "template"},
		sys:       s,
		id:        i.ID,
		img:       i,
	}
	t.Base = entity.NewBaseWithRaw(s, entity.Attrs{"id": i.ID}, t.fetch, i)
	return t
}

func (t *templateHandle) fetch(_ context.Context) (Image, error) {
	return t.sys.store.getImage(t.id)
}

func (t *templateHandle) Name() string {
	return t.img.Name
}

func (t *templateHandle) Delete(_ context.Context) error {
	if _, err := t.sys.store.getImage(t.id); err != nil {
		return err
	}
	return t.sys.store.delete(templateKeyPrefix + t.id)
}

// Deploy creates a stopped VM from the template.
func (t *templateHandle) Deploy(ctx context.Context, opts template.DeployOptions) (*vm.VM, error) {
	img, err := t.Raw(ctx)
	if err != nil {
		return nil, err
	}
	return t.sys.CreateVM(ctx, system.CreateVMOptions{
		Name:     opts.Name,
		Template: img.Name,
		Flavor:   img.Flavor,
	})
}
