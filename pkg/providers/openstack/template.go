// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package openstack

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"

	"github.com/manageiq/wrapanapi/pkg/entity"
	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
	"github.com/manageiq/wrapanapi/pkg/system"
	"github.com/manageiq/wrapanapi/pkg/template"
	"github.com/manageiq/wrapanapi/pkg/vm"
)

type templateHandle struct {
	*entity.Base[images.Image]
	entity.NoCleanup

	sys  *System
	id   string
	name string
}

var _ template.Template = &templateHandle{}

func (ts templateSystem) newTemplate(img images.Image) *templateHandle {
	t := &templateHandle{
		NoCleanup: entity.NoCleanup{Kind: "template"},
		sys:       ts.System,
		id:        img.ID,
		name:      img.Name,
	}
	t.Base = entity.NewBaseWithRaw(ts.System, entity.Attrs{"id": img.ID}, t.fetch, img)
	return t
}

func (s *System) fetchImage(ctx context.Context, id string) (images.Image, error) {
	img, err := images.Get(ctx, s.clients.Images, id).Extract()
	if err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return images.Image{}, pkgerr.NotFoundError{Kind: "template", Name: id}
		}
		return images.Image{}, fmt.Errorf("error retrieving image %s: %w", id, err)
	}
	return *img, nil
}

func (t *templateHandle) fetch(ctx context.Context) (images.Image, error) {
	return t.sys.fetchImage(ctx, t.id)
}

func (t *templateHandle) Name() string {
	return t.name
}

func (t *templateHandle) Delete(ctx context.Context) error {
	if err := images.Delete(ctx, t.sys.clients.Images, t.id).ExtractErr(); err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return pkgerr.NotFoundError{Kind: "template", Name: t.name}
		}
		return fmt.Errorf("failed to delete image %s: %w", t.name, err)
	}
	return nil
}

// Deploy boots a server from the image.
func (t *templateHandle) Deploy(ctx context.Context, opts template.DeployOptions) (*vm.VM, error) {
	return t.sys.boot(ctx, system.CreateVMOptions{Name: opts.Name}, t.id)
}
