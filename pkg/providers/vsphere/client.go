// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package vsphere

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/vmware/govmomi/fault"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/session/keepalive"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/soap"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	"github.com/manageiq/wrapanapi/pkg/config"
	pkglog "github.com/manageiq/wrapanapi/pkg/log"
)

// Client is a logged in vCenter session scoped to one datacenter.
type Client struct {
	vimClient      *vim25.Client
	sessionManager *session.Manager
	config         config.VSphere

	finder     *find.Finder
	datacenter *object.Datacenter
}

// NewClient logs in to the vCenter described by cfg.
func NewClient(ctx context.Context, cfg config.VSphere) (*Client, error) {
	vimClient, sm, err := newVimClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	finder, datacenter, err := newFinder(ctx, vimClient, cfg)
	if err != nil {
		_ = sm.Logout(ctx)
		return nil, err
	}

	return &Client{
		vimClient:      vimClient,
		sessionManager: sm,
		config:         cfg,
		finder:         finder,
		datacenter:     datacenter,
	}, nil
}

// Idle time before a keepalive will be invoked.
const keepAliveIdleTime = 5 * time.Minute

// soapKeepAliveHandlerFn returns a keepalive handler that logs the client in
// again once the session has expired, ex. after a long loss of connectivity.
func soapKeepAliveHandlerFn(
	ctx context.Context,
	sc *soap.Client,
	sm *session.Manager,
	userInfo *url.Userinfo) func() error {

	log := pkglog.FromContextOrDefault(ctx).WithName("SoapKeepAliveHandlerFn")

	return func() error {
		ctx := context.Background()
		if _, err := methods.GetCurrentTime(ctx, sc); err != nil && isNotAuthenticated(err) {
			log.Info("Re-authenticating vim client")
			if err = sm.Login(ctx, userInfo); err != nil {
				if isInvalidLogin(err) {
					log.Error(err, "Invalid login in keepalive handler", "url", sc.URL())
					return err
				}
			}
		} else if err != nil {
			log.Error(err, "Error in vim25 client's keepalive handler", "url", sc.URL())
		}

		return nil
	}
}

func newVimClient(
	ctx context.Context,
	cfg config.VSphere) (*vim25.Client, *session.Manager, error) {

	log := pkglog.FromContextOrDefault(ctx).WithName("NewVimClient")

	log.V(4).Info("Creating new vim client", "host", cfg.Host, "port", cfg.Port)
	soapURL, err := soap.ParseURL(net.JoinHostPort(cfg.Host, cfg.Port))
	if err != nil {
		return nil, nil, fmt.Errorf(
			"failed to parse %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	soapClient := soap.NewClient(soapURL, cfg.Insecure)

	vimClient, err := vim25.NewClient(ctx, soapClient)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"error creating a new vim client for url: %v: %w", soapURL, err)
	}

	if err := vimClient.UseServiceVersion(); err != nil {
		return nil, nil, fmt.Errorf(
			"error setting vim client version for url: %v: %w", soapURL, err)
	}

	userInfo := url.UserPassword(cfg.Username, cfg.Password)
	sm := session.NewManager(vimClient)

	vimClient.RoundTripper = keepalive.NewHandlerSOAP(
		soapClient,
		keepAliveIdleTime,
		soapKeepAliveHandlerFn(ctx, soapClient, sm, userInfo))

	// The initial login also starts the keepalive.
	if err = sm.Login(ctx, userInfo); err != nil {
		return nil, nil, fmt.Errorf(
			"login failed for url: %v: %w", soapURL, err)
	}

	return vimClient, sm, nil
}

func newFinder(
	ctx context.Context,
	vimClient *vim25.Client,
	cfg config.VSphere) (*find.Finder, *object.Datacenter, error) {

	finder := find.NewFinder(vimClient, false)

	var (
		dc  *object.Datacenter
		err error
	)
	if cfg.Datacenter == "" {
		dc, err = finder.DefaultDatacenter(ctx)
	} else {
		dc, err = finder.Datacenter(ctx, cfg.Datacenter)
	}
	if err != nil {
		return nil, nil, fmt.Errorf(
			"failed to find Datacenter %q: %w", cfg.Datacenter, err)
	}
	finder.SetDatacenter(dc)

	return finder, dc, nil
}

func isNotAuthenticated(err error) bool {
	return fault.Is(err, &vimtypes.NotAuthenticated{})
}

func isInvalidLogin(err error) bool {
	return fault.Is(err, &vimtypes.InvalidLogin{})
}

func (c *Client) VimClient() *vim25.Client {
	return c.vimClient
}

func (c *Client) Finder() *find.Finder {
	return c.finder
}

func (c *Client) Datacenter() *object.Datacenter {
	return c.datacenter
}

func (c *Client) Config() config.VSphere {
	return c.config
}

func (c *Client) Valid() bool {
	if c == nil || c.vimClient == nil {
		return false
	}
	return c.vimClient.Valid()
}

// Logout ends the session. Errors are logged.
func (c *Client) Logout(ctx context.Context) {
	log := pkglog.FromContextOrDefault(ctx).WithName("Logout")

	clientURL := c.vimClient.URL()
	log.V(4).Info("vSphere client logging out", "host", clientURL.Host)

	if err := c.sessionManager.Logout(ctx); err != nil {
		log.Error(err, "Error logging out the vim25 session",
			"username", c.config.Username,
			"host", clientURL.Host)
	}
}
