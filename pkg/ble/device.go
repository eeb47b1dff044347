// Package ble is the application entry point: a Device owns the host stack
// binding, the GATT clients and the locally hosted services.
package ble

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	goble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gattc"
	"github.com/srg/blegatt/internal/gatts"
	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/pkg/config"
)

// SecurityAuth is the pairing requirement set advertised by this device.
type SecurityAuth = host.SecurityAuth

// Device binds clients and local services to one host stack.
type Device struct {
	stack  host.Stack
	cfg    *config.Config
	logger *logrus.Logger

	synced  atomic.Bool
	passkey atomic.Uint32
	ignored *hashmap.Map[string, host.Addr]

	syncMu   sync.Mutex
	syncedCh chan struct{} // closed while synced

	mu       sync.Mutex
	clients  []*gattc.Client
	services []*gatts.Service
	auth     SecurityAuth
}

var _ gattc.DeviceContext = (*Device)(nil)

// NewDevice creates a device on stack and registers for host sync and reset.
// A nil cfg uses the defaults.
func NewDevice(stack host.Stack, cfg *config.Config, logger *logrus.Logger) *Device {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}
	d := &Device{
		stack:   stack,
		cfg:     cfg,
		logger:  logger,
		ignored: hashmap.New[string, host.Addr](),

		syncedCh: make(chan struct{}),
	}
	d.passkey.Store(cfg.Passkey)
	stack.SetLifecycleHandlers(d.OnSync, d.OnHostReset)
	return d
}

// OnSync marks the host ready.
func (d *Device) OnSync() {
	d.syncMu.Lock()
	if !d.synced.Swap(true) {
		close(d.syncedCh)
	}
	d.syncMu.Unlock()
	d.logger.Debug("Host synced")
}

// OnHostReset marks the host not ready and treats the reset as a disconnect
// of every client.
func (d *Device) OnHostReset(reason int) {
	d.syncMu.Lock()
	if d.synced.Swap(false) {
		d.syncedCh = make(chan struct{})
	}
	d.syncMu.Unlock()
	d.logger.WithField("reason", reason).Warn("Host reset")
	for _, c := range d.Clients() {
		c.HandleHostReset(reason)
	}
}

func (d *Device) Synced() bool { return d.synced.Load() }

// WaitSynced blocks until the host is synced or ctx ends.
func (d *Device) WaitSynced(ctx context.Context) error {
	d.syncMu.Lock()
	ch := d.syncedCh
	d.syncMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) Passkey() uint32           { return d.passkey.Load() }
func (d *Device) SetPasskey(passkey uint32) { d.passkey.Store(passkey) }

func (d *Device) OwnAddrType() host.AddrType { return d.cfg.AddrType() }

// SetSecurityAuth configures the pairing requirements of the host stack.
func (d *Device) SetSecurityAuth(auth SecurityAuth) {
	d.mu.Lock()
	d.auth = auth
	d.mu.Unlock()
	d.stack.SetSecurityAuth(auth)
}

func (d *Device) SecurityAuth() SecurityAuth {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.auth
}

// --- ignore list ---

func (d *Device) AddIgnored(addr host.Addr) {
	d.ignored.Set(addr.String(), addr)
}

func (d *Device) RemoveIgnored(addr host.Addr) {
	d.ignored.Del(addr.String())
}

// IsIgnored reports whether addr belongs to a connected peer.
func (d *Device) IsIgnored(addr host.Addr) bool {
	_, ok := d.ignored.Get(addr.String())
	return ok
}

// --- clients ---

// CreateClient returns a new idle client, or ErrTooManyClients when
// MaxConnections clients exist.
func (d *Device) CreateClient() (*gattc.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.clients) >= d.cfg.MaxConnections {
		d.logger.WithField("max", d.cfg.MaxConnections).Error("Max client count reached")
		return nil, device.ErrTooManyClients
	}
	c := gattc.NewClient(d.stack, d, d.cfg.ConnectTimeout, d.logger)
	d.clients = append(d.clients, c)
	return c, nil
}

// DeleteClient disconnects c if needed and releases it.
func (d *Device) DeleteClient(c *gattc.Client) error {
	d.mu.Lock()
	idx := -1
	for i, existing := range d.clients {
		if existing == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return nil
	}
	d.clients = append(d.clients[:idx], d.clients[idx+1:]...)
	d.mu.Unlock()

	if c.IsConnected() {
		if err := c.Disconnect(host.ReasonRemoteUserTerminated); err != nil {
			d.logger.WithError(err).Warn("Disconnect on delete failed")
		}
	}
	return c.Close()
}

// Clients returns the live clients in creation order.
func (d *Device) Clients() []*gattc.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*gattc.Client(nil), d.clients...)
}

// ClientByPeer returns the client last targeted at addr, or nil.
func (d *Device) ClientByPeer(addr host.Addr) *gattc.Client {
	for _, c := range d.Clients() {
		if c.GetPeerAddress().Val == addr.Val {
			return c
		}
	}
	return nil
}

// --- local services ---

// CreateService creates a local service to be registered by StartServices.
func (d *Device) CreateService(uuid goble.UUID, numHandles int) *gatts.Service {
	svc := gatts.NewService(uuid, numHandles, d.logger)
	d.mu.Lock()
	d.services = append(d.services, svc)
	d.mu.Unlock()
	return svc
}

// Services returns the local services in creation order.
func (d *Device) Services() []*gatts.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*gatts.Service(nil), d.services...)
}

// StartServices registers every local service not started yet. It stops at
// the first failure.
func (d *Device) StartServices() error {
	for _, svc := range d.Services() {
		if svc.Started() {
			continue
		}
		if err := svc.Start(d.stack); err != nil {
			return err
		}
	}
	return nil
}
