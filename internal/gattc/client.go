// Package gattc implements the GATT client side: one Client per peer
// connection, the host event dispatcher bound to it, and the discovered
// service, characteristic and descriptor hierarchy.
//
// All public operations are synchronous. They issue a request to the host
// stack, then block on a gate that the host-event context resolves.
package gattc

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gate"
	"github.com/srg/blegatt/internal/host"
)

// ErrNotReady is returned by Connect while the host stack is not synced.
var ErrNotReady = fmt.Errorf("host not ready: %w", device.ErrNotSynced)

// DeviceContext is the part of the owning device a client needs.
type DeviceContext interface {
	Synced() bool
	Passkey() uint32
	OwnAddrType() host.AddrType
	AddIgnored(addr host.Addr)
	RemoveIgnored(addr host.Addr)
}

// State is the connection lifecycle state of a Client.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Client is a GATT client bound to at most one peer connection at a time.
type Client struct {
	stack          host.Stack
	dev            DeviceContext
	logger         *logrus.Logger
	connectTimeout time.Duration

	connMutex        sync.RWMutex
	peerAddr         host.Addr
	connHandle       host.ConnHandle
	connected        bool
	waitingToConnect bool
	terminating      bool
	callbacks        ClientCallbacks
	ownsCallbacks    bool

	servicesMutex sync.RWMutex
	services      *orderedmap.OrderedMap[uint16, *RemoteService]
	byUUID        map[string]*RemoteService
	haveServices  bool // set once the whole hierarchy is discovered

	openGate     *gate.Gate
	searchGate   *gate.Gate
	securityGate *gate.Gate
}

// NewClient creates an idle client. Applications obtain clients from
// ble.Device.CreateClient, which supplies dev.
func NewClient(stack host.Stack, dev DeviceContext, connectTimeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		stack:          stack,
		dev:            dev,
		logger:         logger,
		connectTimeout: connectTimeout,
		connHandle:     host.ConnHandleNone,
		services:       orderedmap.New[uint16, *RemoteService](),
		byUUID:         make(map[string]*RemoteService),
		openGate:       gate.New("open", logger),
		searchGate:     gate.New("search", logger),
		securityGate:   gate.New("security", logger),
	}
}

// SetClientCallbacks installs cb. When owned is true the client closes cb on
// Close if it implements io.Closer.
func (c *Client) SetClientCallbacks(cb ClientCallbacks, owned bool) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	c.callbacks = cb
	c.ownsCallbacks = owned
}

func (c *Client) clientCallbacks() ClientCallbacks {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.callbacks
}

// pairingCallbacks never returns nil.
func (c *Client) pairingCallbacks() ClientCallbacks {
	if cb := c.clientCallbacks(); cb != nil {
		return cb
	}
	return &DefaultClientCallbacks{Logger: c.logger}
}

// Connect establishes a connection to addr and, unless a previous discovery
// completed, discovers the full attribute hierarchy. refreshServices drops the
// known hierarchy first.
func (c *Client) Connect(ctx context.Context, addr host.Addr, refreshServices bool) error {
	if !c.dev.Synced() {
		c.logger.WithField("address", addr.String()).Error("Host reset, wait for sync")
		return ErrNotReady
	}

	c.connMutex.Lock()
	if c.connected || c.waitingToConnect {
		peer := c.peerAddr
		c.connMutex.Unlock()
		return &device.ConnectionError{State: device.AlreadyConnected, Msg: "client busy with " + peer.String()}
	}
	c.connMutex.Unlock()

	if refreshServices {
		c.logger.WithField("address", addr.String()).Debug("Refreshing services")
		c.clearServices()
	}

	log := c.logger.WithField("address", addr.String())
	log.Info(">> connect")

	w := c.openGate.Take("connect")

	// Pending must be visible before the request: the host may complete it
	// before Connect returns.
	c.connMutex.Lock()
	c.peerAddr = addr
	c.waitingToConnect = true
	c.connMutex.Unlock()

	var rc host.Status
	for {
		rc = c.stack.Connect(c.dev.OwnAddrType(), addr, c.connectTimeout, c.handleGapEvent)
		if rc != host.StatusEBusy || ctx.Err() != nil {
			break
		}
		log.Debug("Host busy, retrying connect")
		runtime.Gosched()
	}

	if rc != host.StatusOK {
		c.setWaitingToConnect(false)
		w.Give(int(rc))
		log.WithField("status", rc.String()).Error("Error: Failed to connect")
		return device.NewStatusError("connect", rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		c.setWaitingToConnect(false)
		c.stack.ConnectCancel()
		if c.IsConnected() {
			// the connection completed while we gave up on it
			_ = c.Disconnect(host.ReasonRemoteUserTerminated)
		}
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	if res != 0 {
		log.WithField("status", host.Status(res).String()).Error("Connection failed")
		return device.NewStatusError("connect", host.Status(res))
	}

	if c.hasServices() {
		log.Debug("Found services, skipping discovery")
	} else if err := c.retrieveServices(ctx); err != nil {
		log.WithError(err).Error("Service discovery failed")
		_ = c.Disconnect(host.ReasonRemoteUserTerminated)
		c.clearServices()
		return fmt.Errorf("%w: %v", device.ErrDiscoveryFailed, err)
	}

	log.Info("<< connect")
	return nil
}

func (c *Client) setWaitingToConnect(v bool) {
	c.connMutex.Lock()
	c.waitingToConnect = v
	c.connMutex.Unlock()
}

// Disconnect asks the host to terminate the connection with reason. It does
// not wait for the disconnect event. Not being connected is not an error.
func (c *Client) Disconnect(reason uint8) error {
	c.connMutex.Lock()
	if !c.connected {
		c.connMutex.Unlock()
		return nil
	}
	handle := c.connHandle
	c.terminating = true
	c.connMutex.Unlock()

	c.logger.WithFields(logrus.Fields{
		"conn_handle": handle,
		"reason":      fmt.Sprintf("0x%02x", reason),
	}).Debug(">> disconnect")

	if rc := c.stack.Terminate(handle, reason); rc != host.StatusOK {
		c.connMutex.Lock()
		c.terminating = false
		c.connMutex.Unlock()
		c.logger.WithField("status", rc.String()).Error("Terminate failed")
		return device.NewStatusError("disconnect", rc)
	}
	return nil
}

// SecureConnection initiates pairing or encryption on the live connection and
// waits for the encryption change.
func (c *Client) SecureConnection(ctx context.Context) error {
	handle, ok := c.connID()
	if !ok {
		return device.ErrNotConnected
	}

	w := c.securityGate.Take("secure")
	if rc := c.stack.SecurityInitiate(handle); rc != host.StatusOK {
		w.Give(int(rc))
		return device.NewStatusError("secure connection", rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("secure connection: %w", err)
	}
	return device.NewStatusError("secure connection", host.Status(res))
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// connID returns the live handle and whether the client is connected.
func (c *Client) connID() (host.ConnHandle, bool) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connHandle, c.connected
}

// GetConnID returns the connection handle, or host.ConnHandleNone.
func (c *Client) GetConnID() host.ConnHandle {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connHandle
}

// GetPeerAddress returns the address of the last connect target.
func (c *Client) GetPeerAddress() host.Addr {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.peerAddr
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	switch {
	case c.connected && c.terminating:
		return StateDisconnecting
	case c.connected:
		return StateConnected
	case c.waitingToConnect:
		return StateConnecting
	}
	return StateIdle
}

// GetRSSI returns the RSSI of the connection, or 0.
func (c *Client) GetRSSI() int {
	handle, ok := c.connID()
	if !ok {
		return 0
	}
	rssi, rc := c.stack.ConnRSSI(handle)
	if rc != host.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"conn_handle": handle,
			"status":      rc.String(),
		}).Error("Failed to read RSSI")
		return 0
	}
	return int(rssi)
}

// GetMTU returns the negotiated ATT MTU, or 0 when not connected.
func (c *Client) GetMTU() uint16 {
	handle, ok := c.connID()
	if !ok {
		return 0
	}
	return c.stack.MTU(handle)
}

// GetService returns the service with the given UUID in any common spelling,
// or nil. Nothing is returned until discovery has completed. With duplicate
// UUIDs the first discovered one wins.
func (c *Client) GetService(uuid string) *RemoteService {
	key := device.NormalizeUUID(uuid)
	c.servicesMutex.RLock()
	defer c.servicesMutex.RUnlock()
	if !c.haveServices {
		return nil
	}
	return c.byUUID[key]
}

// Services returns every discovered service in discovery order, or nil while
// discovery has not completed.
func (c *Client) Services() []*RemoteService {
	if !c.hasServices() {
		return nil
	}
	return c.allServices()
}

// allServices includes services of a discovery still in progress.
func (c *Client) allServices() []*RemoteService {
	c.servicesMutex.RLock()
	defer c.servicesMutex.RUnlock()
	out := make([]*RemoteService, 0, c.services.Len())
	for p := c.services.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// GetCharacteristic looks up a characteristic by service and characteristic UUID.
func (c *Client) GetCharacteristic(serviceUUID, charUUID string) (*RemoteCharacteristic, error) {
	svc := c.GetService(serviceUUID)
	if svc == nil {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{serviceUUID}}
	}
	chr := svc.GetCharacteristic(charUUID)
	if chr == nil {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{serviceUUID, charUUID}}
	}
	return chr, nil
}

// GetValue reads a characteristic value, or returns nil on any failure.
func (c *Client) GetValue(ctx context.Context, serviceUUID, charUUID string) []byte {
	chr, err := c.GetCharacteristic(serviceUUID, charUUID)
	if err != nil {
		c.logger.WithError(err).Debug("GetValue")
		return nil
	}
	v, err := chr.ReadValue(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("GetValue")
		return nil
	}
	return v
}

// SetValue writes a characteristic value with response.
func (c *Client) SetValue(ctx context.Context, serviceUUID, charUUID string, value []byte) bool {
	chr, err := c.GetCharacteristic(serviceUUID, charUUID)
	if err != nil {
		c.logger.WithError(err).Debug("SetValue")
		return false
	}
	if err := chr.WriteValue(ctx, value, true); err != nil {
		c.logger.WithError(err).Debug("SetValue")
		return false
	}
	return true
}

func (c *Client) hasServices() bool {
	c.servicesMutex.RLock()
	defer c.servicesMutex.RUnlock()
	return c.haveServices
}

func (c *Client) setHaveServices(v bool) {
	c.servicesMutex.Lock()
	c.haveServices = v
	c.servicesMutex.Unlock()
}

func (c *Client) insertService(svc *RemoteService) {
	c.servicesMutex.Lock()
	defer c.servicesMutex.Unlock()
	c.services.Set(svc.startHandle, svc)
	key := device.UUIDKey(svc.uuid)
	if _, dup := c.byUUID[key]; dup {
		c.logger.WithField("service_uuid", svc.uuid.String()).Warn("Duplicate service UUID, lookups return the first one")
		return
	}
	c.byUUID[key] = svc
}

// clearServices drops the whole hierarchy after releasing any wait bound to it.
func (c *Client) clearServices() {
	c.servicesMutex.Lock()
	old := c.services
	c.services = orderedmap.New[uint16, *RemoteService]()
	c.byUUID = make(map[string]*RemoteService)
	c.haveServices = false
	c.servicesMutex.Unlock()

	for p := old.Oldest(); p != nil; p = p.Next() {
		p.Value.release(host.StatusENotConn)
	}
}

// releaseGates forces every wait of this client to return rc.
func (c *Client) releaseGates(rc host.Status) {
	c.openGate.Give(int(rc))
	c.searchGate.Give(int(rc))
	c.securityGate.Give(int(rc))
	for _, svc := range c.allServices() {
		svc.release(rc)
	}
}

// HandleHostReset treats a host reset as a disconnect of whatever this client
// holds or is waiting for.
func (c *Client) HandleHostReset(reason int) {
	c.connMutex.Lock()
	wasConnected := c.connected
	pending := c.waitingToConnect
	peer := c.peerAddr
	c.connected = false
	c.waitingToConnect = false
	c.terminating = false
	c.connHandle = host.ConnHandleNone
	cb := c.callbacks
	c.connMutex.Unlock()

	if !wasConnected && !pending {
		return
	}

	c.logger.WithFields(logrus.Fields{
		"address": peer.String(),
		"reason":  reason,
	}).Warn("Host reset, releasing client")

	c.releaseGates(host.StatusENotConn)
	if wasConnected {
		if cb != nil {
			cb.OnDisconnect(c)
		}
		c.dev.RemoveIgnored(peer)
	}
}

// Close releases the hierarchy and the owned callbacks.
func (c *Client) Close() error {
	c.clearServices()

	c.connMutex.Lock()
	cb, owned := c.callbacks, c.ownsCallbacks
	c.callbacks = nil
	c.ownsCallbacks = false
	c.connMutex.Unlock()

	if closer, ok := cb.(io.Closer); ok && owned {
		return closer.Close()
	}
	return nil
}

// String dumps the peer address and the discovered hierarchy.
func (c *Client) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Peer address: %s\n", c.GetPeerAddress())
	fmt.Fprintf(&sb, "State: %s\n", c.State())
	sb.WriteString("Services:\n")
	for _, svc := range c.Services() {
		sb.WriteString(svc.String())
	}
	return sb.String()
}
