// Package hostsim is an in-memory host stack. It implements host.Stack over
// simulated peers and delivers every completion and event from one named
// goroutine, the same way a real host task does.
package hostsim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/host"
)

// Operation names used by RejectNext, FailNext, Hold and Calls.
const (
	OpConnect                 = "connect"
	OpTerminate               = "terminate"
	OpDiscoverServices        = "discover_services"
	OpDiscoverCharacteristics = "discover_characteristics"
	OpDiscoverDescriptors     = "discover_descriptors"
	OpRead                    = "read"
	OpWrite                   = "write"
	OpWriteNoRsp              = "write_no_rsp"
	OpSecurity                = "security"
	OpInjectIO                = "inject_io"
	OpCountConfig             = "count_config"
	OpAddServices             = "add_services"
)

// Options configures a Sim.
type Options struct {
	QueueSize uint32 `default:"256"`
	MTU       uint16 `default:"247"`
	RSSI      int8   `default:"-60"`
}

type connection struct {
	desc    host.ConnDesc
	peer    *Peer
	handler host.EventHandler
	// pairing expected by the pending security procedure
	pairing host.PasskeyAction
	numCmp  uint32
}

type pendingConnect struct {
	peer    host.Addr
	handler host.EventHandler
	timer   *time.Timer
}

// Sim is a simulated host stack.
type Sim struct {
	opts   Options
	logger *logrus.Logger
	queue  *eventQueue
	peers  *hashmap.Map[string, *Peer]

	mu         sync.Mutex
	synced     bool
	onSync     func()
	onReset    func(reason int)
	conns      map[host.ConnHandle]*connection
	nextHandle host.ConnHandle
	pending    *pendingConnect
	busy       int
	dropNext   bool
	reject     map[string]host.Status
	fail       map[string]host.Status
	holds      map[string]bool
	held       map[string][]func()
	calls      map[string]int
	injected   []host.PairingIO
	registered [][]host.ServiceDef
	pairing    host.PasskeyAction
	numCmp     uint32
	auth       host.SecurityAuth
}

var _ host.Stack = (*Sim)(nil)

// New creates a stopped, unsynced simulator.
func New(opts Options, logger *logrus.Logger) (*Sim, error) {
	defaults.SetDefaults(&opts)
	if logger == nil {
		logger = logrus.New()
	}
	q, err := newEventQueue(opts.QueueSize, logger)
	if err != nil {
		return nil, err
	}
	return &Sim{
		opts:       opts,
		logger:     logger,
		queue:      q,
		peers:      hashmap.New[string, *Peer](),
		conns:      make(map[host.ConnHandle]*connection),
		nextHandle: 1,
		reject:     make(map[string]host.Status),
		fail:       make(map[string]host.Status),
		holds:      make(map[string]bool),
		held:       make(map[string][]func()),
		calls:      make(map[string]int),
	}, nil
}

// AddPeer makes p connectable.
func (s *Sim) AddPeer(p *Peer) {
	s.peers.Set(p.Addr.String(), p)
	s.logger.WithFields(logrus.Fields{
		"address":  p.Addr.String(),
		"services": p.ServiceCount(),
	}).Debug("Peer added")
}

// AddProfiles compiles and adds every profile.
func (s *Sim) AddProfiles(profiles []PeerProfile) error {
	for _, pp := range profiles {
		p, err := NewPeer(pp)
		if err != nil {
			return err
		}
		s.AddPeer(p)
	}
	return nil
}

// Peer returns the peer at addr.
func (s *Sim) Peer(addr host.Addr) (*Peer, bool) {
	return s.peers.Get(addr.String())
}

// Start launches the host-event goroutine and syncs the host.
func (s *Sim) Start(ctx context.Context) error {
	if err := s.queue.Start(ctx); err != nil {
		return err
	}
	s.Sync()
	return nil
}

// Stop ends the host-event goroutine.
func (s *Sim) Stop() error {
	return s.queue.Stop()
}

// Sync marks the host synced and reports it on the host-event context.
func (s *Sim) Sync() {
	s.mu.Lock()
	s.synced = true
	onSync := s.onSync
	s.mu.Unlock()

	s.logger.Info("Host synced")
	if onSync != nil {
		s.queue.Post(onSync)
	}
}

// Reset drops every connection without disconnect events, marks the host
// unsynced and reports the reset.
func (s *Sim) Reset(reason int) {
	s.mu.Lock()
	s.synced = false
	s.conns = make(map[host.ConnHandle]*connection)
	if s.pending != nil {
		s.pending.timer.Stop()
		s.pending = nil
	}
	s.held = make(map[string][]func())
	onReset := s.onReset
	s.mu.Unlock()

	s.logger.WithField("reason", reason).Warn("Host reset")
	if onReset != nil {
		s.queue.Post(func() { onReset(reason) })
	}
}

// Flush waits until all queued host work has been delivered.
func (s *Sim) Flush() {
	s.queue.Flush()
}

// OnEventContext reports whether the caller runs on the host-event goroutine.
func (s *Sim) OnEventContext() bool {
	return s.queue.OnEventContext()
}

// Metrics returns host-event queue counters.
func (s *Sim) Metrics() QueueMetrics {
	return s.queue.Metrics()
}

// --- fault injection ---

// SetBusy makes the next n Connect calls return StatusEBusy.
func (s *Sim) SetBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = n
}

// RejectNext makes the next call of op return rc immediately.
func (s *Sim) RejectNext(op string, rc host.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject[op] = rc
}

// FailNext makes the next accepted op complete with rc. Discovery streams
// still deliver their items before the terminal status.
func (s *Sim) FailNext(op string, rc host.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = rc
}

// DropConnect makes the next accepted Connect never complete.
func (s *Sim) DropConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropNext = true
}

// Hold parks completions of op until Release.
func (s *Sim) Hold(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[op] = true
}

// Release delivers parked completions of op and stops holding it.
func (s *Sim) Release(op string) {
	s.mu.Lock()
	parked := s.held[op]
	delete(s.held, op)
	delete(s.holds, op)
	s.mu.Unlock()

	for _, fn := range parked {
		s.queue.Post(fn)
	}
}

// Holding returns how many completions of op are parked.
func (s *Sim) Holding(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held[op])
}

// SetPairing selects the I/O action the next security procedure asks for.
func (s *Sim) SetPairing(action host.PasskeyAction, numCmp uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairing = action
	s.numCmp = numCmp
}

// --- peer initiated events ---

// Disconnect terminates the connection to addr from the peer side.
func (s *Sim) Disconnect(addr host.Addr, reason uint8) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("no connection to %s", addr)
	}
	delete(s.conns, c.desc.Handle)
	s.mu.Unlock()

	desc := c.desc
	s.queue.Post(func() { c.handler(&host.DisconnectEvent{Reason: int(reason), Conn: desc}) })
	return nil
}

// Notify updates the characteristic value on the peer and sends it to the
// connected client as a notification or indication.
func (s *Sim) Notify(addr host.Addr, uuid string, data []byte, indicate bool) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no connection to %s", addr)
	}
	chr := c.peer.characteristicByUUID(uuid)
	if chr == nil {
		return fmt.Errorf("peer %s has no characteristic %s", addr, uuid)
	}
	c.peer.write(chr.value.handle, data)

	ev := &host.NotifyRxEvent{
		Handle:     c.desc.Handle,
		AttrHandle: chr.value.handle,
		Data:       append([]byte(nil), data...),
		Indication: indicate,
	}
	s.queue.Post(func() { c.handler(ev) })
	return nil
}

// RequestPasskey sends a passkey action to the client connected to addr.
func (s *Sim) RequestPasskey(addr host.Addr, action host.PasskeyAction, numCmp uint32) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	if c != nil {
		c.pairing = action
		c.numCmp = numCmp
	}
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no connection to %s", addr)
	}
	ev := &host.PasskeyActionEvent{Handle: c.desc.Handle, Action: action, NumCmp: numCmp}
	s.queue.Post(func() { c.handler(ev) })
	return nil
}

// EncryptionChanged reports an encryption change with status to the client
// connected to addr.
func (s *Sim) EncryptionChanged(addr host.Addr, status host.Status) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	if c != nil && status == host.StatusOK {
		c.desc.Encrypted = true
	}
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no connection to %s", addr)
	}
	ev := &host.EncChangeEvent{Handle: c.desc.Handle, Status: status}
	s.queue.Post(func() { c.handler(ev) })
	return nil
}

// RequestSecurity sends a peer security request to the client connected to addr.
func (s *Sim) RequestSecurity(addr host.Addr) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no connection to %s", addr)
	}
	ev := &host.SecurityRequestEvent{Handle: c.desc.Handle}
	s.queue.Post(func() { c.handler(ev) })
	return nil
}

// RequestConnUpdate sends a connection parameter update request.
func (s *Sim) RequestConnUpdate(addr host.Addr) error {
	s.mu.Lock()
	c := s.connByAddrLocked(addr)
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no connection to %s", addr)
	}
	ev := &host.ConnUpdateRequestEvent{Handle: c.desc.Handle}
	s.queue.Post(func() { c.handler(ev) })
	return nil
}

// --- observers ---

// Calls returns how many times op was issued.
func (s *Sim) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SecurityAuth returns the requirements last set with SetSecurityAuth.
func (s *Sim) SecurityAuth() host.SecurityAuth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// Injected returns every pairing response injected so far.
func (s *Sim) Injected() []host.PairingIO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]host.PairingIO(nil), s.injected...)
}

// Registered returns every service list passed to AddServices.
func (s *Sim) Registered() [][]host.ServiceDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]host.ServiceDef(nil), s.registered...)
}

// Connections returns the number of live connections.
func (s *Sim) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Sim) connByAddrLocked(addr host.Addr) *connection {
	for _, c := range s.conns {
		if c.desc.PeerAddr.Val == addr.Val {
			return c
		}
	}
	return nil
}

// issueLocked records op and returns a pending reject status, if any.
func (s *Sim) issueLocked(op string) host.Status {
	s.calls[op]++
	if rc, ok := s.reject[op]; ok {
		delete(s.reject, op)
		return rc
	}
	return host.StatusOK
}

func (s *Sim) failureLocked(op string) host.Status {
	if rc, ok := s.fail[op]; ok {
		delete(s.fail, op)
		return rc
	}
	return host.StatusOK
}

// completeLocked posts fn, or parks it while op is held.
func (s *Sim) completeLocked(op string, fn func()) {
	if s.holds[op] {
		s.held[op] = append(s.held[op], fn)
		return
	}
	s.queue.Post(fn)
}
