package hostsim

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/host"
)

func (s *Sim) SetLifecycleHandlers(onSync func(), onReset func(reason int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSync = onSync
	s.onReset = onReset
}

func (s *Sim) Connect(own host.AddrType, peer host.Addr, timeout time.Duration, handler host.EventHandler) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpConnect); rc != host.StatusOK {
		return rc
	}
	if !s.synced {
		return host.StatusENotSynced
	}
	if s.busy > 0 {
		s.busy--
		return host.StatusEBusy
	}
	if s.pending != nil {
		return host.StatusEAlready
	}

	log := s.logger.WithFields(logrus.Fields{
		"address":  peer.String(),
		"own_type": own.String(),
	})

	p, known := s.peers.Get(peer.String())
	if s.dropNext || !known {
		s.dropNext = false
		pc := &pendingConnect{peer: peer, handler: handler}
		s.pending = pc
		// nothing answers: the host times the attempt out
		pc.timer = time.AfterFunc(timeout, func() {
			s.mu.Lock()
			if s.pending != pc {
				s.mu.Unlock()
				return
			}
			s.pending = nil
			s.mu.Unlock()
			log.Debug("Connect timed out")
			s.queue.Post(func() {
				handler(&host.ConnectEvent{Status: host.StatusETimeout, Handle: host.ConnHandleNone})
			})
		})
		return host.StatusOK
	}
	if rc := s.failureLocked(OpConnect); rc != host.StatusOK {
		s.completeLocked(OpConnect, func() {
			handler(&host.ConnectEvent{Status: rc, Handle: host.ConnHandleNone})
		})
		return host.StatusOK
	}

	handle := s.nextHandle
	s.nextHandle++
	s.conns[handle] = &connection{
		desc:    host.ConnDesc{Handle: handle, PeerAddr: p.Addr},
		peer:    p,
		handler: handler,
	}
	log.WithField("conn_handle", handle).Debug("Peer accepted connection")

	s.completeLocked(OpConnect, func() {
		handler(&host.ConnectEvent{Status: host.StatusOK, Handle: handle})
	})
	return host.StatusOK
}

func (s *Sim) ConnectCancel() host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return host.StatusEAlready
	}
	s.pending.timer.Stop()
	s.pending = nil
	return host.StatusOK
}

func (s *Sim) Terminate(conn host.ConnHandle, reason uint8) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpTerminate); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	delete(s.conns, conn)

	desc := c.desc
	s.completeLocked(OpTerminate, func() {
		c.handler(&host.DisconnectEvent{Reason: int(reason), Conn: desc})
	})
	return host.StatusOK
}

func (s *Sim) ConnRSSI(conn host.ConnHandle) (int8, host.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[conn]; !ok {
		return 0, host.StatusENotConn
	}
	return s.opts.RSSI, host.StatusOK
}

func (s *Sim) ConnFind(conn host.ConnHandle) (host.ConnDesc, host.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[conn]
	if !ok {
		return host.ConnDesc{}, host.StatusENotConn
	}
	return c.desc, host.StatusOK
}

func (s *Sim) MTU(conn host.ConnHandle) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[conn]; !ok {
		return 0
	}
	return s.opts.MTU
}

func (s *Sim) DiscoverAllServices(conn host.ConnHandle, cb host.ServiceDiscoveryFunc) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpDiscoverServices); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	terminal := s.terminalLocked(OpDiscoverServices)
	descs := c.peer.serviceDescs()

	s.completeLocked(OpDiscoverServices, func() {
		for i := range descs {
			if cb(conn, host.StatusOK, &descs[i]) != host.StatusOK {
				return
			}
		}
		cb(conn, terminal, nil)
	})
	return host.StatusOK
}

func (s *Sim) DiscoverAllCharacteristics(conn host.ConnHandle, start, end uint16, cb host.CharacteristicDiscoveryFunc) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpDiscoverCharacteristics); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	terminal := s.terminalLocked(OpDiscoverCharacteristics)
	descs := c.peer.characteristicDescs(start, end)

	s.completeLocked(OpDiscoverCharacteristics, func() {
		for i := range descs {
			if cb(conn, host.StatusOK, &descs[i]) != host.StatusOK {
				return
			}
		}
		cb(conn, terminal, nil)
	})
	return host.StatusOK
}

func (s *Sim) DiscoverAllDescriptors(conn host.ConnHandle, start, end uint16, cb host.DescriptorDiscoveryFunc) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpDiscoverDescriptors); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	terminal := s.terminalLocked(OpDiscoverDescriptors)
	descs := c.peer.descriptorDescs(start, end)

	s.completeLocked(OpDiscoverDescriptors, func() {
		for i := range descs {
			if cb(conn, host.StatusOK, start, &descs[i]) != host.StatusOK {
				return
			}
		}
		cb(conn, terminal, start, nil)
	})
	return host.StatusOK
}

// terminalLocked is the status that ends a discovery stream.
func (s *Sim) terminalLocked(op string) host.Status {
	if rc := s.failureLocked(op); rc != host.StatusOK {
		return rc
	}
	return host.StatusEDone
}

func (s *Sim) Read(conn host.ConnHandle, handle uint16, cb host.AttrFunc) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpRead); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}

	status := s.failureLocked(OpRead)
	var value []byte
	if status == host.StatusOK {
		v, found := c.peer.read(handle)
		if !found {
			status = host.StatusENoEnt
		}
		value = v
	}
	s.completeLocked(OpRead, func() { cb(conn, status, handle, value) })
	return host.StatusOK
}

func (s *Sim) Write(conn host.ConnHandle, handle uint16, data []byte, cb host.AttrFunc) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpWrite); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}

	status := s.failureLocked(OpWrite)
	if status == host.StatusOK && !c.peer.write(handle, data) {
		status = host.StatusENoEnt
	}
	var pushes []host.Event
	if status == host.StatusOK {
		pushes = s.pushesLocked(c, handle, data)
	}
	s.completeLocked(OpWrite, func() {
		cb(conn, status, handle, nil)
		for _, ev := range pushes {
			c.handler(ev)
		}
	})
	return host.StatusOK
}

// pushesLocked builds the notifications a peer sends once a client
// subscribes through the CCCD at handle.
func (s *Sim) pushesLocked(c *connection, handle uint16, data []byte) []host.Event {
	valHandle, updates, indicate := c.peer.subscription(handle, data)
	if len(updates) == 0 {
		return nil
	}
	events := make([]host.Event, 0, len(updates))
	for _, u := range updates {
		c.peer.write(valHandle, u)
		events = append(events, &host.NotifyRxEvent{
			Handle:     c.desc.Handle,
			AttrHandle: valHandle,
			Data:       append([]byte(nil), u...),
			Indication: indicate,
		})
	}
	s.logger.WithFields(logrus.Fields{
		"conn_handle": c.desc.Handle,
		"attr_handle": valHandle,
		"updates":     len(updates),
	}).Debug("Peer pushing scripted updates")
	return events
}

func (s *Sim) WriteNoRsp(conn host.ConnHandle, handle uint16, data []byte) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpWriteNoRsp); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	if !c.peer.write(handle, data) {
		return host.StatusENoEnt
	}
	return host.StatusOK
}

// SecurityInitiate either completes encryption directly or, when SetPairing
// selected an action, asks the client for it and completes on InjectIO.
func (s *Sim) SecurityInitiate(conn host.ConnHandle) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpSecurity); rc != host.StatusOK {
		return rc
	}
	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}

	if rc := s.failureLocked(OpSecurity); rc != host.StatusOK {
		s.completeLocked(OpSecurity, func() { c.handler(&host.EncChangeEvent{Handle: conn, Status: rc}) })
		return host.StatusOK
	}

	if s.pairing == host.PasskeyActionNone {
		// just works cannot authenticate the peer
		if s.auth.MITM {
			s.logger.WithField("conn_handle", conn).Debug("MITM required, just works pairing refused")
			s.completeLocked(OpSecurity, func() { c.handler(&host.EncChangeEvent{Handle: conn, Status: host.StatusEReject}) })
			return host.StatusOK
		}
		c.desc.Encrypted = true
		c.desc.Bonded = s.auth.Bonding
		s.completeLocked(OpSecurity, func() { c.handler(&host.EncChangeEvent{Handle: conn, Status: host.StatusOK}) })
		return host.StatusOK
	}

	c.pairing = s.pairing
	c.numCmp = s.numCmp
	ev := &host.PasskeyActionEvent{Handle: conn, Action: s.pairing, NumCmp: s.numCmp}
	s.completeLocked(OpSecurity, func() { c.handler(ev) })
	return host.StatusOK
}

func (s *Sim) SetSecurityAuth(auth host.SecurityAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
	s.logger.WithFields(logrus.Fields{
		"bonding": auth.Bonding,
		"mitm":    auth.MITM,
		"sc":      auth.SC,
	}).Debug("Security requirements set")
}

// InjectIO records io and finishes the pairing it answers.
func (s *Sim) InjectIO(conn host.ConnHandle, io host.PairingIO) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpInjectIO); rc != host.StatusOK {
		return rc
	}
	s.injected = append(s.injected, io)

	c, ok := s.conns[conn]
	if !ok {
		return host.StatusENotConn
	}
	if c.pairing == host.PasskeyActionNone || io.Action != c.pairing {
		return host.StatusEInval
	}

	status := host.StatusOK
	switch io.Action {
	case host.PasskeyActionNumericCompare:
		if !io.NumCmpAccept {
			status = host.StatusEReject
		}
	case host.PasskeyActionInput:
		if c.peer.Passkey != 0 && io.Passkey != c.peer.Passkey {
			status = host.StatusEReject
		}
	}
	c.pairing = host.PasskeyActionNone
	if status == host.StatusOK {
		c.desc.Encrypted = true
		c.desc.Authenticated = true
		c.desc.Bonded = s.auth.Bonding
		c.desc.KeySize = 16
	}

	s.logger.WithFields(logrus.Fields{
		"conn_handle": conn,
		"action":      io.Action.String(),
		"status":      status.String(),
	}).Debug("Pairing response injected")

	// InjectIO is called inline from the event handler: the result goes
	// through the queue, never re-entering the handler.
	s.queue.Post(func() { c.handler(&host.EncChangeEvent{Handle: conn, Status: status}) })
	return host.StatusOK
}

// CountConfig checks the shape of a service list.
func (s *Sim) CountConfig(defs []host.ServiceDef) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpCountConfig); rc != host.StatusOK {
		return rc
	}
	if len(defs) == 0 || defs[len(defs)-1].Type != host.ServiceTypeEnd {
		return host.StatusEInval
	}
	for _, d := range defs[:len(defs)-1] {
		if d.Characteristics == nil {
			continue
		}
		if n := len(d.Characteristics); n < 2 || d.Characteristics[n-1].UUID != nil {
			return host.StatusEInval
		}
	}
	return host.StatusOK
}

// AddServices records a copy of the service list.
func (s *Sim) AddServices(defs []host.ServiceDef) host.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc := s.issueLocked(OpAddServices); rc != host.StatusOK {
		return rc
	}
	cp := make([]host.ServiceDef, len(defs))
	for i, d := range defs {
		cp[i] = d
		if d.Characteristics != nil {
			cp[i].Characteristics = append([]host.CharacteristicDef(nil), d.Characteristics...)
		}
	}
	s.registered = append(s.registered, cp)
	return host.StatusOK
}
