package gattc

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/host"
)

// handleGapEvent is the per-client event handler passed to Stack.Connect.
// It runs on the host-event context: it gives gates but never waits on one.
func (c *Client) handleGapEvent(ev host.Event) host.Status {
	if e, ok := ev.(*host.ConnectEvent); ok {
		return c.onConnectEvent(e)
	}

	if ev.ConnHandle() != c.GetConnID() {
		return host.StatusOK
	}

	switch e := ev.(type) {
	case *host.DisconnectEvent:
		c.onDisconnectEvent(e)
	case *host.NotifyRxEvent:
		c.onNotifyRx(e)
	case *host.EncChangeEvent:
		c.onEncChange(e)
	case *host.PasskeyActionEvent:
		c.onPasskeyAction(e)
	case *host.SecurityRequestEvent:
		c.onSecurityRequest(e)
	case *host.ConnUpdateRequestEvent:
		c.logger.WithField("conn_handle", e.Handle).Debug("Peer requesting to update connection parameters")
	default:
		c.logger.WithField("event", ev.Kind().String()).Debug("Unhandled event")
	}
	return host.StatusOK
}

func (c *Client) onConnectEvent(e *host.ConnectEvent) host.Status {
	c.connMutex.Lock()
	if !c.waitingToConnect {
		c.connMutex.Unlock()
		return host.StatusOK
	}
	c.waitingToConnect = false
	if e.Status == host.StatusOK {
		c.connHandle = e.Handle
		c.connected = true
	}
	peer := c.peerAddr
	cb := c.callbacks
	c.connMutex.Unlock()

	log := c.logger.WithFields(logrus.Fields{
		"address":     peer.String(),
		"conn_handle": e.Handle,
		"status":      e.Status.String(),
	})

	if e.Status != host.StatusOK {
		log.Error("Connection failed")
		c.openGate.Give(int(e.Status))
		return host.StatusOK
	}

	log.Info("Connection established")
	c.dev.AddIgnored(peer)
	if cb != nil {
		cb.OnConnect(c)
	}
	c.openGate.Give(int(host.StatusOK))
	return host.StatusOK
}

func (c *Client) onDisconnectEvent(e *host.DisconnectEvent) {
	c.connMutex.Lock()
	if !c.connected || c.connHandle != e.Conn.Handle {
		c.connMutex.Unlock()
		return
	}
	c.connected = false
	c.waitingToConnect = false
	c.terminating = false
	c.connHandle = host.ConnHandleNone
	peer := c.peerAddr
	cb := c.callbacks
	c.connMutex.Unlock()

	c.logger.WithFields(logrus.Fields{
		"address":     peer.String(),
		"conn_handle": e.Conn.Handle,
		"reason":      e.Reason,
	}).Info("Disconnected")

	c.releaseGates(host.StatusENotConn)
	if cb != nil {
		cb.OnDisconnect(c)
	}
	c.dev.RemoveIgnored(peer)
}

func (c *Client) onNotifyRx(e *host.NotifyRxEvent) {
	log := c.logger.WithFields(logrus.Fields{
		"conn_handle": e.Handle,
		"attr_handle": e.AttrHandle,
		"indication":  e.Indication,
	})
	log.Debug("Notify received")

	for _, svc := range c.Services() {
		if e.AttrHandle < svc.startHandle || e.AttrHandle > svc.endHandle {
			continue
		}
		chr := svc.characteristicByHandle(e.AttrHandle)
		if chr == nil {
			continue
		}
		chr.setValue(e.Data)
		if cb := chr.notifyCallback(); cb != nil {
			log.WithField("char_uuid", chr.uuid.String()).Debug("Invoking notify callback")
			cb(chr, e.Data, !e.Indication)
		}
		return
	}
}

// onSecurityRequest starts pairing when the callbacks accept a peer request.
// The result arrives as an encryption change like any other pairing.
func (c *Client) onSecurityRequest(e *host.SecurityRequestEvent) {
	log := c.logger.WithField("conn_handle", e.Handle)
	if !c.pairingCallbacks().OnSecurityRequest() {
		log.Debug("Peer security request rejected")
		return
	}
	if rc := c.stack.SecurityInitiate(e.Handle); rc != host.StatusOK {
		log.WithField("status", rc.String()).Error("Failed to initiate security")
		return
	}
	log.Debug("Peer security request accepted")
}

func (c *Client) onEncChange(e *host.EncChangeEvent) {
	if cb := c.clientCallbacks(); cb != nil {
		desc, rc := c.stack.ConnFind(e.Handle)
		if rc == host.StatusOK {
			cb.OnAuthenticationComplete(desc)
		} else {
			c.logger.WithField("status", rc.String()).Error("Connection lookup failed")
		}
	}
	c.securityGate.Give(int(e.Status))
}

func (c *Client) onPasskeyAction(e *host.PasskeyActionEvent) {
	log := c.logger.WithFields(logrus.Fields{
		"conn_handle": e.Handle,
		"action":      e.Action.String(),
	})

	io := host.PairingIO{Action: e.Action}
	switch e.Action {
	case host.PasskeyActionDisplay:
		io.Passkey = c.dev.Passkey()
		c.pairingCallbacks().OnPassKeyNotify(io.Passkey)
	case host.PasskeyActionNumericCompare:
		log.WithField("numcmp", e.NumCmp).Debug("Passkey on device's display")
		io.NumCmpAccept = c.pairingCallbacks().OnConfirmPIN(e.NumCmp)
	case host.PasskeyActionOOB:
		// zero key: no out-of-band exchange is implemented
	case host.PasskeyActionInput:
		io.Passkey = c.pairingCallbacks().OnPassKeyRequest()
	case host.PasskeyActionNone:
		return
	default:
		log.Warn("Unknown passkey action")
		return
	}

	if rc := c.stack.InjectIO(e.Handle, io); rc != host.StatusOK {
		log.WithField("status", rc.String()).Error("Inject IO failed")
		return
	}
	log.Debug("Inject IO done")
}
