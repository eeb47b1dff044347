package gattc

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blegatt/internal/host"
)

// ClientCallbacks receives connection and pairing notifications for one Client.
// Every method is invoked on the host-event context and must not block on a
// client operation.
type ClientCallbacks interface {
	OnConnect(c *Client)
	OnDisconnect(c *Client)
	// OnPassKeyRequest returns the passkey to enter when the peer displays one.
	OnPassKeyRequest() uint32
	// OnPassKeyNotify reports the passkey this side displays to the user.
	OnPassKeyNotify(passkey uint32)
	// OnSecurityRequest returns whether to secure the link when the peer asks.
	OnSecurityRequest() bool
	OnAuthenticationComplete(desc host.ConnDesc)
	// OnConfirmPIN returns whether the numeric comparison value matches.
	OnConfirmPIN(pin uint32) bool
}

// DefaultClientCallbacks is a ClientCallbacks with safe defaults: passkey
// requests answer 0 while numeric comparisons and peer security requests are
// rejected. Embed it to override only the callbacks you need.
type DefaultClientCallbacks struct {
	Logger *logrus.Logger
}

var _ ClientCallbacks = (*DefaultClientCallbacks)(nil)

func (d *DefaultClientCallbacks) logger() *logrus.Logger {
	if d == nil || d.Logger == nil {
		return logrus.StandardLogger()
	}
	return d.Logger
}

func (d *DefaultClientCallbacks) OnConnect(*Client) {}

func (d *DefaultClientCallbacks) OnDisconnect(*Client) {}

func (d *DefaultClientCallbacks) OnPassKeyRequest() uint32 {
	d.logger().Warn("OnPassKeyRequest: default handler, answering 0")
	return 0
}

func (d *DefaultClientCallbacks) OnPassKeyNotify(passkey uint32) {
	d.logger().WithField("passkey", passkey).Debug("OnPassKeyNotify: default handler")
}

func (d *DefaultClientCallbacks) OnSecurityRequest() bool {
	d.logger().Warn("OnSecurityRequest: default handler, rejecting")
	return false
}

func (d *DefaultClientCallbacks) OnAuthenticationComplete(desc host.ConnDesc) {
	d.logger().WithFields(logrus.Fields{
		"conn_handle": desc.Handle,
		"encrypted":   desc.Encrypted,
	}).Debug("OnAuthenticationComplete: default handler")
}

func (d *DefaultClientCallbacks) OnConfirmPIN(pin uint32) bool {
	d.logger().WithField("pin", pin).Warn("OnConfirmPIN: default handler, rejecting")
	return false
}
