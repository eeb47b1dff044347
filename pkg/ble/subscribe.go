package ble

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	goble "github.com/go-ble/ble"

	"github.com/srg/blegatt/internal/gattc"
)

// Notification is one value pushed by the peer.
type Notification struct {
	Seq        uint64 `json:"seq" yaml:"seq"`
	Service    string `json:"service" yaml:"service"`
	UUID       string `json:"uuid" yaml:"uuid"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Indication bool   `json:"indication,omitempty" yaml:"indication,omitempty"`
	ValueHex   string `json:"value_hex" yaml:"value_hex"`
	ValueASCII string `json:"value_ascii" yaml:"value_ascii"`
}

// NotificationHandler receives notifications on the host-event context and
// must not block.
type NotificationHandler func(n Notification)

// Subscription is an active notify or indicate registration.
type Subscription struct {
	chr      *gattc.RemoteCharacteristic
	indicate bool
	received atomic.Uint64
}

// Subscribe enables notifications (or indications when indicate is set) on
// the characteristic and forwards every value to fn.
func Subscribe(ctx context.Context, client *gattc.Client, serviceUUID, charUUID string, indicate bool, fn NotificationHandler) (*Subscription, error) {
	chr, err := client.GetCharacteristic(serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	if indicate && !chr.CanIndicate() {
		return nil, fmt.Errorf("characteristic %s does not support indications", chr.UUID())
	}
	if !indicate && !chr.CanNotify() {
		return nil, fmt.Errorf("characteristic %s does not support notifications", chr.UUID())
	}

	sub := &Subscription{chr: chr, indicate: indicate}
	svc := chr.Service().UUID().String()
	name := goble.Name(chr.UUID())

	cb := func(c *gattc.RemoteCharacteristic, data []byte, isNotify bool) {
		seq := sub.received.Add(1)
		if fn == nil {
			return
		}
		fn(Notification{
			Seq:        seq,
			Service:    svc,
			UUID:       c.UUID().String(),
			Name:       name,
			Indication: !isNotify,
			ValueHex:   strings.ToUpper(hex.EncodeToString(data)),
			ValueASCII: asciiPreview(data),
		})
	}
	if err := chr.RegisterForNotify(ctx, cb, !indicate); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", chr.UUID(), err)
	}
	return sub, nil
}

// Received returns the number of values delivered so far.
func (s *Subscription) Received() uint64 {
	return s.received.Load()
}

// Cancel clears the CCCD and drops the callback.
func (s *Subscription) Cancel(ctx context.Context) error {
	return s.chr.RegisterForNotify(ctx, nil, !s.indicate)
}
