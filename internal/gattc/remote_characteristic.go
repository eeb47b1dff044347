package gattc

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gate"
	"github.com/srg/blegatt/internal/host"
)

// CCCDUUID is the Client Characteristic Configuration descriptor.
var CCCDUUID = ble.UUID16(0x2902)

// NotifyCallback receives a notification (isNotify) or indication payload.
// The data slice is only valid for the duration of the call.
type NotifyCallback func(chr *RemoteCharacteristic, data []byte, isNotify bool)

// RemoteCharacteristic is a characteristic discovered on the peer.
type RemoteCharacteristic struct {
	uuid      ble.UUID
	defHandle uint16
	valHandle uint16
	props     ble.Property
	service   *RemoteService
	gate      *gate.Gate

	mu          sync.RWMutex
	descriptors []*RemoteDescriptor
	value       []byte
	onNotify    NotifyCallback
}

func newRemoteCharacteristic(s *RemoteService, desc *host.CharacteristicDesc) *RemoteCharacteristic {
	return &RemoteCharacteristic{
		uuid:      desc.UUID,
		defHandle: desc.DefHandle,
		valHandle: desc.ValHandle,
		props:     desc.Properties,
		service:   s,
		gate:      gate.New("characteristic-"+desc.UUID.String(), s.client.logger),
	}
}

func (c *RemoteCharacteristic) UUID() ble.UUID           { return c.uuid }
func (c *RemoteCharacteristic) DefHandle() uint16        { return c.defHandle }
func (c *RemoteCharacteristic) Handle() uint16           { return c.valHandle }
func (c *RemoteCharacteristic) Properties() ble.Property { return c.props }
func (c *RemoteCharacteristic) Service() *RemoteService  { return c.service }
func (c *RemoteCharacteristic) CanRead() bool            { return c.props&ble.CharRead != 0 }
func (c *RemoteCharacteristic) CanWrite() bool           { return c.props&ble.CharWrite != 0 }
func (c *RemoteCharacteristic) CanWriteNoResponse() bool { return c.props&ble.CharWriteNR != 0 }
func (c *RemoteCharacteristic) CanNotify() bool          { return c.props&ble.CharNotify != 0 }
func (c *RemoteCharacteristic) CanIndicate() bool        { return c.props&ble.CharIndicate != 0 }
func (c *RemoteCharacteristic) CanBroadcast() bool       { return c.props&ble.CharBroadcast != 0 }
func (c *RemoteCharacteristic) client() *Client          { return c.service.client }

func (c *RemoteCharacteristic) logFields() logrus.Fields {
	return logrus.Fields{
		"service_uuid": c.service.uuid.String(),
		"char_uuid":    c.uuid.String(),
		"val_handle":   c.valHandle,
	}
}

// Descriptors returns the descriptors in discovery order.
func (c *RemoteCharacteristic) Descriptors() []*RemoteDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*RemoteDescriptor(nil), c.descriptors...)
}

// GetDescriptor returns the first descriptor with the given UUID, or nil.
func (c *RemoteCharacteristic) GetDescriptor(uuid string) *RemoteDescriptor {
	key := device.NormalizeUUID(uuid)
	if key == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.descriptors {
		if device.UUIDKey(d.uuid) == key {
			return d
		}
	}
	return nil
}

func (c *RemoteCharacteristic) insertDescriptor(d *RemoteDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors = append(c.descriptors, d)
}

// Value returns a copy of the last read or notified value.
func (c *RemoteCharacteristic) Value() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.value...)
}

func (c *RemoteCharacteristic) setValue(v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = append(c.value[:0], v...)
}

func (c *RemoteCharacteristic) notifyCallback() NotifyCallback {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onNotify
}

// ReadValue reads the value from the peer.
func (c *RemoteCharacteristic) ReadValue(ctx context.Context) ([]byte, error) {
	data, err := readAttr(ctx, c.client(), c.gate, c.valHandle, "read characteristic")
	if err != nil {
		c.client().logger.WithFields(c.logFields()).WithError(err).Error("Read failed")
		return nil, err
	}
	c.setValue(data)
	return data, nil
}

// WriteValue writes data to the peer, waiting for the write response when
// withResponse is set.
func (c *RemoteCharacteristic) WriteValue(ctx context.Context, data []byte, withResponse bool) error {
	err := writeAttr(ctx, c.client(), c.gate, c.valHandle, data, withResponse, "write characteristic")
	if err != nil {
		c.client().logger.WithFields(c.logFields()).WithError(err).Error("Write failed")
	}
	return err
}

// RegisterForNotify installs cb and writes the CCCD: notifications when
// notifications is true, indications otherwise. A nil cb unsubscribes.
func (c *RemoteCharacteristic) RegisterForNotify(ctx context.Context, cb NotifyCallback, notifications bool) error {
	dsc := c.GetDescriptor(CCCDUUID.String())
	if dsc == nil {
		return &device.NotFoundError{
			Resource: "descriptor",
			UUIDs:    []string{c.service.uuid.String(), c.uuid.String(), CCCDUUID.String()},
		}
	}

	val := []byte{0x00, 0x00}
	if cb != nil {
		if notifications {
			val[0] = 0x01
		} else {
			val[0] = 0x02
		}
	}

	c.mu.Lock()
	c.onNotify = cb
	c.mu.Unlock()

	c.client().logger.WithFields(c.logFields()).WithField("cccd", hex.EncodeToString(val)).Debug("Register for notify")
	return dsc.WriteValue(ctx, val)
}

func (c *RemoteCharacteristic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  Characteristic: uuid: %s", c.uuid)
	if name := ble.Name(c.uuid); name != "" {
		fmt.Fprintf(&sb, " (%s)", name)
	}
	fmt.Fprintf(&sb, ", handle: %d 0x%04x, props: [%s]\n", c.valHandle, c.valHandle, device.FormatProperties(c.props))
	for _, d := range c.Descriptors() {
		sb.WriteString(d.String())
	}
	return sb.String()
}

// readAttr reads handle through g. The host completion resolves only the
// cycle it was issued for.
func readAttr(ctx context.Context, cl *Client, g *gate.Gate, handle uint16, op string) ([]byte, error) {
	conn, ok := cl.connID()
	if !ok {
		return nil, device.ErrNotConnected
	}

	var data []byte
	w := g.Take(op)
	rc := cl.stack.Read(conn, handle, func(_ host.ConnHandle, status host.Status, _ uint16, value []byte) host.Status {
		if status == host.StatusOK {
			data = append([]byte(nil), value...)
		}
		w.Give(int(status))
		return host.StatusOK
	})
	if rc != host.StatusOK {
		w.Give(int(rc))
		return nil, device.NewStatusError(op, rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res != 0 {
		return nil, device.NewStatusError(op, host.Status(res))
	}
	return data, nil
}

func writeAttr(ctx context.Context, cl *Client, g *gate.Gate, handle uint16, data []byte, withResponse bool, op string) error {
	conn, ok := cl.connID()
	if !ok {
		return device.ErrNotConnected
	}

	if !withResponse {
		return device.NewStatusError(op, cl.stack.WriteNoRsp(conn, handle, data))
	}

	w := g.Take(op)
	rc := cl.stack.Write(conn, handle, data, func(_ host.ConnHandle, status host.Status, _ uint16, _ []byte) host.Status {
		w.Give(int(status))
		return host.StatusOK
	})
	if rc != host.StatusOK {
		w.Give(int(rc))
		return device.NewStatusError(op, rc)
	}

	res, err := w.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return device.NewStatusError(op, host.Status(res))
}
