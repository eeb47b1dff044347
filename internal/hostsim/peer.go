package hostsim

import (
	"fmt"
	"sync"

	"github.com/go-ble/ble"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/host"
)

var cccdUUID = ble.UUID16(0x2902)

type attribute struct {
	handle uint16
	uuid   ble.UUID
	value  []byte
}

type peerCharacteristic struct {
	defHandle   uint16
	value       *attribute
	props       ble.Property
	descriptors []*attribute
	cccd        *attribute
	updates     [][]byte
}

type peerService struct {
	start, end uint16
	uuid       ble.UUID
	chars      []*peerCharacteristic
}

// Peer is a simulated peripheral with a fixed attribute table. Handles are
// assigned sequentially from 1 in profile order.
type Peer struct {
	Addr    host.Addr
	Name    string
	Passkey uint32

	mu       sync.Mutex
	services []*peerService
	attrs    map[uint16]*attribute
}

// NewPeer compiles a profile into an attribute table. Characteristics that
// can notify or indicate get a CCCD when the profile does not declare one.
func NewPeer(p PeerProfile) (*Peer, error) {
	addrType := host.AddrTypePublic
	if p.AddrType != "" {
		t, err := host.ParseAddrType(p.AddrType)
		if err != nil {
			return nil, err
		}
		addrType = t
	}
	addr, err := host.ParseAddr(p.Address, addrType)
	if err != nil {
		return nil, err
	}

	peer := &Peer{
		Addr:    addr,
		Name:    p.Name,
		Passkey: p.Passkey,
		attrs:   make(map[uint16]*attribute),
	}

	next := uint16(1)
	alloc := func(uuid ble.UUID, value []byte) *attribute {
		a := &attribute{handle: next, uuid: uuid, value: value}
		peer.attrs[next] = a
		next++
		return a
	}

	for _, sp := range p.Services {
		svcUUID, err := device.ParseUUID(sp.UUID)
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", p.Address, err)
		}
		svc := &peerService{start: alloc(ble.UUID16(0x2800), svcUUID).handle, uuid: svcUUID}

		for _, cp := range sp.Characteristics {
			chrUUID, err := device.ParseUUID(cp.UUID)
			if err != nil {
				return nil, fmt.Errorf("peer %s: %w", p.Address, err)
			}
			props, err := device.ParseProperties(cp.Properties)
			if err != nil {
				return nil, fmt.Errorf("peer %s characteristic %s: %w", p.Address, cp.UUID, err)
			}
			value, err := decodeValue(cp.Value, cp.Hex)
			if err != nil {
				return nil, err
			}

			chr := &peerCharacteristic{props: props}
			chr.defHandle = alloc(ble.UUID16(0x2803), nil).handle
			chr.value = alloc(chrUUID, value)
			for _, u := range cp.Updates {
				b, err := decodeValue("", u)
				if err != nil {
					return nil, fmt.Errorf("peer %s characteristic %s update: %w", p.Address, cp.UUID, err)
				}
				chr.updates = append(chr.updates, b)
			}

			for _, dp := range cp.Descriptors {
				dscUUID, err := device.ParseUUID(dp.UUID)
				if err != nil {
					return nil, fmt.Errorf("peer %s: %w", p.Address, err)
				}
				dv, err := decodeValue(dp.Value, dp.Hex)
				if err != nil {
					return nil, err
				}
				a := alloc(dscUUID, dv)
				if dscUUID.Equal(cccdUUID) {
					chr.cccd = a
				}
				chr.descriptors = append(chr.descriptors, a)
			}
			if chr.cccd == nil && device.CanNotify(props) {
				chr.cccd = alloc(cccdUUID, []byte{0x00, 0x00})
				chr.descriptors = append(chr.descriptors, chr.cccd)
			}
			svc.chars = append(svc.chars, chr)
		}

		svc.end = next - 1
		peer.services = append(peer.services, svc)
	}
	return peer, nil
}

func (p *Peer) serviceDescs() []host.ServiceDesc {
	out := make([]host.ServiceDesc, 0, len(p.services))
	for _, s := range p.services {
		out = append(out, host.ServiceDesc{StartHandle: s.start, EndHandle: s.end, UUID: s.uuid})
	}
	return out
}

func (p *Peer) characteristicDescs(start, end uint16) []host.CharacteristicDesc {
	var out []host.CharacteristicDesc
	for _, s := range p.services {
		for _, c := range s.chars {
			if c.defHandle >= start && c.defHandle <= end {
				out = append(out, host.CharacteristicDesc{
					DefHandle:  c.defHandle,
					ValHandle:  c.value.handle,
					Properties: c.props,
					UUID:       c.value.uuid,
				})
			}
		}
	}
	return out
}

// descriptorDescs returns descriptors in (start, end].
func (p *Peer) descriptorDescs(start, end uint16) []host.DescriptorDesc {
	var out []host.DescriptorDesc
	for _, s := range p.services {
		for _, c := range s.chars {
			for _, d := range c.descriptors {
				if d.handle > start && d.handle <= end {
					out = append(out, host.DescriptorDesc{Handle: d.handle, UUID: d.uuid})
				}
			}
		}
	}
	return out
}

func (p *Peer) characteristicByUUID(uuid string) *peerCharacteristic {
	key := device.NormalizeUUID(uuid)
	for _, s := range p.services {
		for _, c := range s.chars {
			if device.UUIDKey(c.value.uuid) == key {
				return c
			}
		}
	}
	return nil
}

func (p *Peer) read(handle uint16) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attrs[handle]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), a.value...), true
}

func (p *Peer) write(handle uint16, data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attrs[handle]
	if !ok {
		return false
	}
	a.value = append([]byte(nil), data...)
	return true
}

// subscription reports the scripted updates to push after data was written to
// handle. It returns nothing unless handle is a CCCD and data enables
// notifications (bit 0) or indications (bit 1).
func (p *Peer) subscription(handle uint16, data []byte) (valHandle uint16, updates [][]byte, indicate bool) {
	if len(data) == 0 || data[0]&0x03 == 0 {
		return 0, nil, false
	}
	for _, s := range p.services {
		for _, c := range s.chars {
			if c.cccd != nil && c.cccd.handle == handle {
				return c.value.handle, c.updates, data[0]&0x01 == 0
			}
		}
	}
	return 0, nil, false
}

// Value returns the current value of the first characteristic with uuid.
func (p *Peer) Value(uuid string) []byte {
	c := p.characteristicByUUID(uuid)
	if c == nil {
		return nil
	}
	v, _ := p.read(c.value.handle)
	return v
}

// CCCD returns the client configuration written for the characteristic
// with uuid, or nil when it has none.
func (p *Peer) CCCD(uuid string) []byte {
	c := p.characteristicByUUID(uuid)
	if c == nil {
		return nil
	}
	for _, d := range c.descriptors {
		if d.uuid.Equal(cccdUUID) {
			v, _ := p.read(d.handle)
			return v
		}
	}
	return nil
}

// ServiceCount returns the number of services in the attribute table.
func (p *Peer) ServiceCount() int {
	return len(p.services)
}
