package gattc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gate"
	"github.com/srg/blegatt/internal/host"
)

// RemoteService is a service discovered on the peer. It is owned by its
// Client and released with it.
type RemoteService struct {
	uuid        ble.UUID
	startHandle uint16
	endHandle   uint16
	client      *Client
	gate        *gate.Gate

	mu              sync.RWMutex
	characteristics *orderedmap.OrderedMap[uint16, *RemoteCharacteristic]
}

func newRemoteService(c *Client, desc *host.ServiceDesc) *RemoteService {
	return &RemoteService{
		uuid:            desc.UUID,
		startHandle:     desc.StartHandle,
		endHandle:       desc.EndHandle,
		client:          c,
		gate:            gate.New("service-"+desc.UUID.String(), c.logger),
		characteristics: orderedmap.New[uint16, *RemoteCharacteristic](),
	}
}

func (s *RemoteService) UUID() ble.UUID      { return s.uuid }
func (s *RemoteService) StartHandle() uint16 { return s.startHandle }
func (s *RemoteService) EndHandle() uint16   { return s.endHandle }
func (s *RemoteService) Client() *Client     { return s.client }

// Characteristics returns the characteristics in discovery order.
func (s *RemoteService) Characteristics() []*RemoteCharacteristic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*RemoteCharacteristic, 0, s.characteristics.Len())
	for p := s.characteristics.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// GetCharacteristic returns the first characteristic with the given UUID, or nil.
func (s *RemoteService) GetCharacteristic(uuid string) *RemoteCharacteristic {
	key := device.NormalizeUUID(uuid)
	if key == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := s.characteristics.Oldest(); p != nil; p = p.Next() {
		if device.UUIDKey(p.Value.uuid) == key {
			return p.Value
		}
	}
	return nil
}

func (s *RemoteService) characteristicByHandle(valHandle uint16) *RemoteCharacteristic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chr, _ := s.characteristics.Get(valHandle)
	return chr
}

func (s *RemoteService) insertCharacteristic(chr *RemoteCharacteristic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characteristics.Set(chr.valHandle, chr)
}

// release forces every wait on this subtree to return rc.
func (s *RemoteService) release(rc host.Status) {
	s.gate.Give(int(rc))
	for _, chr := range s.Characteristics() {
		chr.gate.Give(int(rc))
	}
}

func (s *RemoteService) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Service: uuid: %s", s.uuid)
	if name := ble.Name(s.uuid); name != "" {
		fmt.Fprintf(&sb, " (%s)", name)
	}
	fmt.Fprintf(&sb, ", start_handle: %d 0x%04x, end_handle: %d 0x%04x\n",
		s.startHandle, s.startHandle, s.endHandle, s.endHandle)
	for _, chr := range s.Characteristics() {
		sb.WriteString(chr.String())
	}
	return sb.String()
}
