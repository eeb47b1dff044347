package gatts

import (
	"sync"

	"github.com/go-ble/ble"

	"github.com/srg/blegatt/internal/host"
)

// Characteristic is a locally hosted characteristic.
type Characteristic struct {
	uuid    ble.UUID
	props   ble.Property
	service *Service

	mu          sync.RWMutex
	value       []byte
	descriptors []*Descriptor
}

// NewCharacteristic creates a characteristic not yet attached to a service.
func NewCharacteristic(uuid ble.UUID, props ble.Property) *Characteristic {
	return &Characteristic{uuid: uuid, props: props}
}

func (c *Characteristic) UUID() ble.UUID           { return c.uuid }
func (c *Characteristic) Properties() ble.Property { return c.props }
func (c *Characteristic) Service() *Service        { return c.service }

// Value returns a copy of the current value.
func (c *Characteristic) Value() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.value...)
}

func (c *Characteristic) SetValue(v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = append([]byte(nil), v...)
}

// CreateDescriptor attaches a new descriptor.
func (c *Characteristic) CreateDescriptor(uuid ble.UUID, value []byte) *Descriptor {
	d := &Descriptor{uuid: uuid, value: append([]byte(nil), value...), characteristic: c}
	c.mu.Lock()
	c.descriptors = append(c.descriptors, d)
	c.mu.Unlock()
	return d
}

func (c *Characteristic) Descriptors() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Descriptor(nil), c.descriptors...)
}

func (c *Characteristic) definition() host.CharacteristicDef {
	def := host.CharacteristicDef{UUID: c.uuid, Flags: c.props}
	for _, d := range c.Descriptors() {
		def.Descriptors = append(def.Descriptors, host.DescriptorDef{UUID: d.uuid, Value: d.Value()})
	}
	return def
}

// Descriptor is a locally hosted descriptor.
type Descriptor struct {
	uuid           ble.UUID
	characteristic *Characteristic

	mu    sync.RWMutex
	value []byte
}

func (d *Descriptor) UUID() ble.UUID                  { return d.uuid }
func (d *Descriptor) Characteristic() *Characteristic { return d.characteristic }

func (d *Descriptor) Value() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]byte(nil), d.value...)
}

func (d *Descriptor) SetValue(v []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = append([]byte(nil), v...)
}
