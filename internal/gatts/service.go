// Package gatts builds locally hosted GATT services and registers them with
// the host stack.
package gatts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/host"
)

// Registrar is the registration surface of the host stack. host.Stack
// satisfies it.
type Registrar interface {
	CountConfig(defs []host.ServiceDef) host.Status
	AddServices(defs []host.ServiceDef) host.Status
}

// Service is a local primary service and its characteristics.
type Service struct {
	uuid       ble.UUID
	numHandles int
	logger     *logrus.Logger

	mu              sync.Mutex
	characteristics []*Characteristic
	lastCreated     *Characteristic
	started         bool

	// transient is the characteristic definition array handed to the host
	// during Start. It is never retained past Start.
	transient []host.CharacteristicDef
}

// NewService creates an empty service. numHandles is the declared attribute
// handle budget.
func NewService(uuid ble.UUID, numHandles int, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{uuid: uuid, numHandles: numHandles, logger: logger}
}

func (s *Service) UUID() ble.UUID  { return s.uuid }
func (s *Service) NumHandles() int { return s.numHandles }

// Started reports whether the service was registered with the host.
func (s *Service) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// CreateCharacteristic creates a characteristic, adds it to the service and
// makes it the target of CreateDescriptor.
func (s *Service) CreateCharacteristic(uuid ble.UUID, props ble.Property) *Characteristic {
	chr := NewCharacteristic(uuid, props)
	s.AddCharacteristic(chr)
	return chr
}

// AddCharacteristic appends chr. A duplicate UUID is logged and kept; lookups
// return the first one.
func (s *Service) AddCharacteristic(chr *Characteristic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := device.UUIDKey(chr.uuid)
	for _, existing := range s.characteristics {
		if device.UUIDKey(existing.uuid) == key {
			s.logger.WithFields(logrus.Fields{
				"service_uuid": s.uuid.String(),
				"char_uuid":    chr.uuid.String(),
			}).Warn("Characteristic already exists in service, adding anyway")
			break
		}
	}

	chr.service = s
	s.characteristics = append(s.characteristics, chr)
	s.lastCreated = chr
}

// GetCharacteristic returns the first characteristic with the given UUID, or nil.
func (s *Service) GetCharacteristic(uuid string) *Characteristic {
	key := device.NormalizeUUID(uuid)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chr := range s.characteristics {
		if device.UUIDKey(chr.uuid) == key {
			return chr
		}
	}
	return nil
}

// Characteristics returns the characteristics in insertion order.
func (s *Service) Characteristics() []*Characteristic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Characteristic(nil), s.characteristics...)
}

// LastCreatedCharacteristic returns the descriptor attachment target.
func (s *Service) LastCreatedCharacteristic() *Characteristic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCreated
}

// CreateDescriptor attaches a descriptor to the most recently added characteristic.
func (s *Service) CreateDescriptor(uuid ble.UUID, value []byte) (*Descriptor, error) {
	chr := s.LastCreatedCharacteristic()
	if chr == nil {
		return nil, device.ErrNoCharacteristic
	}
	return chr.CreateDescriptor(uuid, value), nil
}

// requiredHandles counts the service declaration, two handles per
// characteristic and one per descriptor.
func (s *Service) requiredHandles() int {
	n := 1
	for _, chr := range s.characteristics {
		n += 2 + len(chr.Descriptors())
	}
	return n
}

// buildDefinitions returns nil for an empty service, else len+1 entries with
// a nil-UUID sentinel last.
func (s *Service) buildDefinitions() []host.CharacteristicDef {
	if len(s.characteristics) == 0 {
		return nil
	}
	defs := make([]host.CharacteristicDef, len(s.characteristics)+1)
	for i, chr := range s.characteristics {
		defs[i] = chr.definition()
	}
	return defs
}

// Start registers the service with the host in two phases: capacity
// negotiation then registration. Nothing is registered when the first phase
// fails. Starting a started service does nothing.
func (s *Service) Start(reg Registrar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithField("service_uuid", s.uuid.String())
	if s.started {
		log.Debug("Service already started")
		return nil
	}
	log.Debug(">> start")

	if need := s.requiredHandles(); s.numHandles > 0 && need > s.numHandles {
		log.WithFields(logrus.Fields{
			"required": need,
			"declared": s.numHandles,
		}).Warn("Service needs more handles than declared")
	}

	s.transient = s.buildDefinitions()
	defer func() { s.transient = nil }()

	svcs := []host.ServiceDef{
		{Type: host.ServiceTypePrimary, UUID: s.uuid, Characteristics: s.transient},
		{Type: host.ServiceTypeEnd},
	}

	if rc := reg.CountConfig(svcs); rc != host.StatusOK {
		log.WithField("status", rc.String()).Error("Count config failed")
		return device.NewStatusError("count config", rc)
	}
	if rc := reg.AddServices(svcs); rc != host.StatusOK {
		log.WithField("status", rc.String()).Error("Add services failed")
		return device.NewStatusError("add services", rc)
	}

	s.started = true
	log.WithField("characteristics", len(s.characteristics)).Info("Service started")
	return nil
}

// String dumps the service with its characteristics and descriptors.
func (s *Service) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Service: uuid: %s, handles: %d\n", s.uuid, s.numHandles)
	for _, chr := range s.Characteristics() {
		fmt.Fprintf(&sb, "  Characteristic: uuid: %s, props: [%s]\n", chr.uuid, device.FormatProperties(chr.props))
		for _, d := range chr.Descriptors() {
			fmt.Fprintf(&sb, "    Descriptor: uuid: %s, value: %x\n", d.uuid, d.Value())
		}
	}
	return sb.String()
}

// Dump logs String at debug level.
func (s *Service) Dump() {
	s.logger.Debug(s.String())
}
