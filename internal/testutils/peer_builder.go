package testutils

import (
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/hostsim"
)

// DefaultPeerAddress is the address peers get unless WithAddress is used.
const DefaultPeerAddress = "AA:BB:CC:DD:EE:FF"

// PeerBuilder builds simulated peers with a fluent API.
type PeerBuilder struct {
	profile hostsim.PeerProfile
}

// NewPeerBuilder creates a builder for a peer without services.
func NewPeerBuilder() *PeerBuilder {
	return &PeerBuilder{profile: hostsim.PeerProfile{Address: DefaultPeerAddress}}
}

func (b *PeerBuilder) WithAddress(addr string) *PeerBuilder {
	b.profile.Address = addr
	return b
}

func (b *PeerBuilder) WithName(name string) *PeerBuilder {
	b.profile.Name = name
	return b
}

// WithPasskey sets the passkey the peer expects on passkey entry.
func (b *PeerBuilder) WithPasskey(passkey uint32) *PeerBuilder {
	b.profile.Passkey = passkey
	return b
}

// WithService adds a service.
func (b *PeerBuilder) WithService(uuid string) *PeerBuilder {
	b.profile.Services = append(b.profile.Services, hostsim.ServiceProfile{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service.
func (b *PeerBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeerBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	svc := &b.profile.Services[len(b.profile.Services)-1]
	svc.Characteristics = append(svc.Characteristics, hostsim.CharacteristicProfile{
		UUID:       uuid,
		Properties: properties,
		Hex:        hex.EncodeToString(value),
	})
	return b
}

// WithDescriptor adds a descriptor to the last added characteristic.
func (b *PeerBuilder) WithDescriptor(uuid string, value []byte) *PeerBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithDescriptor: no service added yet")
	}
	svc := &b.profile.Services[len(b.profile.Services)-1]
	if len(svc.Characteristics) == 0 {
		panic("WithDescriptor: no characteristic added yet, call WithCharacteristic first")
	}
	chr := &svc.Characteristics[len(svc.Characteristics)-1]
	chr.Descriptors = append(chr.Descriptors, hostsim.DescriptorProfile{UUID: uuid, Hex: hex.EncodeToString(value)})
	return b
}

// FromYAML replaces the profile with a single peer YAML document.
func (b *PeerBuilder) FromYAML(yamlFmt string, args ...interface{}) *PeerBuilder {
	var p hostsim.PeerProfile
	if err := yaml.Unmarshal([]byte(fmt.Sprintf(yamlFmt, args...)), &p); err != nil {
		panic(fmt.Sprintf("PeerBuilder.FromYAML: failed to unmarshal: %v", err))
	}
	if p.Address == "" {
		p.Address = DefaultPeerAddress
	}
	b.profile = p
	return b
}

// Profile returns the accumulated profile.
func (b *PeerBuilder) Profile() hostsim.PeerProfile {
	return b.profile
}

// Addr returns the peer address.
func (b *PeerBuilder) Addr() host.Addr {
	return host.MustParseAddr(b.profile.Address, host.AddrTypePublic)
}

// Build compiles the profile into a simulated peer.
func (b *PeerBuilder) Build() *hostsim.Peer {
	p, err := hostsim.NewPeer(b.profile)
	if err != nil {
		panic(fmt.Sprintf("PeerBuilder.Build: %v", err))
	}
	return p
}

// WithUpdates scripts values the peer pushes to the last characteristic once
// a client subscribes.
func (b *PeerBuilder) WithUpdates(values ...[]byte) *PeerBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithUpdates: no service added yet")
	}
	svc := &b.profile.Services[len(b.profile.Services)-1]
	if len(svc.Characteristics) == 0 {
		panic("WithUpdates: no characteristic added yet, call WithCharacteristic first")
	}
	chr := &svc.Characteristics[len(svc.Characteristics)-1]
	for _, v := range values {
		chr.Updates = append(chr.Updates, hex.EncodeToString(v))
	}
	return b
}
