package hostsim

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptorProfile describes a peer descriptor.
type DescriptorProfile struct {
	UUID  string `yaml:"uuid"`
	Value string `yaml:"value,omitempty"`
	Hex   string `yaml:"hex,omitempty"`
}

// CharacteristicProfile describes a peer characteristic. Properties uses the
// "read,write,notify" form. Value is taken verbatim, Hex is decoded.
// Updates are hex payloads the peer pushes, in order, each time a client
// enables notifications or indications on it.
type CharacteristicProfile struct {
	UUID        string              `yaml:"uuid"`
	Properties  string              `yaml:"properties,omitempty"`
	Value       string              `yaml:"value,omitempty"`
	Hex         string              `yaml:"hex,omitempty"`
	Updates     []string            `yaml:"updates,omitempty"`
	Descriptors []DescriptorProfile `yaml:"descriptors,omitempty"`
}

// ServiceProfile describes a peer primary service.
type ServiceProfile struct {
	UUID            string                  `yaml:"uuid"`
	Characteristics []CharacteristicProfile `yaml:"characteristics,omitempty"`
}

// PeerProfile describes one simulated peripheral.
type PeerProfile struct {
	Name     string           `yaml:"name,omitempty"`
	Address  string           `yaml:"address"`
	AddrType string           `yaml:"addr_type,omitempty"`
	Passkey  uint32           `yaml:"passkey,omitempty"`
	Services []ServiceProfile `yaml:"services"`
}

// ProfileFile is the YAML document holding peer profiles.
type ProfileFile struct {
	Peers []PeerProfile `yaml:"peers"`
}

// ParseProfiles decodes a YAML profile document.
func ParseProfiles(data []byte) ([]PeerProfile, error) {
	var f ProfileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse peer profiles: %w", err)
	}
	if len(f.Peers) == 0 {
		return nil, fmt.Errorf("no peers defined")
	}
	return f.Peers, nil
}

// LoadProfiles reads and decodes a YAML profile file.
func LoadProfiles(path string) ([]PeerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read peer profiles %s: %w", path, err)
	}
	return ParseProfiles(data)
}

// Marshal encodes profiles back to YAML.
func (f ProfileFile) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func decodeValue(text, hexText string) ([]byte, error) {
	if hexText == "" {
		return []byte(text), nil
	}
	b, err := hex.DecodeString(strings.ReplaceAll(hexText, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", hexText, err)
	}
	return b, nil
}
