package ble

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gatts"
)

// DescriptorDefinition is a local descriptor in a service definition file.
type DescriptorDefinition struct {
	UUID  string `yaml:"uuid"`
	Value string `yaml:"value,omitempty"`
	Hex   string `yaml:"hex,omitempty"`
}

// CharacteristicDefinition is a local characteristic in a service definition file.
type CharacteristicDefinition struct {
	UUID        string                 `yaml:"uuid"`
	Properties  string                 `yaml:"properties"`
	Value       string                 `yaml:"value,omitempty"`
	Hex         string                 `yaml:"hex,omitempty"`
	Descriptors []DescriptorDefinition `yaml:"descriptors,omitempty"`
}

// ServiceDefinition is a local primary service in a service definition file.
type ServiceDefinition struct {
	UUID            string                     `yaml:"uuid"`
	Handles         int                        `yaml:"handles,omitempty"`
	Characteristics []CharacteristicDefinition `yaml:"characteristics,omitempty"`
}

// DefinitionFile is the YAML document describing local services.
type DefinitionFile struct {
	Services []ServiceDefinition `yaml:"services"`
}

// ParseDefinitions decodes a service definition document.
func ParseDefinitions(data []byte) (*DefinitionFile, error) {
	var f DefinitionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse service definitions: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("no services defined")
	}
	return &f, nil
}

// LoadDefinitions reads and decodes a service definition file.
func LoadDefinitions(path string) (*DefinitionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service definitions %s: %w", path, err)
	}
	return ParseDefinitions(data)
}

// CreateServices builds every service of f on d without starting them.
func (d *Device) CreateServices(f *DefinitionFile) ([]*gatts.Service, error) {
	var out []*gatts.Service
	for _, sd := range f.Services {
		uuid, err := device.ParseUUID(sd.UUID)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", sd.UUID, err)
		}
		svc := d.CreateService(uuid, sd.Handles)

		for _, cd := range sd.Characteristics {
			chrUUID, err := device.ParseUUID(cd.UUID)
			if err != nil {
				return nil, fmt.Errorf("service %q characteristic %q: %w", sd.UUID, cd.UUID, err)
			}
			props, err := device.ParseProperties(cd.Properties)
			if err != nil {
				return nil, fmt.Errorf("service %q characteristic %q: %w", sd.UUID, cd.UUID, err)
			}
			value, err := definitionValue(cd.Value, cd.Hex)
			if err != nil {
				return nil, err
			}
			svc.CreateCharacteristic(chrUUID, props).SetValue(value)

			for _, dd := range cd.Descriptors {
				dscUUID, err := device.ParseUUID(dd.UUID)
				if err != nil {
					return nil, fmt.Errorf("characteristic %q descriptor %q: %w", cd.UUID, dd.UUID, err)
				}
				dv, err := definitionValue(dd.Value, dd.Hex)
				if err != nil {
					return nil, err
				}
				if _, err := svc.CreateDescriptor(dscUUID, dv); err != nil {
					return nil, err
				}
			}
		}
		out = append(out, svc)
	}
	return out, nil
}

func definitionValue(text, hexText string) ([]byte, error) {
	if hexText == "" {
		return []byte(text), nil
	}
	b, err := hex.DecodeString(strings.ReplaceAll(hexText, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", hexText, err)
	}
	return b, nil
}
