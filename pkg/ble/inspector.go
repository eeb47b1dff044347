package ble

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	goble "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gattc"
	"github.com/srg/blegatt/internal/host"
)

// InspectOptions defines options for inspecting a peer's GATT profile
type InspectOptions struct {
	Refresh   bool // drop the known hierarchy before connecting
	Secure    bool // pair or encrypt after connecting
	ReadLimit int  // 0 disables characteristic reads
}

// InspectResult is a structured representation of a peer's GATT discovery results
type InspectResult struct {
	Address  string        `json:"address" yaml:"address"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	RSSI     int           `json:"rssi" yaml:"rssi"`
	MTU      uint16        `json:"mtu" yaml:"mtu"`
	Secured  bool          `json:"secured,omitempty" yaml:"secured,omitempty"`
	Services []ServiceInfo `json:"services" yaml:"services"`
}

type ServiceInfo struct {
	UUID            string               `json:"uuid" yaml:"uuid"`
	Name            string               `json:"name,omitempty" yaml:"name,omitempty"`
	StartHandle     uint16               `json:"start_handle" yaml:"start_handle"`
	EndHandle       uint16               `json:"end_handle" yaml:"end_handle"`
	Characteristics []CharacteristicInfo `json:"characteristics" yaml:"characteristics"`
}

type CharacteristicInfo struct {
	UUID        string           `json:"uuid" yaml:"uuid"`
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Handle      uint16           `json:"handle" yaml:"handle"`
	Properties  string           `json:"properties" yaml:"properties"`
	ValueHex    string           `json:"value_hex,omitempty" yaml:"value_hex,omitempty"`
	ValueASCII  string           `json:"value_ascii,omitempty" yaml:"value_ascii,omitempty"`
	Descriptors []DescriptorInfo `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
}

type DescriptorInfo struct {
	UUID   string `json:"uuid" yaml:"uuid"`
	Handle uint16 `json:"handle" yaml:"handle"`
}

var deviceNameUUID = goble.UUID16(0x2a00)

// Inspect connects a client of d to addr, discovers its profile and
// optionally reads characteristic previews. The client stays connected and is
// returned for further use; the caller deletes it.
func Inspect(ctx context.Context, d *Device, addr host.Addr, opts *InspectOptions, logger *logrus.Logger) (*InspectResult, *gattc.Client, error) {
	if opts == nil {
		opts = &InspectOptions{ReadLimit: 64}
	}
	if logger == nil {
		logger = logrus.New()
	}

	client, err := d.CreateClient()
	if err != nil {
		return nil, nil, err
	}
	client.SetClientCallbacks(&gattc.DefaultClientCallbacks{Logger: logger}, false)

	logger.WithField("address", addr.String()).Info("Connecting to peer...")
	if err := client.Connect(ctx, addr, opts.Refresh); err != nil {
		_ = d.DeleteClient(client)
		return nil, nil, fmt.Errorf("failed to connect to device %s: %w", addr, err)
	}

	res := &InspectResult{
		Address: addr.String(),
		RSSI:    client.GetRSSI(),
		MTU:     client.GetMTU(),
	}

	if opts.Secure {
		if err := client.SecureConnection(ctx); err != nil {
			_ = d.DeleteClient(client)
			return nil, nil, fmt.Errorf("failed to secure connection: %w", err)
		}
		res.Secured = true
	}

	for _, svc := range client.Services() {
		si := ServiceInfo{
			UUID:        svc.UUID().String(),
			Name:        goble.Name(svc.UUID()),
			StartHandle: svc.StartHandle(),
			EndHandle:   svc.EndHandle(),
		}

		for _, ch := range svc.Characteristics() {
			ci := CharacteristicInfo{
				UUID:       ch.UUID().String(),
				Name:       goble.Name(ch.UUID()),
				Handle:     ch.Handle(),
				Properties: device.FormatProperties(ch.Properties()),
			}

			// Optional reads for preview (inspect-only)
			if opts.ReadLimit > 0 && ch.CanRead() {
				data, err := ch.ReadValue(ctx)
				if err != nil {
					logger.WithError(err).WithField("char_uuid", ci.UUID).Warn("Preview read failed")
				} else if len(data) > 0 {
					trim := data
					if len(trim) > opts.ReadLimit {
						trim = trim[:opts.ReadLimit]
					}
					ci.ValueHex = strings.ToUpper(hex.EncodeToString(trim))
					ci.ValueASCII = asciiPreview(trim)
					// Capture Device Name (GAP, 0x2A00) if present
					if ch.UUID().Equal(deviceNameUUID) {
						res.Name = ci.ValueASCII
					}
				}
			}

			for _, dsc := range ch.Descriptors() {
				ci.Descriptors = append(ci.Descriptors, DescriptorInfo{UUID: dsc.UUID().String(), Handle: dsc.Handle()})
			}
			si.Characteristics = append(si.Characteristics, ci)
		}
		res.Services = append(res.Services, si)
	}

	return res, client, nil
}

// asciiPreview returns a safe ASCII preview, replacing non-printable bytes with '.'
func asciiPreview(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 32 && c <= 126 {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
