package ble

import (
	"context"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/gattc"
)

// AttributePath names a characteristic value, or one of its descriptors when
// Descriptor is set.
type AttributePath struct {
	Service        string
	Characteristic string
	Descriptor     string
}

func (p AttributePath) resolve(client *gattc.Client) (*gattc.RemoteCharacteristic, *gattc.RemoteDescriptor, error) {
	chr, err := client.GetCharacteristic(p.Service, p.Characteristic)
	if err != nil {
		return nil, nil, err
	}
	if p.Descriptor == "" {
		return chr, nil, nil
	}
	dsc := chr.GetDescriptor(p.Descriptor)
	if dsc == nil {
		return nil, nil, &device.NotFoundError{
			Resource: "descriptor",
			UUIDs:    []string{p.Service, p.Characteristic, p.Descriptor},
		}
	}
	return chr, dsc, nil
}

// ReadAttribute reads the value at p from the connected peer.
func ReadAttribute(ctx context.Context, client *gattc.Client, p AttributePath) ([]byte, error) {
	chr, dsc, err := p.resolve(client)
	if err != nil {
		return nil, err
	}
	if dsc != nil {
		return dsc.ReadValue(ctx)
	}
	return chr.ReadValue(ctx)
}

// WriteAttribute writes data at p. Descriptors are always written with a
// response.
func WriteAttribute(ctx context.Context, client *gattc.Client, p AttributePath, data []byte, withResponse bool) error {
	chr, dsc, err := p.resolve(client)
	if err != nil {
		return err
	}
	if dsc != nil {
		return dsc.WriteValue(ctx, data)
	}
	return chr.WriteValue(ctx, data, withResponse)
}
