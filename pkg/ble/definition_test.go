package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/blegatt/internal/hostsim"
	"github.com/srg/blegatt/pkg/config"
)

const batteryDefinition = `
services:
  - uuid: "180F"
    handles: 6
    characteristics:
      - uuid: "2A19"
        properties: "read,notify"
        hex: "32"
        descriptors:
          - uuid: "2901"
            value: "Battery"
  - uuid: "1801"
`

func TestCreateServicesFromDefinition(t *testing.T) {
	f, err := ParseDefinitions([]byte(batteryDefinition))
	require.NoError(t, err)

	sim, err := hostsim.New(hostsim.Options{}, nil)
	require.NoError(t, err)
	d := NewDevice(sim, config.DefaultConfig(), nil)

	svcs, err := d.CreateServices(f)
	require.NoError(t, err)
	require.Len(t, svcs, 2)

	chr := svcs[0].GetCharacteristic("2a19")
	require.NotNil(t, chr)
	assert.Equal(t, []byte{0x32}, chr.Value())
	require.Len(t, chr.Descriptors(), 1)
	assert.Equal(t, []byte("Battery"), chr.Descriptors()[0].Value())
	assert.Empty(t, svcs[1].Characteristics())

	require.NoError(t, d.StartServices())
	registered := sim.Registered()
	require.Len(t, registered, 2)
	assert.Len(t, registered[0][0].Characteristics, 2)
	assert.Nil(t, registered[1][0].Characteristics)
}

func TestParseDefinitions_Errors(t *testing.T) {
	_, err := ParseDefinitions([]byte("services: []"))
	assert.Error(t, err)

	sim, err := hostsim.New(hostsim.Options{}, nil)
	require.NoError(t, err)
	d := NewDevice(sim, nil, nil)

	for _, doc := range []string{
		`services: [{uuid: "xyz"}]`,
		`services: [{uuid: "180f", characteristics: [{uuid: "2a19", properties: "fly"}]}]`,
		`services: [{uuid: "180f", characteristics: [{uuid: "2a19", properties: "read", hex: "zz"}]}]`,
	} {
		f, err := ParseDefinitions([]byte(doc))
		require.NoError(t, err)
		_, err = d.CreateServices(f)
		assert.Error(t, err, doc)
	}
}
