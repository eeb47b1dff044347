package ble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/testutils"
	"github.com/srg/blegatt/pkg/config"
)

type InspectTestSuite struct {
	testutils.SimHostSuite

	device *Device
}

func TestInspectTestSuite(t *testing.T) {
	suite.Run(t, new(InspectTestSuite))
}

func (s *InspectTestSuite) SetupTest() {
	s.WithPeer().
		WithService("1800").
		WithCharacteristic("2A00", "read", []byte("Thermo\x01")).
		WithService("181A").
		WithCharacteristic("2A6E", "read,notify", []byte{0x10, 0x09}).
		WithDescriptor("2901", []byte("Temperature")).
		WithCharacteristic("2A6F", "write", nil)

	s.SimHostSuite.SetupTest()

	cfg := config.DefaultConfig()
	cfg.ConnectTimeout = time.Second
	s.device = NewDevice(s.Sim, cfg, s.Logger)
	s.Sim.Sync()
	s.Require().NoError(s.device.WaitSynced(s.Ctx()))
}

func (s *InspectTestSuite) TestInspect() {
	res, client, err := Inspect(s.Ctx(), s.device, s.PeerAddr(), &InspectOptions{ReadLimit: 4, Secure: true}, s.Logger)
	s.Require().NoError(err)
	defer func() { s.NoError(s.device.DeleteClient(client)) }()

	s.Equal("aa:bb:cc:dd:ee:ff", res.Address)
	s.Equal("Ther", res.Name, "device name MUST come from 2A00")
	s.Equal(-60, res.RSSI)
	s.Equal(uint16(247), res.MTU)
	s.True(res.Secured)
	s.Require().Len(res.Services, 2)

	gap := res.Services[0]
	s.Equal("1800", gap.UUID)
	s.Equal("54686572", gap.Characteristics[0].ValueHex, "preview MUST be truncated to ReadLimit")
	s.Equal("Ther", gap.Characteristics[0].ValueASCII)

	env := res.Services[1]
	s.Require().Len(env.Characteristics, 2)
	temp := env.Characteristics[0]
	s.Equal("2a6e", temp.UUID)
	s.Equal("Read,Notify", temp.Properties)
	s.Equal("1009", temp.ValueHex)
	s.Equal("..", temp.ValueASCII)
	s.Len(temp.Descriptors, 2, "declared descriptor plus the CCCD MUST be reported")

	s.Empty(env.Characteristics[1].ValueHex, "write-only characteristic MUST NOT be read")
}

func (s *InspectTestSuite) TestInspectUnknownPeer() {
	s.device.cfg.ConnectTimeout = 30 * time.Millisecond
	_, _, err := Inspect(s.Ctx(), s.device, host.MustParseAddr("11:22:33:44:55:66", host.AddrTypePublic), nil, s.Logger)
	s.Error(err)
	s.Empty(s.device.Clients(), "failed inspect MUST delete its client")
}
