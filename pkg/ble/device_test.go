package ble

import (
	"context"
	"testing"
	"time"

	goble "github.com/go-ble/ble"
	"github.com/stretchr/testify/suite"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/hostsim"
	"github.com/srg/blegatt/internal/testutils"
	"github.com/srg/blegatt/pkg/config"
)

type DeviceTestSuite struct {
	testutils.SimHostSuite

	cfg    *config.Config
	device *Device
}

func TestDeviceTestSuite(t *testing.T) {
	suite.Run(t, new(DeviceTestSuite))
}

func (s *DeviceTestSuite) SetupTest() {
	s.SimHostSuite.SetupTest()

	s.cfg = config.DefaultConfig()
	s.cfg.MaxConnections = 2
	s.cfg.ConnectTimeout = time.Second
	s.device = NewDevice(s.Sim, s.cfg, s.Logger)

	s.Sim.Sync()
	s.Require().NoError(s.device.WaitSynced(s.Ctx()), "device MUST observe the host sync")
}

func (s *DeviceTestSuite) TestCreateClientBounded() {
	c1, err := s.device.CreateClient()
	s.Require().NoError(err)
	_, err = s.device.CreateClient()
	s.Require().NoError(err)

	_, err = s.device.CreateClient()
	s.ErrorIs(err, device.ErrTooManyClients, "client count MUST be bounded by MaxConnections")

	s.Require().NoError(s.device.DeleteClient(c1))
	s.Len(s.device.Clients(), 1)
	_, err = s.device.CreateClient()
	s.NoError(err, "deleting a client MUST free a slot")

	s.NoError(s.device.DeleteClient(c1), "deleting an unknown client MUST be a no-op")
}

func (s *DeviceTestSuite) TestClientConnectUpdatesIgnoreList() {
	c, err := s.device.CreateClient()
	s.Require().NoError(err)

	s.Require().NoError(c.Connect(s.Ctx(), s.PeerAddr(), false))
	s.True(s.device.IsIgnored(s.PeerAddr()), "connected peer MUST be ignored")
	s.Same(c, s.device.ClientByPeer(s.PeerAddr()))

	s.Require().NoError(s.device.DeleteClient(c))
	s.Eventually(func() bool { return !s.device.IsIgnored(s.PeerAddr()) }, time.Second, 5*time.Millisecond,
		"deleted client MUST leave the ignore list")
	s.Eventually(func() bool { return s.Sim.Connections() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *DeviceTestSuite) TestHostResetReleasesClients() {
	c, err := s.device.CreateClient()
	s.Require().NoError(err)
	s.Require().NoError(c.Connect(s.Ctx(), s.PeerAddr(), false))

	s.Sim.Reset(int(host.ReasonRemoteLowResources))
	s.Sim.Flush()

	s.False(s.device.Synced())
	s.False(c.IsConnected(), "host reset MUST disconnect every client")
	s.False(s.device.IsIgnored(s.PeerAddr()))

	err = c.Connect(s.Ctx(), s.PeerAddr(), false)
	s.True(device.IsConnectionState(err, device.NotSynced), "connect before resync MUST fail")

	s.Sim.Sync()
	s.Require().NoError(s.device.WaitSynced(s.Ctx()))
	s.NoError(c.Connect(s.Ctx(), s.PeerAddr(), false))
}

func (s *DeviceTestSuite) TestWaitSyncedBlocksUntilSync() {
	s.Require().NoError(s.device.WaitSynced(s.Ctx()), "synced device MUST not block")

	s.Sim.Reset(0)
	s.Sim.Flush()

	ctx, cancel := context.WithTimeout(s.Ctx(), 20*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.device.WaitSynced(ctx), context.DeadlineExceeded, "reset device MUST wait for the next sync")

	done := make(chan error, 1)
	go func() { done <- s.device.WaitSynced(s.Ctx()) }()
	s.Sim.Sync()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.FailNow("sync MUST wake waiters")
	}
}

func (s *DeviceTestSuite) TestPasskeyAndSecurity() {
	s.Equal(uint32(123456), s.device.Passkey())
	s.device.SetPasskey(1)
	s.Equal(uint32(1), s.device.Passkey())

	s.device.SetSecurityAuth(SecurityAuth{Bonding: true, MITM: true})
	s.Equal(SecurityAuth{Bonding: true, MITM: true}, s.device.SecurityAuth())
	s.Equal(SecurityAuth{Bonding: true, MITM: true}, s.Sim.SecurityAuth(), "requirements MUST reach the host stack")
	s.Equal(host.AddrTypePublic, s.device.OwnAddrType())
}

func (s *DeviceTestSuite) TestSecurityAuthAppliesToPairing() {
	c, err := s.device.CreateClient()
	s.Require().NoError(err)
	s.Require().NoError(c.Connect(s.Ctx(), s.PeerAddr(), false))

	s.device.SetSecurityAuth(SecurityAuth{MITM: true})
	err = c.SecureConnection(s.Ctx())
	s.Require().Error(err, "just works pairing MUST fail when MITM is required")
	s.Equal(host.StatusEReject, device.HostStatus(err))

	s.device.SetSecurityAuth(SecurityAuth{Bonding: true})
	s.Require().NoError(c.SecureConnection(s.Ctx()))
	desc, rc := s.Sim.ConnFind(c.GetConnID())
	s.Require().Equal(host.StatusOK, rc)
	s.True(desc.Encrypted)
	s.True(desc.Bonded, "bonding requirement MUST be applied to the pairing")
}

func (s *DeviceTestSuite) TestStartServices() {
	svc := s.device.CreateService(goble.UUID16(0x180f), 0)
	svc.CreateCharacteristic(goble.UUID16(0x2a19), goble.CharRead)
	empty := s.device.CreateService(goble.UUID16(0x1801), 0)

	s.Require().NoError(s.device.StartServices())
	s.True(svc.Started())
	s.True(empty.Started())
	s.Len(s.Sim.Registered(), 2)

	s.Require().NoError(s.device.StartServices())
	s.Len(s.Sim.Registered(), 2, "started services MUST NOT be registered again")
}

func (s *DeviceTestSuite) TestStartServicesFailure() {
	svc := s.device.CreateService(goble.UUID16(0x180f), 0)
	s.Sim.RejectNext(hostsim.OpCountConfig, host.StatusENoMem)

	err := s.device.StartServices()
	s.Equal(host.StatusENoMem, device.HostStatus(err))
	s.False(svc.Started())
	s.Zero(s.Sim.Calls(hostsim.OpAddServices), "phase 2 MUST NOT run after a phase 1 failure")
}
