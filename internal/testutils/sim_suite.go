package testutils

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/hostsim"
)

// SimHostSuite runs each test against a fresh, started simulated host with
// one peer.
//
// Basic usage (default battery service peer):
//
//	type ClientSuite struct {
//	    testutils.SimHostSuite
//	}
//
//	func TestClientSuite(t *testing.T) {
//	    suite.Run(t, new(ClientSuite))
//	}
//
// Custom peer:
//
//	func (s *ClientSuite) SetupTest() {
//	    s.WithPeer().
//	        WithService("180D").
//	        WithCharacteristic("2A37", "read,notify", []byte{80})
//
//	    s.SimHostSuite.SetupTest() // call parent last to apply configuration
//	}
type SimHostSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	PeerBuilder *PeerBuilder
	Sim         *hostsim.Sim
	Device      *FakeDevice

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *SimHostSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest starts the simulated host and waits until it is synced.
func (s *SimHostSuite) SetupTest() {
	if s.PeerBuilder == nil {
		s.PeerBuilder = DefaultPeerBuilder()
	}

	sim, err := hostsim.New(hostsim.Options{}, s.Logger)
	s.Require().NoError(err)
	sim.AddPeer(s.PeerBuilder.Build())

	s.Device = NewFakeDevice()
	sim.SetLifecycleHandlers(s.Device.OnSync, s.Device.OnReset)

	s.ctx, s.cancel = context.WithTimeout(context.Background(), s.TestTimeout)
	s.Require().NoError(sim.Start(s.ctx))
	sim.Flush()
	s.Require().True(s.Device.Synced(), "simulated host MUST be synced after start")

	s.Sim = sim
}

func (s *SimHostSuite) TearDownTest() {
	if s.Sim != nil {
		s.NoError(s.Sim.Stop())
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.PeerBuilder = nil
	s.Sim = nil
}

// Ctx is bounded by TestTimeout.
func (s *SimHostSuite) Ctx() context.Context {
	return s.ctx
}

// WithPeer returns the peer builder for configuration before SetupTest.
func (s *SimHostSuite) WithPeer() *PeerBuilder {
	if s.PeerBuilder == nil {
		s.PeerBuilder = NewPeerBuilder()
	}
	return s.PeerBuilder
}

// PeerAddr is the address of the configured peer.
func (s *SimHostSuite) PeerAddr() host.Addr {
	return s.PeerBuilder.Addr()
}

// DefaultPeerBuilder is a peer with the Battery Service (180F) and a
// readable, notifying Battery Level (2A19) at 50%.
func DefaultPeerBuilder() *PeerBuilder {
	return NewPeerBuilder().FromYAML(`
name: battery
address: "%s"
services:
  - uuid: "180F"
    characteristics:
      - uuid: "2A19"
        properties: "read,notify"
        hex: "32"
`, DefaultPeerAddress)
}
