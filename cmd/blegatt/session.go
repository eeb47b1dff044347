package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blegatt/internal/gattc"
	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/hostsim"
	"github.com/srg/blegatt/pkg/ble"
	"github.com/srg/blegatt/pkg/config"
)

// session is a synced device on top of a simulated host loaded with the
// peers of one profile file.
type session struct {
	cfg    *config.Config
	logger *logrus.Logger
	sim    *hostsim.Sim
	dev    *ble.Device
	addr   host.Addr
	client *gattc.Client
}

// resolvePeer picks address, or the only peer of the profile when empty.
func resolvePeer(profiles []hostsim.PeerProfile, address string) (host.Addr, error) {
	if address == "" {
		if len(profiles) != 1 {
			return host.Addr{}, fmt.Errorf("%w: profile holds %d peers, use --address", ErrNoAddress, len(profiles))
		}
		address = profiles[0].Address
	}
	return host.ParseAddr(address, host.AddrTypePublic)
}

// prepareSession validates the command input without touching the host.
func prepareSession(cmd *cobra.Command, profilePath, address string) (*session, []hostsim.PeerProfile, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := hostsim.LoadProfiles(profilePath)
	if err != nil {
		return nil, nil, err
	}
	addr, err := resolvePeer(profiles, address)
	if err != nil {
		return nil, nil, err
	}
	return &session{cfg: cfg, logger: logger, addr: addr}, profiles, nil
}

// start brings the simulated host up and waits for it to sync. The returned
// stop function shuts the host down.
func (s *session) start(ctx context.Context, profiles []hostsim.PeerProfile) (func(), error) {
	sim, err := hostsim.New(hostsim.Options{QueueSize: s.cfg.EventQueueSize}, s.logger)
	if err != nil {
		return nil, err
	}
	if err := sim.AddProfiles(profiles); err != nil {
		return nil, err
	}
	s.sim = sim
	s.dev = ble.NewDevice(sim, s.cfg, s.logger)
	if err := sim.Start(ctx); err != nil {
		return nil, err
	}
	stop := func() { _ = sim.Stop() }

	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := s.dev.WaitSynced(syncCtx); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

// connect creates a client and connects it to the session peer. The caller
// deletes the client.
func (s *session) connect(ctx context.Context) (*gattc.Client, error) {
	client, err := s.dev.CreateClient()
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx, s.addr, false); err != nil {
		_ = s.dev.DeleteClient(client)
		return nil, fmt.Errorf("failed to connect to device %s: %w", s.addr, err)
	}
	s.client = client
	return client, nil
}
