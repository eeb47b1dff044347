package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/blegatt/internal/hostsim"
	"github.com/srg/blegatt/pkg/ble"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build local GATT services and register them with the host",
	Long: `Builds local services from a YAML definition and registers them with
the simulated host, then prints what was registered.

  services:
    - uuid: "180F"
      handles: 6
      characteristics:
        - uuid: "2A19"
          properties: "read,notify"
          hex: "32"
          descriptors:
            - uuid: "2901"
              value: "Battery"`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveDefinition string

func init() {
	serveCmd.Flags().StringVar(&serveDefinition, "definition", "", "YAML file with local service definitions (required)")
	_ = serveCmd.MarkFlagRequired("definition")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defs, err := ble.LoadDefinitions(serveDefinition)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	sim, err := hostsim.New(hostsim.Options{QueueSize: cfg.EventQueueSize}, logger)
	if err != nil {
		return err
	}
	dev := ble.NewDevice(sim, cfg, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
	defer cancel()
	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = sim.Stop() }()
	if err := dev.WaitSynced(ctx); err != nil {
		return err
	}

	svcs, err := dev.CreateServices(defs)
	if err != nil {
		return err
	}
	if err := dev.StartServices(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, svc := range svcs {
		serviceColor.Fprint(out, svc.String())
	}
	fmt.Fprintf(out, "Registered %d service(s)\n", len(sim.Registered()))
	return nil
}
