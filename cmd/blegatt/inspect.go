package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/blegatt/pkg/ble"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect services, characteristics, and descriptors of a peer",
	Long: `Connects to a simulated peer and discovers its services,
characteristics, and descriptors. Optionally secures the connection and reads
characteristic values.

Peers come from a YAML profile:

  peers:
    - name: battery
      address: "AA:BB:CC:DD:EE:FF"
      services:
        - uuid: "180F"
          characteristics:
            - uuid: "2A19"
              properties: "read,notify"
              hex: "32"`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

var (
	inspectProfile   string
	inspectAddress   string
	inspectRefresh   bool
	inspectSecure    bool
	inspectRead      bool
	inspectReadLimit int
	inspectFormat    string
)

func init() {
	inspectCmd.Flags().StringVar(&inspectProfile, "profile", "", "YAML file with peer profiles (required)")
	inspectCmd.Flags().StringVar(&inspectAddress, "address", "", "Peer address (default: the only peer in the profile)")
	inspectCmd.Flags().BoolVar(&inspectRefresh, "refresh", false, "Drop known services before connecting")
	inspectCmd.Flags().BoolVar(&inspectSecure, "secure", false, "Secure the connection after discovery")
	inspectCmd.Flags().BoolVar(&inspectRead, "read", false, "Read readable characteristic values")
	inspectCmd.Flags().IntVar(&inspectReadLimit, "read-limit", 64, "Max bytes shown per value")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "", "Output format: text, json or yaml (default from config)")
	_ = inspectCmd.MarkFlagRequired("profile")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	sess, profiles, err := prepareSession(cmd, inspectProfile, inspectAddress)
	if err != nil {
		return err
	}
	format, err := resolveFormat(inspectFormat, sess.cfg.OutputFormat)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stopHost, err := sess.start(ctx, profiles)
	if err != nil {
		return err
	}
	defer stopHost()

	progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Inspecting %s", sess.addr), "Connecting")
	progress.Start()
	defer progress.Stop()

	// the host times out the connect itself; this bounds discovery and reads
	connectCtx, cancel := context.WithTimeout(ctx, 3*sess.cfg.ConnectTimeout)
	defer cancel()

	opts := &ble.InspectOptions{Refresh: inspectRefresh, Secure: inspectSecure}
	if inspectRead {
		opts.ReadLimit = inspectReadLimit
	}
	res, client, err := ble.Inspect(connectCtx, sess.dev, sess.addr, opts, sess.logger)
	if err != nil {
		return err
	}
	defer func() { _ = sess.dev.DeleteClient(client) }()
	progress.Stop()

	if format != "text" {
		return writeStructured(cmd.OutOrStdout(), format, res)
	}
	disableColorUnlessTerminal(cmd.OutOrStdout())
	printInspectResult(cmd.OutOrStdout(), res)
	return nil
}

var (
	serviceColor = color.New(color.FgCyan, color.Bold)
	charColor    = color.New(color.FgGreen)
	valueColor   = color.New(color.FgYellow)
	descColor    = color.New(color.Faint)
)

func withName(uuid, name string) string {
	if name == "" {
		return uuid
	}
	return fmt.Sprintf("%s (%s)", uuid, name)
}

func printInspectResult(w io.Writer, res *ble.InspectResult) {
	fmt.Fprintf(w, "Peer: %s", res.Address)
	if res.Name != "" {
		fmt.Fprintf(w, " (%s)", res.Name)
	}
	fmt.Fprintln(w)
	secured := "no"
	if res.Secured {
		secured = "yes"
	}
	fmt.Fprintf(w, "RSSI: %d, MTU: %d, secured: %s\n", res.RSSI, res.MTU, secured)

	for _, svc := range res.Services {
		serviceColor.Fprintf(w, "Service: %s, handles: %d-%d\n", withName(svc.UUID, svc.Name), svc.StartHandle, svc.EndHandle)
		for _, ch := range svc.Characteristics {
			charColor.Fprintf(w, "  Characteristic: %s, handle: %d, props: [%s]\n", withName(ch.UUID, ch.Name), ch.Handle, ch.Properties)
			if ch.ValueHex != "" {
				valueColor.Fprintf(w, "    Value: %s %q\n", ch.ValueHex, ch.ValueASCII)
			}
			for _, d := range ch.Descriptors {
				descColor.Fprintf(w, "    Descriptor: %s, handle: %d\n", d.UUID, d.Handle)
			}
		}
	}
}
