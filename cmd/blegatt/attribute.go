package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/blegatt/pkg/ble"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a characteristic or descriptor value",
	Long: `Reads data from a characteristic, or from one of its descriptors.

Examples:
  # Read Battery Level
  blegatt read --profile peers.yaml --service 180f --char 2a19

  # Read the user description descriptor as text
  blegatt read --profile peers.yaml --service 180f --char 2a19 --desc 2901 --raw`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <value>",
	Short: "Write a characteristic or descriptor value",
	Long: `Writes data to a characteristic, or to one of its descriptors.

Examples:
  # Write hex bytes
  blegatt write --profile peers.yaml --service 180f --char 2a19 --hex 0A

  # Write text without waiting for the response
  blegatt write --profile peers.yaml --service 1800 --char 2a00 --without-response "thermo"`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

// attrFlags are the flags shared by read and write.
type attrFlags struct {
	profile string
	address string
	path    ble.AttributePath
}

func (f *attrFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "YAML file with peer profiles (required)")
	cmd.Flags().StringVar(&f.address, "address", "", "Peer address (default: the only peer in the profile)")
	cmd.Flags().StringVar(&f.path.Service, "service", "", "Service UUID (required)")
	cmd.Flags().StringVar(&f.path.Characteristic, "char", "", "Characteristic UUID (required)")
	cmd.Flags().StringVar(&f.path.Descriptor, "desc", "", "Descriptor UUID (targets the descriptor instead of the value)")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("char")
}

var (
	readFlags  attrFlags
	readRaw    bool
	writeFlags attrFlags
	writeHex   bool
	writeNoRsp bool
)

func init() {
	readFlags.register(readCmd)
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Print raw bytes instead of hex")

	writeFlags.register(writeCmd)
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Parse the value as hex (e.g. 'FF01'); raw text by default")
	writeCmd.Flags().BoolVar(&writeNoRsp, "without-response", false, "Write without response")
}

// withAttribute runs fn against a connected client of the session peer.
func withAttribute(cmd *cobra.Command, f *attrFlags, fn func(ctx context.Context, s *session, a ble.AttributePath) error) error {
	sess, profiles, err := prepareSession(cmd, f.profile, f.address)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stopHost, err := sess.start(ctx, profiles)
	if err != nil {
		return err
	}
	defer stopHost()

	opCtx, cancel := context.WithTimeout(ctx, 3*sess.cfg.ConnectTimeout)
	defer cancel()
	client, err := sess.connect(opCtx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.dev.DeleteClient(client) }()

	return fn(opCtx, sess, f.path)
}

func runRead(cmd *cobra.Command, _ []string) error {
	return withAttribute(cmd, &readFlags, func(ctx context.Context, s *session, a ble.AttributePath) error {
		data, err := ble.ReadAttribute(ctx, s.client, a)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if readRaw {
			_, err = out.Write(data)
			return err
		}
		_, err = fmt.Fprintln(out, strings.ToUpper(hex.EncodeToString(data)))
		return err
	})
}

func runWrite(cmd *cobra.Command, args []string) error {
	data := []byte(args[0])
	if writeHex {
		b, err := hex.DecodeString(strings.ReplaceAll(args[0], " ", ""))
		if err != nil {
			return fmt.Errorf("invalid hex value %q: %w", args[0], err)
		}
		data = b
	}
	return withAttribute(cmd, &writeFlags, func(ctx context.Context, s *session, a ble.AttributePath) error {
		if err := ble.WriteAttribute(ctx, s.client, a, data, !writeNoRsp); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d byte(s)\n", len(data))
		return err
	})
}
