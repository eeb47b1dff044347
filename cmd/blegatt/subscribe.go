package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/srg/blegatt/internal/ringio"
	"github.com/srg/blegatt/pkg/ble"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Stream notifications or indications from a characteristic",
	Long: `Connects to a simulated peer, enables notifications (or indications)
on one characteristic and prints every value the peer pushes.

Values a peer pushes on subscription are scripted in the profile:

  characteristics:
    - uuid: "2A19"
      properties: "read,notify"
      hex: "32"
      updates: ["31", "30"]

Stops after --count values, after --duration, or on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runSubscribe,
}

var (
	subscribeProfile  string
	subscribeAddress  string
	subscribeService  string
	subscribeChar     string
	subscribeIndicate bool
	subscribeCount    int
	subscribeDuration time.Duration
	subscribeFormat   string
)

func init() {
	subscribeCmd.Flags().StringVar(&subscribeProfile, "profile", "", "YAML file with peer profiles (required)")
	subscribeCmd.Flags().StringVar(&subscribeAddress, "address", "", "Peer address (default: the only peer in the profile)")
	subscribeCmd.Flags().StringVar(&subscribeService, "service", "", "Service UUID (required)")
	subscribeCmd.Flags().StringVar(&subscribeChar, "char", "", "Characteristic UUID (required)")
	subscribeCmd.Flags().BoolVar(&subscribeIndicate, "indicate", false, "Use indications instead of notifications")
	subscribeCmd.Flags().IntVar(&subscribeCount, "count", 0, "Stop after this many values (0: no limit)")
	subscribeCmd.Flags().DurationVar(&subscribeDuration, "duration", 0, "Stop after this long (0: no limit)")
	subscribeCmd.Flags().StringVar(&subscribeFormat, "format", "", "Output format: text, json or yaml (default from config)")
	_ = subscribeCmd.MarkFlagRequired("profile")
	_ = subscribeCmd.MarkFlagRequired("service")
	_ = subscribeCmd.MarkFlagRequired("char")
}

// formatNotification renders one value as a self-contained record.
func formatNotification(format string, n ble.Notification) ([]byte, error) {
	switch format {
	case "json":
		b, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml":
		b, err := yaml.Marshal([]ble.Notification{n})
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	kind := "notify"
	if n.Indication {
		kind = "indicate"
	}
	return []byte(fmt.Sprintf("[%d] %s %s: %s %q\n", n.Seq, withName(n.UUID, n.Name), kind, n.ValueHex, n.ValueASCII)), nil
}

func runSubscribe(cmd *cobra.Command, _ []string) error {
	if subscribeCount < 0 {
		return fmt.Errorf("--count must be >= 0")
	}
	sess, profiles, err := prepareSession(cmd, subscribeProfile, subscribeAddress)
	if err != nil {
		return err
	}
	format, err := resolveFormat(subscribeFormat, sess.cfg.OutputFormat)
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

	connectCtx, cancel := context.WithTimeout(ctx, 3*sess.cfg.ConnectTimeout)
	defer cancel()
	client, err := sess.connect(connectCtx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.dev.DeleteClient(client) }()

	out := ringio.New(ctx, cmd.OutOrStdout(), nil, sess.logger)
	reached := make(chan struct{})
	var reachedOnce sync.Once

	handler := func(n ble.Notification) {
		if subscribeCount > 0 && n.Seq > uint64(subscribeCount) {
			return
		}
		rec, err := formatNotification(format, n)
		if err != nil {
			sess.logger.WithError(err).Warn("Failed to format notification")
			return
		}
		_, _ = out.Write(rec)
		if subscribeCount > 0 && n.Seq == uint64(subscribeCount) {
			reachedOnce.Do(func() { close(reached) })
		}
	}

	sub, err := ble.Subscribe(connectCtx, client, subscribeService, subscribeChar, subscribeIndicate, handler)
	if err != nil {
		_ = out.Close()
		return err
	}
	sess.logger.WithFields(logrus.Fields{
		"service_uuid": subscribeService,
		"char_uuid":    subscribeChar,
	}).Info("Subscribed")

	waitCtx := ctx
	if subscribeDuration > 0 {
		var cancelWait context.CancelFunc
		waitCtx, cancelWait = context.WithTimeout(ctx, subscribeDuration)
		defer cancelWait()
	}
	err = waitSubscription(waitCtx, reached)

	// the host stops with ctx, so only a live session can unsubscribe
	cancelCtx, cancelDone := context.WithTimeout(ctx, sess.cfg.ConnectTimeout)
	defer cancelDone()
	if ctx.Err() == nil && client.IsConnected() {
		if cerr := sub.Cancel(cancelCtx); cerr != nil {
			sess.logger.WithError(cerr).Warn("Failed to unsubscribe")
		}
	}
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if st := out.Stats(); st.Dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Dropped %d byte(s) of output\n", st.Dropped)
	}
	return err
}

// waitSubscription blocks until the count is reached or ctx ends. Reaching
// --duration is a normal end, Ctrl+C is reported as context.Canceled.
func waitSubscription(ctx context.Context, reached <-chan struct{}) error {
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil
		}
		return ctx.Err()
	}
}
