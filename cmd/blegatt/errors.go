package main

import (
	"errors"
	"fmt"

	"github.com/srg/blegatt/internal/device"
	"github.com/srg/blegatt/internal/host"
)

// Command-level errors
var (
	// ErrNoAddress indicates inspect was run without a target and the profile
	// file holds more than one peer.
	ErrNoAddress = errors.New("no peer address given")
)

// FormatUserError turns library errors into one-line messages for the terminal.
func FormatUserError(err error) string {
	var nf *device.NotFoundError
	var serr *device.StatusError

	switch {
	case errors.As(err, &nf):
		return nf.Error()
	case device.IsConnectionState(err, device.NotSynced):
		return "host stack is not ready, try again"
	case device.IsConnectionState(err, device.AlreadyConnected):
		return "peer is already connected"
	case errors.Is(err, device.ErrDiscoveryFailed):
		return fmt.Sprintf("service discovery failed: %v", errors.Unwrap(err))
	case errors.As(err, &serr):
		switch serr.Status {
		case host.StatusETimeout:
			return fmt.Sprintf("%s timed out", serr.Op)
		case host.StatusENotConn:
			return fmt.Sprintf("%s: connection lost", serr.Op)
		}
	}
	return err.Error()
}
