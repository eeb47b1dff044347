package device

import (
	"errors"
	"fmt"

	"github.com/srg/blegatt/internal/host"
)

// NotFoundError represents an error when a GATT attribute is not found
type NotFoundError struct {
	Resource string   // "service", "characteristic", "descriptor"
	UUIDs    []string // One or more UUIDs (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	// characteristic is in service, descriptor is in characteristic
	parentResource := "service"
	if e.Resource == "descriptor" {
		parentResource = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], parentResource, e.UUIDs[len(e.UUIDs)-2])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotSynced        ConnectionState = "not_synced"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotSynced        = &ConnectionError{State: NotSynced, Msg: "host reset, wait for sync"}
)

// Operation errors
var (
	ErrDiscoveryFailed  = errors.New("service discovery failed")
	ErrTooManyClients   = errors.New("maximum number of clients reached")
	ErrNoCharacteristic = errors.New("no characteristic created yet")
)

// StatusError carries a non-zero host status returned by, or delivered to, an operation.
type StatusError struct {
	Op     string
	Status host.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: rc=%d %s", e.Op, int(e.Status), e.Status)
}

// Is matches another StatusError by status code, ignoring Op
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// NewStatusError returns nil for StatusOK and a *StatusError otherwise.
func NewStatusError(op string, rc host.Status) error {
	if rc == host.StatusOK {
		return nil
	}
	return &StatusError{Op: op, Status: rc}
}

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// HostStatus extracts the host status from err, or StatusOK when err carries none.
func HostStatus(err error) host.Status {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Status
	}
	return host.StatusOK
}
