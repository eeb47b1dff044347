package host

import "fmt"

// ConnHandle identifies a connection inside the host stack.
type ConnHandle uint16

// ConnHandleNone is the sentinel for "no connection".
const ConnHandleNone ConnHandle = 0xffff

// EventKind tags an Event.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventNotifyRx
	EventEncChange
	EventPasskeyAction
	EventConnUpdateRequest
	EventSecurityRequest
)

var eventKindNames = [...]string{
	EventConnect:           "connect",
	EventDisconnect:        "disconnect",
	EventNotifyRx:          "notify_rx",
	EventEncChange:         "enc_change",
	EventPasskeyAction:     "passkey_action",
	EventConnUpdateRequest: "conn_update_req",
	EventSecurityRequest:   "security_req",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a connection-scoped notification delivered on the host-event context.
type Event interface {
	Kind() EventKind
	ConnHandle() ConnHandle
}

// EventHandler receives every event for one connection attempt. It runs on the
// host-event context and must not block on anything that context resolves.
type EventHandler func(ev Event) Status

// ConnectEvent completes a Connect request.
type ConnectEvent struct {
	Status Status
	Handle ConnHandle
}

func (e *ConnectEvent) Kind() EventKind        { return EventConnect }
func (e *ConnectEvent) ConnHandle() ConnHandle { return e.Handle }

// DisconnectEvent reports the end of a connection, locally or peer initiated.
type DisconnectEvent struct {
	Reason int
	Conn   ConnDesc
}

func (e *DisconnectEvent) Kind() EventKind        { return EventDisconnect }
func (e *DisconnectEvent) ConnHandle() ConnHandle { return e.Conn.Handle }

// NotifyRxEvent carries a notification or indication payload.
type NotifyRxEvent struct {
	Handle     ConnHandle
	AttrHandle uint16
	Data       []byte
	Indication bool
}

func (e *NotifyRxEvent) Kind() EventKind        { return EventNotifyRx }
func (e *NotifyRxEvent) ConnHandle() ConnHandle { return e.Handle }

// EncChangeEvent completes a security procedure.
type EncChangeEvent struct {
	Handle ConnHandle
	Status Status
}

func (e *EncChangeEvent) Kind() EventKind        { return EventEncChange }
func (e *EncChangeEvent) ConnHandle() ConnHandle { return e.Handle }

// PasskeyAction is the pairing I/O action the host asks the application to take.
type PasskeyAction uint8

const (
	PasskeyActionNone PasskeyAction = iota
	PasskeyActionOOB
	PasskeyActionInput
	PasskeyActionDisplay
	PasskeyActionNumericCompare
)

var passkeyActionNames = [...]string{
	PasskeyActionNone:           "none",
	PasskeyActionOOB:            "oob",
	PasskeyActionInput:          "input",
	PasskeyActionDisplay:        "display",
	PasskeyActionNumericCompare: "numcmp",
}

func (a PasskeyAction) String() string {
	if int(a) < len(passkeyActionNames) {
		return passkeyActionNames[a]
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// PasskeyActionEvent asks for a pairing response. The host stays blocked until
// InjectIO is called for the same connection.
type PasskeyActionEvent struct {
	Handle ConnHandle
	Action PasskeyAction
	NumCmp uint32
}

func (e *PasskeyActionEvent) Kind() EventKind        { return EventPasskeyAction }
func (e *PasskeyActionEvent) ConnHandle() ConnHandle { return e.Handle }

// ConnUpdateRequestEvent is a peer request to change connection parameters.
type ConnUpdateRequestEvent struct {
	Handle ConnHandle
}

func (e *ConnUpdateRequestEvent) Kind() EventKind        { return EventConnUpdateRequest }
func (e *ConnUpdateRequestEvent) ConnHandle() ConnHandle { return e.Handle }

// SecurityRequestEvent is a peer request to secure the link.
type SecurityRequestEvent struct {
	Handle ConnHandle
}

func (e *SecurityRequestEvent) Kind() EventKind        { return EventSecurityRequest }
func (e *SecurityRequestEvent) ConnHandle() ConnHandle { return e.Handle }

// ConnDesc is the host's full description of a live connection.
type ConnDesc struct {
	Handle        ConnHandle
	PeerAddr      Addr
	Encrypted     bool
	Authenticated bool
	Bonded        bool
	KeySize       uint8
}

// PairingIO is the response injected for a PasskeyActionEvent.
type PairingIO struct {
	Action       PasskeyAction
	Passkey      uint32
	NumCmpAccept bool
	OOB          [16]byte
}
