package host

import "fmt"

// Status is a host stack return code. Zero means success.
type Status int

// Host stack status codes.
const (
	StatusOK          Status = 0
	StatusEAgain      Status = 1
	StatusEAlready    Status = 2
	StatusEInval      Status = 3
	StatusEMsgSize    Status = 4
	StatusENoEnt      Status = 5
	StatusENoMem      Status = 6
	StatusENotConn    Status = 7
	StatusENotSup     Status = 8
	StatusEApp        Status = 9
	StatusEBadData    Status = 10
	StatusEOS         Status = 11
	StatusEController Status = 12
	StatusETimeout    Status = 13
	StatusEDone       Status = 14
	StatusEBusy       Status = 15
	StatusEReject     Status = 16
	StatusEUnknown    Status = 17
	StatusERole       Status = 18
	StatusETimeoutHCI Status = 19
	StatusENoMemEvt   Status = 20
	StatusENoAddr     Status = 21
	StatusENotSynced  Status = 22
)

var statusNames = map[Status]string{
	StatusOK:          "ok",
	StatusEAgain:      "EAGAIN",
	StatusEAlready:    "EALREADY",
	StatusEInval:      "EINVAL",
	StatusEMsgSize:    "EMSGSIZE",
	StatusENoEnt:      "ENOENT",
	StatusENoMem:      "ENOMEM",
	StatusENotConn:    "ENOTCONN",
	StatusENotSup:     "ENOTSUP",
	StatusEApp:        "EAPP",
	StatusEBadData:    "EBADDATA",
	StatusEOS:         "EOS",
	StatusEController: "ECONTROLLER",
	StatusETimeout:    "ETIMEOUT",
	StatusEDone:       "EDONE",
	StatusEBusy:       "EBUSY",
	StatusEReject:     "EREJECT",
	StatusEUnknown:    "EUNKNOWN",
	StatusERole:       "EROLE",
	StatusETimeoutHCI: "ETIMEOUT_HCI",
	StatusENoMemEvt:   "ENOMEM_EVT",
	StatusENoAddr:     "ENOADDR",
	StatusENotSynced:  "ENOTSYNCED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// HCI disconnect reason codes accepted by Stack.Terminate.
const (
	ReasonAuthFailure           uint8 = 0x05
	ReasonRemoteUserTerminated  uint8 = 0x13
	ReasonRemoteLowResources    uint8 = 0x14
	ReasonRemotePowerOff        uint8 = 0x15
	ReasonLocalHostTerminated   uint8 = 0x16
	ReasonUnsupportedRemoteFeat uint8 = 0x1a
)
