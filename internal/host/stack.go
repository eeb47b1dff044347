// Package host defines the boundary between the GATT layer and the underlying
// BLE host stack: status codes, addresses, event records and the Stack
// interface every host integration implements.
package host

import (
	"time"

	"github.com/go-ble/ble"
)

// ServiceDesc is one entry of a service discovery stream.
type ServiceDesc struct {
	StartHandle uint16
	EndHandle   uint16
	UUID        ble.UUID
}

// CharacteristicDesc is one entry of a characteristic discovery stream.
type CharacteristicDesc struct {
	DefHandle  uint16
	ValHandle  uint16
	Properties ble.Property
	UUID       ble.UUID
}

// DescriptorDesc is one entry of a descriptor discovery stream.
type DescriptorDesc struct {
	Handle uint16
	UUID   ble.UUID
}

// Discovery callbacks are invoked once per found item with StatusOK and then
// exactly once with StatusEDone or an error status (the item is nil then).
// A non-zero return aborts the procedure.
type (
	ServiceDiscoveryFunc        func(conn ConnHandle, status Status, svc *ServiceDesc) Status
	CharacteristicDiscoveryFunc func(conn ConnHandle, status Status, chr *CharacteristicDesc) Status
	DescriptorDiscoveryFunc     func(conn ConnHandle, status Status, chrValHandle uint16, dsc *DescriptorDesc) Status
)

// AttrFunc completes a read or write. For reads, data holds the attribute value.
type AttrFunc func(conn ConnHandle, status Status, handle uint16, data []byte) Status

// ServiceType marks an entry in a service definition list.
type ServiceType uint8

const (
	ServiceTypeEnd       ServiceType = 0
	ServiceTypePrimary   ServiceType = 1
	ServiceTypeSecondary ServiceType = 2
)

// DescriptorDef is a local descriptor registration entry.
type DescriptorDef struct {
	UUID  ble.UUID
	Value []byte
}

// CharacteristicDef is a local characteristic registration entry. A nil UUID
// terminates a definition list.
type CharacteristicDef struct {
	UUID        ble.UUID
	Flags       ble.Property
	Descriptors []DescriptorDef
}

// ServiceDef is a local service registration entry. Characteristics is either
// nil or terminated by an entry with a nil UUID. A ServiceTypeEnd entry
// terminates a service list.
type ServiceDef struct {
	Type            ServiceType
	UUID            ble.UUID
	Characteristics []CharacteristicDef
}

// SecurityAuth is the pairing requirement set of the security manager.
type SecurityAuth struct {
	Bonding bool
	MITM    bool
	SC      bool
}

// Stack is the host stack as seen by the GATT layer. Every method returns
// immediately; completions arrive later on the host-event context.
type Stack interface {
	Connect(own AddrType, peer Addr, timeout time.Duration, handler EventHandler) Status
	ConnectCancel() Status
	Terminate(conn ConnHandle, reason uint8) Status
	ConnRSSI(conn ConnHandle) (int8, Status)
	ConnFind(conn ConnHandle) (ConnDesc, Status)
	MTU(conn ConnHandle) uint16

	DiscoverAllServices(conn ConnHandle, cb ServiceDiscoveryFunc) Status
	DiscoverAllCharacteristics(conn ConnHandle, start, end uint16, cb CharacteristicDiscoveryFunc) Status
	DiscoverAllDescriptors(conn ConnHandle, start, end uint16, cb DescriptorDiscoveryFunc) Status

	Read(conn ConnHandle, handle uint16, cb AttrFunc) Status
	Write(conn ConnHandle, handle uint16, data []byte, cb AttrFunc) Status
	WriteNoRsp(conn ConnHandle, handle uint16, data []byte) Status

	SecurityInitiate(conn ConnHandle) Status
	InjectIO(conn ConnHandle, io PairingIO) Status
	// SetSecurityAuth configures the requirements used by later pairings.
	SetSecurityAuth(auth SecurityAuth)

	CountConfig(defs []ServiceDef) Status
	AddServices(defs []ServiceDef) Status

	// SetLifecycleHandlers registers the host sync and reset notifications.
	SetLifecycleHandlers(onSync func(), onReset func(reason int))
}
