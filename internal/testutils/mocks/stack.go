// Package mocks holds testify mocks of the host boundary.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/srg/blegatt/internal/host"
)

// MockStack implements host.Stack. Handlers passed to Connect and the
// discovery and attribute callbacks are captured so tests can drive them.
type MockStack struct {
	mock.Mock

	Handler  host.EventHandler
	Services host.ServiceDiscoveryFunc
	Chars    host.CharacteristicDiscoveryFunc
	Descs    host.DescriptorDiscoveryFunc
	Attr     host.AttrFunc
	OnSync   func()
	OnReset  func(reason int)
}

var _ host.Stack = (*MockStack)(nil)

func status(args mock.Arguments, i int) host.Status {
	return args.Get(i).(host.Status)
}

func (m *MockStack) Connect(own host.AddrType, peer host.Addr, timeout time.Duration, handler host.EventHandler) host.Status {
	m.Handler = handler
	return status(m.Called(own, peer, timeout), 0)
}

func (m *MockStack) ConnectCancel() host.Status {
	return status(m.Called(), 0)
}

func (m *MockStack) Terminate(conn host.ConnHandle, reason uint8) host.Status {
	return status(m.Called(conn, reason), 0)
}

func (m *MockStack) ConnRSSI(conn host.ConnHandle) (int8, host.Status) {
	args := m.Called(conn)
	return args.Get(0).(int8), status(args, 1)
}

func (m *MockStack) ConnFind(conn host.ConnHandle) (host.ConnDesc, host.Status) {
	args := m.Called(conn)
	return args.Get(0).(host.ConnDesc), status(args, 1)
}

func (m *MockStack) MTU(conn host.ConnHandle) uint16 {
	args := m.Called(conn)
	return args.Get(0).(uint16)
}

func (m *MockStack) DiscoverAllServices(conn host.ConnHandle, cb host.ServiceDiscoveryFunc) host.Status {
	m.Services = cb
	return status(m.Called(conn), 0)
}

func (m *MockStack) DiscoverAllCharacteristics(conn host.ConnHandle, start, end uint16, cb host.CharacteristicDiscoveryFunc) host.Status {
	m.Chars = cb
	return status(m.Called(conn, start, end), 0)
}

func (m *MockStack) DiscoverAllDescriptors(conn host.ConnHandle, start, end uint16, cb host.DescriptorDiscoveryFunc) host.Status {
	m.Descs = cb
	return status(m.Called(conn, start, end), 0)
}

func (m *MockStack) Read(conn host.ConnHandle, handle uint16, cb host.AttrFunc) host.Status {
	m.Attr = cb
	return status(m.Called(conn, handle), 0)
}

func (m *MockStack) Write(conn host.ConnHandle, handle uint16, data []byte, cb host.AttrFunc) host.Status {
	m.Attr = cb
	return status(m.Called(conn, handle, data), 0)
}

func (m *MockStack) WriteNoRsp(conn host.ConnHandle, handle uint16, data []byte) host.Status {
	return status(m.Called(conn, handle, data), 0)
}

func (m *MockStack) SecurityInitiate(conn host.ConnHandle) host.Status {
	return status(m.Called(conn), 0)
}

func (m *MockStack) InjectIO(conn host.ConnHandle, io host.PairingIO) host.Status {
	return status(m.Called(conn, io), 0)
}

func (m *MockStack) SetSecurityAuth(auth host.SecurityAuth) {
	m.Called(auth)
}

func (m *MockStack) CountConfig(defs []host.ServiceDef) host.Status {
	return status(m.Called(defs), 0)
}

func (m *MockStack) AddServices(defs []host.ServiceDef) host.Status {
	return status(m.Called(defs), 0)
}

func (m *MockStack) SetLifecycleHandlers(onSync func(), onReset func(reason int)) {
	m.OnSync = onSync
	m.OnReset = onReset
}
