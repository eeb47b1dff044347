package gattc

import (
	"context"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srg/blegatt/internal/host"
	"github.com/srg/blegatt/internal/testutils"
	"github.com/srg/blegatt/internal/testutils/mocks"
)

const testConn host.ConnHandle = 7

// connectWithMock drives a Connect against a mocked stack: the connect event
// and a one-service discovery are delivered from another goroutine.
func connectWithMock(t *testing.T) (*Client, *mocks.MockStack, *testutils.FakeDevice, *recordingCallbacks) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	stack := &mocks.MockStack{}
	dev := testutils.NewFakeDevice()
	dev.SetSynced(true)

	peer := host.MustParseAddr(testutils.DefaultPeerAddress, host.AddrTypePublic)
	stack.On("Connect", host.AddrTypePublic, peer, time.Second).Return(host.StatusOK).Run(func(mock.Arguments) {
		go stack.Handler(&host.ConnectEvent{Status: host.StatusOK, Handle: testConn})
	})
	stack.On("DiscoverAllServices", testConn).Return(host.StatusOK).Run(func(mock.Arguments) {
		go func() {
			stack.Services(testConn, host.StatusOK, &host.ServiceDesc{StartHandle: 1, EndHandle: 3, UUID: ble.UUID16(0x180d)})
			stack.Services(testConn, host.StatusEDone, nil)
		}()
	})
	stack.On("DiscoverAllCharacteristics", testConn, uint16(1), uint16(3)).Return(host.StatusOK).Run(func(mock.Arguments) {
		go func() {
			stack.Chars(testConn, host.StatusOK, &host.CharacteristicDesc{
				DefHandle: 2, ValHandle: 3, Properties: ble.CharNotify, UUID: ble.UUID16(0x2a37),
			})
			stack.Chars(testConn, host.StatusEDone, nil)
		}()
	})

	cb := &recordingCallbacks{}
	c := NewClient(stack, dev, time.Second, logger)
	c.SetClientCallbacks(cb, false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, peer, false))
	return c, stack, dev, cb
}

func TestDispatcher_DiscoveryQueriesServiceRange(t *testing.T) {
	c, stack, _, _ := connectWithMock(t)

	stack.AssertExpectations(t)
	stack.AssertNotCalled(t, "DiscoverAllDescriptors", mock.Anything, mock.Anything, mock.Anything)
	chr, err := c.GetCharacteristic("180d", "2a37")
	require.NoError(t, err)
	assert.Empty(t, chr.Descriptors(), "value handle at service end MUST skip descriptor discovery")
}

func TestDispatcher_IgnoresOtherConnections(t *testing.T) {
	c, _, dev, cb := connectWithMock(t)
	chr, err := c.GetCharacteristic("180d", "2a37")
	require.NoError(t, err)

	called := 0
	chr.mu.Lock()
	chr.onNotify = func(*RemoteCharacteristic, []byte, bool) { called++ }
	chr.mu.Unlock()

	c.handleGapEvent(&host.NotifyRxEvent{Handle: testConn + 1, AttrHandle: 3, Data: []byte{1}})
	c.handleGapEvent(&host.DisconnectEvent{Conn: host.ConnDesc{Handle: testConn + 1}})
	assert.Zero(t, called, "notification for another connection MUST be dropped")
	assert.True(t, c.IsConnected(), "disconnect of another connection MUST be ignored")

	c.handleGapEvent(&host.NotifyRxEvent{Handle: testConn, AttrHandle: 9, Data: []byte{1}})
	assert.Zero(t, called, "notification outside every service MUST be dropped")

	c.handleGapEvent(&host.NotifyRxEvent{Handle: testConn, AttrHandle: 3, Data: []byte{2}})
	assert.Equal(t, 1, called)
	assert.Equal(t, []byte{2}, chr.Value())

	c.handleGapEvent(&host.DisconnectEvent{Conn: host.ConnDesc{Handle: testConn}})
	assert.False(t, c.IsConnected())
	assert.Equal(t, int32(1), cb.disconnects.Load())
	assert.False(t, dev.IsIgnored(c.GetPeerAddress()))

	c.handleGapEvent(&host.DisconnectEvent{Conn: host.ConnDesc{Handle: testConn}})
	assert.Equal(t, int32(1), cb.disconnects.Load(), "duplicate disconnect MUST NOT call OnDisconnect again")
}

func TestDispatcher_ConnectEventWithoutPendingIgnored(t *testing.T) {
	c, _, _, cb := connectWithMock(t)

	c.handleGapEvent(&host.ConnectEvent{Status: host.StatusOK, Handle: 9})
	assert.Equal(t, testConn, c.GetConnID(), "unsolicited connect event MUST NOT change the handle")
	assert.Equal(t, int32(1), cb.connects.Load())
}

func TestDispatcher_StreamForOtherConnectionIgnored(t *testing.T) {
	c, _, _, _ := connectWithMock(t)

	rc := c.onServiceDiscovered(testConn+1, host.StatusOK, &host.ServiceDesc{StartHandle: 10, EndHandle: 12, UUID: ble.UUID16(0x1800)})
	assert.Equal(t, host.StatusOK, rc)
	assert.Nil(t, c.GetService("1800"), "service from another connection MUST NOT be inserted")
}

func TestDispatcher_PasskeyActionNoneInjectsNothing(t *testing.T) {
	c, stack, _, _ := connectWithMock(t)

	c.handleGapEvent(&host.PasskeyActionEvent{Handle: testConn, Action: host.PasskeyActionNone})
	stack.AssertNotCalled(t, "InjectIO", mock.Anything, mock.Anything)
}

func TestDispatcher_EncChangeWithoutCallbacks(t *testing.T) {
	c, stack, _, _ := connectWithMock(t)
	c.SetClientCallbacks(nil, false)

	stack.On("SecurityInitiate", testConn).Return(host.StatusOK).Run(func(mock.Arguments) {
		go c.handleGapEvent(&host.EncChangeEvent{Handle: testConn, Status: host.StatusOK})
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.SecureConnection(ctx))
	stack.AssertNotCalled(t, "ConnFind", mock.Anything)
}

func TestDispatcher_DefaultCallbacksAnswerPrompts(t *testing.T) {
	c, stack, _, _ := connectWithMock(t)
	c.SetClientCallbacks(nil, false)

	stack.On("InjectIO", testConn, host.PairingIO{Action: host.PasskeyActionNumericCompare, NumCmpAccept: false}).
		Return(host.StatusOK).Once()
	stack.On("InjectIO", testConn, host.PairingIO{Action: host.PasskeyActionInput, Passkey: 0}).
		Return(host.StatusOK).Once()

	c.handleGapEvent(&host.PasskeyActionEvent{Handle: testConn, Action: host.PasskeyActionNumericCompare, NumCmp: 42})
	c.handleGapEvent(&host.PasskeyActionEvent{Handle: testConn, Action: host.PasskeyActionInput})
	stack.AssertExpectations(t)

	assert.False(t, (&DefaultClientCallbacks{}).OnSecurityRequest(), "default MUST reject peer security requests")
	c.handleGapEvent(&host.SecurityRequestEvent{Handle: testConn})
	stack.AssertNotCalled(t, "SecurityInitiate", mock.Anything)
}

type acceptingCallbacks struct {
	DefaultClientCallbacks
}

func (a *acceptingCallbacks) OnSecurityRequest() bool { return true }

func TestDispatcher_AcceptedSecurityRequestInitiatesPairing(t *testing.T) {
	c, stack, _, _ := connectWithMock(t)
	c.SetClientCallbacks(&acceptingCallbacks{}, false)

	stack.On("SecurityInitiate", testConn).Return(host.StatusOK).Once()
	c.handleGapEvent(&host.SecurityRequestEvent{Handle: testConn})
	c.handleGapEvent(&host.SecurityRequestEvent{Handle: testConn + 1})
	stack.AssertExpectations(t)
}
