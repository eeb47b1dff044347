package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "colon upper", in: "AA:BB:CC:DD:EE:FF", want: "aa:bb:cc:dd:ee:ff"},
		{name: "dash", in: "01-02-03-04-05-06", want: "01:02:03:04:05:06"},
		{name: "padded", in: "  10:20:30:40:50:60 ", want: "10:20:30:40:50:60"},
		{name: "short", in: "AA:BB:CC", wantErr: true},
		{name: "eui64", in: "00:11:22:33:44:55:66:77", wantErr: true},
		{name: "garbage", in: "not-an-address", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAddr(tt.in, AddrTypeRandom)
			if tt.wantErr {
				require.Error(t, err, "ParseAddr(%q) MUST fail", tt.in)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.String())
			assert.Equal(t, AddrTypeRandom, a.Type)
			assert.False(t, a.IsZero())
		})
	}
}

func TestAddr_ValIsDisplayOrder(t *testing.T) {
	a := MustParseAddr("01:02:03:04:05:06", AddrTypePublic)
	assert.Equal(t, [6]byte{1, 2, 3, 4, 5, 6}, a.Val)
	assert.True(t, Addr{}.IsZero())
	assert.Panics(t, func() { MustParseAddr("zz", AddrTypePublic) })
}

func TestParseAddrType(t *testing.T) {
	for _, typ := range []AddrType{AddrTypePublic, AddrTypeRandom, AddrTypeRPAPub, AddrTypeRPARnd} {
		got, err := ParseAddrType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := ParseAddrType("RANDOM")
	require.NoError(t, err)
	assert.Equal(t, AddrTypeRandom, got, "address type MUST parse case-insensitively")

	_, err = ParseAddrType("static")
	assert.Error(t, err)
	assert.Equal(t, "???", AddrType(9).String())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "ETIMEOUT", StatusETimeout.String())
	assert.Equal(t, "ENOTSYNCED", StatusENotSynced.String())
	assert.Equal(t, "status(99)", Status(99).String())
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "notify_rx", EventNotifyRx.String())
	assert.Equal(t, "event(42)", EventKind(42).String())
	assert.Equal(t, "numcmp", PasskeyActionNumericCompare.String())
	assert.Equal(t, "action(9)", PasskeyAction(9).String())
}

func TestEventConnHandle(t *testing.T) {
	events := []Event{
		&ConnectEvent{Handle: 3},
		&DisconnectEvent{Conn: ConnDesc{Handle: 3}},
		&NotifyRxEvent{Handle: 3},
		&EncChangeEvent{Handle: 3},
		&PasskeyActionEvent{Handle: 3},
		&ConnUpdateRequestEvent{Handle: 3},
	}
	for i, ev := range events {
		assert.Equal(t, ConnHandle(3), ev.ConnHandle(), "event %s MUST report its connection", ev.Kind())
		assert.Equal(t, EventKind(i), ev.Kind())
	}
}
