package host

import (
	"fmt"
	"net"
	"strings"
)

// AddrType is the link-layer address type tag.
type AddrType uint8

const (
	AddrTypePublic AddrType = 0
	AddrTypeRandom AddrType = 1
	AddrTypeRPAPub AddrType = 2
	AddrTypeRPARnd AddrType = 3
)

var addrTypeNames = map[AddrType]string{
	AddrTypePublic: "public",
	AddrTypeRandom: "random",
	AddrTypeRPAPub: "rpa_pub",
	AddrTypeRPARnd: "rpa_rnd",
}

func (t AddrType) String() string {
	if s, ok := addrTypeNames[t]; ok {
		return s
	}
	return "???"
}

// ParseAddrType maps "public", "random", "rpa_pub" or "rpa_rnd" to an AddrType.
func ParseAddrType(s string) (AddrType, error) {
	for t, name := range addrTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return AddrTypePublic, fmt.Errorf("invalid address type: %q", s)
}

// Addr is a 6-byte peer address plus its type. Val is stored in display
// order (most significant byte first).
type Addr struct {
	Val  [6]byte
	Type AddrType
}

// ParseAddr parses "AA:BB:CC:DD:EE:FF" (or dash separated) into an Addr.
func ParseAddr(s string, t AddrType) (Addr, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return Addr{}, fmt.Errorf("invalid BLE address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return Addr{}, fmt.Errorf("invalid BLE address %q: want 6 bytes, got %d", s, len(hw))
	}
	a := Addr{Type: t}
	copy(a.Val[:], hw)
	return a, nil
}

// MustParseAddr is ParseAddr for constants and tests.
func MustParseAddr(s string, t AddrType) Addr {
	a, err := ParseAddr(s, t)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the lowercase colon separated form.
func (a Addr) String() string {
	return net.HardwareAddr(a.Val[:]).String()
}

// IsZero reports whether the address was never set.
func (a Addr) IsZero() bool {
	return a.Val == [6]byte{}
}
