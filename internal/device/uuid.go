package device

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// bluetoothBaseSuffix is the tail of the Bluetooth SIG base UUID
// 0000xxxx-0000-1000-8000-00805f9b34fb in normalized form.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// ParseUUID parses any common UUID spelling: "180f", "0x180F",
// "0000180f-0000-1000-8000-00805f9b34fb" or a vendor 128-bit UUID.
// SIG base 128-bit UUIDs are reduced to their 16-bit form.
func ParseUUID(s string) (ble.UUID, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return nil, fmt.Errorf("empty UUID")
	}

	u, err := ble.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	if u.Len() == 16 {
		if short := u.String(); strings.HasPrefix(short, "0000") && strings.HasSuffix(short, bluetoothBaseSuffix) {
			return ble.MustParse(short[4:8]), nil
		}
	}
	return u, nil
}

// MustParseUUID is ParseUUID for constants and tests.
func MustParseUUID(s string) ble.UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NormalizeUUID converts a UUID string to the internal lookup form (lowercase,
// no dashes, no 0x prefix, SIG base UUIDs shortened to 16 bits).
// Returns "" when s is not a UUID.
func NormalizeUUID(s string) string {
	u, err := ParseUUID(s)
	if err != nil {
		return ""
	}
	return u.String()
}

// UUIDKey returns the lookup key of u, which matches NormalizeUUID of its text form.
func UUIDKey(u ble.UUID) string {
	if u == nil {
		return ""
	}
	return NormalizeUUID(u.String())
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Returns the first eight characters for long UUIDs and short UUIDs by themselves.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// ValidateUUID validates that UUID strings are non-empty and well-formed.
// Returns normalized UUID strings or an error.
func ValidateUUID(uuids ...string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("at least one UUID is required")
	}

	result := make([]string, 0, len(uuids))
	for i, uuid := range uuids {
		if uuid == "" {
			return nil, fmt.Errorf("UUID at index %d cannot be empty", i)
		}
		normalized := NormalizeUUID(uuid)
		if normalized == "" {
			return nil, fmt.Errorf("invalid UUID format at index %d: %s", i, uuid)
		}
		result = append(result, normalized)
	}
	return result, nil
}
