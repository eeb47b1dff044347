package device

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

type propertyName struct {
	value ble.Property
	name  string
	alias string
}

// Ordered as the bits appear in the characteristic declaration.
var propertyNames = []propertyName{
	{ble.CharBroadcast, "Broadcast", "broadcast"},
	{ble.CharRead, "Read", "read"},
	{ble.CharWriteNR, "WriteWithoutResponse", "write-nr"},
	{ble.CharWrite, "Write", "write"},
	{ble.CharNotify, "Notify", "notify"},
	{ble.CharIndicate, "Indicate", "indicate"},
	{ble.CharSignedWrite, "AuthenticatedSignedWrites", "signed-write"},
	{ble.CharExtended, "ExtendedProperties", "extended"},
}

// PropertyNames returns the human-readable names of the bits set in p.
func PropertyNames(p ble.Property) []string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.value != 0 {
			names = append(names, pn.name)
		}
	}
	return names
}

// FormatProperties renders p as a comma separated list, e.g. "Read,Notify".
func FormatProperties(p ble.Property) string {
	return strings.Join(PropertyNames(p), ",")
}

// ParseProperties parses a comma separated property list such as
// "read,write,notify". Both short aliases and the names returned by
// PropertyNames are accepted, case-insensitively.
func ParseProperties(s string) (ble.Property, error) {
	var p ble.Property
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		bit, ok := lookupProperty(token)
		if !ok {
			return 0, fmt.Errorf("unknown characteristic property %q", token)
		}
		p |= bit
	}
	return p, nil
}

func lookupProperty(token string) (ble.Property, bool) {
	for _, pn := range propertyNames {
		if strings.EqualFold(token, pn.alias) || strings.EqualFold(token, pn.name) {
			return pn.value, true
		}
	}
	return 0, false
}

// CanNotify reports whether p allows notifications or indications.
func CanNotify(p ble.Property) bool {
	return p&(ble.CharNotify|ble.CharIndicate) != 0
}
