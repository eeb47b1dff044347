package device

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ble.Property
	}{
		{name: "empty", input: "", expected: 0},
		{name: "single", input: "read", expected: ble.CharRead},
		{name: "aliases", input: "read, write,notify", expected: ble.CharRead | ble.CharWrite | ble.CharNotify},
		{name: "long names", input: "WriteWithoutResponse,Indicate", expected: ble.CharWriteNR | ble.CharIndicate},
		{name: "case insensitive", input: "READ,Write-NR", expected: ble.CharRead | ble.CharWriteNR},
		{name: "duplicates", input: "read,read", expected: ble.CharRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProperties(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}

	_, err := ParseProperties("read,teleport")
	assert.ErrorContains(t, err, "teleport")
}

func TestFormatProperties(t *testing.T) {
	assert.Equal(t, "Read,Write,Notify", FormatProperties(ble.CharNotify|ble.CharWrite|ble.CharRead))
	assert.Equal(t, "", FormatProperties(0))

	// round trip through the long names
	p := ble.CharBroadcast | ble.CharSignedWrite | ble.CharExtended
	parsed, err := ParseProperties(FormatProperties(p))
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

func TestCanNotify(t *testing.T) {
	assert.True(t, CanNotify(ble.CharNotify))
	assert.True(t, CanNotify(ble.CharIndicate|ble.CharRead))
	assert.False(t, CanNotify(ble.CharRead|ble.CharWrite))
}
