package device

import (
	"strings"
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// 16-bit UUID formats
		{
			name:     "16-bit UUID lowercase",
			input:    "2902",
			expected: "2902",
		},
		{
			name:     "16-bit UUID uppercase",
			input:    "2A19",
			expected: "2a19",
		},
		{
			name:     "16-bit UUID with surrounding spaces",
			input:    "  180f ",
			expected: "180f",
		},
		{
			name:     "16-bit UUID with 0x prefix lowercase",
			input:    "0x2902",
			expected: "2902",
		},
		{
			name:     "16-bit UUID with 0X prefix uppercase",
			input:    "0X2902",
			expected: "2902",
		},

		// Bluetooth SIG base UUID format (should extract 16-bit form)
		{
			name:     "Full Bluetooth SIG UUID with dashes",
			input:    "0000-2902-0000-1000-8000-00805f9b34fb",
			expected: "2902",
		},
		{
			name:     "Full Bluetooth SIG UUID without dashes",
			input:    "0000290200001000800000805f9b34fb",
			expected: "2902",
		},
		{
			name:     "Full Bluetooth SIG UUID uppercase",
			input:    "00002902-0000-1000-8000-00805F9B34FB",
			expected: "2902",
		},
		{
			name:     "Full Bluetooth SIG UUID - different 16-bit value",
			input:    "0000180d-0000-1000-8000-00805f9b34fb",
			expected: "180d",
		},

		// Custom 128-bit UUIDs (should NOT be shortened)
		{
			name:     "Custom UUID - wrong prefix",
			input:    "AA002902-0000-1000-8000-00805f9b34fb",
			expected: "aa00290200001000800000805f9b34fb",
		},
		{
			name:     "Custom UUID - wrong suffix",
			input:    "00002902-1234-5678-9abc-def012345678",
			expected: "00002902123456789abcdef012345678",
		},
		{
			name:     "Custom UUID - completely different",
			input:    "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
			expected: "6e400001b5a3f393e0a9e50e24dcca9e",
		},

		// Edge cases
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "UUID with multiple dashes",
			input:    "0000-2902-0000-1000-8000-00805f9b34fb",
			expected: "2902",
		},
		{
			name:     "Mixed case",
			input:    "0000-2A02-0000-1000-8000-00805F9B34FB",
			expected: "2a02",
		},

		// Lengths other than 16 and 128 bits are rejected
		{
			name:     "32-bit UUID format",
			input:    "12345678",
			expected: "",
		},
		{
			name:     "Partial UUID",
			input:    "00002902",
			expected: "",
		},
		{
			name:     "Not hex",
			input:    "zz02",
			expected: "",
		},
		{
			name:     "Only prefix",
			input:    "0x",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeUUID(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateUUID(t *testing.T) {
	input := []string{
		"2902",
		"0x180d",
		"0000-2a37-0000-1000-8000-00805f9b34fb",
		"6e400001-b5a3-f393-e0a9-e50e24dcca9e",
	}

	expected := []string{
		"2902",
		"180d",
		"2a37",
		"6e400001b5a3f393e0a9e50e24dcca9e",
	}

	result, err := ValidateUUID(input...)
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

// Test that normalization is consistent
func TestNormalizeUUID_Consistency(t *testing.T) {
	// All these should normalize to the same value
	uuidVariants := []string{
		"2902",
		"0x2902",
		"0X2902",
		"00002902-0000-1000-8000-00805f9b34fb",
		"0000-2902-0000-1000-8000-00805f9b34fb",
	}

	expected := "2902"

	for _, uuid := range uuidVariants {
		t.Run(uuid, func(t *testing.T) {
			result := NormalizeUUID(uuid)
			assert.Equal(t, expected, result, "UUID %s should normalize to %s", uuid, expected)
		})
	}
}

// Test edge cases that should NOT be shortened
func TestNormalizeUUID_NoShortening(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "Wrong prefix - AA00 instead of 0000",
			input:  "AA002902-0000-1000-8000-00805f9b34fb",
			reason: "prefix is not 0000",
		},
		{
			name:   "Wrong suffix - custom UUID",
			input:  "00002902-1234-5678-9abc-def012345678",
			reason: "suffix doesn't match Bluetooth SIG base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeUUID(tt.input)
			// Should be normalized (lowercase, no dashes) but NOT shortened to 4 chars
			assert.NotEqual(t, "2902", result, "Should NOT shorten: %s", tt.reason)
			assert.NotContains(t, result, "-", "Should have dashes removed")
			// Compare normalized forms: result should equal input with dashes removed and lowercased
			expectedNormalized := strings.ToLower(strings.ReplaceAll(tt.input, "-", ""))
			assert.Equal(t, expectedNormalized, result)
		})
	}
}

func TestValidateUUID_Errors(t *testing.T) {
	_, err := ValidateUUID()
	assert.Error(t, err, "empty input MUST be rejected")

	_, err = ValidateUUID("180f", "")
	assert.ErrorContains(t, err, "index 1")

	_, err = ValidateUUID("180f", "nope")
	assert.ErrorContains(t, err, "invalid UUID format at index 1")
}

func TestParseUUID(t *testing.T) {
	t.Run("SIG base UUID becomes 16-bit", func(t *testing.T) {
		u, err := ParseUUID("0000180F-0000-1000-8000-00805F9B34FB")
		require.NoError(t, err)
		assert.Equal(t, 2, u.Len())
		assert.True(t, u.Equal(ble.UUID16(0x180f)))
	})

	t.Run("vendor UUID keeps 128 bits", func(t *testing.T) {
		u, err := ParseUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
		require.NoError(t, err)
		assert.Equal(t, 16, u.Len())
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseUUID("   ")
		assert.Error(t, err)
	})
}

func TestUUIDKey(t *testing.T) {
	assert.Equal(t, "2902", UUIDKey(ble.UUID16(0x2902)))
	assert.Equal(t, "2902", UUIDKey(ble.MustParse("00002902-0000-1000-8000-00805f9b34fb")),
		"long SIG form MUST key the same as its short form")
	assert.Equal(t, "", UUIDKey(nil))
}

func TestShortenUUID(t *testing.T) {
	assert.Equal(t, "180f", ShortenUUID("180f"))
	assert.Equal(t, "6e400001", ShortenUUID("6e400001b5a3f393e0a9e50e24dcca9e"))
}
