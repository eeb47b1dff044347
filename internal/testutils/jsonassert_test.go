package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONAsserter_IgnoresExtraKeysByDefault(t *testing.T) {
	actual := `{"address":"aa:bb:cc:dd:ee:ff","rssi":-60,"mtu":247}`
	assert.True(t, NewJSONAsserter(t).Assert(actual, `{"address":"aa:bb:cc:dd:ee:ff","mtu":247}`))

	rec := &recordingT{}
	assert.False(t, NewJSONAsserter(rec, WithStrictKeys()).Assert(actual, `{"address":"aa:bb:cc:dd:ee:ff","mtu":247}`),
		"strict mode MUST report keys the expectation does not name")
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "rssi")
}

func TestJSONAsserter_ReportsChangedValue(t *testing.T) {
	rec := &recordingT{}
	ok := NewJSONAsserter(rec).Assert(`{"services":[{"uuid":"180f"}]}`, `{"services":[{"uuid":"180d"}]}`)
	assert.False(t, ok)
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "180d")
}

func TestJSONAsserter_PresenceAndIgnoredFields(t *testing.T) {
	ja := NewJSONAsserter(t, WithIgnoredFields("seq"))
	assert.True(t, ja.Assert(
		`{"seq":7,"uuid":"2a19","value_hex":"31"}`,
		`{"seq":1,"uuid":"2a19","value_hex":"<<PRESENCE>>"}`,
	))

	rec := &recordingT{}
	assert.False(t, NewJSONAsserter(rec).Assert(`{"uuid":"2a19"}`, `{"uuid":"2a19","value_hex":"<<PRESENCE>>"}`),
		"presence marker MUST still require the key")
}

func TestJSONAsserter_AssertLines(t *testing.T) {
	stream := `{"seq":1,"value_hex":"31"}
{"seq":2,"value_hex":"30"}
`
	assert.True(t, NewJSONAsserter(t).AssertLines(stream, `[{"seq":1,"value_hex":"31"},{"seq":2,"value_hex":"30"}]`))

	rec := &recordingT{}
	assert.False(t, NewJSONAsserter(rec).AssertLines(stream, `[{"seq":1,"value_hex":"31"}]`))
	assert.False(t, NewJSONAsserter(rec).AssertLines("not json\n", `[]`))
	assert.True(t, NewJSONAsserter(t).AssertLines("", `[]`))
	assert.Len(t, rec.errors, 2)
}

func TestJSONAsserter_InvalidInput(t *testing.T) {
	ja := NewJSONAsserter(t)
	assert.Contains(t, ja.Diff("{", "{}"), "invalid actual JSON")
	assert.Contains(t, ja.Diff("{}", "{"), "invalid expected JSON")
}
