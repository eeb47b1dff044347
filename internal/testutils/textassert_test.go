package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestTextAsserter_Defaults(t *testing.T) {
	ta := NewTextAsserter(t)
	assert.True(t, ta.options.TrimSpace)
	assert.True(t, ta.options.IgnoreEmptyLines)
	assert.True(t, ta.options.IgnoreTrailingWhitespace)
	assert.False(t, ta.options.IgnoreHandles)
	assert.False(t, ta.options.EnableColors)
}

func TestTextAsserter_Normalization(t *testing.T) {
	ta := NewTextAsserter(t)
	ok := ta.Assert("\n  Service: uuid: 180f   \n\n  Characteristic: uuid: 2a19\n", "Service: uuid: 180f\n  Characteristic: uuid: 2a19")
	assert.True(t, ok, "surrounding blank lines and trailing spaces MUST be ignored by default")
}

func TestTextAsserter_IgnoreHandles(t *testing.T) {
	actual := "  Characteristic: uuid: 2a19, handle: 3 0x0003, props: [Read]"
	expected := "  Characteristic: uuid: 2a19, handle: 42 0x002a, props: [Read]"

	rec := &recordingT{}
	assert.False(t, NewTextAsserter(rec).Assert(actual, expected))
	assert.Len(t, rec.errors, 1)

	assert.True(t, NewTextAsserter(t, WithIgnoreHandles(true)).Assert(actual, expected),
		"masked handles MUST compare equal")
}

func TestTextAsserter_DiffContent(t *testing.T) {
	ta := NewTextAsserter(t, WithEnableColors(false))
	diff := ta.Diff("line1\nchanged\nline3", "line1\nline2\nline3")
	assert.Contains(t, diff, "-line2")
	assert.Contains(t, diff, "+changed")
	assert.Empty(t, ta.Diff("same", "same"))
}

func TestTextAsserter_Colors(t *testing.T) {
	ta := NewTextAsserter(t, WithEnableColors(true))
	diff := ta.Diff("a b", "a c")
	assert.Contains(t, diff, "\x1b[", "colored diff MUST contain ANSI escapes")
	assert.Contains(t, diff, "a·c")
}
