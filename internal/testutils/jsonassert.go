package testutils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresenceMarker in an expected document matches any actual value.
const PresenceMarker = "<<PRESENCE>>"

// JSONAssertOptions controls how documents are normalized before comparison.
type JSONAssertOptions struct {
	// IgnoreExtraKeys drops object keys the expected document does not name.
	IgnoreExtraKeys bool     `default:"true"`
	AllowPresence   bool     `default:"true"`
	IgnoredFields   []string `default:""`
}

// JSONOption configures a JSONAsserter.
type JSONOption func(*JSONAssertOptions)

func WithStrictKeys() JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoreExtraKeys = false }
}

func WithIgnoredFields(fields ...string) JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoredFields = append(o.IgnoredFields, fields...) }
}

// JSONAsserter compares JSON documents, or JSON Lines streams, and reports
// a structural diff.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

func NewJSONAsserter(t TestingT, opts ...JSONOption) *JSONAsserter {
	o := JSONAssertOptions{}
	defaults.SetDefaults(&o)
	for _, opt := range opts {
		opt(&o)
	}
	return &JSONAsserter{t: t, options: o}
}

// Assert compares one JSON document against expected.
func (ja *JSONAsserter) Assert(actual, expected string) bool {
	return ja.report(ja.Diff(actual, expected))
}

// AssertLines compares a JSON Lines stream, one record per line, against an
// expected JSON array.
func (ja *JSONAsserter) AssertLines(actual, expectedArray string) bool {
	records, err := linesToArray(actual)
	if err != nil {
		return ja.report(err.Error())
	}
	return ja.report(ja.Diff(records, expectedArray))
}

func (ja *JSONAsserter) report(diff string) bool {
	if diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
		return false
	}
	return true
}

// Diff returns the ASCII diff of the normalized documents, or "".
func (ja *JSONAsserter) Diff(actual, expected string) string {
	var exp, act any
	if err := json.Unmarshal([]byte(expected), &exp); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actual), &act); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff compares objects only
	if _, ok := exp.([]any); ok {
		exp = map[string]any{"records": exp}
		act = map[string]any{"records": act}
	}

	ja.normalize(exp, act)

	expBytes, _ := json.Marshal(exp)
	actBytes, _ := json.Marshal(act)
	diff, err := gojsondiff.New().Compare(expBytes, actBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	var expObj map[string]any
	_ = json.Unmarshal(expBytes, &expObj)
	f := formatter.NewAsciiFormatter(expObj, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, err := f.Format(diff)
	if err != nil {
		return fmt.Sprintf("JSON diff formatting failed: %v", err)
	}
	return out
}

// normalize walks both trees, applying presence markers, ignored fields and
// extra key pruning to the pair.
func (ja *JSONAsserter) normalize(exp, act any) {
	switch e := exp.(type) {
	case map[string]any:
		a, ok := act.(map[string]any)
		if !ok {
			return
		}
		for _, f := range ja.options.IgnoredFields {
			delete(e, f)
			delete(a, f)
		}
		if ja.options.IgnoreExtraKeys {
			for k := range a {
				if _, ok := e[k]; !ok {
					delete(a, k)
				}
			}
		}
		for k, ev := range e {
			if s, ok := ev.(string); ok && s == PresenceMarker && ja.options.AllowPresence {
				if av, present := a[k]; present {
					e[k] = av
				}
				continue
			}
			ja.normalize(ev, a[k])
		}
	case []any:
		a, ok := act.([]any)
		if !ok {
			return
		}
		for i := range e {
			if i < len(a) {
				ja.normalize(e[i], a[i])
			}
		}
	}
}

func linesToArray(stream string) (string, error) {
	var records []json.RawMessage
	sc := bufio.NewScanner(strings.NewReader(stream))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return "", fmt.Errorf("line %d is not JSON: %s", n, line)
		}
		records = append(records, json.RawMessage(line))
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	out, err := json.Marshal(records)
	return string(out), err
}
