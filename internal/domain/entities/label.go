package entities

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Label is a categorical value read from an upstream record. A field that is
// missing or null is kept as an absent label rather than dropped, so it still
// shows up as a facet value of its own.
//
// Values that are not strings (true, 12, objects) keep their canonical JSON
// text in Raw, so true, false and "true" are three different labels.
type Label struct {
	Value string
	Raw   string
	Valid bool
}

// L returns a present label.
func L(value string) Label {
	return Label{Value: value, Valid: true}
}

// Missing is the absent label.
var Missing = Label{}

// String returns the label text, empty for an absent label.
func (l Label) String() string {
	return l.Value
}

// MarshalJSON encodes an absent label as null and a non-string label as
// its original JSON value.
func (l Label) MarshalJSON() ([]byte, error) {
	switch {
	case !l.Valid:
		return []byte("null"), nil
	case l.Raw != "":
		return []byte(l.Raw), nil
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON never fails: malformed input yields an absent label.
func (l *Label) UnmarshalJSON(data []byte) error {
	*l = decodeLabel(data)
	return nil
}

func decodeLabel(raw json.RawMessage) Label {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Missing
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Missing
		}
		return L(s)
	}
	return rawLabel(raw)
}

// rawLabel canonicalises a non-string JSON value. Numbers are compared by
// value, so 1 and 1.0 are the same label.
func rawLabel(raw json.RawMessage) Label {
	var text string
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == 0 {
			f = 0 // folds -0
		}
		text = strconv.FormatFloat(f, 'g', -1, 64)
	} else {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return Missing
		}
		text = buf.String()
	}
	return Label{Value: text, Raw: text, Valid: true}
}

func decodeNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func decodeBool(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}
