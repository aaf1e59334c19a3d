package entities

import (
	"encoding/json"
	"strconv"
)

// Hospital is a hospital record returned by the search backend. Only the
// three facet fields are typed; every other attribute is carried through
// untouched and re-emitted when the record is encoded again.
type Hospital struct {
	EmergencyServices Label
	HospitalType      Label
	HospitalOwnership Label

	attrs map[string]json.RawMessage
}

// JSON keys of the hospital facet fields
const (
	HospitalKeyEmergencyServices = "emergencyServices"
	HospitalKeyHospitalType      = "hospitalType"
	HospitalKeyHospitalOwnership = "hospitalOwnership"
)

// UnmarshalJSON keeps the raw attributes and projects the facet fields.
func (h *Hospital) UnmarshalJSON(data []byte) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	*h = Hospital{
		EmergencyServices: decodeLabel(attrs[HospitalKeyEmergencyServices]),
		HospitalType:      decodeLabel(attrs[HospitalKeyHospitalType]),
		HospitalOwnership: decodeLabel(attrs[HospitalKeyHospitalOwnership]),
		attrs:             attrs,
	}
	return nil
}

// MarshalJSON re-emits the upstream attributes, or the typed fields for a
// record built in code.
func (h Hospital) MarshalJSON() ([]byte, error) {
	if h.attrs != nil {
		return json.Marshal(h.attrs)
	}
	out := map[string]Label{}
	setLabel(out, HospitalKeyEmergencyServices, h.EmergencyServices)
	setLabel(out, HospitalKeyHospitalType, h.HospitalType)
	setLabel(out, HospitalKeyHospitalOwnership, h.HospitalOwnership)
	return json.Marshal(out)
}

// Text returns a passthrough attribute as display text ("" when absent).
func (h Hospital) Text(key string) string {
	return attrText(h.attrs, key)
}

func setLabel(out map[string]Label, key string, l Label) {
	if l.Valid {
		out[key] = l
	}
}

func attrText(attrs map[string]json.RawMessage, key string) string {
	raw, ok := attrs[key]
	if !ok {
		return ""
	}
	if l := decodeLabel(raw); l.Valid && l.Raw == "" {
		return l.Value
	}
	if f := decodeNumber(raw); f != nil {
		return strconv.FormatFloat(*f, 'f', -1, 64)
	}
	return ""
}
