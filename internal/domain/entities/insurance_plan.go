package entities

import (
	"encoding/json"
)

// InsurancePlan is a plan returned by the insurance search backend. Fields
// used for filtering are projected into typed values; the record itself is
// passed through unchanged.
type InsurancePlan struct {
	ID                 string
	Name               string
	Issuer             *Issuer
	Type               Label
	MetalLevel         Label
	Premium            *float64
	Deductibles        []Deductible
	HSAEligible        bool
	HasNationalNetwork bool

	attrs map[string]json.RawMessage
}

// Issuer is the company offering a plan
type Issuer struct {
	Name Label `json:"name"`
}

// Deductible is one entry of a plan's deductible list
type Deductible struct {
	Amount *float64 `json:"amount,omitempty"`
}

// IssuerName returns the issuer's name, absent when the plan has no issuer.
func (p InsurancePlan) IssuerName() Label {
	if p.Issuer == nil {
		return Missing
	}
	return p.Issuer.Name
}

// PrimaryDeductible returns the amount of the first deductible, or nil when
// the plan lists none.
func (p InsurancePlan) PrimaryDeductible() *float64 {
	if len(p.Deductibles) == 0 {
		return nil
	}
	return p.Deductibles[0].Amount
}

// Text returns a passthrough attribute as display text ("" when absent).
func (p InsurancePlan) Text(key string) string {
	return attrText(p.attrs, key)
}

type insurancePlanWire struct {
	ID                 string       `json:"id,omitempty"`
	Name               string       `json:"name,omitempty"`
	Issuer             *Issuer      `json:"issuer,omitempty"`
	Type               Label        `json:"type"`
	MetalLevel         Label        `json:"metal_level"`
	Premium            *float64     `json:"premium,omitempty"`
	Deductibles        []Deductible `json:"deductibles"`
	HSAEligible        bool         `json:"hsa_eligible"`
	HasNationalNetwork bool         `json:"has_national_network"`
}

// UnmarshalJSON keeps the raw attributes and projects the filter fields.
// Fields of the wrong JSON type are treated as missing instead of failing
// the whole response.
func (p *InsurancePlan) UnmarshalJSON(data []byte) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}

	plan := InsurancePlan{
		ID:                 attrText(attrs, "id"),
		Name:               attrText(attrs, "name"),
		Type:               decodeLabel(attrs["type"]),
		MetalLevel:         decodeLabel(attrs["metal_level"]),
		Premium:            decodeNumber(attrs["premium"]),
		HSAEligible:        decodeBool(attrs["hsa_eligible"]),
		HasNationalNetwork: decodeBool(attrs["has_national_network"]),
		attrs:              attrs,
	}

	var issuer map[string]json.RawMessage
	if raw, ok := attrs["issuer"]; ok && json.Unmarshal(raw, &issuer) == nil && issuer != nil {
		plan.Issuer = &Issuer{Name: decodeLabel(issuer["name"])}
	}

	var deductibles []map[string]json.RawMessage
	if raw, ok := attrs["deductibles"]; ok && json.Unmarshal(raw, &deductibles) == nil {
		plan.Deductibles = make([]Deductible, len(deductibles))
		for i, d := range deductibles {
			plan.Deductibles[i] = Deductible{Amount: decodeNumber(d["amount"])}
		}
	}

	*p = plan
	return nil
}

// MarshalJSON re-emits the upstream attributes, or the typed fields for a
// plan built in code.
func (p InsurancePlan) MarshalJSON() ([]byte, error) {
	if p.attrs != nil {
		return json.Marshal(p.attrs)
	}
	return json.Marshal(insurancePlanWire{
		ID:                 p.ID,
		Name:               p.Name,
		Issuer:             p.Issuer,
		Type:               p.Type,
		MetalLevel:         p.MetalLevel,
		Premium:            p.Premium,
		Deductibles:        p.Deductibles,
		HSAEligible:        p.HSAEligible,
		HasNationalNetwork: p.HasNationalNetwork,
	})
}

// InsuranceSearchForm holds the user's insurance form fields. It is sent to
// the backend as-is.
type InsuranceSearchForm map[string]interface{}
