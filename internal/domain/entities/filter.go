package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// HospitalFilterOptions lists the distinct facet values of a hospital result
// list in first-seen order.
type HospitalFilterOptions struct {
	EmergencyServices  []Label `json:"emergency_services"`
	HospitalTypes      []Label `json:"hospital_types"`
	HospitalOwnerships []Label `json:"hospital_ownerships"`
}

// InsuranceFilterOptions lists the distinct facet values of an insurance plan
// result list in first-seen order.
type InsuranceFilterOptions struct {
	Issuers     []Label `json:"issuers"`
	PlanTypes   []Label `json:"plan_types"`
	MetalLevels []Label `json:"metal_levels"`
}

// HospitalFilterCriteria holds the allowed values per hospital facet. An
// empty list leaves that facet unconstrained.
type HospitalFilterCriteria struct {
	EmergencyServices  []Label `json:"emergency_services"`
	HospitalTypes      []Label `json:"hospital_types"`
	HospitalOwnerships []Label `json:"hospital_ownerships"`
}

// InsuranceFilterCriteria holds the user's insurance filter selection. Nil
// ranges and false flags leave their field unconstrained.
type InsuranceFilterCriteria struct {
	Issuers            []Label `json:"issuers"`
	PlanTypes          []Label `json:"plan_types"`
	MetalLevels        []Label `json:"metal_levels"`
	Premium            *Range  `json:"premium,omitempty"`
	Deductible         *Range  `json:"deductible,omitempty"`
	HSAEligible        bool    `json:"hsa_eligible"`
	HasNationalNetwork bool    `json:"has_national_network"`
}

// Validate checks the numeric ranges.
func (c InsuranceFilterCriteria) Validate() error {
	if c.Premium != nil {
		if err := c.Premium.Validate(); err != nil {
			return fmt.Errorf("premium: %w", err)
		}
	}
	if c.Deductible != nil {
		if err := c.Deductible.Validate(); err != nil {
			return fmt.Errorf("deductible: %w", err)
		}
	}
	return nil
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewRange builds an inclusive range; nil bounds are open.
func NewRange(min, max *float64) *Range {
	if min == nil && max == nil {
		return nil
	}
	r := &Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if min != nil {
		r.Min = *min
	}
	if max != nil {
		r.Max = *max
	}
	return r
}

// Contains reports whether v lies within the inclusive bounds.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Validate rejects NaN bounds and inverted ranges.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("range bounds must be numbers")
	}
	if r.Min > r.Max {
		return fmt.Errorf("range minimum %v is greater than maximum %v", r.Min, r.Max)
	}
	return nil
}

// MarshalJSON writes the range as an object; infinite bounds are omitted.
func (r Range) MarshalJSON() ([]byte, error) {
	out := map[string]float64{}
	if !math.IsInf(r.Min, 0) {
		out["min"] = r.Min
	}
	if !math.IsInf(r.Max, 0) {
		out["max"] = r.Max
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either a [min, max] pair or a {"min", "max"} object
// with optional bounds.
func (r *Range) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("range must have exactly two bounds, got %d", len(pair))
		}
		*r = Range{Min: pair[0], Max: pair[1]}
		return nil
	}

	var obj struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if obj.Min != nil {
		r.Min = *obj.Min
	}
	if obj.Max != nil {
		r.Max = *obj.Max
	}
	return nil
}
