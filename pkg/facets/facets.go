// Package facets derives filter options from search results and applies the
// user's filter selection to them. Everything here is pure: options are
// always computed from the full result list and filtering never mutates or
// reorders records.
package facets

import (
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// Distinct returns the values selector yields over records, deduplicated in
// first-seen order. The result is never nil.
func Distinct[R any, V comparable](records []R, selector func(R) V) []V {
	seen := make(map[V]struct{}, len(records))
	out := make([]V, 0)
	for _, r := range records {
		v := selector(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DeriveHospitalOptions collects the facet values of a hospital result list.
func DeriveHospitalOptions(hospitals []entities.Hospital) entities.HospitalFilterOptions {
	return entities.HospitalFilterOptions{
		EmergencyServices:  Distinct(hospitals, func(h entities.Hospital) entities.Label { return h.EmergencyServices }),
		HospitalTypes:      Distinct(hospitals, func(h entities.Hospital) entities.Label { return h.HospitalType }),
		HospitalOwnerships: Distinct(hospitals, func(h entities.Hospital) entities.Label { return h.HospitalOwnership }),
	}
}

// DeriveInsuranceOptions collects the facet values of an insurance plan result list.
func DeriveInsuranceOptions(plans []entities.InsurancePlan) entities.InsuranceFilterOptions {
	return entities.InsuranceFilterOptions{
		Issuers:     Distinct(plans, entities.InsurancePlan.IssuerName),
		PlanTypes:   Distinct(plans, func(p entities.InsurancePlan) entities.Label { return p.Type }),
		MetalLevels: Distinct(plans, func(p entities.InsurancePlan) entities.Label { return p.MetalLevel }),
	}
}
