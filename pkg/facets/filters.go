package facets

import (
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// Filter returns the records that satisfy match, in their original order.
// The result is never nil.
func Filter[R any](records []R, match func(R) bool) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Allows reports whether l passes an allowed-value list. An empty list
// allows everything.
func Allows(allowed []entities.Label, l entities.Label) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == l {
			return true
		}
	}
	return false
}

// MatchHospital reports whether h satisfies every facet constraint.
func MatchHospital(h entities.Hospital, c entities.HospitalFilterCriteria) bool {
	return Allows(c.EmergencyServices, h.EmergencyServices) &&
		Allows(c.HospitalTypes, h.HospitalType) &&
		Allows(c.HospitalOwnerships, h.HospitalOwnership)
}

// MatchInsurancePlan reports whether p satisfies every constraint. A set
// range excludes plans whose value is missing, including plans without a
// first deductible.
func MatchInsurancePlan(p entities.InsurancePlan, c entities.InsuranceFilterCriteria) bool {
	return Allows(c.MetalLevels, p.MetalLevel) &&
		Allows(c.PlanTypes, p.Type) &&
		Allows(c.Issuers, p.IssuerName()) &&
		within(c.Premium, p.Premium) &&
		within(c.Deductible, p.PrimaryDeductible()) &&
		(!c.HSAEligible || p.HSAEligible) &&
		(!c.HasNationalNetwork || p.HasNationalNetwork)
}

func within(r *entities.Range, v *float64) bool {
	if r == nil {
		return true
	}
	return v != nil && r.Contains(*v)
}

// FilterHospitals applies hospital criteria to the full result list.
func FilterHospitals(hospitals []entities.Hospital, c entities.HospitalFilterCriteria) []entities.Hospital {
	return Filter(hospitals, func(h entities.Hospital) bool { return MatchHospital(h, c) })
}

// FilterInsurancePlans applies insurance criteria to the full result list.
func FilterInsurancePlans(plans []entities.InsurancePlan, c entities.InsuranceFilterCriteria) []entities.InsurancePlan {
	return Filter(plans, func(p entities.InsurancePlan) bool { return MatchInsurancePlan(p, c) })
}
