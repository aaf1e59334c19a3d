package services

import (
	"fmt"
	"time"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/pkg/facets"
)

const (
	// HospitalFetchErrorMessage is shown for any failed hospital search
	HospitalFetchErrorMessage = "An error occurred while fetching hospitals. Please try again."
	// InsuranceFetchErrorMessage is shown for any failed insurance search
	InsuranceFetchErrorMessage = "An error occurred while fetching insurance plans. Please try again."
)

// StalePolicy decides which of several overlapping responses for the same
// domain ends up in the session.
type StalePolicy string

const (
	// StalePolicyLatestIssued applies only the response to the newest request.
	StalePolicyLatestIssued StalePolicy = "latest-issued"
	// StalePolicyLastResolved applies every response, so the one that
	// arrives last wins regardless of when it was issued.
	StalePolicyLastResolved StalePolicy = "last-resolved"
)

// ParseStalePolicy validates a configured policy name. Empty selects the default.
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch StalePolicy(s) {
	case "":
		return StalePolicyLatestIssued, nil
	case StalePolicyLatestIssued, StalePolicyLastResolved:
		return StalePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown stale policy %q", s)
	}
}

// accepts reports whether a response for token may be applied.
func (p StalePolicy) accepts(l entities.SearchLifecycle, token uint64) bool {
	if token == 0 || token > l.Issued {
		return false
	}
	if p == StalePolicyLastResolved {
		return true
	}
	return token == l.Issued
}

func begin(l entities.SearchLifecycle, now time.Time) (entities.SearchLifecycle, uint64) {
	l.Issued++
	l.Status = entities.SearchStatusLoading
	l.Error = ""
	l.UpdatedAt = now
	return l, l.Issued
}

func settle(l entities.SearchLifecycle, token uint64, status entities.SearchStatus, msg string, now time.Time) entities.SearchLifecycle {
	l.Status = status
	l.Error = msg
	l.Applied = token
	l.UpdatedAt = now
	return l
}

// BeginHospitalSearch moves the hospital slice to loading and returns the
// token the eventual response must carry. Previous results stay visible.
func BeginHospitalSearch(r entities.HospitalResults, now time.Time) (entities.HospitalResults, uint64) {
	var token uint64
	r.SearchLifecycle, token = begin(r.SearchLifecycle, now)
	return r, token
}

// ResolveHospitalSearch stores a successful response as both the full and
// the filtered list, resets the criteria and recomputes the options. It
// reports false when the response is stale under policy.
func ResolveHospitalSearch(r entities.HospitalResults, token uint64, hospitals []entities.Hospital, policy StalePolicy, now time.Time) (entities.HospitalResults, bool) {
	if !policy.accepts(r.SearchLifecycle, token) {
		return r, false
	}
	if hospitals == nil {
		hospitals = []entities.Hospital{}
	}
	r.All = hospitals
	r.Criteria = entities.HospitalFilterCriteria{}
	r.Filtered = facets.FilterHospitals(hospitals, r.Criteria)
	r.Options = facets.DeriveHospitalOptions(hospitals)
	r.SearchLifecycle = settle(r.SearchLifecycle, token, entities.SearchStatusSuccess, "", now)
	return r, true
}

// FailHospitalSearch clears both lists and records the generic message.
func FailHospitalSearch(r entities.HospitalResults, token uint64, policy StalePolicy, now time.Time) (entities.HospitalResults, bool) {
	if !policy.accepts(r.SearchLifecycle, token) {
		return r, false
	}
	r.All = nil
	r.Filtered = nil
	r.Criteria = entities.HospitalFilterCriteria{}
	r.Options = facets.DeriveHospitalOptions(nil)
	r.SearchLifecycle = settle(r.SearchLifecycle, token, entities.SearchStatusFailed, HospitalFetchErrorMessage, now)
	return r, true
}

// FilterHospitalResults re-filters the full list with new criteria. It is a
// no-op reporting false when there is no full list.
func FilterHospitalResults(r entities.HospitalResults, criteria entities.HospitalFilterCriteria) (entities.HospitalResults, bool) {
	if r.All == nil {
		return r, false
	}
	r.Criteria = criteria
	r.Filtered = facets.FilterHospitals(r.All, criteria)
	return r, true
}

// BeginInsuranceSearch moves the insurance slice to loading.
func BeginInsuranceSearch(r entities.InsuranceResults, now time.Time) (entities.InsuranceResults, uint64) {
	var token uint64
	r.SearchLifecycle, token = begin(r.SearchLifecycle, now)
	return r, token
}

// ResolveInsuranceSearch stores a successful insurance response.
func ResolveInsuranceSearch(r entities.InsuranceResults, token uint64, plans []entities.InsurancePlan, policy StalePolicy, now time.Time) (entities.InsuranceResults, bool) {
	if !policy.accepts(r.SearchLifecycle, token) {
		return r, false
	}
	if plans == nil {
		plans = []entities.InsurancePlan{}
	}
	r.All = plans
	r.Criteria = entities.InsuranceFilterCriteria{}
	r.Filtered = facets.FilterInsurancePlans(plans, r.Criteria)
	r.Options = facets.DeriveInsuranceOptions(plans)
	r.SearchLifecycle = settle(r.SearchLifecycle, token, entities.SearchStatusSuccess, "", now)
	return r, true
}

// FailInsuranceSearch clears both insurance lists and records the generic message.
func FailInsuranceSearch(r entities.InsuranceResults, token uint64, policy StalePolicy, now time.Time) (entities.InsuranceResults, bool) {
	if !policy.accepts(r.SearchLifecycle, token) {
		return r, false
	}
	r.All = nil
	r.Filtered = nil
	r.Criteria = entities.InsuranceFilterCriteria{}
	r.Options = facets.DeriveInsuranceOptions(nil)
	r.SearchLifecycle = settle(r.SearchLifecycle, token, entities.SearchStatusFailed, InsuranceFetchErrorMessage, now)
	return r, true
}

// FilterInsuranceResults re-filters the full insurance list.
func FilterInsuranceResults(r entities.InsuranceResults, criteria entities.InsuranceFilterCriteria) (entities.InsuranceResults, bool) {
	if r.All == nil {
		return r, false
	}
	r.Criteria = criteria
	r.Filtered = facets.FilterInsurancePlans(r.All, criteria)
	return r, true
}
