package entities

import "time"

// SearchStatus is the state of one search domain's request lifecycle
type SearchStatus string

const (
	// SearchStatusIdle means no search has been issued yet
	SearchStatusIdle SearchStatus = "idle"
	// SearchStatusLoading means a request is in flight
	SearchStatusLoading SearchStatus = "loading"
	// SearchStatusSuccess means the last applied response was stored
	SearchStatusSuccess SearchStatus = "success"
	// SearchStatusFailed means the last applied response failed
	SearchStatusFailed SearchStatus = "failed"
)

// SearchDomain separates hospital and insurance state
type SearchDomain string

const (
	SearchDomainHospitals SearchDomain = "hospitals"
	SearchDomainInsurance SearchDomain = "insurance"
)

// SearchFlow names one of the three request flows
type SearchFlow string

const (
	SearchFlowHospitalName   SearchFlow = "hospital-name"
	SearchFlowHospitalRadius SearchFlow = "hospital-radius"
	SearchFlowInsurance      SearchFlow = "insurance"
)

// Domain returns the state slice a flow writes into.
func (f SearchFlow) Domain() SearchDomain {
	if f == SearchFlowInsurance {
		return SearchDomainInsurance
	}
	return SearchDomainHospitals
}

// SearchLifecycle tracks requests for one domain. Issued is the token of
// the most recent request; Applied is the token of the response currently
// reflected in the results.
type SearchLifecycle struct {
	Status    SearchStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	Issued    uint64       `json:"issued"`
	Applied   uint64       `json:"applied"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Loading reports whether a request is in flight.
func (l SearchLifecycle) Loading() bool {
	return l.Status == SearchStatusLoading
}

// HospitalResults is the hospital state slice. All is nil when no results
// are available (never searched, or the last search failed).
type HospitalResults struct {
	SearchLifecycle
	All      []Hospital             `json:"all"`
	Filtered []Hospital             `json:"filtered"`
	Options  HospitalFilterOptions  `json:"options"`
	Criteria HospitalFilterCriteria `json:"criteria"`
}

// InsuranceResults is the insurance state slice.
type InsuranceResults struct {
	SearchLifecycle
	All      []InsurancePlan         `json:"all"`
	Filtered []InsurancePlan         `json:"filtered"`
	Options  InsuranceFilterOptions  `json:"options"`
	Criteria InsuranceFilterCriteria `json:"criteria"`
}
