package entities

import "time"

// Tab is a top-level view of the search shell
type Tab string

const (
	TabHospitalSearch  Tab = "hospital-search"
	TabInsuranceSearch Tab = "insurance-search"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return t == TabHospitalSearch || t == TabInsuranceSearch
}

// HospitalSearchMode selects the hospital search form
type HospitalSearchMode string

const (
	HospitalSearchByName    HospitalSearchMode = "by-name"
	HospitalSearchByAddress HospitalSearchMode = "by-address"
)

// Valid reports whether m is a known mode.
func (m HospitalSearchMode) Valid() bool {
	return m == HospitalSearchByName || m == HospitalSearchByAddress
}

// Form identifies the input form a view renders
type Form string

const (
	FormHospitalName    Form = "hospital-name-search"
	FormHospitalAddress Form = "hospital-address-search"
	FormInsurance       Form = "insurance-search"
)

// Session is one user's search shell: the selected tabs plus both domain
// state slices.
type Session struct {
	ID                 string             `json:"id"`
	ActiveTab          Tab                `json:"active_tab"`
	HospitalSearchMode HospitalSearchMode `json:"hospital_search_mode"`
	Hospitals          HospitalResults    `json:"hospitals"`
	Insurance          InsuranceResults   `json:"insurance"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewSession returns a session on the hospital tab with name search selected.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:                 id,
		ActiveTab:          TabHospitalSearch,
		HospitalSearchMode: HospitalSearchByName,
		Hospitals: HospitalResults{
			SearchLifecycle: SearchLifecycle{Status: SearchStatusIdle, UpdatedAt: now},
		},
		Insurance: InsuranceResults{
			SearchLifecycle: SearchLifecycle{Status: SearchStatusIdle, UpdatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// View is what the shell renders for the active tab.
type View struct {
	SessionID string         `json:"session_id"`
	ActiveTab Tab            `json:"active_tab"`
	Form      Form           `json:"form"`
	Hospitals *HospitalView  `json:"hospitals,omitempty"`
	Insurance *InsuranceView `json:"insurance,omitempty"`
}

// HospitalView is the hospital tab's content. FilterOptions is only set when
// a full result list is present; Results is nil when there is nothing to list.
type HospitalView struct {
	SearchMode    HospitalSearchMode      `json:"search_mode"`
	Status        SearchStatus            `json:"status"`
	Loading       bool                    `json:"loading"`
	Error         string                  `json:"error,omitempty"`
	FilterOptions *HospitalFilterOptions  `json:"filter_options,omitempty"`
	Criteria      *HospitalFilterCriteria `json:"criteria,omitempty"`
	Results       []Hospital              `json:"results"`
	TotalCount    int                     `json:"total_count"`
}

// InsuranceView is the insurance tab's content.
type InsuranceView struct {
	Status        SearchStatus             `json:"status"`
	Loading       bool                     `json:"loading"`
	Error         string                   `json:"error,omitempty"`
	FilterOptions *InsuranceFilterOptions  `json:"filter_options,omitempty"`
	Criteria      *InsuranceFilterCriteria `json:"criteria,omitempty"`
	Results       []InsurancePlan          `json:"results"`
	TotalCount    int                      `json:"total_count"`
}
