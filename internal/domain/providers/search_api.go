package providers

import (
	"context"
	"fmt"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// SearchAPI defines the upstream backend that answers hospital and insurance searches
type SearchAPI interface {
	// SearchHospitals finds hospitals by name
	SearchHospitals(ctx context.Context, query string) ([]entities.Hospital, error)

	// SearchHospitalsByRadius finds hospitals within radius of an address
	SearchHospitalsByRadius(ctx context.Context, address string, radius float64) ([]entities.Hospital, error)

	// SearchInsurancePlans finds plans matching the user's form fields
	SearchInsurancePlans(ctx context.Context, form entities.InsuranceSearchForm) ([]entities.InsurancePlan, error)
}

// FetchErrorKind classifies why an upstream call failed
type FetchErrorKind string

const (
	// FetchErrorHTTP is a non-2xx response
	FetchErrorHTTP FetchErrorKind = "http"
	// FetchErrorNetwork is a request that never completed
	FetchErrorNetwork FetchErrorKind = "network"
	// FetchErrorDecode is a response body that was not the expected JSON
	FetchErrorDecode FetchErrorKind = "decode"
)

// FetchError is returned by SearchAPI implementations. The kind and status
// are diagnostic only; callers show users a single generic message.
type FetchError struct {
	Kind       FetchErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == FetchErrorHTTP:
		return fmt.Sprintf("%s: search api returned status %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Endpoint, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
