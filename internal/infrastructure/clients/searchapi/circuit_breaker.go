package searchapi

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/pkg/config"
)

// CircuitBreakerClient wraps a SearchAPI with circuit breaking. Only
// network failures and 5xx responses count against the breaker.
type CircuitBreakerClient struct {
	client providers.SearchAPI
	cb     *gobreaker.CircuitBreaker
}

var _ providers.SearchAPI = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient creates a new circuit breaker client
func NewCircuitBreakerClient(client providers.SearchAPI, cfg config.CircuitBreakerConfig, name string) *CircuitBreakerClient {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			event := log.Info()
			if to == gobreaker.StateOpen {
				event = log.Warn()
			}
			event.Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("search api circuit breaker changed state")
		},
	}

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

func countsAsFailure(err error) bool {
	var fe *providers.FetchError
	if !errors.As(err, &fe) {
		return true
	}
	switch fe.Kind {
	case providers.FetchErrorNetwork:
		return true
	case providers.FetchErrorHTTP:
		return fe.StatusCode >= 500
	default:
		return false
	}
}

// State returns the current breaker state
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

// SearchHospitals implements SearchAPI
func (c *CircuitBreakerClient) SearchHospitals(ctx context.Context, query string) ([]entities.Hospital, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.SearchHospitals(ctx, query)
	})
	if err != nil {
		return nil, c.wrap(hospitalsPath, err)
	}
	return resp.([]entities.Hospital), nil
}

// SearchHospitalsByRadius implements SearchAPI
func (c *CircuitBreakerClient) SearchHospitalsByRadius(ctx context.Context, address string, radius float64) ([]entities.Hospital, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.SearchHospitalsByRadius(ctx, address, radius)
	})
	if err != nil {
		return nil, c.wrap(hospitalsRadiusPath, err)
	}
	return resp.([]entities.Hospital), nil
}

// SearchInsurancePlans implements SearchAPI
func (c *CircuitBreakerClient) SearchInsurancePlans(ctx context.Context, form entities.InsuranceSearchForm) ([]entities.InsurancePlan, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.SearchInsurancePlans(ctx, form)
	})
	if err != nil {
		return nil, c.wrap(insurancePlansPath, err)
	}
	return resp.([]entities.InsurancePlan), nil
}

// wrap reports a rejected call as a network failure; the request never left.
func (c *CircuitBreakerClient) wrap(endpoint string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &providers.FetchError{Kind: providers.FetchErrorNetwork, Endpoint: endpoint, Err: err}
	}
	return err
}
