package searchapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/cache"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/searchapi"
	"github.com/zatekoja/healthcaresearch/backend/pkg/config"
)

type mockSearchAPI struct {
	mock.Mock
}

func (m *mockSearchAPI) SearchHospitals(ctx context.Context, query string) ([]entities.Hospital, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Hospital), args.Error(1)
}

func (m *mockSearchAPI) SearchHospitalsByRadius(ctx context.Context, address string, radius float64) ([]entities.Hospital, error) {
	args := m.Called(ctx, address, radius)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Hospital), args.Error(1)
}

func (m *mockSearchAPI) SearchInsurancePlans(ctx context.Context, form entities.InsuranceSearchForm) ([]entities.InsurancePlan, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.InsurancePlan), args.Error(1)
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		ReadyToTripRatio: 0.5,
	}
}

func TestCircuitBreakerClient_TripsOnNetworkFailures(t *testing.T) {
	api := &mockSearchAPI{}
	networkErr := &providers.FetchError{Kind: providers.FetchErrorNetwork, Endpoint: "/api/hospitals", Err: errors.New("connection refused")}
	api.On("SearchHospitals", mock.Anything, "mercy").Return(nil, networkErr).Times(3)

	client := searchapi.NewCircuitBreakerClient(api, breakerConfig(), "search-api-test")

	for i := 0; i < 3; i++ {
		_, err := client.SearchHospitals(context.Background(), "mercy")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.SearchHospitals(context.Background(), "mercy")
	var fe *providers.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, providers.FetchErrorNetwork, fe.Kind)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	api.AssertExpectations(t)
}

func TestCircuitBreakerClient_DecodeAndClientErrorsDoNotTrip(t *testing.T) {
	api := &mockSearchAPI{}
	api.On("SearchHospitals", mock.Anything, "bad").
		Return(nil, &providers.FetchError{Kind: providers.FetchErrorDecode, Endpoint: "/api/hospitals"})
	api.On("SearchHospitalsByRadius", mock.Anything, "nowhere", 5.0).
		Return(nil, &providers.FetchError{Kind: providers.FetchErrorHTTP, Endpoint: "/api/hospitals/radius", StatusCode: 400})

	client := searchapi.NewCircuitBreakerClient(api, breakerConfig(), "search-api-test")

	for i := 0; i < 3; i++ {
		_, _ = client.SearchHospitals(context.Background(), "bad")
		_, _ = client.SearchHospitalsByRadius(context.Background(), "nowhere", 5)
	}

	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestCircuitBreakerClient_PassesThroughResults(t *testing.T) {
	api := &mockSearchAPI{}
	plans := []entities.InsurancePlan{{ID: "p1", MetalLevel: entities.L("Gold")}}
	form := entities.InsuranceSearchForm{"zip": "10001"}
	api.On("SearchInsurancePlans", mock.Anything, form).Return(plans, nil)

	client := searchapi.NewCircuitBreakerClient(api, breakerConfig(), "search-api-test")
	got, err := client.SearchInsurancePlans(context.Background(), form)

	require.NoError(t, err)
	assert.Equal(t, plans, got)
}

func TestCachedSearchAPI_ServesRepeatQueriesFromCache(t *testing.T) {
	api := &mockSearchAPI{}
	hospitals := []entities.Hospital{{EmergencyServices: entities.L("Yes")}}
	api.On("SearchHospitals", mock.Anything, "Mercy").Return(hospitals, nil).Once()

	store := cache.NewMemoryAdapter()
	client := searchapi.NewCachedSearchAPI(api, store, time.Minute, nil)

	first, err := client.SearchHospitals(context.Background(), "Mercy")
	require.NoError(t, err)
	assert.Equal(t, hospitals, first)

	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "hospitals:name:Mercy")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	second, err := client.SearchHospitals(context.Background(), " Mercy ")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, entities.L("Yes"), second[0].EmergencyServices)
	api.AssertExpectations(t)
}

func TestCachedSearchAPI_KeysAreCaseSensitive(t *testing.T) {
	api := &mockSearchAPI{}
	api.On("SearchHospitals", mock.Anything, "Mercy").
		Return([]entities.Hospital{{HospitalType: entities.L("Acute Care Hospitals")}}, nil).Once()
	api.On("SearchHospitals", mock.Anything, "mercy").
		Return([]entities.Hospital{}, nil).Once()
	api.On("SearchHospitalsByRadius", mock.Anything, "1 Main St", 5.0).
		Return([]entities.Hospital{}, nil).Once()
	api.On("SearchHospitalsByRadius", mock.Anything, "1 MAIN ST", 5.0).
		Return([]entities.Hospital{}, nil).Once()

	store := cache.NewMemoryAdapter()
	client := searchapi.NewCachedSearchAPI(api, store, time.Minute, nil)
	ctx := context.Background()

	_, err := client.SearchHospitals(ctx, "Mercy")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "hospitals:name:Mercy")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	lower, err := client.SearchHospitals(ctx, "mercy")
	require.NoError(t, err)
	assert.Empty(t, lower)

	_, err = client.SearchHospitalsByRadius(ctx, "1 Main St", 5)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "hospitals:radius:1 Main St:5")
		return err == nil
	}, time.Second, 10*time.Millisecond)
	_, err = client.SearchHospitalsByRadius(ctx, "1 MAIN ST", 5)
	require.NoError(t, err)

	api.AssertExpectations(t)
}

func TestCachedSearchAPI_DoesNotCacheFailures(t *testing.T) {
	api := &mockSearchAPI{}
	httpErr := &providers.FetchError{Kind: providers.FetchErrorHTTP, Endpoint: "/api/insurance-plans", StatusCode: 502}
	form := entities.InsuranceSearchForm{"zip": "10001"}
	api.On("SearchInsurancePlans", mock.Anything, form).Return(nil, httpErr).Twice()

	client := searchapi.NewCachedSearchAPI(api, cache.NewMemoryAdapter(), time.Minute, nil)

	_, err := client.SearchInsurancePlans(context.Background(), form)
	assert.ErrorIs(t, err, httpErr)
	_, err = client.SearchInsurancePlans(context.Background(), form)
	assert.ErrorIs(t, err, httpErr)
	api.AssertExpectations(t)
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("redis down")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("redis down")
}

func (brokenCache) Delete(ctx context.Context, key string) error {
	return errors.New("redis down")
}

func TestCachedSearchAPI_CacheErrorsFallThrough(t *testing.T) {
	api := &mockSearchAPI{}
	api.On("SearchHospitalsByRadius", mock.Anything, "1 Main St", 10.0).Return([]entities.Hospital{}, nil)

	client := searchapi.NewCachedSearchAPI(api, brokenCache{}, time.Minute, nil)
	got, err := client.SearchHospitalsByRadius(context.Background(), "1 Main St", 10)

	require.NoError(t, err)
	assert.Empty(t, got)
}
