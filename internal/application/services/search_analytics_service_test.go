package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

type mockAnalyticsRepository struct {
	mock.Mock
}

func (m *mockAnalyticsRepository) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockAnalyticsRepository) GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*entities.SearchEvent), args.Error(1)
}

func (m *mockAnalyticsRepository) GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*entities.SearchEvent), args.Error(1)
}

func TestSearchAnalyticsService_TrackSearchLogsInBackground(t *testing.T) {
	repo := &mockAnalyticsRepository{}
	logged := make(chan *entities.SearchEvent, 1)
	repo.On("LogEvent", mock.Anything, mock.AnythingOfType("*entities.SearchEvent")).
		Run(func(args mock.Arguments) { logged <- args.Get(1).(*entities.SearchEvent) }).
		Return(nil)

	svc := services.NewSearchAnalyticsService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	svc.TrackSearch(ctx, &entities.SearchEvent{Flow: entities.SearchFlowInsurance, Outcome: entities.SearchOutcomeSuccess})
	cancel()

	select {
	case event := <-logged:
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.CreatedAt.IsZero())
		assert.Equal(t, entities.SearchFlowInsurance, event.Flow)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not logged")
	}
}

func TestSearchAnalyticsService_TrackSearchSwallowsErrors(t *testing.T) {
	repo := &mockAnalyticsRepository{}
	called := make(chan struct{})
	repo.On("LogEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { close(called) }).
		Return(errors.New("db down"))

	services.NewSearchAnalyticsService(repo).TrackSearch(context.Background(), &entities.SearchEvent{})

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("LogEvent was not called")
	}
}

func TestSearchAnalyticsService_LimitsAreNormalised(t *testing.T) {
	repo := &mockAnalyticsRepository{}
	failed := []*entities.SearchEvent{{ID: "e1", Outcome: entities.SearchOutcomeFailed}}
	repo.On("GetFailedSearches", mock.Anything, 50).Return(failed, nil)
	repo.On("GetZeroResultSearches", mock.Anything, 20).Return([]*entities.SearchEvent{}, nil)

	svc := services.NewSearchAnalyticsService(repo)

	got, err := svc.GetFailedSearches(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, failed, got)

	_, err = svc.GetZeroResultSearches(context.Background(), 20)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
