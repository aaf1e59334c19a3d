package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
)

const defaultAnalyticsLimit = 50

// SearchTracker receives search outcomes. Implementations must not block.
type SearchTracker interface {
	TrackSearch(ctx context.Context, event *entities.SearchEvent)
}

type SearchAnalyticsService struct {
	repo repositories.SearchAnalyticsRepository
}

func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo}
}

// TrackSearch stores the event in the background so the search response
// is never held up by analytics storage.
func (s *SearchAnalyticsService) TrackSearch(ctx context.Context, event *entities.SearchEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	go func() {
		// The request context is usually done by the time this runs
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			log.Warn().Err(err).
				Str("flow", string(event.Flow)).
				Str("outcome", string(event.Outcome)).
				Msg("failed to log search event")
		}
	}()
}

func (s *SearchAnalyticsService) GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.GetZeroResultSearches(ctx, normalizeLimit(limit))
}

func (s *SearchAnalyticsService) GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.GetFailedSearches(ctx, normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultAnalyticsLimit
	}
	return limit
}
