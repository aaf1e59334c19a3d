package repositories

import (
	"context"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// SearchAnalyticsRepository persists search outcomes
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
	GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}
