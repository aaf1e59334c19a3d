package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

const searchEventsTable = "search_events"

const createSearchEventsTable = `
CREATE TABLE IF NOT EXISTS search_events (
	id           UUID PRIMARY KEY,
	session_id   TEXT,
	domain       TEXT NOT NULL,
	flow         TEXT NOT NULL,
	query        TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	error_kind   TEXT,
	result_count INTEGER NOT NULL DEFAULT 0,
	latency_ms   INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_events_outcome_created ON search_events (outcome, created_at DESC);
`

var searchEventColumns = []interface{}{
	"id", "session_id", "domain", "flow", "query", "outcome",
	"error_kind", "result_count", "latency_ms", "created_at",
}

// SearchAnalyticsAdapter implements SearchAnalyticsRepository on PostgreSQL
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) *SearchAnalyticsAdapter {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.SearchAnalyticsRepository = (*SearchAnalyticsAdapter)(nil)

// EnsureSchema creates the search_events table when it does not exist
func (a *SearchAnalyticsAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, createSearchEventsTable); err != nil {
		return apperrors.NewInternalError("failed to create search_events table", err)
	}
	return nil
}

// LogEvent stores one search outcome
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	record := goqu.Record{
		"id":           event.ID,
		"session_id":   sql.NullString{String: event.SessionID, Valid: event.SessionID != ""},
		"domain":       string(event.Domain),
		"flow":         string(event.Flow),
		"query":        event.Query,
		"outcome":      string(event.Outcome),
		"error_kind":   sql.NullString{String: event.ErrorKind, Valid: event.ErrorKind != ""},
		"result_count": event.ResultCount,
		"latency_ms":   event.LatencyMs,
		"created_at":   event.CreatedAt,
	}

	query, args, err := a.db.Insert(searchEventsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}
	return nil
}

// GetZeroResultSearches returns the most recent successful searches that found nothing
func (a *SearchAnalyticsAdapter) GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return a.list(ctx, goqu.Ex{
		"outcome":      string(entities.SearchOutcomeSuccess),
		"result_count": 0,
	}, limit)
}

// GetFailedSearches returns the most recent searches that failed upstream
func (a *SearchAnalyticsAdapter) GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return a.list(ctx, goqu.Ex{
		"outcome": string(entities.SearchOutcomeFailed),
	}, limit)
}

func (a *SearchAnalyticsAdapter) list(ctx context.Context, where goqu.Ex, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.Select(searchEventColumns...).
		From(searchEventsTable).
		Where(where).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query search events", err)
	}
	defer rows.Close()

	events := make([]*entities.SearchEvent, 0)
	for rows.Next() {
		e := &entities.SearchEvent{}
		var sessionID, errorKind sql.NullString
		if err := rows.Scan(
			&e.ID,
			&sessionID,
			&e.Domain,
			&e.Flow,
			&e.Query,
			&e.Outcome,
			&errorKind,
			&e.ResultCount,
			&e.LatencyMs,
			&e.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		e.SessionID = sessionID.String
		e.ErrorKind = errorKind.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read search events", err)
	}

	return events, nil
}
