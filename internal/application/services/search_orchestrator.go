package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

// SearchOrchestrator runs the hospital and insurance search flows against
// the upstream search API and records every outcome in the session. Fetch
// failures become session state; only session and input problems are
// returned as errors.
type SearchOrchestrator struct {
	sessions *SessionService
	api      providers.SearchAPI
	policy   StalePolicy
	tracker  SearchTracker
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewSearchOrchestrator creates a search orchestrator. tracker and metrics may be nil.
func NewSearchOrchestrator(
	sessions *SessionService,
	api providers.SearchAPI,
	policy StalePolicy,
	tracker SearchTracker,
	metrics *observability.Metrics,
) *SearchOrchestrator {
	if policy == "" {
		policy = StalePolicyLatestIssued
	}
	return &SearchOrchestrator{
		sessions: sessions,
		api:      api,
		policy:   policy,
		tracker:  tracker,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SearchHospitalsByName searches hospitals by name.
func (o *SearchOrchestrator) SearchHospitalsByName(ctx context.Context, sessionID, query string) (*entities.Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	return execute(ctx, o, sessionID, searchRun[entities.Hospital]{
		flow:  entities.SearchFlowHospitalName,
		query: query,
		fetch: func(ctx context.Context) ([]entities.Hospital, error) {
			return o.api.SearchHospitals(ctx, query)
		},
		begin:  o.beginHospitals,
		settle: o.settleHospitals,
	})
}

// SearchHospitalsByRadius searches hospitals within radius of an address.
func (o *SearchOrchestrator) SearchHospitalsByRadius(ctx context.Context, sessionID, address string, radius float64) (*entities.Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.NewValidationError("address is required")
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return nil, apperrors.NewValidationError("radius must be a positive number")
	}

	return execute(ctx, o, sessionID, searchRun[entities.Hospital]{
		flow:  entities.SearchFlowHospitalRadius,
		query: address + ";radius=" + strconv.FormatFloat(radius, 'f', -1, 64),
		fetch: func(ctx context.Context) ([]entities.Hospital, error) {
			return o.api.SearchHospitalsByRadius(ctx, address, radius)
		},
		begin:  o.beginHospitals,
		settle: o.settleHospitals,
	})
}

// SearchInsurancePlans searches plans with the user's form fields. An empty
// form is passed through as is.
func (o *SearchOrchestrator) SearchInsurancePlans(ctx context.Context, sessionID string, form entities.InsuranceSearchForm) (*entities.Session, error) {
	if form == nil {
		form = entities.InsuranceSearchForm{}
	}

	query, err := json.Marshal(form)
	if err != nil {
		return nil, apperrors.NewValidationError("insurance form must be a JSON object")
	}

	return execute(ctx, o, sessionID, searchRun[entities.InsurancePlan]{
		flow:  entities.SearchFlowInsurance,
		query: string(query),
		fetch: func(ctx context.Context) ([]entities.InsurancePlan, error) {
			return o.api.SearchInsurancePlans(ctx, form)
		},
		begin: func(s *entities.Session, now time.Time) uint64 {
			var token uint64
			s.Insurance, token = BeginInsuranceSearch(s.Insurance, now)
			return token
		},
		settle: func(s *entities.Session, token uint64, plans []entities.InsurancePlan, fetchErr error, now time.Time) bool {
			var applied bool
			if fetchErr != nil {
				s.Insurance, applied = FailInsuranceSearch(s.Insurance, token, o.policy, now)
			} else {
				s.Insurance, applied = ResolveInsuranceSearch(s.Insurance, token, plans, o.policy, now)
			}
			return applied
		},
	})
}

// ApplyHospitalFilters re-filters the session's hospital results. Without a
// full result list the session is returned unchanged.
func (o *SearchOrchestrator) ApplyHospitalFilters(ctx context.Context, sessionID string, criteria entities.HospitalFilterCriteria) (*entities.Session, error) {
	return o.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		s.Hospitals, _ = FilterHospitalResults(s.Hospitals, criteria)
		return nil
	})
}

// ApplyInsuranceFilters re-filters the session's insurance results.
func (o *SearchOrchestrator) ApplyInsuranceFilters(ctx context.Context, sessionID string, criteria entities.InsuranceFilterCriteria) (*entities.Session, error) {
	if err := criteria.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return o.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		s.Insurance, _ = FilterInsuranceResults(s.Insurance, criteria)
		return nil
	})
}

func (o *SearchOrchestrator) beginHospitals(s *entities.Session, now time.Time) uint64 {
	var token uint64
	s.Hospitals, token = BeginHospitalSearch(s.Hospitals, now)
	return token
}

func (o *SearchOrchestrator) settleHospitals(s *entities.Session, token uint64, hospitals []entities.Hospital, fetchErr error, now time.Time) bool {
	var applied bool
	if fetchErr != nil {
		s.Hospitals, applied = FailHospitalSearch(s.Hospitals, token, o.policy, now)
	} else {
		s.Hospitals, applied = ResolveHospitalSearch(s.Hospitals, token, hospitals, o.policy, now)
	}
	return applied
}

type searchRun[T any] struct {
	flow   entities.SearchFlow
	query  string
	fetch  func(ctx context.Context) ([]T, error)
	begin  func(s *entities.Session, now time.Time) uint64
	settle func(s *entities.Session, token uint64, results []T, fetchErr error, now time.Time) bool
}

// execute is the shared begin, fetch, settle cycle. The session lock is not
// held while the upstream call is in flight, so a newer search on the same
// domain can begin before this one settles.
func execute[T any](ctx context.Context, o *SearchOrchestrator, sessionID string, run searchRun[T]) (*entities.Session, error) {
	var token uint64
	if _, err := o.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		token = run.begin(s, o.now())
		return nil
	}); err != nil {
		return nil, err
	}

	start := time.Now()
	results, fetchErr := run.fetch(ctx)
	elapsed := time.Since(start)

	// The outcome is stored even if the caller has gone away, otherwise the
	// session would stay in loading.
	var applied bool
	session, err := o.sessions.Update(context.WithoutCancel(ctx), sessionID, func(s *entities.Session) error {
		applied = run.settle(s, token, results, fetchErr, o.now())
		return nil
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("session_id", sessionID).
			Str("flow", string(run.flow)).
			Msg("search outcome not stored")
		return nil, err
	}

	o.report(ctx, sessionID, run.flow, run.query, token, len(results), fetchErr, applied, elapsed)

	return session, err
}

func (o *SearchOrchestrator) report(ctx context.Context, sessionID string, flow entities.SearchFlow, query string, token uint64, count int, fetchErr error, applied bool, elapsed time.Duration) {
	logger := observability.LoggerFromContext(ctx).With().
		Str("session_id", sessionID).
		Str("flow", string(flow)).
		Uint64("token", token).
		Dur("elapsed", elapsed).
		Logger()

	outcome := entities.SearchOutcomeSuccess
	var errorKind string

	if fetchErr != nil {
		outcome = entities.SearchOutcomeFailed
		errorKind = "unknown"
		event := logger.Warn().Err(fetchErr)
		var fe *providers.FetchError
		if errors.As(fetchErr, &fe) {
			errorKind = string(fe.Kind)
			event = event.Str("endpoint", fe.Endpoint).Int("status_code", fe.StatusCode)
		}
		event.Str("error_kind", errorKind).Msg("search request failed")
	}

	if !applied {
		outcome = entities.SearchOutcomeStale
		logger.Info().Msg("dropped stale search response")
	}

	observability.RecordSearchMetric(ctx, o.metrics, string(flow), string(outcome), elapsed)

	if o.tracker == nil {
		return
	}
	o.tracker.TrackSearch(ctx, &entities.SearchEvent{
		SessionID:   sessionID,
		Domain:      flow.Domain(),
		Flow:        flow,
		Query:       query,
		Outcome:     outcome,
		ErrorKind:   errorKind,
		ResultCount: count,
		LatencyMs:   int(elapsed.Milliseconds()),
	})
}
