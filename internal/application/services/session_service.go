package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

const sessionLockStripes = 64

// sessionLocks serialises updates to one session within this process, so
// the repository's optimistic transaction only has to resolve conflicts with
// other processes. Ids hash onto a fixed set of mutexes, so unrelated
// sessions may occasionally share a stripe.
type sessionLocks struct {
	stripes [sessionLockStripes]sync.Mutex
}

func (l *sessionLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l.stripes[h.Sum32()%sessionLockStripes]
	m.Lock()
	return m.Unlock
}

// TabSelection changes the shell's tabs. Empty fields are left as they are.
type TabSelection struct {
	ActiveTab          entities.Tab                `json:"active_tab,omitempty"`
	HospitalSearchMode entities.HospitalSearchMode `json:"hospital_search_mode,omitempty"`
}

// SessionService owns the search sessions: creation, tab state and the
// atomic update cycle every state transition goes through.
type SessionService struct {
	repo   repositories.SessionRepository
	locks  *sessionLocks
	events providers.EventBus
	now    func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(repo repositories.SessionRepository) *SessionService {
	return &SessionService{
		repo:  repo,
		locks: &sessionLocks{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithEventBus makes the service announce every stored session on bus.
func (s *SessionService) WithEventBus(bus providers.EventBus) *SessionService {
	s.events = bus
	return s
}

// Create starts a session on the hospital tab with name search selected.
func (s *SessionService) Create(ctx context.Context) (*entities.Session, error) {
	session := entities.NewSession(uuid.New().String(), s.now())
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("failed to create session", err)
	}
	s.publish(ctx, session)
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("session id is required")
	}
	return s.repo.Get(ctx, id)
}

// Update loads a session, applies fn and saves the result as one atomic
// step. fn may run again if another process wrote the session first; when it
// returns an error nothing is saved.
func (s *SessionService) Update(ctx context.Context, id string, fn func(*entities.Session) error) (*entities.Session, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("session id is required")
	}

	session, err := s.update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, session)
	return session, nil
}

func (s *SessionService) update(ctx context.Context, id string, fn func(*entities.Session) error) (*entities.Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	session, err := s.repo.Update(ctx, id, func(session *entities.Session) error {
		if err := fn(session); err != nil {
			return err
		}
		session.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("failed to save session", err)
	}
	return session, nil
}

// publish is best effort.
func (s *SessionService) publish(ctx context.Context, session *entities.Session) {
	if s.events == nil {
		return
	}
	event := entities.NewSessionEvent(uuid.New().String(), session, s.now())
	if err := s.events.Publish(ctx, providers.GetSessionChannel(session.ID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("session_id", session.ID).
			Msg("failed to publish session event")
	}
}

// SelectTabs switches the top-level tab and/or the hospital search mode.
func (s *SessionService) SelectTabs(ctx context.Context, id string, sel TabSelection) (*entities.Session, error) {
	if sel.ActiveTab != "" && !sel.ActiveTab.Valid() {
		return nil, apperrors.NewValidationErrorf("unknown tab %q", sel.ActiveTab)
	}
	if sel.HospitalSearchMode != "" && !sel.HospitalSearchMode.Valid() {
		return nil, apperrors.NewValidationErrorf("unknown hospital search mode %q", sel.HospitalSearchMode)
	}
	if sel.ActiveTab == "" && sel.HospitalSearchMode == "" {
		return nil, apperrors.NewValidationError("active_tab or hospital_search_mode is required")
	}

	return s.Update(ctx, id, func(session *entities.Session) error {
		if sel.ActiveTab != "" {
			session.ActiveTab = sel.ActiveTab
		}
		if sel.HospitalSearchMode != "" {
			session.HospitalSearchMode = sel.HospitalSearchMode
		}
		return nil
	})
}

// SelectTab switches the top-level tab.
func (s *SessionService) SelectTab(ctx context.Context, id string, tab entities.Tab) (*entities.Session, error) {
	if tab == "" {
		return nil, apperrors.NewValidationError("tab is required")
	}
	return s.SelectTabs(ctx, id, TabSelection{ActiveTab: tab})
}

// SelectHospitalSearchMode switches between the name and address forms.
func (s *SessionService) SelectHospitalSearchMode(ctx context.Context, id string, mode entities.HospitalSearchMode) (*entities.Session, error) {
	if mode == "" {
		return nil, apperrors.NewValidationError("hospital search mode is required")
	}
	return s.SelectTabs(ctx, id, TabSelection{HospitalSearchMode: mode})
}

// View renders the session's active tab.
func (s *SessionService) View(session *entities.Session) entities.View {
	return BuildView(session)
}

// BuildView composes what the shell shows for the active tab. The filter
// panel only appears when a full result list is present, and the listed
// results are always the filtered list.
func BuildView(session *entities.Session) entities.View {
	view := entities.View{
		SessionID: session.ID,
		ActiveTab: session.ActiveTab,
	}

	switch session.ActiveTab {
	case entities.TabInsuranceSearch:
		view.Form = entities.FormInsurance
		view.Insurance = insuranceView(session.Insurance)
	default:
		view.ActiveTab = entities.TabHospitalSearch
		view.Form = entities.FormHospitalName
		if session.HospitalSearchMode == entities.HospitalSearchByAddress {
			view.Form = entities.FormHospitalAddress
		}
		view.Hospitals = hospitalView(session.HospitalSearchMode, session.Hospitals)
	}

	return view
}

func hospitalView(mode entities.HospitalSearchMode, r entities.HospitalResults) *entities.HospitalView {
	v := &entities.HospitalView{
		SearchMode: mode,
		Status:     r.Status,
		Loading:    r.Loading(),
		Error:      r.Error,
		Results:    r.Filtered,
	}
	if r.All != nil {
		options := r.Options
		criteria := r.Criteria
		v.FilterOptions = &options
		v.Criteria = &criteria
		v.TotalCount = len(r.All)
	}
	return v
}

func insuranceView(r entities.InsuranceResults) *entities.InsuranceView {
	v := &entities.InsuranceView{
		Status:  r.Status,
		Loading: r.Loading(),
		Error:   r.Error,
		Results: r.Filtered,
	}
	if r.All != nil {
		options := r.Options
		criteria := r.Criteria
		v.FilterOptions = &options
		v.Criteria = &criteria
		v.TotalCount = len(r.All)
	}
	return v
}
