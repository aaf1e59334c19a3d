package session

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

type memoryEntry struct {
	session   entities.Session
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory. Expired entries
// are dropped on access and swept on every save.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionRepository creates an in-memory session store
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return newMemorySessionRepository(ttl, time.Now)
}

func newMemorySessionRepository(ttl time.Duration, now func() time.Time) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      now,
	}
}

var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

// Get returns a copy of the stored session
func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || r.expired(entry) {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	s := entry.session
	return &s, nil
}

// Save stores a copy of the session and refreshes its expiry
func (r *MemorySessionRepository) Save(ctx context.Context, session *entities.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.sessions {
		if r.expired(entry) {
			delete(r.sessions, id)
		}
	}

	entry := memoryEntry{session: *session}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions[session.ID] = entry
	return nil
}

// Update applies fn to a copy of the session under the store lock
func (r *MemorySessionRepository) Update(ctx context.Context, id string, fn func(*entities.Session) error) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok || r.expired(entry) {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	s := entry.session
	if err := fn(&s); err != nil {
		return nil, err
	}

	entry.session = s
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions[id] = entry

	out := s
	return &out, nil
}

// Delete removes a session
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt)
}
