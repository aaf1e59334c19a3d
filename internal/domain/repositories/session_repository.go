package repositories

import (
	"context"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// SessionRepository stores search sessions
type SessionRepository interface {
	// Get retrieves a session; a missing or expired session is a not found error
	Get(ctx context.Context, id string) (*entities.Session, error)

	// Save creates or replaces a session and refreshes its expiry
	Save(ctx context.Context, session *entities.Session) error

	// Update atomically loads a session, applies fn and stores the result.
	// fn may run more than once when another writer gets in first, so it
	// must only derive the new state from the session it is given. Nothing
	// is stored when fn returns an error.
	Update(ctx context.Context, id string, fn func(*entities.Session) error) (*entities.Session, error)

	// Delete removes a session
	Delete(ctx context.Context, id string) error
}
