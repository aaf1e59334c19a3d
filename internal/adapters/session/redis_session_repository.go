package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
	redisclient "github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

const (
	sessionKeyPrefix = "session:"

	// maxUpdateAttempts bounds optimistic retries of one Update
	maxUpdateAttempts = 10
)

// RedisSessionRepository stores sessions as JSON with a sliding TTL, so
// several API instances can serve the same session. Update runs as a
// WATCH/MULTI transaction, so concurrent writers never overwrite each other.
type RedisSessionRepository struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisSessionRepository creates a Redis backed session store
func NewRedisSessionRepository(client *redisclient.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

var _ repositories.SessionRepository = (*RedisSessionRepository)(nil)

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get loads and decodes a session
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	return load(ctx, r.client.Client(), id)
}

// load reads a session through c, which is either the client or a
// transaction holding a WATCH on the key.
func load(ctx context.Context, c redis.Cmdable, id string) (*entities.Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// Update reads, modifies and writes the session inside an optimistic
// transaction. When another writer changes the key between the read and the
// write, the transaction is discarded and fn runs again on the fresh state.
func (r *RedisSessionRepository) Update(ctx context.Context, id string, fn func(*entities.Session) error) (*entities.Session, error) {
	key := sessionKey(id)
	var updated *entities.Session

	txf := func(tx *redis.Tx) error {
		session, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session %s: %w", id, err)
		}

		// Fails with redis.TxFailedErr if the key changed since WATCH
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = session
		return nil
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.client.Client().Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update session %s: gave up after %d conflicting writes", id, maxUpdateAttempts)
}

// Save encodes the session and refreshes its TTL
func (r *RedisSessionRepository) Save(ctx context.Context, session *entities.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	if err := r.client.Client().Set(ctx, sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Client().Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
