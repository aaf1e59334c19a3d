package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/healthcaresearch/backend/pkg/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemorySessionRepository_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newMemorySessionRepository(time.Minute, clock.Now)

	s := entities.NewSession("s1", clock.now)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got.ActiveTab = entities.TabInsuranceSearch
	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.TabHospitalSearch, again.ActiveTab, "stored session must not alias returned copies")

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newMemorySessionRepository(time.Minute, clock.Now)

	require.NoError(t, repo.Save(ctx, entities.NewSession("s1", clock.now)))

	clock.now = clock.now.Add(59 * time.Second)
	_, err := repo.Get(ctx, "s1")
	require.NoError(t, err)

	// saving refreshes the expiry
	s, _ := repo.Get(ctx, "s1")
	require.NoError(t, repo.Save(ctx, s))
	clock.now = clock.now.Add(59 * time.Second)
	_, err = repo.Get(ctx, "s1")
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = repo.Get(ctx, "s1")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, repo.Save(ctx, entities.NewSession("s2", clock.now)))
	assert.Len(t, repo.sessions, 1)
}

func TestMemorySessionRepository_Update(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newMemorySessionRepository(time.Minute, clock.Now)
	require.NoError(t, repo.Save(ctx, entities.NewSession("s1", clock.now)))

	got, err := repo.Update(ctx, "s1", func(s *entities.Session) error {
		s.ActiveTab = entities.TabInsuranceSearch
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TabInsuranceSearch, got.ActiveTab)

	got.ActiveTab = entities.TabHospitalSearch
	stored, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.TabInsuranceSearch, stored.ActiveTab)

	// a failing fn stores nothing
	_, err = repo.Update(ctx, "s1", func(s *entities.Session) error {
		s.ActiveTab = entities.TabHospitalSearch
		return apperrors.NewValidationError("nope")
	})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	stored, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.TabInsuranceSearch, stored.ActiveTab)

	_, err = repo.Update(ctx, "missing", func(s *entities.Session) error { return nil })
	assert.True(t, apperrors.IsNotFound(err))
}
