package searchapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
)

const defaultCacheTTL = 2 * time.Minute

// CachedSearchAPI caches successful upstream responses. Failures are never
// cached and cache errors only fall through to the upstream call.
type CachedSearchAPI struct {
	api     providers.SearchAPI
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
}

var _ providers.SearchAPI = (*CachedSearchAPI)(nil)

// NewCachedSearchAPI creates a caching decorator. metrics may be nil.
func NewCachedSearchAPI(api providers.SearchAPI, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) *CachedSearchAPI {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSearchAPI{
		api:     api,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Keys keep the text's case: the backend may match case-sensitively.
func hospitalsByNameKey(query string) string {
	return "hospitals:name:" + strings.TrimSpace(query)
}

func hospitalsByRadiusKey(address string, radius float64) string {
	return fmt.Sprintf("hospitals:radius:%s:%s",
		strings.TrimSpace(address),
		strconv.FormatFloat(radius, 'f', -1, 64))
}

// insurancePlansKey hashes the form; encoding/json sorts map keys so equal
// forms produce equal keys.
func insurancePlansKey(form entities.InsuranceSearchForm) (string, error) {
	data, err := json.Marshal(form)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "insurance:plans:" + hex.EncodeToString(sum[:]), nil
}

// SearchHospitals implements SearchAPI
func (c *CachedSearchAPI) SearchHospitals(ctx context.Context, query string) ([]entities.Hospital, error) {
	return cached(ctx, c, string(entities.SearchFlowHospitalName), hospitalsByNameKey(query), func() ([]entities.Hospital, error) {
		return c.api.SearchHospitals(ctx, query)
	})
}

// SearchHospitalsByRadius implements SearchAPI
func (c *CachedSearchAPI) SearchHospitalsByRadius(ctx context.Context, address string, radius float64) ([]entities.Hospital, error) {
	return cached(ctx, c, string(entities.SearchFlowHospitalRadius), hospitalsByRadiusKey(address, radius), func() ([]entities.Hospital, error) {
		return c.api.SearchHospitalsByRadius(ctx, address, radius)
	})
}

// SearchInsurancePlans implements SearchAPI
func (c *CachedSearchAPI) SearchInsurancePlans(ctx context.Context, form entities.InsuranceSearchForm) ([]entities.InsurancePlan, error) {
	key, err := insurancePlansKey(form)
	if err != nil {
		return c.api.SearchInsurancePlans(ctx, form)
	}
	return cached(ctx, c, string(entities.SearchFlowInsurance), key, func() ([]entities.InsurancePlan, error) {
		return c.api.SearchInsurancePlans(ctx, form)
	})
}

func cached[T any](ctx context.Context, c *CachedSearchAPI, flow, key string, fetch func() ([]T, error)) ([]T, error) {
	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var out []T
		uerr := json.Unmarshal(data, &out)
		if uerr == nil {
			observability.RecordCacheResult(ctx, c.metrics, flow, true)
			return out, nil
		}
		log.Warn().Err(uerr).Str("key", key).Msg("failed to unmarshal cached search response")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("key", key).Msg("search cache read failed")
	}
	observability.RecordCacheResult(ctx, c.metrics, flow, false)

	out, err := fetch()
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		payload, err := json.Marshal(out)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to marshal search response for cache")
			return
		}
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.cache.Set(bgCtx, key, payload, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to cache search response")
		}
	}()

	return out, nil
}
