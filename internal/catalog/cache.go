package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(parts ...string) string
}

// CachedService is a read-through cache in front of another catalog Service.
// Cache failures are logged and the origin is consulted instead.
type CachedService struct {
	origin  Service
	cache   cacheStore
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.CatalogMetrics
}

// NewCachedService wraps origin with cache. When cache is nil or ttl is not
// positive the origin is returned unchanged.
func NewCachedService(origin Service, cache cacheStore, ttl time.Duration, logg *logger.Logger, m *metrics.CatalogMetrics) Service {
	if cache == nil || ttl <= 0 {
		return origin
	}
	return &CachedService{origin: origin, cache: cache, ttl: ttl, logg: logg, metrics: m}
}

func (s *CachedService) ListProducts(ctx context.Context) ([]Product, error) {
	return readThrough(ctx, s, s.cache.CatalogKey("products"), func() ([]Product, error) {
		return s.origin.ListProducts(ctx)
	})
}

func (s *CachedService) GetProduct(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return s.origin.GetProduct(ctx, id)
	}
	return readThrough(ctx, s, s.cache.CatalogKey("product", strconv.Itoa(id)), func() (*Product, error) {
		return s.origin.GetProduct(ctx, id)
	})
}

func (s *CachedService) ListProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return s.origin.ListProductsByCategory(ctx, category)
	}
	return readThrough(ctx, s, s.cache.CatalogKey("category", trimmed), func() ([]Product, error) {
		return s.origin.ListProductsByCategory(ctx, trimmed)
	})
}

func (s *CachedService) ListCategories(ctx context.Context) ([]string, error) {
	return readThrough(ctx, s, s.cache.CatalogKey("categories"), func() ([]string, error) {
		return s.origin.ListCategories(ctx)
	})
}

func readThrough[T any](ctx context.Context, s *CachedService, key string, load func() (T, error)) (T, error) {
	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		decodeErr := json.Unmarshal([]byte(raw), &cached)
		if decodeErr == nil {
			s.metrics.IncCache("hit")
			return cached, nil
		}
		s.warn(ctx, key, fmt.Errorf("decode cached entry: %w", decodeErr))
		s.metrics.IncCache("error")
	case errors.Is(err, redis.Nil):
		s.metrics.IncCache("miss")
	default:
		s.warn(ctx, key, err)
		s.metrics.IncCache("error")
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.warn(ctx, key, fmt.Errorf("encode cache entry: %w", err))
		return value, nil
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.warn(ctx, key, err)
	}
	return value, nil
}

func (s *CachedService) warn(ctx context.Context, key string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), fmt.Sprintf("catalog cache: %v", err))
}
