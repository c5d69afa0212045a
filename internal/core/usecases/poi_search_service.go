package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
	defaultSearchTTL   = 600
)

// POISearchService lets organizers and participants look up places by name.
type POISearchService struct {
	places   ports.PlaceSearcher
	cache    ports.CacheService
	cacheTTL int
}

// NewPOISearchService creates a new POISearchService. cache may be nil.
func NewPOISearchService(places ports.PlaceSearcher, cache ports.CacheService, cacheTTLSeconds int) *POISearchService {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = defaultSearchTTL
	}
	return &POISearchService{places: places, cache: cache, cacheTTL: cacheTTLSeconds}
}

// Search returns places matching query near the given point.
func (s *POISearchService) Search(ctx context.Context, query string, near domain.GeoPoint, limit int) ([]domain.PlaceResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidInput)
	}
	if err := near.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	// Try cache
	cacheKey := fmt.Sprintf("pois:search:%s:%.3f:%.3f:%d", strings.ToLower(query), near.Lat, near.Lng, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var results []domain.PlaceResult
			if err := json.Unmarshal(data, &results); err == nil {
				metrics.CacheHits.WithLabelValues("poi_search").Inc()
				return results, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("poi_search").Inc()
	}

	results, err := s.places.Search(ctx, query, near, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(results); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return results, nil
}
