package ports

import (
	"context"
	"time"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// RoutingProvider computes cycling paths. Implementations never do path-finding
// themselves in this codebase; they call an external routing service.
type RoutingProvider interface {
	// Route requests a path visiting points in the given order (at least two).
	Route(ctx context.Context, points []domain.GeoPoint) (*domain.RouteGeometry, error)
	// RoundTrip requests a loop of roughly distanceKm starting and ending at origin.
	// Distinct seeds bias the provider toward distinct loops.
	RoundTrip(ctx context.Context, origin domain.GeoPoint, distanceKm float64, seed *int64) (*domain.RouteGeometry, error)
}

// POIProvider finds points of interest for interest tags. It never fails outward:
// provider errors and unsupported tags yield an empty result.
type POIProvider interface {
	Query(ctx context.Context, center domain.GeoPoint, radiusKm float64, categories []string) []domain.POI
}

// PlaceSearcher performs free-text place search biased toward a location.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, near domain.GeoPoint, limit int) ([]domain.PlaceResult, error)
}

// EventPublisher publishes ride lifecycle events to a message broker.
type EventPublisher interface {
	PublishRideEvent(ctx context.Context, event domain.RideEvent) error
}

// EventSubscriber subscribes to ride lifecycle events.
type EventSubscriber interface {
	SubscribeGenerateRequests(ctx context.Context, handler func(ctx context.Context, event domain.RideEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Locker provides a best-effort distributed mutex keyed by name.
type Locker interface {
	// TryLock acquires key for ttl. It returns false if someone else holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
