package ports

import (
	"context"
	"time"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// RideRepository persists rides.
type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	GetByID(ctx context.Context, id string) (*domain.Ride, error)
	SetWaypoints(ctx context.Context, id string, waypoints []domain.RouteWaypoint) error
	// SaveGeneratedRoutes replaces the whole route set and marks the ride generated.
	SaveGeneratedRoutes(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error
}

// PreferenceRepository persists participant preferences.
type PreferenceRepository interface {
	// Upsert inserts a preference, or replaces the content of the existing one
	// for the same (ride, visitor token) pair. It reports whether a row was replaced.
	Upsert(ctx context.Context, pref *domain.Preference) (bool, error)
	// ListByRide returns preferences ordered by submission time.
	ListByRide(ctx context.Context, rideID string) ([]domain.Preference, error)
	ListByRidePage(ctx context.Context, rideID string, offset, limit int) ([]domain.Preference, error)
	CountByRide(ctx context.Context, rideID string) (int, error)
}
