package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// RideRepo implements ports.RideRepository with pgx.
type RideRepo struct {
	db *DB
}

// NewRideRepo creates a new RideRepo.
func NewRideRepo(db *DB) *RideRepo {
	return &RideRepo{db: db}
}

// Create inserts a new ride.
func (r *RideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	categories, err := marshalJSON(ride.Categories)
	if err != nil {
		return err
	}
	waypoints, err := marshalJSON(nonNilWaypoints(ride.SelectedWaypoints))
	if err != nil {
		return err
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO rides (id, name, ride_date, organizer_token, pin_hash, status, categories, selected_waypoints)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7::jsonb, $8::jsonb)
		RETURNING created_at
	`, ride.ID, ride.Name, ride.Date, ride.OrganizerToken, ride.PINHash, ride.Status, categories, waypoints,
	).Scan(&ride.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

// GetByID returns a ride with its selected waypoints and generated routes.
func (r *RideRepo) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	var (
		ride                          domain.Ride
		categories, waypoints, routes []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(ride_date, ''), organizer_token, pin_hash, status,
		       categories, selected_waypoints, generated_routes, generated_at, created_at
		FROM rides WHERE id = $1
	`, id).Scan(
		&ride.ID, &ride.Name, &ride.Date, &ride.OrganizerToken, &ride.PINHash, &ride.Status,
		&categories, &waypoints, &routes, &ride.GeneratedAt, &ride.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "ride", id)
	}

	if err := unmarshalJSON(categories, &ride.Categories); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(waypoints, &ride.SelectedWaypoints); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(routes, &ride.GeneratedRoutes); err != nil {
		return nil, err
	}
	ride.SelectedWaypoints = nonNilWaypoints(ride.SelectedWaypoints)
	return &ride, nil
}

// SetWaypoints replaces the organizer-selected waypoints.
func (r *RideRepo) SetWaypoints(ctx context.Context, id string, waypoints []domain.RouteWaypoint) error {
	raw, err := marshalJSON(nonNilWaypoints(waypoints))
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE rides SET selected_waypoints = $2::jsonb WHERE id = $1
	`, id, raw)
	if err != nil {
		return fmt.Errorf("update waypoints: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ride %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SaveGeneratedRoutes replaces the route set in a single statement, so readers
// never observe a partially written set.
func (r *RideRepo) SaveGeneratedRoutes(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error {
	raw, err := marshalJSON(routes)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE rides
		SET generated_routes = $2::jsonb, status = $3, generated_at = $4
		WHERE id = $1
	`, id, raw, domain.RideGenerated, at)
	if err != nil {
		return fmt.Errorf("save routes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ride %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func nonNilWaypoints(w []domain.RouteWaypoint) []domain.RouteWaypoint {
	if w == nil {
		return []domain.RouteWaypoint{}
	}
	return w
}
