package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// PreferenceRepo implements ports.PreferenceRepository with pgx.
type PreferenceRepo struct {
	db *DB
}

func NewPreferenceRepo(db *DB) *PreferenceRepo {
	return &PreferenceRepo{db: db}
}

// Upsert inserts pref or replaces the content of the row with the same
// (ride_id, visitor_token). On update the original id is kept and written back
// to pref. xmax is non-zero only for rows touched by ON CONFLICT DO UPDATE.
func (r *PreferenceRepo) Upsert(ctx context.Context, pref *domain.Preference) (bool, error) {
	interests, err := marshalJSON(pref.Interests)
	if err != nil {
		return false, err
	}
	var window *string
	if pref.TimeWindow != nil {
		w, err := marshalJSON(pref.TimeWindow)
		if err != nil {
			return false, err
		}
		window = &w
	}

	var updated bool
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO preferences (id, ride_id, visitor_token, start_lat, start_lng,
		                         distance_km, route_type, interests, time_window, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10)
		ON CONFLICT (ride_id, visitor_token) DO UPDATE
		SET start_lat = EXCLUDED.start_lat, start_lng = EXCLUDED.start_lng,
		    distance_km = EXCLUDED.distance_km, route_type = EXCLUDED.route_type,
		    interests = EXCLUDED.interests, time_window = EXCLUDED.time_window,
		    submitted_at = EXCLUDED.submitted_at
		RETURNING id, (xmax <> 0)
	`, pref.ID, pref.RideID, pref.VisitorToken, pref.Start.Lat, pref.Start.Lng,
		pref.DistanceKm, pref.RouteShape, interests, window, pref.SubmittedAt,
	).Scan(&pref.ID, &updated)
	if err != nil {
		return false, fmt.Errorf("upsert preference: %w", err)
	}
	return updated, nil
}

// ListByRide returns all preferences of a ride in submission order.
func (r *PreferenceRepo) ListByRide(ctx context.Context, rideID string) ([]domain.Preference, error) {
	return r.list(ctx, `
		SELECT id, ride_id, visitor_token, start_lat, start_lng, distance_km,
		       route_type, interests, time_window, submitted_at
		FROM preferences WHERE ride_id = $1
		ORDER BY submitted_at, id
	`, rideID)
}

// ListByRidePage returns one page of preferences in submission order.
func (r *PreferenceRepo) ListByRidePage(ctx context.Context, rideID string, offset, limit int) ([]domain.Preference, error) {
	return r.list(ctx, `
		SELECT id, ride_id, visitor_token, start_lat, start_lng, distance_km,
		       route_type, interests, time_window, submitted_at
		FROM preferences WHERE ride_id = $1
		ORDER BY submitted_at, id
		OFFSET $2 LIMIT $3
	`, rideID, offset, limit)
}

// CountByRide returns the number of participants who submitted.
func (r *PreferenceRepo) CountByRide(ctx context.Context, rideID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM preferences WHERE ride_id = $1`, rideID).Scan(&n)
	return n, err
}

func (r *PreferenceRepo) list(ctx context.Context, sql string, args ...any) ([]domain.Preference, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Preference, error) {
		var (
			p                 domain.Preference
			interests, window []byte
		)
		if err := row.Scan(&p.ID, &p.RideID, &p.VisitorToken, &p.Start.Lat, &p.Start.Lng,
			&p.DistanceKm, &p.RouteShape, &interests, &window, &p.SubmittedAt); err != nil {
			return p, err
		}
		if err := unmarshalJSON(interests, &p.Interests); err != nil {
			return p, err
		}
		if len(window) > 0 {
			p.TimeWindow = &domain.TimeWindow{}
			if err := unmarshalJSON(window, p.TimeWindow); err != nil {
				return p, err
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
