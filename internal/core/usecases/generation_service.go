package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/core/synthesis"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
	"github.com/samirrijal/groupride/internal/pkg/telemetry"
)

const defaultLockTTL = 2 * time.Minute

// RouteSynthesizer produces routes from preferences and optional waypoints.
type RouteSynthesizer interface {
	Synthesize(ctx context.Context, prefs []domain.Preference, waypoints []domain.RouteWaypoint) (*synthesis.Result, error)
}

// Aggregation describes the target a generation run routed for.
type Aggregation struct {
	Centroid           domain.GeoPoint        `json:"centroid"`
	TargetDistanceKm   float64                `json:"target_distance_km"`
	PreferredRouteType domain.RouteShape      `json:"preferred_route_type"`
	RankedCategories   []domain.CategoryCount `json:"ranked_categories"`
	Mode               domain.SynthesisMode   `json:"mode"`
	WaypointCount      int                    `json:"waypoint_count"`
	ParticipantCount   int                    `json:"participant_count"`
}

// GenerationResult is the response of a successful generation.
type GenerationResult struct {
	Routes      []domain.GeneratedRoute `json:"routes"`
	Aggregation Aggregation             `json:"aggregation"`
}

// GenerationService runs route synthesis for a ride and stores the result.
type GenerationService struct {
	rides   ports.RideRepository
	prefs   ports.PreferenceRepository
	synth   RouteSynthesizer
	locker  ports.Locker
	events  ports.EventPublisher
	lockTTL time.Duration
	now     func() time.Time
	tracer  trace.Tracer
}

// NewGenerationService creates a new GenerationService. locker and events may
// be nil; without a locker, runs for the same ride are not serialized.
func NewGenerationService(
	rides ports.RideRepository,
	prefs ports.PreferenceRepository,
	synth RouteSynthesizer,
	locker ports.Locker,
	events ports.EventPublisher,
	lockTTL time.Duration,
) *GenerationService {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &GenerationService{
		rides:   rides,
		prefs:   prefs,
		synth:   synth,
		locker:  locker,
		events:  events,
		lockTTL: lockTTL,
		now:     time.Now,
		tracer:  otel.Tracer(telemetry.TracerGeneration),
	}
}

// Generate checks the organizer token and runs generation synchronously.
func (s *GenerationService) Generate(ctx context.Context, rideID, token string) (*GenerationResult, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(ride, token); err != nil {
		return nil, err
	}
	return s.run(ctx, ride)
}

// GenerateForRide runs generation for a ride whose request was already
// authorized, e.g. by RequestAsync.
func (s *GenerationService) GenerateForRide(ctx context.Context, rideID string) (*GenerationResult, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, ride)
}

// RequestAsync queues a generation for the worker.
func (s *GenerationService) RequestAsync(ctx context.Context, rideID, token string) error {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if err := authorizeOrganizer(ride, token); err != nil {
		return err
	}
	if s.events == nil {
		return errors.New("asynchronous generation is not available")
	}

	n, err := s.prefs.CountByRide(ctx, rideID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoPreferences
	}

	return s.events.PublishRideEvent(ctx, domain.NewRideEvent(domain.EventGenerateRequested, rideID, nil))
}

// Summary returns the aggregation of the current preferences without routing.
func (s *GenerationService) Summary(ctx context.Context, rideID string) (*domain.RideSummary, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.prefs.ListByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	summary := &domain.RideSummary{
		RideID:           ride.ID,
		Status:           ride.Status,
		ParticipantCount: len(prefs),
		WaypointCount:    len(ride.SelectedWaypoints),
	}
	if len(prefs) > 0 {
		target, err := synthesis.Aggregate(prefs)
		if err != nil {
			return nil, err
		}
		summary.Target = target
	}
	return summary, nil
}

// Routes returns the stored routes of a ride.
func (s *GenerationService) Routes(ctx context.Context, rideID string) ([]domain.GeneratedRoute, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.GeneratedRoutes == nil {
		return []domain.GeneratedRoute{}, nil
	}
	return ride.GeneratedRoutes, nil
}

// Route returns one stored route.
func (s *GenerationService) Route(ctx context.Context, rideID, routeID string) (*domain.GeneratedRoute, error) {
	routes, err := s.Routes(ctx, rideID)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		if routes[i].ID == routeID {
			return &routes[i], nil
		}
	}
	return nil, fmt.Errorf("route %s: %w", routeID, domain.ErrNotFound)
}

func (s *GenerationService) run(ctx context.Context, ride *domain.Ride) (_ *GenerationResult, err error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanGenerate, trace.WithAttributes(attribute.String("ride.id", ride.ID)))
	start := time.Now()
	defer func() {
		metrics.GenerationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock, err := s.lock(ctx, ride.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prefs, err := s.prefs.ListByRide(ctx, ride.ID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if len(prefs) == 0 {
		return nil, domain.ErrNoPreferences
	}
	span.SetAttributes(
		attribute.Int("participants", len(prefs)),
		attribute.Int("waypoints", len(ride.SelectedWaypoints)),
	)

	res, err := s.synthesize(ctx, prefs, ride.SelectedWaypoints)
	if err != nil {
		mode := string(domain.ModeFreeVariation)
		if len(ride.SelectedWaypoints) > 0 {
			mode = string(domain.ModeWaypoints)
		}
		metrics.GenerationsTotal.WithLabelValues(mode, "failed").Inc()
		publish(ctx, s.events, domain.NewRideEvent(domain.EventGenerationFailed, ride.ID, map[string]any{"error": err.Error()}))
		return nil, err
	}

	// The whole set is replaced at once; a failed run above leaves the previous set untouched.
	persistCtx, persistSpan := s.tracer.Start(ctx, telemetry.SpanPersist)
	err = s.rides.SaveGeneratedRoutes(persistCtx, ride.ID, res.Routes, s.now().UTC())
	persistSpan.End()
	if err != nil {
		return nil, fmt.Errorf("save routes: %w", err)
	}

	metrics.GenerationsTotal.WithLabelValues(string(res.Mode), "ok").Inc()
	metrics.RoutesGenerated.WithLabelValues(string(res.Mode)).Add(float64(len(res.Routes)))
	slog.InfoContext(ctx, "routes generated", "ride_id", ride.ID, "mode", res.Mode, "routes", len(res.Routes))

	ids := make([]string, 0, len(res.Routes))
	for _, r := range res.Routes {
		ids = append(ids, r.ID)
	}
	publish(ctx, s.events, domain.NewRideEvent(domain.EventRoutesGenerated, ride.ID, map[string]any{"route_ids": ids}))

	return &GenerationResult{
		Routes: res.Routes,
		Aggregation: Aggregation{
			Centroid:           res.Target.Centroid,
			TargetDistanceKm:   res.Target.TargetDistanceKm,
			PreferredRouteType: res.Target.DominantShape,
			RankedCategories:   res.Target.RankedCategories,
			Mode:               res.Mode,
			WaypointCount:      len(ride.SelectedWaypoints),
			ParticipantCount:   len(prefs),
		},
	}, nil
}

func (s *GenerationService) synthesize(ctx context.Context, prefs []domain.Preference, waypoints []domain.RouteWaypoint) (*synthesis.Result, error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanSynthesis)
	defer span.End()

	res, err := s.synth.Synthesize(ctx, prefs, waypoints)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("mode", string(res.Mode)), attribute.Int("routes", len(res.Routes)))
	return res, nil
}

func (s *GenerationService) lock(ctx context.Context, rideID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "generate:lock:" + rideID
	ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		// Backend outage: run unlocked.
		slog.WarnContext(ctx, "generation lock unavailable", "ride_id", rideID, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrGenerationInProgress
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			slog.WarnContext(ctx, "release generation lock", "ride_id", rideID, "error", err)
		}
	}, nil
}
