package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/core/synthesis"
	"github.com/samirrijal/groupride/internal/core/usecases"
)

func somePrefs() []domain.Preference {
	return []domain.Preference{
		{Start: domain.GeoPoint{Lat: 43.26, Lng: -2.93}, DistanceKm: 30, RouteShape: domain.ShapeLoop,
			Interests: []domain.InterestItem{{Tag: "coffee"}}},
		{Start: domain.GeoPoint{Lat: 43.28, Lng: -2.95}, DistanceKm: 50, RouteShape: domain.ShapeLoop,
			Interests: []domain.InterestItem{{Tag: "coffee"}, {Tag: "viewpoint"}}},
	}
}

func newGenerationService(ride *domain.Ride, prefs *mockPrefRepo, routing *mockRouting, locker *mockLocker, pub *mockPublisher) (*usecases.GenerationService, *mockRideRepo) {
	rides := rideRepoWith(ride)
	synth := synthesis.NewSynthesizer(routing, nil, synthesis.Options{})
	var l ports.Locker
	if locker != nil {
		l = locker
	}
	var p ports.EventPublisher
	if pub != nil {
		p = pub
	}
	return usecases.NewGenerationService(rides, prefs, synth, l, p, time.Minute), rides
}

func TestGenerationService_Generate_FreeMode(t *testing.T) {
	ride := testRide()
	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	pub := &mockPublisher{}
	svc, rides := newGenerationService(ride, prefs, &mockRouting{}, newMockLocker(), pub)

	var saved []domain.GeneratedRoute
	rides.saveRoutesFn = func(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error {
		saved = routes
		return nil
	}

	res, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 2 || len(saved) != 2 {
		t.Fatalf("routes=%d saved=%d, want 2", len(res.Routes), len(saved))
	}
	if res.Aggregation.TargetDistanceKm != 40 {
		t.Errorf("target distance = %v, want 40", res.Aggregation.TargetDistanceKm)
	}
	if res.Aggregation.ParticipantCount != 2 || res.Aggregation.Mode != domain.ModeFreeVariation {
		t.Errorf("aggregation = %+v", res.Aggregation)
	}
	if res.Aggregation.RankedCategories[0].Tag != "coffee" || res.Aggregation.RankedCategories[0].Count != 2 {
		t.Errorf("ranked = %+v", res.Aggregation.RankedCategories)
	}
	if got := pub.types(); len(got) != 1 || got[0] != domain.EventRoutesGenerated {
		t.Errorf("events = %v", got)
	}
}

func TestGenerationService_Generate_WaypointMode(t *testing.T) {
	ride := testRide()
	ride.SelectedWaypoints = []domain.RouteWaypoint{{ID: "w1", Name: "Cafe", Category: "Coffee", Lat: 43.3, Lng: -2.9}}
	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	svc, _ := newGenerationService(ride, prefs, &mockRouting{}, nil, nil)

	res, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Routes) != 1 || res.Routes[0].Name != "Route with Stops" {
		t.Errorf("routes = %+v", res.Routes)
	}
	if res.Aggregation.WaypointCount != 1 {
		t.Errorf("waypoint count = %d", res.Aggregation.WaypointCount)
	}
}

func TestGenerationService_Generate_NoPreferences(t *testing.T) {
	ride := testRide()
	svc, rides := newGenerationService(ride, &mockPrefRepo{}, &mockRouting{}, nil, nil)
	rides.saveRoutesFn = func(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error {
		t.Fatal("nothing should be saved")
		return nil
	}

	_, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken)
	if !errors.Is(err, domain.ErrNoPreferences) || !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrNoPreferences, got %v", err)
	}
}

func TestGenerationService_Generate_FailureKeepsPreviousRoutes(t *testing.T) {
	ride := testRide()
	ride.Status = domain.RideGenerated
	ride.GeneratedRoutes = []domain.GeneratedRoute{{ID: "old"}}
	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	routing := &mockRouting{
		roundTripFn: func(ctx context.Context, o domain.GeoPoint, km float64, seed *int64) (*domain.RouteGeometry, error) {
			return nil, errors.New("upstream down")
		},
	}
	pub := &mockPublisher{}
	svc, rides := newGenerationService(ride, prefs, routing, nil, pub)
	rides.saveRoutesFn = func(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error {
		t.Fatal("failed generation must not overwrite routes")
		return nil
	}

	_, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken)
	var failed *domain.RouteGenerationFailed
	if !errors.As(err, &failed) {
		t.Fatalf("expected RouteGenerationFailed, got %v", err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != domain.EventGenerationFailed {
		t.Errorf("events = %v", got)
	}
	if ride.GeneratedRoutes[0].ID != "old" {
		t.Error("previous routes changed")
	}
}

func TestGenerationService_Generate_Auth(t *testing.T) {
	ride := testRide()
	svc, _ := newGenerationService(ride, &mockPrefRepo{}, &mockRouting{}, nil, nil)

	if _, err := svc.Generate(context.Background(), ride.ID, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), ride.ID, "bad"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGenerationService_Generate_InProgress(t *testing.T) {
	ride := testRide()
	locker := newMockLocker()
	_, _ = locker.TryLock(context.Background(), "generate:lock:"+ride.ID, time.Minute)

	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	svc, _ := newGenerationService(ride, prefs, &mockRouting{}, locker, nil)

	if _, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken); !errors.Is(err, domain.ErrGenerationInProgress) {
		t.Fatalf("expected ErrGenerationInProgress, got %v", err)
	}
}

func TestGenerationService_Generate_ReleasesLock(t *testing.T) {
	ride := testRide()
	locker := newMockLocker()
	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	svc, _ := newGenerationService(ride, prefs, &mockRouting{}, locker, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.Generate(context.Background(), ride.ID, ride.OrganizerToken); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestGenerationService_RequestAsync(t *testing.T) {
	ride := testRide()
	pub := &mockPublisher{}
	svc, _ := newGenerationService(ride, &mockPrefRepo{countByRideN: 2}, &mockRouting{}, nil, pub)

	if err := svc.RequestAsync(context.Background(), ride.ID, ride.OrganizerToken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != domain.EventGenerateRequested {
		t.Errorf("events = %v", got)
	}

	empty, _ := newGenerationService(ride, &mockPrefRepo{}, &mockRouting{}, nil, &mockPublisher{})
	if err := empty.RequestAsync(context.Background(), ride.ID, ride.OrganizerToken); !errors.Is(err, domain.ErrNoPreferences) {
		t.Errorf("expected ErrNoPreferences, got %v", err)
	}
}

func TestGenerationService_Summary(t *testing.T) {
	ride := testRide()
	prefs := &mockPrefRepo{listFn: func(ctx context.Context, id string) ([]domain.Preference, error) { return somePrefs(), nil }}
	svc, _ := newGenerationService(ride, prefs, &mockRouting{}, nil, nil)

	sum, err := svc.Summary(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.ParticipantCount != 2 || sum.Target == nil || sum.Target.DominantShape != domain.ShapeLoop {
		t.Errorf("summary = %+v", sum)
	}

	emptySvc, _ := newGenerationService(ride, &mockPrefRepo{}, &mockRouting{}, nil, nil)
	sum, err = emptySvc.Summary(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Target != nil || sum.ParticipantCount != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}

func TestGenerationService_Route(t *testing.T) {
	ride := testRide()
	ride.GeneratedRoutes = []domain.GeneratedRoute{{ID: "r1"}, {ID: "r2"}}
	svc, _ := newGenerationService(ride, &mockPrefRepo{}, &mockRouting{}, nil, nil)

	r, err := svc.Route(context.Background(), ride.ID, "r2")
	if err != nil || r.ID != "r2" {
		t.Fatalf("Route = %+v, %v", r, err)
	}
	if _, err := svc.Route(context.Background(), ride.ID, "r9"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
