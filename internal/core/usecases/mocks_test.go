package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// --- Mock RideRepository ---

type mockRideRepo struct {
	createFn       func(ctx context.Context, ride *domain.Ride) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Ride, error)
	setWaypointsFn func(ctx context.Context, id string, w []domain.RouteWaypoint) error
	saveRoutesFn   func(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error
}

func (m *mockRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	if m.createFn != nil {
		return m.createFn(ctx, ride)
	}
	return nil
}

func (m *mockRideRepo) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRideRepo) SetWaypoints(ctx context.Context, id string, w []domain.RouteWaypoint) error {
	if m.setWaypointsFn != nil {
		return m.setWaypointsFn(ctx, id, w)
	}
	return nil
}

func (m *mockRideRepo) SaveGeneratedRoutes(ctx context.Context, id string, routes []domain.GeneratedRoute, at time.Time) error {
	if m.saveRoutesFn != nil {
		return m.saveRoutesFn(ctx, id, routes, at)
	}
	return nil
}

// --- Mock PreferenceRepository ---

type mockPrefRepo struct {
	upsertFn     func(ctx context.Context, p *domain.Preference) (bool, error)
	listFn       func(ctx context.Context, rideID string) ([]domain.Preference, error)
	listPageFn   func(ctx context.Context, rideID string, offset, limit int) ([]domain.Preference, error)
	countByRideN int
}

func (m *mockPrefRepo) Upsert(ctx context.Context, p *domain.Preference) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return false, nil
}

func (m *mockPrefRepo) ListByRide(ctx context.Context, rideID string) ([]domain.Preference, error) {
	if m.listFn != nil {
		return m.listFn(ctx, rideID)
	}
	return nil, nil
}

func (m *mockPrefRepo) ListByRidePage(ctx context.Context, rideID string, offset, limit int) ([]domain.Preference, error) {
	if m.listPageFn != nil {
		return m.listPageFn(ctx, rideID, offset, limit)
	}
	return nil, nil
}

func (m *mockPrefRepo) CountByRide(ctx context.Context, rideID string) (int, error) {
	return m.countByRideN, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.RideEvent
	err    error
}

func (m *mockPublisher) PublishRideEvent(ctx context.Context, ev domain.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventType, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

// --- Mock Locker ---

type mockLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMockLocker() *mockLocker { return &mockLocker{held: make(map[string]bool)} }

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *mockLocker) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- Mock PlaceSearcher ---

type mockPlaces struct {
	calls    int
	searchFn func(ctx context.Context, q string, near domain.GeoPoint, limit int) ([]domain.PlaceResult, error)
}

func (m *mockPlaces) Search(ctx context.Context, q string, near domain.GeoPoint, limit int) ([]domain.PlaceResult, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, q, near, limit)
	}
	return nil, nil
}

// --- Mock RoutingProvider ---

type mockRouting struct {
	routeFn     func(ctx context.Context, points []domain.GeoPoint) (*domain.RouteGeometry, error)
	roundTripFn func(ctx context.Context, origin domain.GeoPoint, km float64, seed *int64) (*domain.RouteGeometry, error)
}

func (m *mockRouting) Route(ctx context.Context, points []domain.GeoPoint) (*domain.RouteGeometry, error) {
	if m.routeFn != nil {
		return m.routeFn(ctx, points)
	}
	return okGeometry(), nil
}

func (m *mockRouting) RoundTrip(ctx context.Context, origin domain.GeoPoint, km float64, seed *int64) (*domain.RouteGeometry, error) {
	if m.roundTripFn != nil {
		return m.roundTripFn(ctx, origin, km, seed)
	}
	return okGeometry(), nil
}

func okGeometry() *domain.RouteGeometry {
	return &domain.RouteGeometry{
		DistanceM: 30000,
		Path:      []domain.Position{{-2.93, 43.26}, {-2.90, 43.28}, {-2.93, 43.26}},
	}
}

func testRide() *domain.Ride {
	return &domain.Ride{
		ID:                "ride0001",
		Name:              "Sunday spin",
		OrganizerToken:    "organizer-token-0123456789",
		Status:            domain.RideCollecting,
		Categories:        domain.DefaultCategories,
		SelectedWaypoints: []domain.RouteWaypoint{},
	}
}

func rideRepoWith(ride *domain.Ride) *mockRideRepo {
	return &mockRideRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ride, error) {
			if id != ride.ID {
				return nil, domain.ErrNotFound
			}
			return ride, nil
		},
	}
}
