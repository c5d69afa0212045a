package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/pkg/geospatial"
	"github.com/samirrijal/groupride/internal/pkg/shortid"
)

// Elevation tags are judged from the route itself rather than from POIs.
const (
	TagMinimizeHills = "minimize_hills"
	TagMaximizeHills = "maximize_hills"
)

const (
	nameWithStops   = "Route with Stops"
	nameRecommended = "Recommended Route"
)

var errShortGeometry = errors.New("route geometry has fewer than two points")

// Options tunes the synthesizer. Zero values fall back to DefaultOptions.
type Options struct {
	// Variants is the number of round-trip alternatives requested in free mode.
	Variants int
	// SeedStep spaces the round-trip seeds: variant i uses seed i*SeedStep.
	SeedStep int64
	// MaxPOIsPerRoute caps the POIs attached to a free-mode route.
	MaxPOIsPerRoute int
	// Gradients are in metres of ascent per kilometre.
	MinimizeHillsGradient float64
	MaximizeHillsGradient float64
	// MinSearchRadiusKm is the floor for the POI search radius.
	MinSearchRadiusKm float64
	// CallTimeout bounds each provider call. Zero leaves it to the provider.
	CallTimeout time.Duration

	Logger *slog.Logger
	// NewID generates route ids.
	NewID func() string
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Variants:              2,
		SeedStep:              12345,
		MaxPOIsPerRoute:       5,
		MinimizeHillsGradient: 10,
		MaximizeHillsGradient: 15,
		MinSearchRadiusKm:     5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Variants <= 0 {
		o.Variants = d.Variants
	}
	if o.SeedStep == 0 {
		o.SeedStep = d.SeedStep
	}
	if o.MaxPOIsPerRoute <= 0 {
		o.MaxPOIsPerRoute = d.MaxPOIsPerRoute
	}
	if o.MinimizeHillsGradient <= 0 {
		o.MinimizeHillsGradient = d.MinimizeHillsGradient
	}
	if o.MaximizeHillsGradient <= 0 {
		o.MaximizeHillsGradient = d.MaximizeHillsGradient
	}
	if o.MinSearchRadiusKm <= 0 {
		o.MinSearchRadiusKm = d.MinSearchRadiusKm
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.NewID == nil {
		o.NewID = func() string { return shortid.MustNew(8) }
	}
	return o
}

// Result is the outcome of one synthesis run.
type Result struct {
	Target *domain.AggregatedTarget
	Mode   domain.SynthesisMode
	Routes []domain.GeneratedRoute
}

// Synthesizer turns preferences (and optional organizer waypoints) into routes.
// It holds no per-run state and is safe for concurrent use.
type Synthesizer struct {
	routing ports.RoutingProvider
	pois    ports.POIProvider
	opts    Options
}

// NewSynthesizer creates a synthesizer. pois may be nil, in which case free-mode
// routes are never enriched with POIs.
func NewSynthesizer(routing ports.RoutingProvider, pois ports.POIProvider, opts Options) *Synthesizer {
	return &Synthesizer{routing: routing, pois: pois, opts: opts.withDefaults()}
}

// Synthesize aggregates prefs and produces routes. With waypoints it returns a
// single route through them; without, it returns up to Options.Variants round
// trips. A run that produces no route returns *domain.RouteGenerationFailed.
func (s *Synthesizer) Synthesize(ctx context.Context, prefs []domain.Preference, waypoints []domain.RouteWaypoint) (*Result, error) {
	target, err := Aggregate(prefs)
	if err != nil {
		return nil, err
	}

	if len(waypoints) > 0 {
		route, err := s.routeWithStops(ctx, target, waypoints)
		if err != nil {
			return nil, err
		}
		return &Result{Target: target, Mode: domain.ModeWaypoints, Routes: []domain.GeneratedRoute{*route}}, nil
	}

	routes, err := s.freeVariations(ctx, target)
	if err != nil {
		return nil, err
	}
	return &Result{Target: target, Mode: domain.ModeFreeVariation, Routes: routes}, nil
}

func (s *Synthesizer) routeWithStops(ctx context.Context, target *domain.AggregatedTarget, waypoints []domain.RouteWaypoint) (*domain.GeneratedRoute, error) {
	for i, w := range waypoints {
		if err := w.Point().Validate(); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
	}

	ordered := SequenceWaypoints(target.Centroid, waypoints)
	points := make([]domain.GeoPoint, 0, len(ordered)+2)
	points = append(points, target.Centroid)
	for _, w := range ordered {
		points = append(points, w.Point())
	}
	points = append(points, target.Centroid)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	geom, err := s.routing.Route(callCtx, points)
	if err == nil {
		err = checkGeometry(geom)
	}
	if err != nil {
		s.opts.Logger.Warn("waypoint route failed", "waypoints", len(ordered), "error", err)
		return nil, &domain.RouteGenerationFailed{Mode: domain.ModeWaypoints, Attempts: 1, LastErr: err}
	}

	route := s.buildRoute(nameWithStops, geom, ordered)
	route.MatchedTags = []string{}
	return &route, nil
}

func (s *Synthesizer) freeVariations(ctx context.Context, target *domain.AggregatedTarget) ([]domain.GeneratedRoute, error) {
	k := s.opts.Variants
	geoms := make([]*domain.RouteGeometry, k)
	errs := make([]error, k)

	// Variant errors are kept per index; the group itself never fails.
	var g errgroup.Group
	for i := 0; i < k; i++ {
		i := i
		seed := int64(i) * s.opts.SeedStep
		g.Go(func() error {
			callCtx, cancel := s.callContext(ctx)
			defer cancel()

			geom, err := s.routing.RoundTrip(callCtx, target.Centroid, target.TargetDistanceKm, &seed)
			if err == nil {
				err = checkGeometry(geom)
			}
			if err != nil {
				s.opts.Logger.Warn("route variant failed", "variant", i, "seed", seed, "error", err)
				errs[i] = err
				return nil
			}
			geoms[i] = geom
			return nil
		})
	}
	_ = g.Wait()

	var successes []*domain.RouteGeometry
	var lastErr error
	for i := range geoms {
		if geoms[i] != nil {
			successes = append(successes, geoms[i])
		} else if errs[i] != nil {
			lastErr = errs[i]
		}
	}
	if len(successes) == 0 {
		return nil, &domain.RouteGenerationFailed{Mode: domain.ModeFreeVariation, Attempts: k, LastErr: lastErr}
	}

	tags := target.Tags()

	// POI lookup runs alongside route building.
	poiCh := make(chan []domain.POI, 1)
	go func() {
		poiCh <- s.lookupPOIs(ctx, target, tags)
	}()

	routes := make([]domain.GeneratedRoute, len(successes))
	for i, geom := range successes {
		name := nameRecommended
		if i > 0 {
			name = fmt.Sprintf("Alternative %d", i)
		}
		routes[i] = s.buildRoute(name, geom, nil)
	}

	pois := <-poiCh
	for i, geom := range successes {
		routes[i].MatchedTags = s.matchTags(tags, geom, pois)
		routes[i].Waypoints = s.poiWaypoints(pois)
	}
	return routes, nil
}

func (s *Synthesizer) lookupPOIs(ctx context.Context, target *domain.AggregatedTarget, tags []string) []domain.POI {
	if s.pois == nil || len(tags) == 0 {
		return nil
	}
	radius := math.Max(target.TargetDistanceKm/2, s.opts.MinSearchRadiusKm)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	return s.pois.Query(callCtx, target.Centroid, radius, tags)
}

func (s *Synthesizer) poiWaypoints(pois []domain.POI) []domain.RouteWaypoint {
	n := min(len(pois), s.opts.MaxPOIsPerRoute)
	out := make([]domain.RouteWaypoint, 0, n)
	for _, p := range pois[:n] {
		out = append(out, domain.RouteWaypoint{Name: p.Name, Category: p.Category, Lat: p.Lat, Lng: p.Lng})
	}
	return out
}

// matchTags returns the requested tags a route satisfies, in request order.
func (s *Synthesizer) matchTags(requested []string, geom *domain.RouteGeometry, pois []domain.POI) []string {
	matched := []string{}
	gradient, hasGradient := gradientOf(geom)

	for _, tag := range requested {
		switch tag {
		case TagMinimizeHills:
			if hasGradient && gradient < s.opts.MinimizeHillsGradient {
				matched = append(matched, tag)
			}
		case TagMaximizeHills:
			if hasGradient && gradient > s.opts.MaximizeHillsGradient {
				matched = append(matched, tag)
			}
		default:
			if hasPOIFor(tag, pois) {
				matched = append(matched, tag)
			}
		}
	}
	return matched
}

func (s *Synthesizer) buildRoute(name string, geom *domain.RouteGeometry, waypoints []domain.RouteWaypoint) domain.GeneratedRoute {
	path := make([]domain.Position, len(geom.Path))
	copy(path, geom.Path)

	if waypoints == nil {
		waypoints = []domain.RouteWaypoint{}
	}

	route := domain.GeneratedRoute{
		ID:         s.opts.NewID(),
		Name:       name,
		DistanceKm: geospatial.RoundTo(geom.DistanceM/1000, 1),
		Geometry:   domain.NewLineString(path),
		Waypoints:  waypoints,
	}
	if geom.AscentM != nil {
		gain := int(math.Round(*geom.AscentM))
		route.ElevationGainM = &gain
	}
	return route
}

func (s *Synthesizer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func checkGeometry(geom *domain.RouteGeometry) error {
	if geom == nil || len(geom.Path) < 2 {
		return errShortGeometry
	}
	return nil
}

// gradientOf returns ascent per kilometre. Routes without ascent data or
// without length have no gradient.
func gradientOf(geom *domain.RouteGeometry) (float64, bool) {
	if geom.AscentM == nil || geom.DistanceM <= 0 {
		return 0, false
	}
	return *geom.AscentM / (geom.DistanceM / 1000), true
}

func hasPOIFor(tag string, pois []domain.POI) bool {
	for _, p := range pois {
		if p.HasTag(tag) || strings.EqualFold(p.Category, tag) {
			return true
		}
	}
	return false
}
