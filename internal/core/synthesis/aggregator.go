package synthesis

import (
	"fmt"
	"sort"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/pkg/geospatial"
)

// Aggregate reduces all preferences of a ride to a single routing target.
//
// The start is the spherical centroid of all start points, the distance is the
// median of requested distances, and the shape is a majority
// vote defaulting to no_preference. Interest selections are flattened and ranked
// by support; ties keep first-seen order, so callers must pass preferences in a
// stable order such as submission time.
func Aggregate(prefs []domain.Preference) (*domain.AggregatedTarget, error) {
	if len(prefs) == 0 {
		return nil, fmt.Errorf("%w: aggregate requires at least one preference", domain.ErrInvalidInput)
	}

	starts := make([]domain.GeoPoint, 0, len(prefs))
	distances := make([]float64, 0, len(prefs))
	shapes := make([]domain.RouteShape, 0, len(prefs))
	var keys []string

	for i, p := range prefs {
		if err := p.Start.Validate(); err != nil {
			return nil, fmt.Errorf("preference %d start: %w", i, err)
		}
		starts = append(starts, p.Start)
		distances = append(distances, p.DistanceKm)
		shapes = append(shapes, domain.ParseRouteShape(string(p.RouteShape)))

		for _, item := range p.Interests {
			if k := item.Key(); k != "" {
				keys = append(keys, k)
			}
		}
	}

	centroid, err := geospatial.Centroid(starts)
	if err != nil {
		return nil, err
	}
	target, err := geospatial.Median(distances)
	if err != nil {
		return nil, err
	}

	return &domain.AggregatedTarget{
		Centroid:         centroid,
		TargetDistanceKm: target,
		DominantShape:    geospatial.MajorityVote(shapes, domain.ShapeNoPreference),
		RankedCategories: rankCategories(keys),
	}, nil
}

func rankCategories(keys []string) []domain.CategoryCount {
	counts := geospatial.CountOccurrences(keys)

	ranked := make([]domain.CategoryCount, 0, counts.Len())
	for _, k := range counts.Keys() {
		ranked = append(ranked, domain.CategoryCount{Tag: k, Count: counts.Get(k)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}
