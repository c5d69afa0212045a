package synthesis

import (
	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/pkg/geospatial"
)

// SequenceWaypoints orders waypoints for travel starting at origin using the
// nearest-neighbour heuristic. Equal distances go to the earlier input element.
// The result is always a permutation of waypoints; identities travel with the
// points, so nothing has to be matched back by coordinate afterwards.
func SequenceWaypoints(origin domain.GeoPoint, waypoints []domain.RouteWaypoint) []domain.RouteWaypoint {
	remaining := make([]domain.RouteWaypoint, len(waypoints))
	copy(remaining, waypoints)
	if len(remaining) <= 1 {
		return remaining
	}

	ordered := make([]domain.RouteWaypoint, 0, len(remaining))
	current := origin
	for len(remaining) > 0 {
		best := 0
		bestDist := geospatial.Distance(current, remaining[0].Point())
		for i := 1; i < len(remaining); i++ {
			if d := geospatial.Distance(current, remaining[i].Point()); d < bestDist {
				best, bestDist = i, d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		current = next.Point()
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}
