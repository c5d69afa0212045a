package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// routeFeatureCollection renders a route as a FeatureCollection: the path as a
// LineString feature followed by one Point feature per stop.
func routeFeatureCollection(r *domain.GeneratedRoute) *geojson.FeatureCollection {
	line := make(orb.LineString, 0, len(r.Geometry.Coordinates))
	for _, p := range r.Geometry.Coordinates {
		line = append(line, orb.Point{p.Lng(), p.Lat()})
	}

	fc := geojson.NewFeatureCollection()

	path := geojson.NewFeature(line)
	path.ID = r.ID
	path.Properties["name"] = r.Name
	path.Properties["distance_km"] = r.DistanceKm
	if r.ElevationGainM != nil {
		path.Properties["elevation_gain_m"] = *r.ElevationGainM
	}
	path.Properties["matched_tags"] = r.MatchedTags
	fc.Append(path)

	for _, w := range r.Waypoints {
		f := geojson.NewFeature(orb.Point{w.Lng, w.Lat})
		if w.ID != "" {
			f.ID = w.ID
		}
		f.Properties["name"] = w.Name
		f.Properties["category"] = w.Category
		fc.Append(f)
	}
	return fc
}

// encodePolyline encodes the route path in the Google polyline format (precision 5).
func encodePolyline(r *domain.GeneratedRoute) string {
	coords := make([][]float64, 0, len(r.Geometry.Coordinates))
	for _, p := range r.Geometry.Coordinates {
		coords = append(coords, []float64{p.Lat(), p.Lng()})
	}
	return string(polyline.EncodeCoords(coords))
}

// RouteGeoJSONHandler exports one route as a GeoJSON FeatureCollection.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Generation.Route(c.UserContext(), c.Params("id"), c.Params("routeId"))
		if err != nil {
			return errFromDomain(c, err)
		}

		data, err := routeFeatureCollection(route).MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set("Content-Type", "application/geo+json")
		c.Set("Content-Disposition", `attachment; filename="`+route.ID+`.geojson"`)
		return c.Send(data)
	}
}

// RoutePolylineHandler exports one route as an encoded polyline.
func RoutePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Generation.Route(c.UserContext(), c.Params("id"), c.Params("routeId"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"id":          route.ID,
			"name":        route.Name,
			"distance_km": route.DistanceKm,
			"polyline":    encodePolyline(route),
		})
	}
}
