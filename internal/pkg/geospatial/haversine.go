package geospatial

import (
	"fmt"
	"math"

	"github.com/samirrijal/groupride/internal/core/domain"
)

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance returns the great-circle distance in kilometers between a and b.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng) / 1000
}

// Centroid returns the spherical mean of points. A single point is returned as is.
func Centroid(points []domain.GeoPoint) (domain.GeoPoint, error) {
	switch len(points) {
	case 0:
		return domain.GeoPoint{}, fmt.Errorf("%w: centroid of empty point set", domain.ErrInvalidInput)
	case 1:
		return points[0], nil
	}

	var x, y, z float64
	for _, p := range points {
		lat, lng := toRad(p.Lat), toRad(p.Lng)
		x += math.Cos(lat) * math.Cos(lng)
		y += math.Cos(lat) * math.Sin(lng)
		z += math.Sin(lat)
	}
	n := float64(len(points))
	x, y, z = x/n, y/n, z/n

	lng := math.Atan2(y, x)
	lat := math.Atan2(z, math.Sqrt(x*x+y*y))

	return domain.GeoPoint{Lat: toDeg(lat), Lng: toDeg(lng)}, nil
}

// BoundingBox returns a box around center extending radiusKm in every direction.
func BoundingBox(center domain.GeoPoint, radiusKm float64) domain.Bounds {
	latDelta := radiusKm / kmPerDegree
	lngDelta := radiusKm / (kmPerDegree * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: center.Lat - latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLat: center.Lat + latDelta,
		MaxLng: center.Lng + lngDelta,
	}
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
