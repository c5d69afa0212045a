package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the point lies inside the WGS 84 coordinate ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: coordinate is NaN", ErrInvalidInput)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %.6f out of range", ErrInvalidInput, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %.6f out of range", ErrInvalidInput, p.Lng)
	}
	return nil
}

// Position is a GeoJSON position: [lng, lat].
type Position [2]float64

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[1] }

// GeoLineString is a GeoJSON LineString: an ordered sequence of [lng, lat] positions.
type GeoLineString struct {
	Type        string     `json:"type"`
	Coordinates []Position `json:"coordinates"`
}

// NewLineString wraps positions into a LineString geometry.
func NewLineString(coords []Position) GeoLineString {
	return GeoLineString{Type: "LineString", Coordinates: coords}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}
