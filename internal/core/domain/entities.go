package domain

import (
	"time"
)

// RouteShape is a participant's preferred route form.
type RouteShape string

const (
	ShapeLoop         RouteShape = "loop"
	ShapeOutAndBack   RouteShape = "out_and_back"
	ShapeNoPreference RouteShape = "no_preference"
)

// ParseRouteShape maps a raw value to a known shape; anything unknown becomes ShapeNoPreference.
func ParseRouteShape(s string) RouteShape {
	switch RouteShape(s) {
	case ShapeLoop, ShapeOutAndBack, ShapeNoPreference:
		return RouteShape(s)
	default:
		return ShapeNoPreference
	}
}

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	RideCollecting RideStatus = "collecting"
	RideGenerated  RideStatus = "generated"
)

// DefaultCategories are offered to participants when the organizer picks none.
var DefaultCategories = []string{"Coffee", "Food", "Viewpoints", "Breweries"}

// Ride is the shared event being planned.
type Ride struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Date              string           `json:"date,omitempty"`
	OrganizerToken    string           `json:"-"`
	PINHash           string           `json:"-"`
	Status            RideStatus       `json:"status"`
	Categories        []string         `json:"categories"`
	SelectedWaypoints []RouteWaypoint  `json:"selected_waypoints"`
	GeneratedRoutes   []GeneratedRoute `json:"generated_routes,omitempty"`
	GeneratedAt       *time.Time       `json:"generated_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// TimeWindow is a participant's availability, in HH:MM local time.
type TimeWindow struct {
	EarliestStart string `json:"earliest_start"`
	LatestEnd     string `json:"latest_end"`
}

// InterestItem is either a free-form tag ("coffee_shop", "low_traffic")
// or a structured point of interest picked by the participant.
type InterestItem struct {
	Tag string         `json:"tag,omitempty"`
	POI *RouteWaypoint `json:"poi,omitempty"`
}

// Key returns the grouping key used for ranking: the POI category, or the tag itself.
func (i InterestItem) Key() string {
	if i.POI != nil {
		return i.POI.Category
	}
	return i.Tag
}

// Preference is one participant's submission for a ride.
type Preference struct {
	ID           string         `json:"id"`
	RideID       string         `json:"ride_id"`
	VisitorToken string         `json:"-"`
	Start        GeoPoint       `json:"start_location"`
	DistanceKm   float64        `json:"distance_preference_km"`
	RouteShape   RouteShape     `json:"route_type"`
	Interests    []InterestItem `json:"interests"`
	TimeWindow   *TimeWindow    `json:"time_availability,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

// CategoryCount is one entry of the ranked interest list.
type CategoryCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// AggregatedTarget is the single routing request derived from all preferences.
// It is computed per generation request and never stored on its own.
type AggregatedTarget struct {
	Centroid         GeoPoint        `json:"centroid"`
	TargetDistanceKm float64         `json:"target_distance_km"`
	DominantShape    RouteShape      `json:"dominant_shape"`
	RankedCategories []CategoryCount `json:"ranked_categories"`
}

// Tags returns the ranked category tags in order.
func (t *AggregatedTarget) Tags() []string {
	tags := make([]string, 0, len(t.RankedCategories))
	for _, c := range t.RankedCategories {
		tags = append(tags, c.Tag)
	}
	return tags
}

// RouteWaypoint is a stop on a route. Organizer-selected waypoints carry an ID;
// synthesized ones (POIs found near the route) may not.
type RouteWaypoint struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Point returns the waypoint's coordinate.
func (w RouteWaypoint) Point() GeoPoint {
	return GeoPoint{Lat: w.Lat, Lng: w.Lng}
}

// GeneratedRoute is one synthesized route artifact.
type GeneratedRoute struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	DistanceKm     float64         `json:"distance_km"`
	ElevationGainM *int            `json:"elevation_gain_m"`
	Geometry       GeoLineString   `json:"geometry"`
	MatchedTags    []string        `json:"matched_tags"`
	Waypoints      []RouteWaypoint `json:"waypoints"`
}

// RouteGeometry is what a routing provider returns for a single path.
type RouteGeometry struct {
	DistanceM float64
	AscentM   *float64
	Path      []Position
}

// POI is a point of interest returned by a POI provider. Tags lists every
// requested interest tag the POI satisfies, when the provider can tell.
type POI struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Category string   `json:"type"`
	Tags     []string `json:"tags,omitempty"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
}

// HasTag reports whether tag is one of the POI's matched tags.
func (p POI) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PlaceResult is a text-search hit used by organizers to pick waypoints.
type PlaceResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Type       string  `json:"type"`
	DistanceKm float64 `json:"distance_km"`
}

// RideSummary is the aggregation-only view shown before generation.
type RideSummary struct {
	RideID           string            `json:"ride_id"`
	Status           RideStatus        `json:"status"`
	ParticipantCount int               `json:"participant_count"`
	WaypointCount    int               `json:"waypoint_count"`
	Target           *AggregatedTarget `json:"aggregation,omitempty"`
}
