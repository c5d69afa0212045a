package synthesis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/groupride/internal/core/domain"
)

func pref(lat, lng, km float64, shape domain.RouteShape, tags ...string) domain.Preference {
	p := domain.Preference{
		Start:      domain.GeoPoint{Lat: lat, Lng: lng},
		DistanceKm: km,
		RouteShape: shape,
	}
	for _, t := range tags {
		p.Interests = append(p.Interests, domain.InterestItem{Tag: t})
	}
	return p
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAggregate_SinglePreference(t *testing.T) {
	target, err := Aggregate([]domain.Preference{pref(43.26, -2.93, 40, domain.ShapeLoop, "coffee_shop")})
	require.NoError(t, err)

	assert.Equal(t, domain.GeoPoint{Lat: 43.26, Lng: -2.93}, target.Centroid)
	assert.Equal(t, 40.0, target.TargetDistanceKm)
	assert.Equal(t, domain.ShapeLoop, target.DominantShape)
	assert.Equal(t, []domain.CategoryCount{{Tag: "coffee_shop", Count: 1}}, target.RankedCategories)
}

func TestAggregate_MedianResistsOutlier(t *testing.T) {
	target, err := Aggregate([]domain.Preference{
		pref(0, 0, 10, domain.ShapeLoop),
		pref(0, 0, 20, domain.ShapeLoop),
		pref(0, 0, 30, domain.ShapeLoop),
		pref(0, 0, 150, domain.ShapeLoop),
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, target.TargetDistanceKm)
}

func TestAggregate_RankedCategories(t *testing.T) {
	target, err := Aggregate([]domain.Preference{
		pref(0, 0, 30, domain.ShapeLoop, "viewpoint"),
		pref(0, 0, 30, domain.ShapeLoop, "coffee"),
		pref(0, 0, 30, domain.ShapeLoop, "coffee"),
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.CategoryCount{
		{Tag: "coffee", Count: 2},
		{Tag: "viewpoint", Count: 1},
	}, target.RankedCategories)
	assert.Equal(t, []string{"coffee", "viewpoint"}, target.Tags())
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	target, err := Aggregate([]domain.Preference{
		pref(0, 0, 30, domain.ShapeLoop, "waterfront", "gravel_ok"),
		pref(0, 0, 30, domain.ShapeLoop, "gravel_ok", "waterfront"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"waterfront", "gravel_ok"}, target.Tags())
}

func TestAggregate_StructuredPOIsGroupByCategory(t *testing.T) {
	p1 := pref(0, 0, 30, domain.ShapeLoop)
	p1.Interests = []domain.InterestItem{
		{POI: &domain.RouteWaypoint{ID: "a", Name: "Cafe A", Category: "Coffee"}},
	}
	p2 := pref(0, 0, 30, domain.ShapeLoop, "Viewpoints")
	p2.Interests = append(p2.Interests, domain.InterestItem{
		POI: &domain.RouteWaypoint{ID: "b", Name: "Cafe B", Category: "Coffee"},
	})

	target, err := Aggregate([]domain.Preference{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryCount{
		{Tag: "Coffee", Count: 2},
		{Tag: "Viewpoints", Count: 1},
	}, target.RankedCategories)
}

func TestAggregate_Shape(t *testing.T) {
	tests := []struct {
		name   string
		shapes []domain.RouteShape
		want   domain.RouteShape
	}{
		{"majority", []domain.RouteShape{domain.ShapeOutAndBack, domain.ShapeLoop, domain.ShapeLoop}, domain.ShapeLoop},
		{"tie goes to first seen", []domain.RouteShape{domain.ShapeOutAndBack, domain.ShapeLoop}, domain.ShapeOutAndBack},
		{"unknown normalized", []domain.RouteShape{"zigzag", "zigzag", domain.ShapeLoop}, domain.ShapeNoPreference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prefs []domain.Preference
			for _, s := range tt.shapes {
				prefs = append(prefs, pref(0, 0, 30, s))
			}
			target, err := Aggregate(prefs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, target.DominantShape)
		})
	}
}

func TestAggregate_InvalidStart(t *testing.T) {
	_, err := Aggregate([]domain.Preference{pref(91, 0, 30, domain.ShapeLoop)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
