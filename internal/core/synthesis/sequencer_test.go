package synthesis

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/groupride/internal/core/domain"
)

func wp(id string, lat, lng float64) domain.RouteWaypoint {
	return domain.RouteWaypoint{ID: id, Name: id, Category: "stop", Lat: lat, Lng: lng}
}

func ids(ws []domain.RouteWaypoint) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestSequenceWaypoints_Line(t *testing.T) {
	got := SequenceWaypoints(domain.GeoPoint{}, []domain.RouteWaypoint{
		wp("far", 0, 10),
		wp("near", 0, 1),
		wp("mid", 0, 5),
	})
	assert.Equal(t, []string{"near", "mid", "far"}, ids(got))
}

func TestSequenceWaypoints_Trivial(t *testing.T) {
	assert.Empty(t, SequenceWaypoints(domain.GeoPoint{}, nil))

	one := []domain.RouteWaypoint{wp("only", 10, 10)}
	assert.Equal(t, one, SequenceWaypoints(domain.GeoPoint{}, one))
}

func TestSequenceWaypoints_TieGoesToFirstInput(t *testing.T) {
	got := SequenceWaypoints(domain.GeoPoint{}, []domain.RouteWaypoint{
		wp("east", 0, 1),
		wp("west", 0, -1),
	})
	assert.Equal(t, []string{"east", "west"}, ids(got))
}

func TestSequenceWaypoints_DoesNotMutateInput(t *testing.T) {
	in := []domain.RouteWaypoint{wp("b", 0, 2), wp("a", 0, 1)}
	_ = SequenceWaypoints(domain.GeoPoint{}, in)
	assert.Equal(t, []string{"b", "a"}, ids(in))
}

func TestSequenceWaypoints_IsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n <= 20; n++ {
		in := make([]domain.RouteWaypoint, n)
		for i := range in {
			in[i] = wp(string(rune('A'+i)), rng.Float64()*180-90, rng.Float64()*360-180)
		}

		got := SequenceWaypoints(domain.GeoPoint{Lat: 43.26, Lng: -2.93}, in)

		want := ids(in)
		have := ids(got)
		sort.Strings(want)
		sort.Strings(have)
		assert.Equal(t, want, have, "n=%d", n)
	}
}
