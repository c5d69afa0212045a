package geospatial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/groupride/internal/core/domain"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"single", []float64{42}, 42},
		{"odd", []float64{30, 10, 20}, 20},
		{"even", []float64{10, 20, 30, 150}, 25},
		{"unsorted even", []float64{150, 30, 10, 20}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Median(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := Median(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestMedian_Empty(t *testing.T) {
	_, err := Median(nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMajorityVote(t *testing.T) {
	assert.Equal(t, "loop", MajorityVote([]string{"loop", "loop", "out_and_back"}, "no_preference"))
	assert.Equal(t, "no_preference", MajorityVote([]string{}, "no_preference"))
	assert.Equal(t, "out_and_back", MajorityVote([]string{"loop", "out_and_back", "out_and_back"}, "no_preference"))
}

func TestMajorityVote_TieGoesToFirstSeen(t *testing.T) {
	assert.Equal(t, "a", MajorityVote([]string{"a", "b", "b", "a"}, "z"))
	assert.Equal(t, "b", MajorityVote([]string{"b", "a"}, "z"))
}

func TestCountOccurrences(t *testing.T) {
	c := CountOccurrences([]string{"coffee", "viewpoint", "coffee"})
	assert.Equal(t, 2, c.Get("coffee"))
	assert.Equal(t, 1, c.Get("viewpoint"))
	assert.Equal(t, 0, c.Get("brewery"))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"coffee", "viewpoint"}, c.Keys())
	assert.Equal(t, map[string]int{"coffee": 2, "viewpoint": 1}, c.Map())
}
