package photon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/groupride/internal/core/domain"
)

const body = `{"type":"FeatureCollection","features":[
	{"type":"Feature","geometry":{"type":"Point","coordinates":[-2.9350,43.2630]},
	 "properties":{"osm_id":42,"osm_type":"N","name":"Cafe Iruña","street":"Jardines de Albia","housenumber":"5","city":"Bilbao","state":"Basque Country","type":"house"}},
	{"type":"Feature","geometry":{"type":"Point","coordinates":[-2.9,43.3]},
	 "properties":{"street":"Gran Vía","city":"Bilbao","state":"Bilbao"}},
	{"type":"Feature","geometry":{"type":"Point","coordinates":[]},"properties":{"name":"broken"}}
]}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "cafe", q.Get("q"))
		assert.Equal(t, "43.26", q.Get("lat"))
		assert.Equal(t, "-2.93", q.Get("lon"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "en", q.Get("lang"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second, RequestsPerSecond: 100}, srv.Client())
	got, err := c.Search(context.Background(), "cafe", domain.GeoPoint{Lat: 43.26, Lng: -2.93}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "N_42", got[0].ID)
	assert.Equal(t, "Cafe Iruña", got[0].Name)
	assert.Equal(t, "5 Jardines de Albia, Bilbao, Basque Country", got[0].Address)
	assert.Equal(t, "house", got[0].Type)
	assert.InDelta(t, 0.5, got[0].DistanceKm, 0.11)

	assert.True(t, strings.HasPrefix(got[1].ID, "node_"))
	assert.Equal(t, "Gran Vía", got[1].Name)
	assert.Equal(t, "Gran Vía, Bilbao", got[1].Address)
	assert.Equal(t, "place", got[1].Type)
}

func TestSearch_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}, srv.Client())
	_, err := c.Search(context.Background(), "cafe", domain.GeoPoint{}, 5)

	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "photon", pe.Provider)
}
