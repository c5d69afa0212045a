// Package photon implements ports.PlaceSearcher with the Photon geocoder.
package photon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/pkg/geospatial"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
	"github.com/samirrijal/groupride/internal/pkg/shortid"
)

const providerName = "photon"

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Lang              string
}

// Client searches places via Photon's /api endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
	}
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		OSMID       int64  `json:"osm_id"`
		OSMType     string `json:"osm_type"`
		Name        string `json:"name"`
		Street      string `json:"street"`
		HouseNumber string `json:"housenumber"`
		City        string `json:"city"`
		State       string `json:"state"`
		Country     string `json:"country"`
		Type        string `json:"type"`
	} `json:"properties"`
}

// Search returns up to limit places matching query, biased toward near.
func (c *Client) Search(ctx context.Context, query string, near domain.GeoPoint, limit int) (results []domain.PlaceResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(providerName, "search", start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: "search", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("lat", strconv.FormatFloat(near.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(near.Lng, 'f', -1, 64))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("lang", c.cfg.Lang)

	fc, err := c.fetch(ctx, q)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: "search", Err: err}
	}

	results = make([]domain.PlaceResult, 0, len(fc.Features))
	for _, f := range fc.Features {
		if r, ok := f.toPlace(near); ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, q url.Values) (*featureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &fc, nil
}

func (f feature) toPlace(near domain.GeoPoint) (domain.PlaceResult, bool) {
	if len(f.Geometry.Coordinates) < 2 {
		return domain.PlaceResult{}, false
	}
	p := f.Properties
	pos := domain.GeoPoint{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]}

	var parts []string
	if p.Street != "" {
		if p.HouseNumber != "" {
			parts = append(parts, p.HouseNumber+" "+p.Street)
		} else {
			parts = append(parts, p.Street)
		}
	}
	if p.City != "" {
		parts = append(parts, p.City)
	}
	if p.State != "" && p.State != p.City {
		parts = append(parts, p.State)
	}

	osmType := p.OSMType
	if osmType == "" {
		osmType = "node"
	}
	osmID := shortid.MustNew(8)
	if p.OSMID != 0 {
		osmID = strconv.FormatInt(p.OSMID, 10)
	}

	name := p.Name
	if name == "" && len(parts) > 0 {
		name = parts[0]
	}
	if name == "" {
		name = "Unknown"
	}
	address := strings.Join(parts, ", ")
	if address == "" {
		address = p.Country
	}
	typ := p.Type
	if typ == "" {
		typ = "place"
	}

	return domain.PlaceResult{
		ID:         osmType + "_" + osmID,
		Name:       name,
		Address:    address,
		Lat:        pos.Lat,
		Lng:        pos.Lng,
		Type:       typ,
		DistanceKm: geospatial.RoundTo(geospatial.Distance(near, pos), 1),
	}, true
}
