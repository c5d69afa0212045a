// Package graphhopper implements ports.RoutingProvider on top of the
// GraphHopper Routing API.
package graphhopper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
	"github.com/samirrijal/groupride/internal/pkg/telemetry"
)

const providerName = "graphhopper"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// Profile is the vehicle profile; "bike" when empty.
	Profile string
	// Timeout bounds each call; 20s when zero.
	Timeout time.Duration
}

// Client talks to GraphHopper's /route endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Profile == "" {
		cfg.Profile = "bike"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type routeResponse struct {
	Paths   []path `json:"paths"`
	Message string `json:"message"`
	Info    *struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"info"`
}

type path struct {
	Distance float64  `json:"distance"`
	Ascend   *float64 `json:"ascend"`
	Points   struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"points"`
}

// Route requests a path through points in order.
func (c *Client) Route(ctx context.Context, points []domain.GeoPoint) (*domain.RouteGeometry, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: route needs at least 2 points, got %d", domain.ErrInvalidInput, len(points))
	}
	q := c.baseQuery()
	for _, p := range points {
		q.Add("point", formatPoint(p))
	}
	return c.do(ctx, "route", q)
}

// RoundTrip requests a loop of about distanceKm from origin.
func (c *Client) RoundTrip(ctx context.Context, origin domain.GeoPoint, distanceKm float64, seed *int64) (*domain.RouteGeometry, error) {
	if distanceKm <= 0 {
		return nil, fmt.Errorf("%w: round trip distance must be positive", domain.ErrInvalidInput)
	}
	q := c.baseQuery()
	q.Set("point", formatPoint(origin))
	q.Set("algorithm", "round_trip")
	q.Set("round_trip.distance", strconv.FormatFloat(distanceKm*1000, 'f', 0, 64))
	if seed != nil {
		q.Set("round_trip.seed", strconv.FormatInt(*seed, 10))
	}
	return c.do(ctx, "round_trip", q)
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	q.Set("profile", c.cfg.Profile)
	q.Set("points_encoded", "false")
	q.Set("elevation", "true")
	q.Set("instructions", "false")
	return q
}

func (c *Client) do(ctx context.Context, op string, q url.Values) (geom *domain.RouteGeometry, err error) {
	ctx, span := otel.Tracer(telemetry.TracerProviders).Start(ctx, telemetry.SpanRouting)
	span.SetAttributes(attribute.String("provider", providerName), attribute.String("op", op))
	start := time.Now()
	defer func() {
		metrics.ObserveProvider(providerName, op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	geom, err = c.fetch(ctx, q)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: op, Err: err}
	}
	return geom, nil
}

func (c *Client) fetch(ctx context.Context, q url.Values) (*domain.RouteGeometry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/route?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rr routeResponse
	decodeErr := json.Unmarshal(body, &rr)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil {
			if msg := rr.errorMessage(); msg != "" {
				return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if msg := rr.errorMessage(); msg != "" {
		return nil, errors.New(msg)
	}
	if len(rr.Paths) == 0 {
		return nil, errors.New("response contains no paths")
	}

	return rr.Paths[0].toGeometry(), nil
}

func (r *routeResponse) errorMessage() string {
	if r.Info != nil && len(r.Info.Errors) > 0 {
		msgs := make([]string, 0, len(r.Info.Errors))
		for _, e := range r.Info.Errors {
			msgs = append(msgs, e.Message)
		}
		return strings.Join(msgs, "; ")
	}
	return r.Message
}

// toGeometry drops the elevation component of 3D coordinates.
func (p path) toGeometry() *domain.RouteGeometry {
	coords := make([]domain.Position, 0, len(p.Points.Coordinates))
	for _, c := range p.Points.Coordinates {
		if len(c) < 2 {
			continue
		}
		coords = append(coords, domain.Position{c[0], c[1]})
	}
	return &domain.RouteGeometry{
		DistanceM: p.Distance,
		AscentM:   p.Ascend,
		Path:      coords,
	}
}

func formatPoint(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
