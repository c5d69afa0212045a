// Package overpass implements ports.POIProvider on top of the OpenStreetMap
// Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/pkg/geospatial"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
	"github.com/samirrijal/groupride/internal/pkg/telemetry"
)

const providerName = "overpass"

// Config configures a Client.
type Config struct {
	URL     string
	Timeout time.Duration
	// RequestsPerSecond throttles outbound queries; the public instance asks for ~1/s.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client queries Overpass for points of interest.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// New creates a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:        logger.With("provider", providerName),
	}
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string   `json:"type"`
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// Query returns POIs within radiusKm of center for the given interest tags.
// Unmapped tags are ignored; when none is mapped no request is made. Failures
// are logged and yield an empty result.
func (c *Client) Query(ctx context.Context, center domain.GeoPoint, radiusKm float64, categories []string) []domain.POI {
	selected, filters := selectFilters(categories)
	if len(filters) == 0 {
		return nil
	}

	ctx, span := otel.Tracer(telemetry.TracerProviders).Start(ctx, telemetry.SpanPOIQuery)
	span.SetAttributes(attribute.String("provider", providerName), attribute.Int("filters", len(filters)))
	defer span.End()

	start := time.Now()
	els, err := c.fetch(ctx, buildQuery(filters, geospatial.BoundingBox(center, radiusKm), c.cfg.Timeout))
	metrics.ObserveProvider(providerName, "query", start, err)
	if err != nil {
		span.RecordError(err)
		c.log.WarnContext(ctx, "poi query failed", "tags", selected, "error", err)
		return nil
	}

	pois := toPOIs(els, selected)
	span.SetAttributes(attribute.Int("results", len(pois)))
	return pois
}

func (c *Client) fetch(ctx context.Context, query string) ([]element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return r.Elements, nil
}

type tagFilter struct {
	tag string
	f   filter
}

// selectFilters returns the queryable tags and their distinct selectors.
func selectFilters(tags []string) ([]string, []tagFilter) {
	var selected []string
	var out []tagFilter
	for _, tag := range tags {
		if !Queryable(tag) {
			continue
		}
		selected = append(selected, tag)
		for _, f := range tagFilters[tag] {
			out = append(out, tagFilter{tag: tag, f: f})
		}
	}
	return selected, out
}

func buildQuery(filters []tagFilter, b domain.Bounds, timeout time.Duration) string {
	bbox := fmt.Sprintf("%s,%s,%s,%s",
		coord(b.MinLat), coord(b.MinLng), coord(b.MaxLat), coord(b.MaxLng))

	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	written := make(map[filter]bool)
	for _, tf := range filters {
		if written[tf.f] {
			continue
		}
		written[tf.f] = true
		fmt.Fprintf(&sb, "  %s(%s);\n", tf.f, bbox)
	}
	sb.WriteString(");\nout center;\n")
	return sb.String()
}

func toPOIs(els []element, tags []string) []domain.POI {
	pois := make([]domain.POI, 0, len(els))
	seen := make(map[string]bool, len(els))

	for _, el := range els {
		lat, lng, ok := el.position()
		if !ok {
			continue
		}
		id := el.Type + "/" + strconv.FormatInt(el.ID, 10)
		if seen[id] {
			continue
		}
		seen[id] = true

		pois = append(pois, domain.POI{
			ID:       id,
			Name:     firstNonEmpty(el.Tags["name"], el.Tags["amenity"], el.Tags["tourism"], "Unknown"),
			Category: firstNonEmpty(el.Tags["amenity"], el.Tags["tourism"], el.Tags["natural"], el.Tags["craft"], "poi"),
			Tags:     matchTags(el, tags),
			Lat:      lat,
			Lng:      lng,
		})
	}
	return pois
}

// matchTags returns every requested tag with a selector matching el, in
// request order. Tags sharing a selector (Coffee, coffee_shop) all match.
func matchTags(el element, tags []string) []string {
	var matched []string
	for _, tag := range tags {
		for _, f := range tagFilters[tag] {
			if f.matches(el) {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched
}

func (el element) position() (float64, float64, bool) {
	if el.Lat != nil && el.Lon != nil {
		return *el.Lat, *el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
