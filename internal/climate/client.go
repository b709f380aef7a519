package climate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/envdash-server/internal/metrics"
	"github.com/smukkama/envdash-server/internal/store"
	"github.com/smukkama/envdash-server/pkg/config"
)

var ErrNoLocations = &ClimateError{"no climate location could be fetched"}

// ClimateError represents climate overlay errors
type ClimateError struct {
	message string
}

func (e *ClimateError) Error() string {
	return e.message
}

// Location is one fixed climate query point.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// BoroughLocations are the borough centroids queried for the climate
// overlay.
var BoroughLocations = []Location{
	{Name: "Bronx", Lat: 40.8448, Lon: -73.8648},
	{Name: "Brooklyn", Lat: 40.6782, Lon: -73.9442},
	{Name: "Manhattan", Lat: 40.7831, Lon: -73.9712},
	{Name: "Queens", Lat: 40.7282, Lon: -73.7949},
	{Name: "Staten Island", Lat: 40.5795, Lon: -74.1502},
}

// Client fetches per-location climate time series and reduces each to a
// single average. Responses are cached in Redis when a client is configured;
// a nil Redis client degrades to direct fetches.
type Client struct {
	cfg       config.ClimateConfig
	rc        *redis.Client
	client    *http.Client
	locations []Location
}

// NewClient creates a climate client for the borough locations
func NewClient(cfg config.ClimateConfig, rc *redis.Client) *Client {
	return &Client{
		cfg:       cfg,
		rc:        rc,
		client:    &http.Client{},
		locations: BoroughLocations,
	}
}

// seriesPayload matches the upstream point response: a time series keyed by
// date string under properties.parameter.<METRIC>, with null gaps.
type seriesPayload struct {
	Properties struct {
		Parameter map[string]map[string]*float64 `json:"parameter"`
	} `json:"properties"`
}

// FetchPoints queries every location and returns one point record per
// location that answered. A location whose series has no usable values
// still gets a record with a nil metric. Returns ErrNoLocations when every
// fetch failed.
func (c *Client) FetchPoints(ctx context.Context) ([]store.PointRecord, error) {
	start, end := c.window()

	records := make([]store.PointRecord, 0, len(c.locations))
	for _, loc := range c.locations {
		body, err := c.fetchSeries(ctx, loc, start, end)
		if err != nil {
			log.Printf("Climate fetch failed for %s: %v", loc.Name, err)
			continue
		}

		records = append(records, store.PointRecord{
			Name:   loc.Name,
			Lat:    loc.Lat,
			Lon:    loc.Lon,
			Metric: c.reduceSeries(body),
		})
	}

	if len(records) == 0 {
		return nil, ErrNoLocations
	}
	return records, nil
}

// fetchSeries returns the raw upstream response for one location, consulting
// the cache first.
func (c *Client) fetchSeries(ctx context.Context, loc Location, start, end string) ([]byte, error) {
	key := fmt.Sprintf("climate:%s:%s:%s:%s", c.cfg.Parameter, loc.Name, start, end)

	if c.rc != nil {
		if cached, err := c.rc.Get(ctx, key).Result(); err == nil {
			metrics.ClimateCacheHitsTotal.Inc()
			return []byte(cached), nil
		}
		metrics.ClimateCacheMissesTotal.Inc()
	}

	query := url.Values{}
	query.Set("parameters", c.cfg.Parameter)
	query.Set("community", "RE")
	query.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	query.Set("start", start)
	query.Set("end", end)
	query.Set("format", "JSON")

	resp, err := c.client.Get(c.cfg.BaseURL + "?" + query.Encode())
	if err != nil {
		return nil, fmt.Errorf("GET climate point: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("climate point: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read climate response: %w", err)
	}

	if c.rc != nil {
		if err := c.rc.Set(ctx, key, body, c.cfg.CacheTTL).Err(); err != nil {
			log.Printf("Climate cache write failed: %v", err)
		}
	}
	return body, nil
}

// reduceSeries averages the usable values of one response. Nulls, the
// upstream fill value and non-finite samples are filtered out; a series
// with nothing left yields a nil metric.
func (c *Client) reduceSeries(body []byte) *float64 {
	var payload seriesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Climate series decode failed: %v", err)
		return nil
	}

	series := payload.Properties.Parameter[c.cfg.Parameter]

	var total float64
	count := 0
	for _, value := range series {
		if value == nil || *value == c.cfg.FillValue {
			continue
		}
		if math.IsNaN(*value) || math.IsInf(*value, 0) {
			continue
		}
		total += *value
		count++
	}
	if count == 0 {
		return nil
	}
	avg := total / float64(count)
	return &avg
}

// window is the queried date range: the 30 days ending yesterday.
func (c *Client) window() (string, string) {
	end := time.Now().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -29)
	return start.Format("20060102"), end.Format("20060102")
}
