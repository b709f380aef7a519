package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/envdash-server/internal/geometry"
	"github.com/smukkama/envdash-server/internal/layers"
	"github.com/smukkama/envdash-server/internal/metrics"
	"github.com/smukkama/envdash-server/internal/store"
)

// geometryFields are tried in order on each raw feature. Socrata exports
// use the_geom; plain GeoJSON uses geometry.
var geometryFields = []string{"geometry", "the_geom"}

// Ingestor fetches and normalizes one dataset. Each fetch is a single
// attempt with no timeout; a slow upstream delays only its own dataset.
type Ingestor struct {
	params Params
	store  *store.Store
	client *http.Client
}

// NewIngestor creates an ingestor for one dataset
func NewIngestor(params Params, s *store.Store) *Ingestor {
	return &Ingestor{
		params: params,
		store:  s,
		client: &http.Client{},
	}
}

// Dataset returns the dataset this ingestor feeds.
func (ing *Ingestor) Dataset() store.Dataset {
	return ing.params.Dataset
}

// Ingest runs one ingestion: fetch, normalize every feature, rebuild the
// point-record collection and publish it with a single atomic swap. No
// failure propagates to the caller. A failed fetch publishes an empty
// collection and an empty layer placeholder; a bad feature is skipped and
// logged with its index.
func (ing *Ingestor) Ingest() *store.DatasetSnapshot {
	dataset := ing.params.Dataset
	start := time.Now()
	runID := uuid.New().String()
	metrics.IngestRunsTotal.WithLabelValues(string(dataset)).Inc()

	rawFeatures, err := ing.fetch()
	if err != nil {
		log.Printf("Fetch failure for %s: %v", dataset, err)
		metrics.IngestFailuresTotal.WithLabelValues(string(dataset)).Inc()

		snap := &store.DatasetSnapshot{
			Dataset:   dataset,
			RunID:     runID,
			Records:   []store.PointRecord{},
			Layer:     layers.EmptyGroup(dataset),
			FetchedAt: time.Now(),
		}
		ing.store.Replace(snap)
		metrics.PointRecords.WithLabelValues(string(dataset)).Set(0)
		return snap
	}

	features := make([]geometry.Feature, 0, len(rawFeatures))
	records := make([]store.PointRecord, 0, len(rawFeatures))
	skipped := 0

	for i, raw := range rawFeatures {
		feature, err := normalize(raw)
		if err != nil {
			log.Printf("Skipping %s feature %d: %v", dataset, i, err)
			metrics.FeaturesSkippedTotal.WithLabelValues(string(dataset), metrics.ReasonMalformedGeometry).Inc()
			skipped++
			continue
		}

		centroid, err := geometry.Extract(feature.Geometry)
		if err != nil {
			log.Printf("Skipping %s feature %d: %v", dataset, i, err)
			metrics.FeaturesSkippedTotal.WithLabelValues(string(dataset), metrics.ReasonCentroidUnresolvable).Inc()
			skipped++
			continue
		}

		records = append(records, store.PointRecord{
			Name:   resolveName(feature.Properties, ing.params.NameKeys),
			Lat:    centroid.Lat,
			Lon:    centroid.Lon,
			Metric: resolveMetric(feature.Properties, ing.params.MetricKeys),
		})
		features = append(features, feature)
	}

	snap := &store.DatasetSnapshot{
		Dataset:   dataset,
		RunID:     runID,
		Records:   records,
		Layer:     layers.Build(dataset, features, records),
		FetchedAt: time.Now(),
	}
	ing.store.Replace(snap)

	metrics.PointRecords.WithLabelValues(string(dataset)).Set(float64(len(records)))
	metrics.IngestDurationMs.WithLabelValues(string(dataset)).Observe(float64(time.Since(start).Milliseconds()))
	log.Printf("Ingested %s: %d records, %d skipped (run %s)", dataset, len(records), skipped, runID)

	return snap
}

func (ing *Ingestor) fetch() ([]any, error) {
	resp, err := ing.client.Get(ing.params.URL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", ing.params.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", ing.params.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return decodeFeatures(body)
}

// decodeFeatures accepts either a FeatureCollection document or a bare
// array of features.
func decodeFeatures(body []byte) ([]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch v := payload.(type) {
	case map[string]any:
		features, ok := v["features"].([]any)
		if !ok {
			return nil, fmt.Errorf("payload has no features array")
		}
		return features, nil
	case []any:
		return v, nil
	}
	return nil, fmt.Errorf("payload is neither a feature collection nor an array")
}

// normalize produces a Feature from one raw feature. The geometry value may
// be a structured object or a JSON-encoded string under either geometry
// field; a feature whose geometry cannot be parsed produces no Feature.
func normalize(raw any) (geometry.Feature, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return geometry.Feature{}, fmt.Errorf("feature is not an object")
	}

	var geomValue any
	for _, field := range geometryFields {
		if v, ok := obj[field]; ok && v != nil {
			geomValue = v
			break
		}
	}

	geom, err := geometry.Parse(geomValue)
	if err != nil {
		return geometry.Feature{}, err
	}

	return geometry.Feature{Properties: properties(obj), Geometry: geom}, nil
}

// properties returns the feature's property map. Flat Socrata rows carry
// their attributes at the top level; those use the feature itself, minus
// the geometry fields.
func properties(obj map[string]any) map[string]any {
	if props, ok := obj["properties"].(map[string]any); ok {
		return props
	}

	props := make(map[string]any, len(obj))
	for key, value := range obj {
		if key == "geometry" || key == "the_geom" {
			continue
		}
		props[key] = value
	}
	return props
}

// resolveMetric walks the fallback keys; the first key present with a
// non-null value wins. A winning value that is not a usable number leaves
// the metric nil rather than falling through to a lesser key.
func resolveMetric(props map[string]any, keys []string) *float64 {
	for _, key := range keys {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case float64:
			if !finite(v) {
				return nil
			}
			return &v
		case int:
			f := float64(v)
			return &f
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && finite(f) {
				return &f
			}
		}
		return nil
	}
	return nil
}

// resolveName walks the fallback keys for a display name.
func resolveName(props map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	}
	return "Unknown"
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
