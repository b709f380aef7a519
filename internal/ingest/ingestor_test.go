package ingest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smukkama/envdash-server/internal/aggregate"
	"github.com/smukkama/envdash-server/internal/store"
)

func serveJSON(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestIngest_HeatFeatureCollection(t *testing.T) {
	server := serveJSON(t, `{"type":"FeatureCollection","features":[
		{"properties":{"ntaname":"Mott Haven","hvi_score":80},"geometry":{"type":"Point","coordinates":[-73.91,40.81]}},
		{"properties":{"ntaname":"Astoria","hvi_score":40},"geometry":{"type":"Point","coordinates":[-73.92,40.77]}},
		{"properties":{"ntaname":"Bay Ridge","hvi_score":null},"geometry":{"type":"Point","coordinates":[-74.03,40.63]}}
	]}`)
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(HeatParams(server.URL), s).Ingest()

	if len(snap.Records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(snap.Records))
	}
	if snap.Records[0].Name != "Mott Haven" {
		t.Errorf("Expected Mott Haven, got %s", snap.Records[0].Name)
	}
	if snap.Records[0].Lat != 40.81 || snap.Records[0].Lon != -73.91 {
		t.Errorf("Expected (40.81, -73.91), got (%v, %v)", snap.Records[0].Lat, snap.Records[0].Lon)
	}
	if snap.Records[2].Metric != nil {
		t.Errorf("Expected nil metric for null hvi_score, got %v", *snap.Records[2].Metric)
	}
	if snap.Layer.MarkerCount != 3 {
		t.Errorf("Expected 3 markers, got %d", snap.Layer.MarkerCount)
	}

	// The null-metric record still places a marker; only the average skips it.
	agg := aggregate.ComputeAggregates(s.Records(store.DatasetHeat), nil, nil)
	if agg.AvgHeat == nil || *agg.AvgHeat != 60 {
		t.Errorf("Expected avgHeat 60, got %v", agg.AvgHeat)
	}
}

func TestIngest_WasteSkipsMalformedGeometry(t *testing.T) {
	server := serveJSON(t, `{"type":"FeatureCollection","features":[
		{"properties":{"facility_name":"North River","tons_per_day":100},"geometry":{"type":"Point","coordinates":[-74.0,40.7]}},
		{"properties":{"facility_name":"Broken","tons_per_day":999},"geometry":"{bad json"},
		{"properties":{"facility_name":"Newtown Creek","tons_per_day":300},"geometry":{"type":"Point","coordinates":[-73.9,40.73]}}
	]}`)
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(WasteParams(server.URL), s).Ingest()

	if len(snap.Records) != 2 {
		t.Fatalf("Expected exactly 2 records, got %d", len(snap.Records))
	}
	if snap.Layer.MarkerCount != 2 {
		t.Errorf("Expected 2 markers, got %d", snap.Layer.MarkerCount)
	}

	agg := aggregate.ComputeAggregates(nil, nil, s.Records(store.DatasetWaste))
	if agg.TotalWaste == nil || *agg.TotalWaste != 400 {
		t.Errorf("Expected totalWaste 400, got %v", agg.TotalWaste)
	}
}

func TestIngest_FetchFailureDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(FoodParams(server.URL), s).Ingest()

	if snap.Records == nil {
		t.Fatal("Expected empty records, got nil")
	}
	if len(snap.Records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(snap.Records))
	}
	if snap.Layer == nil || snap.Layer.MarkerCount != 0 {
		t.Error("Expected empty layer placeholder")
	}
	if s.Snapshot(store.DatasetFood) == nil {
		t.Error("Expected store to hold the empty snapshot")
	}
}

func TestIngest_TransportErrorDegradesToEmpty(t *testing.T) {
	server := serveJSON(t, `[]`)
	server.Close() // connection refused

	s := store.NewStore()
	snap := NewIngestor(FoodParams(server.URL), s).Ingest()

	if len(snap.Records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(snap.Records))
	}
}

func TestIngest_UnparseableBodyIsFetchFailure(t *testing.T) {
	server := serveJSON(t, `not json at all`)
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(HeatParams(server.URL), s).Ingest()

	if len(snap.Records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(snap.Records))
	}
}

func TestIngest_BareArrayWithFlatRows(t *testing.T) {
	server := serveJSON(t, `[
		{"store_name":"Green Market","food_access_score":"72.5","the_geom":{"type":"Point","coordinates":[-73.95,40.68]}},
		{"dba":"Corner Grocer","food_access_score":61,"the_geom":{"type":"Point","coordinates":[-73.97,40.69]}}
	]`)
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(FoodParams(server.URL), s).Ingest()

	if len(snap.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(snap.Records))
	}
	if snap.Records[0].Name != "Green Market" {
		t.Errorf("Expected Green Market, got %s", snap.Records[0].Name)
	}
	if snap.Records[0].Metric == nil || *snap.Records[0].Metric != 72.5 {
		t.Errorf("Expected numeric-string metric 72.5, got %v", snap.Records[0].Metric)
	}
	if snap.Records[1].Name != "Corner Grocer" {
		t.Errorf("Expected dba fallback Corner Grocer, got %s", snap.Records[1].Name)
	}
}

func TestIngest_StringEncodedGeometry(t *testing.T) {
	server := serveJSON(t, `{"type":"FeatureCollection","features":[
		{"properties":{"ntaname":"Harlem","hvi_score":5},"geometry":"{\"type\":\"Point\",\"coordinates\":[-73.94,40.81]}"}
	]}`)
	defer server.Close()

	s := store.NewStore()
	snap := NewIngestor(HeatParams(server.URL), s).Ingest()

	if len(snap.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(snap.Records))
	}
	if snap.Records[0].Lat != 40.81 {
		t.Errorf("Expected lat 40.81, got %v", snap.Records[0].Lat)
	}
}

func TestResolveMetric_FallbackOrder(t *testing.T) {
	keys := []string{"hvi_score", "HVI", "hvi", "hviScore"}

	m := resolveMetric(map[string]any{"hvi_score": nil, "HVI": 3.0}, keys)
	if m == nil || *m != 3 {
		t.Errorf("Expected null first key to fall through to HVI=3, got %v", m)
	}

	m = resolveMetric(map[string]any{"hviScore": 2.0}, keys)
	if m == nil || *m != 2 {
		t.Errorf("Expected hviScore=2, got %v", m)
	}

	if m = resolveMetric(map[string]any{"other": 9.0}, keys); m != nil {
		t.Errorf("Expected nil when no key matches, got %v", *m)
	}
}

func TestResolveMetric_NonNumericWinnerStops(t *testing.T) {
	keys := []string{"hvi_score", "HVI"}

	m := resolveMetric(map[string]any{"hvi_score": "high", "HVI": 4.0}, keys)
	if m != nil {
		t.Errorf("Expected nil metric when the winning key is non-numeric, got %v", *m)
	}
}

func TestResolveName_Fallback(t *testing.T) {
	keys := []string{"ntaname", "nta_name", "name"}

	if name := resolveName(map[string]any{"nta_name": "Astoria"}, keys); name != "Astoria" {
		t.Errorf("Expected Astoria, got %s", name)
	}
	if name := resolveName(map[string]any{}, keys); name != "Unknown" {
		t.Errorf("Expected Unknown, got %s", name)
	}
	if name := resolveName(map[string]any{"name": 12.0}, keys); name != "12" {
		t.Errorf("Expected 12, got %s", name)
	}
}
