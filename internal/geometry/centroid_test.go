package geometry

import (
	"math"
	"testing"
)

func TestExtract_Point(t *testing.T) {
	geom := Geometry{
		"type":        "Point",
		"coordinates": []any{-73.9, 40.7},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 40.7 || c.Lon != -73.9 {
		t.Errorf("Expected (40.7, -73.9), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_PointOutOfRange(t *testing.T) {
	geom := Geometry{
		"type":        "Point",
		"coordinates": []any{-200.0, 40.7},
	}

	if _, err := Extract(geom); err != ErrCentroidUnresolvable {
		t.Errorf("Expected ErrCentroidUnresolvable, got %v", err)
	}
}

func TestExtract_PointNonFinite(t *testing.T) {
	geom := Geometry{
		"type":        "Point",
		"coordinates": []any{math.NaN(), 40.7},
	}

	if _, err := Extract(geom); err != ErrCentroidUnresolvable {
		t.Errorf("Expected ErrCentroidUnresolvable, got %v", err)
	}
}

func TestExtract_MultiPointFirstPair(t *testing.T) {
	geom := Geometry{
		"type": "MultiPoint",
		"coordinates": []any{
			[]any{-73.9, 40.7},
			[]any{-74.1, 40.9},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 40.7 || c.Lon != -73.9 {
		t.Errorf("Expected first pair (40.7, -73.9), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_PolygonVertexAverage(t *testing.T) {
	// Closed unit-ish square; the closing duplicate vertex counts too,
	// so the average is (0.8, 0.8) rather than (1, 1).
	geom := Geometry{
		"type": "Polygon",
		"coordinates": []any{
			[]any{
				[]any{0.0, 0.0},
				[]any{2.0, 0.0},
				[]any{2.0, 2.0},
				[]any{0.0, 2.0},
				[]any{0.0, 0.0},
			},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 0.8 || c.Lon != 0.8 {
		t.Errorf("Expected (0.8, 0.8), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_PolygonSkipsNonFiniteVertices(t *testing.T) {
	geom := Geometry{
		"type": "Polygon",
		"coordinates": []any{
			[]any{
				[]any{0.0, 0.0},
				[]any{math.NaN(), 50.0},
				[]any{2.0, 2.0},
			},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 1.0 || c.Lon != 1.0 {
		t.Errorf("Expected (1, 1) from the two finite vertices, got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_PolygonEmptyRing(t *testing.T) {
	geom := Geometry{
		"type":        "Polygon",
		"coordinates": []any{[]any{}},
	}

	if _, err := Extract(geom); err != ErrCentroidUnresolvable {
		t.Errorf("Expected ErrCentroidUnresolvable, got %v", err)
	}
}

func TestExtract_MultiPolygonFirstPolygonOnly(t *testing.T) {
	geom := Geometry{
		"type": "MultiPolygon",
		"coordinates": []any{
			[]any{ // first polygon, outer ring around (1, 1)
				[]any{
					[]any{0.0, 0.0},
					[]any{2.0, 0.0},
					[]any{2.0, 2.0},
					[]any{0.0, 2.0},
				},
			},
			[]any{ // second polygon far away, must be ignored
				[]any{
					[]any{100.0, 80.0},
					[]any{102.0, 80.0},
					[]any{102.0, 82.0},
				},
			},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 1.0 || c.Lon != 1.0 {
		t.Errorf("Expected (1, 1) from first polygon, got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_GeometryCollectionFirstMatchWins(t *testing.T) {
	geom := Geometry{
		"type": "GeometryCollection",
		"geometries": []any{
			map[string]any{
				"type":        "LineString",
				"coordinates": []any{[]any{5.0, 5.0}, []any{6.0, 6.0}},
			},
			map[string]any{
				"type":        "Point",
				"coordinates": []any{-73.9, 40.7},
			},
			map[string]any{
				"type": "Polygon",
				"coordinates": []any{
					[]any{[]any{0.0, 0.0}, []any{2.0, 2.0}},
				},
			},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// The LineString member is neither Point nor Polygon, so the Point wins.
	if c.Lat != 40.7 || c.Lon != -73.9 {
		t.Errorf("Expected (40.7, -73.9), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_GeometryCollectionPolygonFirst(t *testing.T) {
	geom := Geometry{
		"type": "GeometryCollection",
		"geometries": []any{
			map[string]any{
				"type": "Polygon",
				"coordinates": []any{
					[]any{[]any{0.0, 0.0}, []any{2.0, 2.0}},
				},
			},
			map[string]any{
				"type":        "Point",
				"coordinates": []any{-73.9, 40.7},
			},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 1.0 || c.Lon != 1.0 {
		t.Errorf("Expected polygon average (1, 1), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_FallbackUnknownType(t *testing.T) {
	geom := Geometry{
		"type": "Blob",
		"shape": map[string]any{
			"inner": []any{[]any{-73.5, 40.5}},
		},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 40.5 || c.Lon != -73.5 {
		t.Errorf("Expected fallback pair (40.5, -73.5), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_FallbackAdjacentPairInMixedArray(t *testing.T) {
	// The first two adjacent numbers win, even with junk between values.
	geom := Geometry{
		"type":   "Odd",
		"values": []any{"label", -73.5, 40.5, "trailing"},
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 40.5 || c.Lon != -73.5 {
		t.Errorf("Expected (40.5, -73.5), got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestExtract_FallbackDepthCap(t *testing.T) {
	node := any([]any{-73.5, 40.5})
	for i := 0; i < 20; i++ {
		node = []any{node}
	}
	geom := Geometry{"type": "Odd", "deep": node}

	if _, err := Extract(geom); err != ErrCentroidUnresolvable {
		t.Errorf("Expected ErrCentroidUnresolvable beyond depth cap, got %v", err)
	}
}

func TestExtract_NilGeometry(t *testing.T) {
	if _, err := Extract(nil); err != ErrCentroidUnresolvable {
		t.Errorf("Expected ErrCentroidUnresolvable, got %v", err)
	}
}

func TestExtract_ParsedJSONRoundTrip(t *testing.T) {
	geom, err := Parse(`{"type":"MultiPolygon","coordinates":[[[[0,0],[2,0],[2,2],[0,2],[0,0]]]]}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	c, err := Extract(geom)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if c.Lat != 0.8 || c.Lon != 0.8 {
		t.Errorf("Expected (0.8, 0.8), got (%v, %v)", c.Lat, c.Lon)
	}
}
