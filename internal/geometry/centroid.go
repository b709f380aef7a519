package geometry

import (
	"math"
	"sort"
)

// maxFallbackDepth caps the recursive coordinate search on pathological input.
const maxFallbackDepth = 12

// Centroid is a single representative point for a feature, stored as
// (latitude, longitude). Geometry arrays arrive as [longitude, latitude];
// the swap happens exactly once, when a raw pair is accepted.
type Centroid struct {
	Lat float64
	Lon float64
}

// Extract derives a Centroid from a parsed geometry. Recognized types get a
// structured rule; anything else, or a structured rule that comes up empty,
// goes through a generic depth-first search for the first adjacent numeric
// pair in the structure. Returns ErrCentroidUnresolvable when no valid pair
// can be found.
func Extract(geom Geometry) (Centroid, error) {
	if geom == nil {
		return Centroid{}, ErrCentroidUnresolvable
	}

	if lon, lat, ok := structuredRule(geom); ok {
		if c, valid := accept(lon, lat); valid {
			return c, nil
		}
	}

	if lon, lat, ok := firstPair(map[string]any(geom), 0); ok {
		if c, valid := accept(lon, lat); valid {
			return c, nil
		}
	}

	return Centroid{}, ErrCentroidUnresolvable
}

// structuredRule dispatches on the geometry type and returns a raw
// [lon, lat] pair. ok is false when the type is unrecognized or the rule
// finds no usable pair.
func structuredRule(geom Geometry) (lon, lat float64, ok bool) {
	typ, _ := geom["type"].(string)

	switch typ {
	case "Point":
		return pair(geom["coordinates"])

	case "MultiPoint":
		coords, isSlice := geom["coordinates"].([]any)
		if !isSlice || len(coords) == 0 {
			return 0, 0, false
		}
		return pair(coords[0])

	case "Polygon":
		coords, isSlice := geom["coordinates"].([]any)
		if !isSlice || len(coords) == 0 {
			return 0, 0, false
		}
		return ringAverage(coords[0])

	case "MultiPolygon":
		coords, isSlice := geom["coordinates"].([]any)
		if !isSlice || len(coords) == 0 {
			return 0, 0, false
		}
		// First member polygon only; the rest are ignored.
		polygon, isSlice := coords[0].([]any)
		if !isSlice || len(polygon) == 0 {
			return 0, 0, false
		}
		return ringAverage(polygon[0])

	case "GeometryCollection":
		members, isSlice := geom["geometries"].([]any)
		if !isSlice {
			return 0, 0, false
		}
		for _, raw := range members {
			member, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			switch member["type"] {
			case "Point":
				return pair(member["coordinates"])
			case "Polygon":
				coords, isSlice := member["coordinates"].([]any)
				if !isSlice || len(coords) == 0 {
					return 0, 0, false
				}
				return ringAverage(coords[0])
			}
		}
	}

	return 0, 0, false
}

// ringAverage computes the arithmetic mean of the vertices in one ring.
// Vertices that are not finite numeric pairs are skipped. This is a vertex
// average, not an area-weighted centroid: the closing duplicate vertex is
// included and dense vertex runs pull the result toward them. Adequate for
// marker placement, not for measurement.
func ringAverage(ring any) (lon, lat float64, ok bool) {
	vertices, isSlice := ring.([]any)
	if !isSlice {
		return 0, 0, false
	}

	var sumLon, sumLat float64
	count := 0
	for _, vertex := range vertices {
		vLon, vLat, valid := pair(vertex)
		if !valid || !finite(vLon) || !finite(vLat) {
			continue
		}
		sumLon += vLon
		sumLat += vLat
		count++
	}
	if count == 0 {
		return 0, 0, false
	}
	return sumLon / float64(count), sumLat / float64(count), true
}

// firstPair searches a decoded JSON structure depth-first for the first two
// adjacent numeric values inside an array and treats them as [lon, lat].
// Upstream datasets are not always conformant GeoJSON; this keeps a feature
// alive when its geometry nests coordinates somewhere unexpected. Object
// members are visited in sorted key order so the result is deterministic.
func firstPair(node any, depth int) (lon, lat float64, ok bool) {
	if depth > maxFallbackDepth {
		return 0, 0, false
	}

	switch v := node.(type) {
	case []any:
		for i := 0; i+1 < len(v); i++ {
			a, aOK := num(v[i])
			b, bOK := num(v[i+1])
			if aOK && bOK {
				return a, b, true
			}
		}
		for _, element := range v {
			if lon, lat, ok = firstPair(element, depth+1); ok {
				return lon, lat, true
			}
		}

	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if lon, lat, ok = firstPair(v[key], depth+1); ok {
				return lon, lat, true
			}
		}
	}

	return 0, 0, false
}

// pair reads a [lon, lat] coordinate pair from a decoded JSON array.
func pair(v any) (lon, lat float64, ok bool) {
	coords, isSlice := v.([]any)
	if !isSlice || len(coords) < 2 {
		return 0, 0, false
	}
	lon, lonOK := num(coords[0])
	lat, latOK := num(coords[1])
	if !lonOK || !latOK {
		return 0, 0, false
	}
	return lon, lat, true
}

// accept validates a raw [lon, lat] pair and performs the single swap into
// stored (lat, lon) order. Non-finite or out-of-range pairs produce no
// centroid rather than a sentinel value.
func accept(lon, lat float64) (Centroid, bool) {
	if !finite(lat) || !finite(lon) {
		return Centroid{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Centroid{}, false
	}
	return Centroid{Lat: lat, Lon: lon}, true
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
