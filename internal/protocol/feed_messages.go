package protocol

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb/geojson"
)

// LayerGroup is the ready-to-render payload for one dataset: the styled
// source geometries, one marker per point record, a fit-bounds hint and the
// legend for the metric color buckets. Raster overlays carry only a tile URL.
type LayerGroup struct {
	Dataset     string                     `json:"dataset"`
	Features    *geojson.FeatureCollection `json:"features,omitempty"`
	Markers     *geojson.FeatureCollection `json:"markers,omitempty"`
	MarkerCount int                        `json:"marker_count"`
	Bounds      *Bounds                    `json:"bounds,omitempty"`
	Legend      []LegendEntry              `json:"legend,omitempty"`
	TileURL     string                     `json:"tile_url,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Bounds is a fit-bounds rectangle in (lat, lon) order.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// LegendEntry labels one metric color bucket.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// EncodeSnapshotMessage encodes a SnapshotMessage for the snapshot feed
func EncodeSnapshotMessage(msg *SnapshotMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeSnapshotMessage decodes a snapshot feed payload
func DecodeSnapshotMessage(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
