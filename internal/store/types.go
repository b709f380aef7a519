package store

import (
	"time"

	"github.com/smukkama/envdash-server/internal/protocol"
)

// Dataset identifies one thematic collection on the dashboard.
type Dataset string

const (
	DatasetFood    Dataset = "food"
	DatasetHeat    Dataset = "heat"
	DatasetWaste   Dataset = "waste"
	DatasetRaster  Dataset = "raster"
	DatasetClimate Dataset = "climate"
)

// CoreDatasets are the three ingested feature collections.
var CoreDatasets = []Dataset{DatasetFood, DatasetHeat, DatasetWaste}

// AllDatasets includes the auxiliary overlays that only carry visibility
// state (raster tiles, lazy climate points).
var AllDatasets = []Dataset{DatasetFood, DatasetHeat, DatasetWaste, DatasetRaster, DatasetClimate}

// Known reports whether d is a dataset the dashboard tracks.
func (d Dataset) Known() bool {
	for _, known := range AllDatasets {
		if d == known {
			return true
		}
	}
	return false
}

// PointRecord is one successfully centroid-derived feature. Metric is nil
// when the feature carried no usable measurement; the record still places
// a marker.
type PointRecord struct {
	Name   string   `json:"name"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Metric *float64 `json:"metric"`
}

// DatasetSnapshot is the complete published state of one dataset after an
// ingestion run: its point records, its ready-to-render layer group, and
// provenance. Snapshots are immutable once stored.
type DatasetSnapshot struct {
	Dataset   Dataset
	RunID     string
	Records   []PointRecord
	Layer     *protocol.LayerGroup
	FetchedAt time.Time
}
