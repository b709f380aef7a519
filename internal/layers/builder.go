package layers

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/smukkama/envdash-server/internal/geometry"
	"github.com/smukkama/envdash-server/internal/protocol"
	"github.com/smukkama/envdash-server/internal/store"
)

// Build assembles the ready-to-render layer group for one dataset: the
// styled source geometries, one marker per point record, fit bounds and the
// legend. features[i] must be the source feature that produced records[i];
// pass nil features for marker-only overlays.
func Build(dataset store.Dataset, features []geometry.Feature, records []store.PointRecord) *protocol.LayerGroup {
	scale := Scale(dataset)

	group := &protocol.LayerGroup{
		Dataset:     string(dataset),
		Features:    geojson.NewFeatureCollection(),
		Markers:     geojson.NewFeatureCollection(),
		MarkerCount: len(records),
		Legend:      legend(scale),
		GeneratedAt: time.Now(),
	}

	for i, record := range records {
		marker := geojson.NewFeature(orb.Point{record.Lon, record.Lat})
		marker.Properties["name"] = record.Name
		marker.Properties["metric"] = record.Metric
		marker.Properties["text"] = MetricText(record.Metric)
		group.Markers.Append(marker)

		if i < len(features) {
			if styled := styledFeature(features[i], scale, record); styled != nil {
				group.Features.Append(styled)
			}
		}
	}

	group.Bounds = markerBounds(records)
	return group
}

// EmptyGroup is the placeholder published when a dataset's fetch fails.
func EmptyGroup(dataset store.Dataset) *protocol.LayerGroup {
	return Build(dataset, nil, nil)
}

// RasterGroup wraps the satellite tile URL. Raster overlays carry no
// features; the map collaborator loads tiles itself.
func RasterGroup(tileURL string) *protocol.LayerGroup {
	return &protocol.LayerGroup{
		Dataset:     string(store.DatasetRaster),
		TileURL:     tileURL,
		GeneratedAt: time.Now(),
	}
}

// styledFeature re-encodes one source geometry as an orb feature carrying
// its metric fill color. Geometries orb cannot represent are dropped from
// the styled collection; the marker built from the same record remains.
func styledFeature(feature geometry.Feature, scale ColorScale, record store.PointRecord) *geojson.Feature {
	if feature.Geometry == nil {
		return nil
	}
	raw, err := json.Marshal(feature.Geometry)
	if err != nil {
		return nil
	}

	var geom geojson.Geometry
	if err := json.Unmarshal(raw, &geom); err != nil {
		return nil
	}
	orbGeom := geom.Geometry()
	if orbGeom == nil {
		return nil
	}

	styled := geojson.NewFeature(orbGeom)
	styled.Properties["name"] = record.Name
	styled.Properties["metric"] = record.Metric
	styled.Properties["fillColor"] = scale.Color(record.Metric)
	return styled
}

func markerBounds(records []store.PointRecord) *protocol.Bounds {
	if len(records) == 0 {
		return nil
	}

	points := make(orb.MultiPoint, len(records))
	for i, record := range records {
		points[i] = orb.Point{record.Lon, record.Lat}
	}
	b := points.Bound()

	return &protocol.Bounds{
		MinLat: b.Min[1],
		MinLon: b.Min[0],
		MaxLat: b.Max[1],
		MaxLon: b.Max[0],
	}
}

func legend(scale ColorScale) []protocol.LegendEntry {
	entries := make([]protocol.LegendEntry, 0, len(scale.Colors))
	for i, color := range scale.Colors {
		label := ""
		if i < len(scale.Labels) {
			label = scale.Labels[i]
		}
		entries = append(entries, protocol.LegendEntry{Label: label, Color: color})
	}
	return entries
}
