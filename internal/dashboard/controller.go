package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/envdash-server/internal/aggregate"
	"github.com/smukkama/envdash-server/internal/climate"
	"github.com/smukkama/envdash-server/internal/ingest"
	"github.com/smukkama/envdash-server/internal/layers"
	"github.com/smukkama/envdash-server/internal/metrics"
	"github.com/smukkama/envdash-server/internal/protocol"
	"github.com/smukkama/envdash-server/internal/queue"
	"github.com/smukkama/envdash-server/internal/store"
	"github.com/smukkama/envdash-server/internal/visibility"
)

const (
	visibleOpacity = 1.0
	hiddenOpacity  = 0.4
)

// Broadcaster pushes an encoded message to every connected subscriber
type Broadcaster interface {
	Broadcast(data []byte) int
}

// Controller orchestrates ingestion, aggregation and visibility. It is the
// sole subscriber of the visibility store and fans every transition out to
// the map, chart and indicator collaborators.
type Controller struct {
	store      *store.Store
	engine     *aggregate.Engine
	visibility *visibility.StateStore
	ingestors  []*ingest.Ingestor
	climate    *climate.Client

	broadcaster Broadcaster
	feed        *queue.SnapshotFeed // nil when the snapshot feed is disabled

	// callbackMu serializes completion callbacks and transition fan-outs
	// so outbound messages for one event finish before the next begins
	callbackMu sync.Mutex

	refreshMu sync.Mutex

	mu            sync.Mutex
	climateLoaded bool
	lastRefreshAt time.Time
}

// NewController creates the dashboard controller and subscribes it to
// visibility transitions. The raster overlay is static configuration, so
// its layer group is published immediately.
func NewController(
	st *store.Store,
	vis *visibility.StateStore,
	ingestors []*ingest.Ingestor,
	climateClient *climate.Client,
	rasterTileURL string,
	broadcaster Broadcaster,
	feed *queue.SnapshotFeed,
) *Controller {
	c := &Controller{
		store:       st,
		engine:      aggregate.NewEngine(st),
		visibility:  vis,
		ingestors:   ingestors,
		climate:     climateClient,
		broadcaster: broadcaster,
		feed:        feed,
	}

	vis.Subscribe(c.handleTransition)

	st.Replace(&store.DatasetSnapshot{
		Dataset:   store.DatasetRaster,
		RunID:     uuid.New().String(),
		Layer:     layers.RasterGroup(rasterTileURL),
		FetchedAt: time.Now(),
	})

	return c
}

// RefreshAll ingests the core datasets concurrently and runs each dataset's
// completion callback as it lands. One dataset's failure never blocks the
// others; a failed fetch just publishes an empty collection.
func (c *Controller) RefreshAll() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	log.Printf("Refreshing %d datasets", len(c.ingestors))

	var wg sync.WaitGroup
	for _, ing := range c.ingestors {
		wg.Add(1)
		go func(ing *ingest.Ingestor) {
			defer wg.Done()
			ing.Ingest()
			c.ingestDone(ing.Dataset())
		}(ing)
	}
	wg.Wait()

	c.mu.Lock()
	c.lastRefreshAt = time.Now()
	c.mu.Unlock()
}

// RefreshClimate re-fetches the climate points, but only once the overlay
// has been lazily loaded; before that there is nothing to refresh.
func (c *Controller) RefreshClimate() {
	c.mu.Lock()
	loaded := c.climateLoaded
	c.mu.Unlock()
	if !loaded {
		return
	}

	if !c.loadClimate() {
		return
	}

	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	if c.visibility.Visible(store.DatasetClimate) {
		c.pushLayerAdd(store.DatasetClimate)
	}
	c.pushIndicators()
	c.publishSnapshot()
}

// Toggle routes an external visibility toggle through the state store.
// The resulting transition, if any, comes back via handleTransition.
func (c *Controller) Toggle(dataset string, visible bool) error {
	_, err := c.visibility.Toggle(store.Dataset(dataset), visible)
	return err
}

// VisibilityStates returns the current visibility mapping
func (c *Controller) VisibilityStates() map[string]bool {
	states := c.visibility.States()
	out := make(map[string]bool, len(states))
	for dataset, visible := range states {
		out[string(dataset)] = visible
	}
	return out
}

// Counts returns the current record count per dataset
func (c *Controller) Counts() map[string]int {
	counts := c.store.Counts()
	out := make(map[string]int, len(counts))
	for dataset, count := range counts {
		out[string(dataset)] = count
	}
	return out
}

// Indicators builds the indicator panel payload: marker counts plus
// opacity hints for every dataset
func (c *Controller) Indicators() []protocol.Indicator {
	states := c.visibility.States()
	counts := c.store.Counts()

	indicators := make([]protocol.Indicator, 0, len(store.AllDatasets))
	for _, dataset := range store.AllDatasets {
		opacity := hiddenOpacity
		if states[dataset] {
			opacity = visibleOpacity
		}
		indicators = append(indicators, protocol.Indicator{
			Dataset: string(dataset),
			Count:   counts[dataset],
			Visible: states[dataset],
			Opacity: opacity,
		})
	}
	return indicators
}

// Layer returns a dataset's current layer group
func (c *Controller) Layer(dataset string) (*protocol.LayerGroup, error) {
	ds := store.Dataset(dataset)
	if !ds.Known() {
		return nil, visibility.ErrUnknownDataset
	}

	snap := c.store.Snapshot(ds)
	if snap == nil || snap.Layer == nil {
		return nil, fmt.Errorf("dataset %s not loaded", dataset)
	}
	return snap.Layer, nil
}

// SnapshotMessage computes the current aggregate snapshot and translates it
// into the per-series chart update
func (c *Controller) SnapshotMessage() *protocol.SnapshotMessage {
	snap := c.engine.Compute()
	states := c.visibility.States()

	return &protocol.SnapshotMessage{
		Type:       protocol.MsgTypeSnapshot,
		SnapshotID: uuid.New().String(),
		ComputedAt: time.Now().UTC(),
		Series:     buildSeries(snap, states),
	}
}

// InitialMessages builds the state push for a freshly connected subscriber:
// visibility, layer groups for visible datasets, indicators, then the
// current snapshot.
func (c *Controller) InitialMessages() [][]byte {
	states := c.visibility.States()

	msgs := []interface{}{
		&protocol.VisibilityMessage{Type: protocol.MsgTypeVisibility, States: c.VisibilityStates()},
	}
	for _, dataset := range store.AllDatasets {
		if !states[dataset] {
			continue
		}
		snap := c.store.Snapshot(dataset)
		if snap == nil || snap.Layer == nil {
			continue
		}
		msgs = append(msgs, &protocol.LayersMessage{
			Type:    protocol.MsgTypeLayers,
			Dataset: string(dataset),
			Action:  protocol.LayerActionAdd,
			Layer:   snap.Layer,
		})
	}
	msgs = append(msgs,
		&protocol.IndicatorsMessage{Type: protocol.MsgTypeIndicators, Indicators: c.Indicators()},
		c.SnapshotMessage(),
	)

	out := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		data, err := protocol.EncodeMessage(msg)
		if err != nil {
			log.Printf("Failed to encode initial message: %v", err)
			continue
		}
		out = append(out, data)
	}
	return out
}

// Stats returns controller statistics
func (c *Controller) Stats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ControllerStats{
		ClimateLoaded: c.climateLoaded,
		LastRefreshAt: c.lastRefreshAt,
	}
}

// ControllerStats contains statistics about the controller
type ControllerStats struct {
	ClimateLoaded bool
	LastRefreshAt time.Time
}

// ingestDone is one dataset's completion callback after an ingest run
func (c *Controller) ingestDone(dataset store.Dataset) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	if c.visibility.Visible(dataset) {
		c.pushLayerAdd(dataset)
	}
	c.pushIndicators()
	c.publishSnapshot()
}

// handleTransition fans one visibility transition out to the collaborators:
// the map gains or loses the layer group, the indicator panel updates, and
// the chart gets a fresh snapshot with matching series visibility.
func (c *Controller) handleTransition(t visibility.Transition) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()

	if t.Visible {
		c.ensureOverlay(t.Dataset)
		c.pushLayerAdd(t.Dataset)
	} else {
		c.pushLayerRemove(t.Dataset)
	}

	c.pushVisibility()
	c.pushIndicators()
	c.publishSnapshot()
}

// ensureOverlay performs the one-time lazy load for overlay datasets. A
// failed load is retried on the next Visible transition; a successful one
// is cached and never re-fetched by a toggle.
func (c *Controller) ensureOverlay(dataset store.Dataset) {
	if dataset != store.DatasetClimate {
		return
	}

	c.mu.Lock()
	loaded := c.climateLoaded
	c.mu.Unlock()
	if loaded {
		return
	}

	if c.loadClimate() {
		c.mu.Lock()
		c.climateLoaded = true
		c.mu.Unlock()
	}
}

// loadClimate fetches the climate points and publishes them as a dataset
func (c *Controller) loadClimate() bool {
	if c.climate == nil {
		return false
	}

	records, err := c.climate.FetchPoints(context.Background())
	if err != nil {
		log.Printf("Climate load failed: %v", err)
		return false
	}

	c.store.Replace(&store.DatasetSnapshot{
		Dataset:   store.DatasetClimate,
		RunID:     uuid.New().String(),
		Records:   records,
		Layer:     layers.Build(store.DatasetClimate, nil, records),
		FetchedAt: time.Now(),
	})
	metrics.PointRecords.WithLabelValues(string(store.DatasetClimate)).Set(float64(len(records)))

	log.Printf("Loaded %d climate points", len(records))
	return true
}

func (c *Controller) pushLayerAdd(dataset store.Dataset) {
	snap := c.store.Snapshot(dataset)
	if snap == nil || snap.Layer == nil {
		return
	}
	c.broadcast(&protocol.LayersMessage{
		Type:    protocol.MsgTypeLayers,
		Dataset: string(dataset),
		Action:  protocol.LayerActionAdd,
		Layer:   snap.Layer,
	})
}

func (c *Controller) pushLayerRemove(dataset store.Dataset) {
	c.broadcast(&protocol.LayersMessage{
		Type:    protocol.MsgTypeLayers,
		Dataset: string(dataset),
		Action:  protocol.LayerActionRemove,
	})
}

func (c *Controller) pushVisibility() {
	c.broadcast(&protocol.VisibilityMessage{
		Type:   protocol.MsgTypeVisibility,
		States: c.VisibilityStates(),
	})
}

func (c *Controller) pushIndicators() {
	c.broadcast(&protocol.IndicatorsMessage{
		Type:       protocol.MsgTypeIndicators,
		Indicators: c.Indicators(),
	})
}

// publishSnapshot recomputes the aggregate and pushes the chart update to
// subscribers and, when enabled, the snapshot feed
func (c *Controller) publishSnapshot() {
	msg := c.SnapshotMessage()
	metrics.SnapshotsComputedTotal.Inc()

	c.broadcast(msg)

	if c.feed != nil {
		c.feed.Offer(msg)
	}
}

func (c *Controller) broadcast(msg interface{}) {
	if c.broadcaster == nil {
		return
	}

	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		log.Printf("Failed to encode outbound message: %v", err)
		return
	}
	c.broadcaster.Broadcast(data)
}

// buildSeries translates an aggregate snapshot into chart series updates.
// Series visibility mirrors dataset visibility; when no food scores exist
// the food series text falls back to the site count.
func buildSeries(snap aggregate.AggregateSnapshot, states map[store.Dataset]bool) []protocol.SeriesUpdate {
	foodText := layers.MetricText(snap.AvgFoodScore)
	if snap.AvgFoodScore == nil && snap.FoodCount > 0 {
		foodText = fmt.Sprintf("%d sites", snap.FoodCount)
	}

	foodCount := float64(snap.FoodCount)

	return []protocol.SeriesUpdate{
		{Series: "avg_heat", Value: snap.AvgHeat, Text: layers.MetricText(snap.AvgHeat), Visible: states[store.DatasetHeat]},
		{Series: "avg_food_score", Value: snap.AvgFoodScore, Text: foodText, Visible: states[store.DatasetFood]},
		{Series: "food_count", Value: &foodCount, Text: fmt.Sprintf("%d", snap.FoodCount), Visible: states[store.DatasetFood]},
		{Series: "total_waste", Value: snap.TotalWaste, Text: layers.MetricText(snap.TotalWaste), Visible: states[store.DatasetWaste]},
	}
}
