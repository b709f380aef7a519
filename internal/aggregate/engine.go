package aggregate

import (
	"github.com/smukkama/envdash-server/internal/store"
)

// AggregateSnapshot is the cross-dataset summary painted into the chart.
// Nil means "no value to display", never zero: an empty or all-null
// collection produces a nil average, not 0.
type AggregateSnapshot struct {
	AvgHeat      *float64
	AvgFoodScore *float64
	FoodCount    int
	TotalWaste   *float64
}

// Engine recomputes the aggregate snapshot from the current point-record
// collections. Computation is deterministic and side-effect-free; calling it
// any number of times for the same collections yields the same snapshot.
type Engine struct {
	store *store.Store
}

// NewEngine creates a new aggregation engine
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Compute reads the most recently published collection for each dataset and
// returns a fresh snapshot.
func (e *Engine) Compute() AggregateSnapshot {
	return ComputeAggregates(
		e.store.Records(store.DatasetHeat),
		e.store.Records(store.DatasetFood),
		e.store.Records(store.DatasetWaste),
	)
}

// ComputeAggregates builds an AggregateSnapshot from the three point-record
// collections. Null metrics are excluded from means and sums; FoodCount
// counts every food record regardless of metric availability.
func ComputeAggregates(heat, food, waste []store.PointRecord) AggregateSnapshot {
	return AggregateSnapshot{
		AvgHeat:      mean(heat),
		AvgFoodScore: mean(food),
		FoodCount:    len(food),
		TotalWaste:   sum(waste),
	}
}

func mean(records []store.PointRecord) *float64 {
	var total float64
	count := 0
	for _, record := range records {
		if record.Metric == nil {
			continue
		}
		total += *record.Metric
		count++
	}
	if count == 0 {
		return nil
	}
	avg := total / float64(count)
	return &avg
}

func sum(records []store.PointRecord) *float64 {
	var total float64
	count := 0
	for _, record := range records {
		if record.Metric == nil {
			continue
		}
		total += *record.Metric
		count++
	}
	if count == 0 {
		return nil
	}
	return &total
}
