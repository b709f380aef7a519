package aggregate

import (
	"testing"

	"github.com/smukkama/envdash-server/internal/store"
)

func fv(v float64) *float64 { return &v }

func TestComputeAggregates_EmptyHeat(t *testing.T) {
	snap := ComputeAggregates(nil, nil, nil)

	if snap.AvgHeat != nil {
		t.Errorf("Expected nil avgHeat for empty collection, got %v", *snap.AvgHeat)
	}
	if snap.AvgFoodScore != nil {
		t.Errorf("Expected nil avgFoodScore, got %v", *snap.AvgFoodScore)
	}
	if snap.FoodCount != 0 {
		t.Errorf("Expected foodCount 0, got %d", snap.FoodCount)
	}
	if snap.TotalWaste != nil {
		t.Errorf("Expected nil totalWaste, got %v", *snap.TotalWaste)
	}
}

func TestComputeAggregates_NullMetricsExcludedFromMean(t *testing.T) {
	heat := []store.PointRecord{
		{Name: "a", Metric: fv(10)},
		{Name: "b", Metric: nil},
		{Name: "c", Metric: fv(30)},
	}

	snap := ComputeAggregates(heat, nil, nil)
	if snap.AvgHeat == nil {
		t.Fatal("Expected avgHeat, got nil")
	}
	if *snap.AvgHeat != 20 {
		t.Errorf("Expected avgHeat 20, got %v", *snap.AvgHeat)
	}
}

func TestComputeAggregates_AllNullMetrics(t *testing.T) {
	heat := []store.PointRecord{
		{Name: "a", Metric: nil},
		{Name: "b", Metric: nil},
	}

	snap := ComputeAggregates(heat, nil, nil)
	if snap.AvgHeat != nil {
		t.Errorf("Expected nil avgHeat when all metrics are null, got %v", *snap.AvgHeat)
	}
}

func TestComputeAggregates_FoodCountIgnoresMetricAvailability(t *testing.T) {
	food := []store.PointRecord{
		{Name: "a", Metric: fv(3)},
		{Name: "b", Metric: nil},
		{Name: "c", Metric: nil},
	}

	snap := ComputeAggregates(nil, food, nil)
	if snap.FoodCount != 3 {
		t.Errorf("Expected foodCount 3, got %d", snap.FoodCount)
	}
	if snap.AvgFoodScore == nil || *snap.AvgFoodScore != 3 {
		t.Errorf("Expected avgFoodScore 3, got %v", snap.AvgFoodScore)
	}
}

func TestComputeAggregates_WasteSum(t *testing.T) {
	waste := []store.PointRecord{
		{Name: "a", Metric: fv(100)},
		{Name: "b", Metric: fv(300)},
		{Name: "c", Metric: nil},
	}

	snap := ComputeAggregates(nil, nil, waste)
	if snap.TotalWaste == nil {
		t.Fatal("Expected totalWaste, got nil")
	}
	if *snap.TotalWaste != 400 {
		t.Errorf("Expected totalWaste 400, got %v", *snap.TotalWaste)
	}
}

func TestComputeAggregates_Deterministic(t *testing.T) {
	heat := []store.PointRecord{{Metric: fv(80)}, {Metric: fv(40)}}

	first := ComputeAggregates(heat, nil, nil)
	second := ComputeAggregates(heat, nil, nil)

	if *first.AvgHeat != *second.AvgHeat {
		t.Errorf("Expected identical snapshots, got %v and %v", *first.AvgHeat, *second.AvgHeat)
	}
}

func TestEngine_ComputeReadsCurrentCollections(t *testing.T) {
	s := store.NewStore()
	engine := NewEngine(s)

	s.Replace(&store.DatasetSnapshot{
		Dataset: store.DatasetHeat,
		Records: []store.PointRecord{{Metric: fv(80)}, {Metric: fv(40)}},
	})

	snap := engine.Compute()
	if snap.AvgHeat == nil || *snap.AvgHeat != 60 {
		t.Errorf("Expected avgHeat 60, got %v", snap.AvgHeat)
	}

	s.Replace(&store.DatasetSnapshot{
		Dataset: store.DatasetHeat,
		Records: []store.PointRecord{{Metric: fv(10)}},
	})

	snap = engine.Compute()
	if snap.AvgHeat == nil || *snap.AvgHeat != 10 {
		t.Errorf("Expected avgHeat 10 after swap, got %v", snap.AvgHeat)
	}
}
