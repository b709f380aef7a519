package ingest

import "github.com/smukkama/envdash-server/internal/store"

// Params configures one dataset ingestor: its endpoint plus the ordered
// property fallbacks for its metric and display name. The first key present
// with a non-null value wins.
type Params struct {
	Dataset    store.Dataset
	URL        string
	MetricKeys []string
	NameKeys   []string
}

// FoodParams parameterizes the food-access dataset
func FoodParams(url string) Params {
	return Params{
		Dataset:    store.DatasetFood,
		URL:        url,
		MetricKeys: []string{"food_access_score", "food_score", "score"},
		NameKeys:   []string{"store_name", "dba", "name"},
	}
}

// HeatParams parameterizes the heat-vulnerability dataset
func HeatParams(url string) Params {
	return Params{
		Dataset:    store.DatasetHeat,
		URL:        url,
		MetricKeys: []string{"hvi_score", "HVI", "hvi", "hviScore"},
		NameKeys:   []string{"ntaname", "nta_name", "name"},
	}
}

// WasteParams parameterizes the waste-sites dataset
func WasteParams(url string) Params {
	return Params{
		Dataset:    store.DatasetWaste,
		URL:        url,
		MetricKeys: []string{"tons_per_day", "tonsperday", "tons"},
		NameKeys:   []string{"facility_name", "name", "site_name"},
	}
}
