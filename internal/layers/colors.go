package layers

import (
	"fmt"

	"github.com/smukkama/envdash-server/internal/store"
)

// neutralColor styles features whose metric is unavailable.
const neutralColor = "#9e9e9e"

// ColorScale maps a metric value to a fill color by fixed breaks. Breaks are
// ascending upper bounds; a value falls into the first bucket whose break it
// is below, with one final bucket above the last break.
type ColorScale struct {
	Breaks []float64
	Colors []string
	Labels []string
}

// Color returns the fill color for a metric value. A nil metric gets the
// neutral color.
func (cs ColorScale) Color(metric *float64) string {
	if metric == nil || len(cs.Colors) == 0 {
		return neutralColor
	}
	for i, b := range cs.Breaks {
		if *metric < b {
			return cs.Colors[i]
		}
	}
	return cs.Colors[len(cs.Colors)-1]
}

// scales holds the fixed color breaks per dataset (ColorBrewer palettes).
var scales = map[store.Dataset]ColorScale{
	store.DatasetHeat: {
		Breaks: []float64{2, 3, 4, 5},
		Colors: []string{"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"},
		Labels: []string{"1 (lowest)", "2", "3", "4", "5 (highest)"},
	},
	store.DatasetFood: {
		Breaks: []float64{25, 50, 75},
		Colors: []string{"#edf8e9", "#bae4b3", "#74c476", "#238b45"},
		Labels: []string{"< 25", "25-50", "50-75", ">= 75"},
	},
	store.DatasetWaste: {
		Breaks: []float64{50, 200, 500},
		Colors: []string{"#f2f0f7", "#cbc9e2", "#9e9ac8", "#6a51a3"},
		Labels: []string{"< 50 t/d", "50-200 t/d", "200-500 t/d", ">= 500 t/d"},
	},
	store.DatasetClimate: {
		Breaks: []float64{0, 10, 20, 30},
		Colors: []string{"#4575b4", "#91bfdb", "#e0f3f8", "#fee090", "#fc8d59"},
		Labels: []string{"< 0°C", "0-10°C", "10-20°C", "20-30°C", ">= 30°C"},
	},
}

// Scale returns the color scale for a dataset. Datasets without a scale get
// a zero ColorScale, which colors everything neutral.
func Scale(dataset store.Dataset) ColorScale {
	return scales[dataset]
}

// MetricText renders a metric for display; nil reads "N/A".
func MetricText(metric *float64) string {
	if metric == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *metric)
}
