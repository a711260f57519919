// Package chartjs builds Chart.js configuration objects for the hourly
// spot prices, so a frontend can render them without any client-side
// data wrangling.
package chartjs

import (
	"math"

	"github.com/strompris/strompris-go/types"
)

const ColorYellow = "#ffc107d4"
const ColorRed = "#f44336d4"

const pricePrecision = 4

// NewPriceChart renders one line per price series (raw and subsidized)
// with one label per cached hour, in the order the points are given.
func NewPriceChart(title string, points []types.PricePoint) Chart {
	labels := make([]string, len(points))
	raw := make([]*float64, len(points))
	subsidized := make([]*float64, len(points))

	for i, p := range points {
		labels[i] = p.Start.Local().Format("02 Jan 15:04")
		raw[i] = fixedFloat64(p.Price.InexactFloat64(), pricePrecision)
		subsidized[i] = fixedFloat64(p.SubsidizedPrice.InexactFloat64(), pricePrecision)
	}

	chart := Chart{
		Type: "line",
		Data: ChartData{
			Labels: labels,
			Datasets: []ChartDataset{
				{
					Label:       "price",
					Data:        raw,
					BorderWidth: 1,
					Tension:     0.4,
					Fill:        false,
					BorderColor: ColorYellow,
				},
				{
					Label:       "subsidized",
					Data:        subsidized,
					BorderWidth: 1,
					Tension:     0.4,
					Fill:        false,
					BorderColor: ColorRed,
				},
			},
		},
		Options: ChartOptions{
			Responsive: true,
			Plugins: ChartPlugins{
				Legend: ChartLegend{Display: true},
				Title:  ChartTitle{Display: false},
			},
			Scales: map[string]ChartScale{
				"y": {
					Type:        "linear",
					Display:     true,
					Position:    "left",
					BeginAtZero: true,
					Title:       ChartScaleTitle{Display: true, Text: "kr/kWh"},
				},
			},
		},
	}

	if title != "" {
		chart.Options.Plugins.Title = ChartTitle{Display: true, Text: title}
	}

	return chart
}

func fixedFloat64(num float64, precision int) *float64 {
	p := math.Pow(10, float64(precision))
	result := math.Round(num*p) / p
	return &result
}
