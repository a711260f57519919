package nordpool

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/strompris/strompris-go/calc"
	"github.com/strompris/strompris-go/clock"
	"github.com/strompris/strompris-go/types"
)

const fallbackCurrency = "NOK"

var perMWh = decimal.NewFromInt(1000)

type bucketKey struct {
	area  string
	start time.Time
}

// ParsePrices aggregates the quarter-hour multiAreaEntries of a day-ahead
// payload into hourly price points per area. Prices are converted from
// per-MWh to per-kWh and the hourly price is the mean of the slices that
// are actually present; hours with fewer than four slices are tolerated.
// The result is ordered by start time, then area.
func ParsePrices(data *DayAheadPrices) []types.PricePoint {
	if data == nil || len(data.MultiAreaEntries) == 0 {
		return []types.PricePoint{}
	}

	currency := data.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	buckets := make(map[bucketKey][]types.QuarterlyPrice)
	for _, entry := range data.MultiAreaEntries {
		if len(entry.EntryPerArea) == 0 {
			continue
		}
		for area, price := range entry.EntryPerArea {
			key := bucketKey{area: area, start: clock.TruncateHour(entry.DeliveryStart)}
			buckets[key] = append(buckets[key], types.QuarterlyPrice{
				Start: entry.DeliveryStart,
				End:   entry.DeliveryEnd,
				Price: price.Div(perMWh),
			})
		}
	}

	points := make([]types.PricePoint, 0, len(buckets))
	for key, quarters := range buckets {
		sort.Slice(quarters, func(i, j int) bool {
			return quarters[i].Start.Before(quarters[j].Start)
		})

		sum := decimal.Zero
		for _, q := range quarters {
			sum = sum.Add(q.Price)
		}
		mean := sum.Div(decimal.NewFromInt(int64(len(quarters))))

		points = append(points, types.PricePoint{
			Area:            key.area,
			Start:           key.start,
			End:             key.start.Add(time.Hour),
			Price:           mean,
			SubsidizedPrice: calc.Subsidized(mean),
			Currency:        currency,
			QuarterlyPrices: quarters,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].Start.Equal(points[j].Start) {
			return points[i].Start.Before(points[j].Start)
		}
		return points[i].Area < points[j].Area
	})

	return points
}
