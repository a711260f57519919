package nordpool

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strompris/strompris-go/types"
)

func quarterEntries(area string, hourStart time.Time, prices ...string) []MultiAreaEntry {
	entries := make([]MultiAreaEntry, 0, len(prices))
	for i, p := range prices {
		start := hourStart.Add(time.Duration(i) * 15 * time.Minute)
		entries = append(entries, MultiAreaEntry{
			DeliveryStart: start,
			DeliveryEnd:   start.Add(15 * time.Minute),
			EntryPerArea:  map[string]decimal.Decimal{area: decimal.RequireFromString(p)},
		})
	}
	return entries
}

func TestParsePricesAggregatesQuarterHoursToHourlyMean(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	data := &DayAheadPrices{
		Currency:         "NOK",
		MultiAreaEntries: quarterEntries("NO1", hour, "726.47", "723.89", "721.66", "719.55"),
	}

	points := ParsePrices(data)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, "NO1", p.Area)
	assert.True(t, p.Start.Equal(hour), "start should be the top of the hour")
	assert.True(t, p.End.Equal(hour.Add(time.Hour)), "end should be start + 1h")
	assert.True(t, p.Price.Equal(decimal.RequireFromString("0.7228925")),
		"expected 0.7228925, got %s", p.Price)
	assert.True(t, p.SubsidizedPrice.Equal(p.Price), "below threshold the subsidy changes nothing")
	assert.Equal(t, "NOK", p.Currency)
}

func TestParsePricesAppliesSubsidyAboveThreshold(t *testing.T) {
	hour := time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)
	data := &DayAheadPrices{
		Currency:         "NOK",
		MultiAreaEntries: quarterEntries("NO1", hour, "1000", "1000", "1000", "1000"),
	}

	points := ParsePrices(data)
	require.Len(t, points, 1)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("1")))
	assert.True(t, points[0].SubsidizedPrice.Equal(decimal.RequireFromString("0.775")),
		"expected 0.775, got %s", points[0].SubsidizedPrice)
}

func TestParsePricesAtExactThreshold(t *testing.T) {
	hour := time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)
	data := &DayAheadPrices{
		Currency:         "NOK",
		MultiAreaEntries: quarterEntries("NO1", hour, "750", "750", "750", "750"),
	}

	points := ParsePrices(data)
	require.Len(t, points, 1)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, points[0].SubsidizedPrice.Equal(decimal.RequireFromString("0.75")))
}

func TestParsePricesBuildsOrderedQuarterlySlices(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	data := &DayAheadPrices{
		Currency:         "NOK",
		MultiAreaEntries: quarterEntries("NO1", hour, "726.47", "723.89", "721.66", "719.55"),
	}

	points := ParsePrices(data)
	require.Len(t, points, 1)
	quarters := points[0].QuarterlyPrices
	require.Len(t, quarters, 4)

	for i, q := range quarters {
		expectedStart := hour.Add(time.Duration(i) * 15 * time.Minute)
		assert.True(t, q.Start.Equal(expectedStart), "quarter %d start", i)
		assert.True(t, q.End.Equal(expectedStart.Add(15*time.Minute)), "quarter %d end", i)
	}
	assert.True(t, quarters[0].Price.Equal(decimal.RequireFromString("0.72647")))
}

func TestParsePricesIsPermutationInvariant(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	entries := quarterEntries("NO1", hour, "726.47", "723.89", "721.66", "719.55")
	reversed := make([]MultiAreaEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	forward := ParsePrices(&DayAheadPrices{Currency: "NOK", MultiAreaEntries: entries})
	backward := ParsePrices(&DayAheadPrices{Currency: "NOK", MultiAreaEntries: reversed})

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.True(t, forward[0].Price.Equal(backward[0].Price))
	assert.True(t, forward[0].QuarterlyPrices[0].Start.Equal(backward[0].QuarterlyPrices[0].Start),
		"quarterly slices should be re-sorted by start")
}

func TestParsePricesToleratesPartialHours(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	data := &DayAheadPrices{
		Currency:         "NOK",
		MultiAreaEntries: quarterEntries("NO1", hour, "100", "200"),
	}

	points := ParsePrices(data)
	require.Len(t, points, 1)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("0.15")),
		"mean of the slices present, got %s", points[0].Price)
	assert.Len(t, points[0].QuarterlyPrices, 2)
}

func TestParsePricesEmptyInput(t *testing.T) {
	assert.Empty(t, ParsePrices(nil))
	assert.Empty(t, ParsePrices(&DayAheadPrices{}))
	assert.Empty(t, ParsePrices(&DayAheadPrices{MultiAreaEntries: []MultiAreaEntry{}}))
}

func TestParsePricesSkipsEntriesWithoutAreaPrices(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	entries := quarterEntries("NO1", hour, "726.47", "723.89", "721.66", "719.55")
	entries[1].EntryPerArea = nil

	points := ParsePrices(&DayAheadPrices{Currency: "NOK", MultiAreaEntries: entries})
	require.Len(t, points, 1)
	assert.Len(t, points[0].QuarterlyPrices, 3, "the entry without prices contributes nothing")
}

func TestParsePricesDefaultsCurrencyOnlyWhenAbsent(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)

	withCurrency := ParsePrices(&DayAheadPrices{
		Currency:         "EUR",
		MultiAreaEntries: quarterEntries("NO1", hour, "100"),
	})
	require.Len(t, withCurrency, 1)
	assert.Equal(t, "EUR", withCurrency[0].Currency)

	withoutCurrency := ParsePrices(&DayAheadPrices{
		MultiAreaEntries: quarterEntries("NO1", hour, "100"),
	})
	require.Len(t, withoutCurrency, 1)
	assert.Equal(t, "NOK", withoutCurrency[0].Currency)
}

func TestParsePricesDeterministicOrder(t *testing.T) {
	h22 := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	h23 := time.Date(2025, 10, 16, 23, 0, 0, 0, time.UTC)

	var entries []MultiAreaEntry
	entries = append(entries, MultiAreaEntry{
		DeliveryStart: h23,
		DeliveryEnd:   h23.Add(15 * time.Minute),
		EntryPerArea: map[string]decimal.Decimal{
			"NO3": decimal.RequireFromString("300"),
			"NO1": decimal.RequireFromString("100"),
		},
	})
	entries = append(entries, MultiAreaEntry{
		DeliveryStart: h22,
		DeliveryEnd:   h22.Add(15 * time.Minute),
		EntryPerArea: map[string]decimal.Decimal{
			"NO2": decimal.RequireFromString("200"),
		},
	})

	points := ParsePrices(&DayAheadPrices{Currency: "NOK", MultiAreaEntries: entries})
	require.Len(t, points, 3)

	got := make([]string, 0, len(points))
	for _, p := range points {
		got = append(got, p.Area+"@"+p.Start.Format("15:04"))
	}
	assert.Equal(t, []string{"NO2@22:00", "NO1@23:00", "NO3@23:00"}, got,
		"points must be ordered by start time, then area")
}

func TestParsePricesMultipleAreasShareEntries(t *testing.T) {
	hour := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	entry := MultiAreaEntry{
		DeliveryStart: hour,
		DeliveryEnd:   hour.Add(15 * time.Minute),
		EntryPerArea: map[string]decimal.Decimal{
			"NO1": decimal.RequireFromString("100"),
			"NO2": decimal.RequireFromString("400"),
		},
	}

	points := ParsePrices(&DayAheadPrices{Currency: "NOK", MultiAreaEntries: []MultiAreaEntry{entry}})
	require.Len(t, points, 2)

	byArea := map[string]types.PricePoint{}
	for _, p := range points {
		byArea[p.Area] = p
	}
	assert.True(t, byArea["NO1"].Price.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, byArea["NO2"].Price.Equal(decimal.RequireFromString("0.4")))
}
