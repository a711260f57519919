package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strompris/strompris-go/clock"
	"github.com/strompris/strompris-go/types"
)

func point(area string, start time.Time, price string) types.PricePoint {
	d := decimal.RequireFromString(price)
	return types.PricePoint{
		Area:            area,
		Start:           start,
		End:             start.Add(time.Hour),
		Price:           d,
		SubsidizedPrice: d,
		Currency:        "NOK",
	}
}

func TestAddPricesFirstWriterWins(t *testing.T) {
	start := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(start))

	store.AddPrices([]types.PricePoint{point("NO1", start, "0.5")})
	store.AddPrices([]types.PricePoint{point("NO1", start, "0.6")})

	all := store.All("NO1")
	require.Len(t, all, 1)
	assert.True(t, all[0].Price.Equal(decimal.RequireFromString("0.5")),
		"the first inserted point must be retained, got %s", all[0].Price)
}

func TestAddPricesIsIdempotent(t *testing.T) {
	start := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(start))

	batch := []types.PricePoint{
		point("NO1", start, "0.5"),
		point("NO1", start.Add(time.Hour), "0.6"),
	}
	store.AddPrices(batch)
	first := store.All("")
	store.AddPrices(batch)
	second := store.All("")

	assert.Equal(t, first, second, "re-adding an identical batch must not change the contents")
}

func TestReplacePricesDiscardsEverything(t *testing.T) {
	start := time.Date(2025, 10, 16, 22, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(start))

	store.AddPrices([]types.PricePoint{point("NO1", start, "0.5")})
	store.ReplacePrices([]types.PricePoint{point("NO2", start, "0.9")})

	assert.Empty(t, store.All("NO1"))
	all := store.All("")
	require.Len(t, all, 1)
	assert.Equal(t, "NO2", all[0].Area)
	assert.True(t, all[0].Price.Equal(decimal.RequireFromString("0.9")))
}

func TestAllOrdersByStartThenArea(t *testing.T) {
	base := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(base))

	store.AddPrices([]types.PricePoint{
		point("NO2", base.Add(2*time.Hour), "0.3"),
		point("NO1", base.Add(2*time.Hour), "0.2"),
		point("NO1", base, "0.1"),
	})

	all := store.All("")
	require.Len(t, all, 3)
	assert.Equal(t, "NO1", all[0].Area)
	assert.True(t, all[0].Start.Equal(base))
	assert.Equal(t, "NO1", all[1].Area)
	assert.Equal(t, "NO2", all[2].Area)
}

func TestAllFiltersByArea(t *testing.T) {
	base := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(base))

	store.AddPrices([]types.PricePoint{
		point("NO1", base, "0.1"),
		point("NO2", base, "0.2"),
	})

	no2 := store.All("NO2")
	require.Len(t, no2, 1)
	assert.Equal(t, "NO2", no2[0].Area)
	assert.Empty(t, store.All("NO5"))
}

func TestCurrentReturnsCoveringPoint(t *testing.T) {
	base := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(base.Add(30 * time.Minute))
	store := NewPriceStore(clk)

	store.AddPrices([]types.PricePoint{
		point("NO1", base.Add(-time.Hour), "0.1"),
		point("NO1", base, "0.2"),
		point("NO1", base.Add(time.Hour), "0.3"),
	})

	p, ok := store.Current("NO1")
	require.True(t, ok)
	assert.True(t, p.Start.Equal(base), "the interval containing now must win")

	// The start of the interval is inclusive, the end exclusive.
	clk.Set(base.Add(time.Hour))
	p, ok = store.Current("NO1")
	require.True(t, ok)
	assert.True(t, p.Start.Equal(base.Add(time.Hour)))
}

func TestCurrentAbsenceIsNotAnError(t *testing.T) {
	base := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(base))

	_, ok := store.Current("NO1")
	assert.False(t, ok)

	store.AddPrices([]types.PricePoint{point("NO1", base.Add(2*time.Hour), "0.1")})
	_, ok = store.Current("NO1")
	assert.False(t, ok, "a future point does not cover now")

	_, ok = store.Current("NO9")
	assert.False(t, ok)
}

func TestCurrentAcrossAreas(t *testing.T) {
	base := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(base.Add(10 * time.Minute))
	store := NewPriceStore(clk)

	store.AddPrices([]types.PricePoint{
		point("NO1", base, "0.1"),
		point("NO2", base, "0.2"),
	})

	p, ok := store.Current("NO2")
	require.True(t, ok)
	assert.Equal(t, "NO2", p.Area)
}

func TestRemoveOlderThan(t *testing.T) {
	base := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(base))

	store.AddPrices([]types.PricePoint{
		point("NO1", base.Add(-2*time.Hour), "0.1"), // ends at -1h, before cutoff
		point("NO1", base.Add(-time.Hour), "0.2"),   // ends exactly at cutoff
		point("NO1", base, "0.3"),                   // ends after cutoff
	})

	removed := store.RemoveOlderThan(base)
	assert.Equal(t, 2, removed)

	remaining := store.All("")
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].Start.Equal(base))
	for _, p := range remaining {
		assert.True(t, p.End.After(base), "no remaining point may end at or before the cutoff")
	}
}

func TestConcurrentAddersYieldOneWinnerPerKey(t *testing.T) {
	base := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	store := NewPriceStore(clock.NewFixed(base))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			batch := make([]types.PricePoint, 0, 24)
			for h := 0; h < 24; h++ {
				batch = append(batch, point("NO1", base.Add(time.Duration(h)*time.Hour), fmt.Sprintf("0.%02d", n+1)))
			}
			store.AddPrices(batch)
		}(i)
	}
	wg.Wait()

	all := store.All("NO1")
	require.Len(t, all, 24)
	assert.Equal(t, 24, store.Len())

	starts := make(map[int64]struct{})
	for _, p := range all {
		_, dup := starts[p.Start.Unix()]
		assert.False(t, dup, "each key must hold exactly one committed value")
		starts[p.Start.Unix()] = struct{}{}
	}
}
