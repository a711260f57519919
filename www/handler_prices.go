package www

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/strompris/strompris-go/cache"
	"github.com/strompris/strompris-go/calc"
	"github.com/strompris/strompris-go/types"
)

// NewAllPricesHandler serves every cached price point across all areas.
func NewAllPricesHandler(logger *slog.Logger, store *cache.PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		points := store.All("")
		if len(points) == 0 {
			http.Error(w, "no prices available", http.StatusNotFound)
			return
		}
		writeJSON(logger, w, points)
	}
}

// NewZonePricesHandler serves all cached price points for one area,
// ordered by start time.
func NewZonePricesHandler(logger *slog.Logger, store *cache.PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zone := strings.ToUpper(r.PathValue("zone"))
		points := store.All(zone)
		if len(points) == 0 {
			http.Error(w, "no prices available for zone", http.StatusNotFound)
			return
		}
		writeJSON(logger, w, points)
	}
}

// NewCurrentPriceHandler serves the price point valid right now for one
// area. With includeVAT=true the prices are returned with 25% VAT added.
func NewCurrentPriceHandler(logger *slog.Logger, store *cache.PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zone := strings.ToUpper(r.PathValue("zone"))
		point, ok := store.Current(zone)
		if !ok {
			http.Error(w, "no current price for zone", http.StatusNotFound)
			return
		}

		if boolParam(r.URL, "includeVAT") {
			point.Price = calc.WithVAT(point.Price)
			point.SubsidizedPrice = calc.WithVAT(point.SubsidizedPrice)
		}

		writeJSON(logger, w, point)
	}
}

// currentPerArea collects the currently valid point for every cached area.
func currentPerArea(store *cache.PriceStore) ([]types.PricePoint, bool) {
	seen := make(map[string]struct{})
	var points []types.PricePoint
	for _, p := range store.All("") {
		if _, ok := seen[p.Area]; ok {
			continue
		}
		seen[p.Area] = struct{}{}
		if current, ok := store.Current(p.Area); ok {
			points = append(points, current)
		}
	}
	return points, len(points) > 0
}
