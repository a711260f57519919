package www

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/strompris/strompris-go/cache"
	"github.com/strompris/strompris-go/www/chartjs"
)

// NewZoneChartHandler serves the cached prices for one area as a
// Chart.js configuration.
func NewZoneChartHandler(logger *slog.Logger, store *cache.PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zone := strings.ToUpper(r.PathValue("zone"))
		points := store.All(zone)
		if len(points) == 0 {
			http.Error(w, "no prices available for zone", http.StatusNotFound)
			return
		}

		chart := chartjs.NewPriceChart(fmt.Sprintf("Spot price %s", zone), points)
		writeJSON(logger, w, chart)
	}
}
