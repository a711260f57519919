package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuarterlyPrice is one raw sub-hourly entry from the day-ahead market,
// normally a 15 minute slice.
type QuarterlyPrice struct {
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Price decimal.Decimal `json:"price"` // NOK/kWh
}

// PricePoint is an hourly aggregated, subsidy-adjusted price for one
// price area. Points are built by the parser, stored in the cache and
// never mutated afterwards.
type PricePoint struct {
	Area            string           `json:"area"`
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"` // always Start + 1h
	Price           decimal.Decimal  `json:"price"`           // mean of the quarterly prices, NOK/kWh
	SubsidizedPrice decimal.Decimal  `json:"subsidizedPrice"` // after state subsidy, NOK/kWh
	Currency        string           `json:"currency"`
	QuarterlyPrices []QuarterlyPrice `json:"quarterlyPrices"`
}
