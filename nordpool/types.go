package nordpool

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayAheadPrices is the relevant part of the response from the Nord Pool
// data portal. Prices in multiAreaEntries are per MWh.
type DayAheadPrices struct {
	DeliveryDateCET  string           `json:"deliveryDateCET"`
	Version          int              `json:"version"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	DeliveryAreas    []string         `json:"deliveryAreas"`
	Market           string           `json:"market"`
	MultiAreaEntries []MultiAreaEntry `json:"multiAreaEntries"`
	Currency         string           `json:"currency"`
	ExchangeRate     decimal.Decimal  `json:"exchangeRate"`
}

type MultiAreaEntry struct {
	DeliveryStart time.Time                  `json:"deliveryStart"`
	DeliveryEnd   time.Time                  `json:"deliveryEnd"`
	EntryPerArea  map[string]decimal.Decimal `json:"entryPerArea"`
}
