package calc

import "github.com/shopspring/decimal"

var (
	// SubsidyThreshold is the raw spot price in NOK/kWh above which the
	// state subsidy kicks in.
	SubsidyThreshold = decimal.RequireFromString("0.75")

	// Above the threshold the consumer pays 10% of the excess.
	subsidyConsumerShare = decimal.RequireFromString("0.1")

	vatFactor = decimal.RequireFromString("1.25")
)

// Subsidized returns the consumer-facing price after the subsidy has been
// applied. At or below the threshold the raw price is returned unchanged.
func Subsidized(raw decimal.Decimal) decimal.Decimal {
	if raw.LessThanOrEqual(SubsidyThreshold) {
		return raw
	}
	return SubsidyThreshold.Add(raw.Sub(SubsidyThreshold).Mul(subsidyConsumerShare))
}

// WithVAT adds 25% VAT to a price.
func WithVAT(price decimal.Decimal) decimal.Decimal {
	return price.Mul(vatFactor)
}
