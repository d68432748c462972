// Package registry tracks the F&O instrument universe: strike intervals,
// index classification and option expiry dates.
package registry

import "optionflow/internal/models"

// strikeIntervals maps index underlyings to their strike spacing in points.
var strikeIntervals = map[string]float64{
	"NIFTY":      50,
	"BANKNIFTY":  100,
	"FINNIFTY":   50,
	"MIDCPNIFTY": 25,
	"SENSEX":     100,
	"BANKEX":     100,
}

// DefaultStrikeInterval is used for stock options, which trade on varying
// spacings the quotes API does not expose.
const DefaultStrikeInterval float64 = 50

// IsIndex reports whether the underlying is a known index.
func IsIndex(symbol string) bool {
	_, ok := strikeIntervals[symbol]
	return ok
}

// StrikeInterval returns the strike spacing for an underlying and whether
// it was known. Unknown symbols get DefaultStrikeInterval.
func StrikeInterval(symbol string) (float64, bool) {
	if interval, ok := strikeIntervals[symbol]; ok {
		return interval, true
	}
	return DefaultStrikeInterval, false
}

// DerivativeExchange returns the F&O segment that lists options on the
// underlying's cash exchange.
func DerivativeExchange(exchange models.Exchange) models.Exchange {
	switch exchange {
	case models.BSE, models.BFO:
		return models.BFO
	default:
		return models.NFO
	}
}
