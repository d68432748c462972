// Package atm converts underlying prices into at-the-money strikes and
// moneyness classifications.
package atm

import (
	"math"

	"github.com/rs/zerolog"

	"optionflow/internal/models"
)

// IntervalSource resolves the strike spacing for an underlying. The second
// result reports whether the symbol was recognized.
type IntervalSource interface {
	StrikeInterval(symbol string) (float64, bool)
}

// FallbackInterval is used when an interval cannot be resolved at all.
const FallbackInterval float64 = 50

// Bias selects which neighboring strike wins when the spot sits between two.
type Bias string

const (
	BiasNearest Bias = "nearest"
	BiasHigher  Bias = "higher"
	BiasLower   Bias = "lower"
)

// Engine computes ATM strikes using per-symbol strike intervals.
type Engine struct {
	intervals IntervalSource
	logger    zerolog.Logger
}

// NewEngine creates an ATM engine over the given interval source.
func NewEngine(intervals IntervalSource, logger zerolog.Logger) *Engine {
	return &Engine{
		intervals: intervals,
		logger:    logger.With().Str("component", "atm").Logger(),
	}
}

func (e *Engine) interval(symbol string) float64 {
	interval, known := e.intervals.StrikeInterval(symbol)
	if interval <= 0 {
		e.logger.Warn().Str("symbol", symbol).Float64("interval", interval).
			Msg("Unusable strike interval, using fallback")
		return FallbackInterval
	}
	if !known {
		e.logger.Debug().Str("symbol", symbol).Float64("interval", interval).
			Msg("Unknown symbol, using default strike interval")
	}
	return interval
}

// StrikeInterval reports the resolved strike spacing for symbol and whether
// the symbol was recognized. An unusable configured interval resolves to the
// fallback.
func (e *Engine) StrikeInterval(symbol string) (float64, bool) {
	interval, known := e.intervals.StrikeInterval(symbol)
	if interval <= 0 {
		return FallbackInterval, false
	}
	return interval, known
}

// ATM returns the strike nearest to price, rounding the midpoint away from
// zero so a spot exactly between two strikes snaps upward.
func (e *Engine) ATM(symbol string, price float64) float64 {
	return e.ATMWithBias(symbol, price, BiasNearest)
}

// ATMWithBias returns the ATM strike using the given tie/rounding bias.
func (e *Engine) ATMWithBias(symbol string, price float64, bias Bias) float64 {
	interval := e.interval(symbol)
	steps := price / interval

	switch bias {
	case BiasHigher:
		return math.Ceil(steps) * interval
	case BiasLower:
		return math.Floor(steps) * interval
	default:
		return math.Round(steps) * interval
	}
}

// ITMStrikes returns count in-the-money strikes adjacent to atmStrike for
// the given side, nearest first. Non-positive strikes are dropped.
func (e *Engine) ITMStrikes(symbol string, atmStrike float64, optType models.OptionType, count int) []float64 {
	interval := e.interval(symbol)
	return stepStrikes(atmStrike, interval, optType == models.Call, count)
}

// OTMStrikes returns count out-of-the-money strikes adjacent to atmStrike
// for the given side, nearest first. Non-positive strikes are dropped.
func (e *Engine) OTMStrikes(symbol string, atmStrike float64, optType models.OptionType, count int) []float64 {
	interval := e.interval(symbol)
	return stepStrikes(atmStrike, interval, optType == models.Put, count)
}

// stepStrikes walks count intervals from base, downward when below is true.
func stepStrikes(base, interval float64, below bool, count int) []float64 {
	step := interval
	if below {
		step = -interval
	}

	strikes := make([]float64, 0, count)
	for i := 1; i <= count; i++ {
		strike := base + float64(i)*step
		if strike <= 0 {
			break
		}
		strikes = append(strikes, strike)
	}
	return strikes
}

// IsITM reports whether the contract has intrinsic value at the spot price.
func IsITM(strike, spot float64, optType models.OptionType) bool {
	if optType == models.Call {
		return spot > strike
	}
	return spot < strike
}

// IsOTM reports whether the contract is out of the money at the spot price.
func IsOTM(strike, spot float64, optType models.OptionType) bool {
	if optType == models.Call {
		return spot < strike
	}
	return spot > strike
}

// IsATM reports whether the strike equals the computed ATM strike exactly.
func (e *Engine) IsATM(symbol string, strike, spot float64) bool {
	return strike == e.ATM(symbol, spot)
}

// Moneyness classifies a strike relative to the spot. ATM takes precedence,
// then ITM, else OTM.
func (e *Engine) Moneyness(symbol string, strike, spot float64, optType models.OptionType) models.Moneyness {
	if e.IsATM(symbol, strike, spot) {
		return models.ATM
	}
	if IsITM(strike, spot, optType) {
		return models.ITM
	}
	return models.OTM
}

// IntrinsicValue returns the exercise value of the contract, never negative.
func IntrinsicValue(strike, spot float64, optType models.OptionType) float64 {
	if optType == models.Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// TimeValue returns the premium in excess of intrinsic value, floored at zero.
func TimeValue(premium, strike, spot float64, optType models.OptionType) float64 {
	return math.Max(0, premium-IntrinsicValue(strike, spot, optType))
}
