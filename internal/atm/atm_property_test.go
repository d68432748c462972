package atm

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionflow/internal/models"
)

// Property: the ATM strike is always a multiple of the symbol's interval
// and never further than half an interval from the spot price.
func TestProperty_ATMStrikeAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	e := newTestEngine()
	symbols := []string{"NIFTY", "BANKNIFTY", "MIDCPNIFTY"}

	properties.Property("ATM is aligned and nearest", prop.ForAll(
		func(symbolIdx int, price float64) bool {
			symbol := symbols[symbolIdx%len(symbols)]
			interval, _ := e.intervals.StrikeInterval(symbol)

			atmStrike := e.ATM(symbol, price)

			// Alignment: strike sits on the interval grid
			steps := atmStrike / interval
			if math.Abs(steps-math.Round(steps)) > 1e-9 {
				t.Logf("ATM(%s, %v) = %v not aligned to %v", symbol, price, atmStrike, interval)
				return false
			}

			// Distance: never more than half an interval away
			if math.Abs(atmStrike-price) > interval/2+1e-6 {
				t.Logf("ATM(%s, %v) = %v too far", symbol, price, atmStrike)
				return false
			}
			return true
		},
		gen.IntRange(0, len(symbols)-1),
		gen.Float64Range(100, 100000),
	))

	properties.Property("bias ordering holds", prop.ForAll(
		func(price float64) bool {
			lower := e.ATMWithBias("NIFTY", price, BiasLower)
			nearest := e.ATMWithBias("NIFTY", price, BiasNearest)
			higher := e.ATMWithBias("NIFTY", price, BiasHigher)
			return lower <= nearest && nearest <= higher &&
				lower <= price && higher >= price
		},
		gen.Float64Range(100, 100000),
	))

	properties.TestingRun(t)
}

// Property: a contract is never simultaneously ITM and OTM, and intrinsic
// value is positive exactly for ITM contracts.
func TestProperty_MoneynessConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ITM/OTM exclusive, intrinsic matches", prop.ForAll(
		func(strike, spot float64, isCall bool) bool {
			optType := models.Put
			if isCall {
				optType = models.Call
			}

			itm := IsITM(strike, spot, optType)
			otm := IsOTM(strike, spot, optType)
			if itm && otm {
				return false
			}

			intrinsic := IntrinsicValue(strike, spot, optType)
			if intrinsic < 0 {
				return false
			}
			return (intrinsic > 0) == itm
		},
		gen.Float64Range(100, 50000),
		gen.Float64Range(100, 50000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
