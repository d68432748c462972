package atm

import (
	"testing"

	"github.com/rs/zerolog"

	"optionflow/internal/models"
)

type staticIntervals map[string]float64

func (s staticIntervals) StrikeInterval(symbol string) (float64, bool) {
	if interval, ok := s[symbol]; ok {
		return interval, true
	}
	return 50, false
}

func newTestEngine() *Engine {
	return NewEngine(staticIntervals{
		"NIFTY":      50,
		"BANKNIFTY":  100,
		"MIDCPNIFTY": 25,
		"BROKEN":     0,
	}, zerolog.Nop())
}

func TestATM(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		symbol string
		price  float64
		want   float64
	}{
		{"NIFTY", 24013, 24000},
		{"NIFTY", 24026, 24050},
		// Exact midpoint rounds up
		{"NIFTY", 24025, 24050},
		{"NIFTY", 24000, 24000},
		{"BANKNIFTY", 51249, 51200},
		{"BANKNIFTY", 51250, 51300},
		{"MIDCPNIFTY", 12512, 12500},
		// Unknown symbol uses the default interval
		{"RELIANCE", 2926, 2950},
	}

	for _, tc := range cases {
		if got := e.ATM(tc.symbol, tc.price); got != tc.want {
			t.Errorf("ATM(%s, %v) = %v, want %v", tc.symbol, tc.price, got, tc.want)
		}
	}
}

func TestATMWithBias(t *testing.T) {
	e := newTestEngine()

	if got := e.ATMWithBias("NIFTY", 24013, BiasHigher); got != 24050 {
		t.Errorf("higher bias = %v, want 24050", got)
	}
	if got := e.ATMWithBias("NIFTY", 24013, BiasLower); got != 24000 {
		t.Errorf("lower bias = %v, want 24000", got)
	}
	// Already on a strike: all biases agree
	for _, bias := range []Bias{BiasNearest, BiasHigher, BiasLower} {
		if got := e.ATMWithBias("NIFTY", 24000, bias); got != 24000 {
			t.Errorf("bias %s on exact strike = %v, want 24000", bias, got)
		}
	}
}

func TestATMFallbackInterval(t *testing.T) {
	e := newTestEngine()
	// Zero interval falls back rather than dividing by zero
	if got := e.ATM("BROKEN", 1023); got != 1000 {
		t.Errorf("ATM with broken interval = %v, want 1000", got)
	}
}

func TestITMOTMStrikes(t *testing.T) {
	e := newTestEngine()

	itm := e.ITMStrikes("NIFTY", 24000, models.Call, 3)
	wantITM := []float64{24050, 24100, 24150}
	for i := range wantITM {
		if itm[i] != wantITM[i] {
			t.Fatalf("ITMStrikes CE = %v, want %v", itm, wantITM)
		}
	}

	otm := e.OTMStrikes("NIFTY", 24000, models.Call, 2)
	wantOTM := []float64{23950, 23900}
	for i := range wantOTM {
		if otm[i] != wantOTM[i] {
			t.Fatalf("OTMStrikes CE = %v, want %v", otm, wantOTM)
		}
	}

	// Put sides mirror
	if got := e.ITMStrikes("NIFTY", 24000, models.Put, 1); got[0] != 23950 {
		t.Errorf("ITMStrikes PE = %v, want [23950]", got)
	}
	if got := e.OTMStrikes("NIFTY", 24000, models.Put, 1); got[0] != 24050 {
		t.Errorf("OTMStrikes PE = %v, want [24050]", got)
	}

	// Walking below zero truncates
	short := e.OTMStrikes("NIFTY", 100, models.Call, 5)
	if len(short) != 1 || short[0] != 50 {
		t.Errorf("OTMStrikes near zero = %v, want [50]", short)
	}
}

func TestMoneyness(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		strike  float64
		spot    float64
		optType models.OptionType
		want    models.Moneyness
	}{
		// ATM takes precedence over ITM/OTM
		{24000, 24010, models.Call, models.ATM},
		{24000, 24010, models.Put, models.ATM},
		{23900, 24010, models.Call, models.ITM},
		{24100, 24010, models.Call, models.OTM},
		{24100, 24010, models.Put, models.ITM},
		{23900, 24010, models.Put, models.OTM},
	}

	for _, tc := range cases {
		got := e.Moneyness("NIFTY", tc.strike, tc.spot, tc.optType)
		if got != tc.want {
			t.Errorf("Moneyness(%v, %v, %s) = %s, want %s",
				tc.strike, tc.spot, tc.optType, got, tc.want)
		}
	}
}

func TestIntrinsicAndTimeValue(t *testing.T) {
	if got := IntrinsicValue(24000, 24150, models.Call); got != 150 {
		t.Errorf("CE intrinsic = %v, want 150", got)
	}
	if got := IntrinsicValue(24000, 23900, models.Call); got != 0 {
		t.Errorf("OTM CE intrinsic = %v, want 0", got)
	}
	if got := IntrinsicValue(24000, 23850, models.Put); got != 150 {
		t.Errorf("PE intrinsic = %v, want 150", got)
	}

	if got := TimeValue(200, 24000, 24150, models.Call); got != 50 {
		t.Errorf("time value = %v, want 50", got)
	}
	// Premium below intrinsic floors at zero
	if got := TimeValue(100, 24000, 24150, models.Call); got != 0 {
		t.Errorf("floored time value = %v, want 0", got)
	}
}
