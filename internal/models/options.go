package models

import "time"

// OptionQuote is one observed quote for an option contract, keyed by
// (underlying, expiry, exchange, strike, type, timestamp). The most
// recent row per (strike, type) is the current OI view.
type OptionQuote struct {
	Underlying string
	Exchange   Exchange
	Expiry     string // DD-MMM-YY, e.g. 25-DEC-25
	Strike     float64
	Type       OptionType
	Timestamp  time.Time
	OI         int64
	OIChange   int64
	Volume     int64
	LTP        float64
	Bid        float64
	Ask        float64
	IV         float64
}

// OptionKey identifies a contract within one (underlying, expiry, exchange).
type OptionKey struct {
	Strike float64
	Type   OptionType
}

// OptionChain holds the quotes fetched around the ATM strike for one
// underlying/expiry, split by option type.
type OptionChain struct {
	Underlying string
	Exchange   Exchange
	Expiry     string
	SpotPrice  float64
	ATMStrike  float64
	CE         map[float64]OptionQuote
	PE         map[float64]OptionQuote
	Attempted  int
	Fetched    int
}

// NewOptionChain returns an empty chain for the given parameters.
func NewOptionChain(underlying string, exchange Exchange, expiry string) *OptionChain {
	return &OptionChain{
		Underlying: underlying,
		Exchange:   exchange,
		Expiry:     expiry,
		CE:         make(map[float64]OptionQuote),
		PE:         make(map[float64]OptionQuote),
	}
}

// OISnapshot records the per-day open/close open interest for one contract.
// OIStart is fixed once at market open, OIEnd near market close; writes
// inside the qualifying window overwrite the same row.
type OISnapshot struct {
	Date       string // YYYY-MM-DD, exchange-local day
	Underlying string
	Exchange   Exchange
	Expiry     string
	Strike     float64
	Type       OptionType
	OIStart    int64
	OIEnd      int64
}

// OIChange is the day-over-day open interest delta for one contract.
type OIChange struct {
	Strike        float64
	Type          OptionType
	CurrentOI     int64
	PreviousOI    int64
	Change        int64
	ChangePercent float64
}
