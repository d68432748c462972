// Package models provides domain models for the market data engine.
package models

import (
	"time"
)

// Exchange represents a stock exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // NSE F&O
	BFO Exchange = "BFO" // BSE F&O
)

// OptionType represents the side of an option contract.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// Moneyness classifies an option strike relative to the underlying price.
type Moneyness string

const (
	ITM Moneyness = "ITM"
	ATM Moneyness = "ATM"
	OTM Moneyness = "OTM"
)

// Tick is a single last-traded-price observation for an instrument.
// Quantity is the size of that trade, not the day-cumulative volume.
type Tick struct {
	Symbol    string
	Timestamp time.Time
	LTP       float64
	Quantity  int64
}

// QuoteTick carries the full quote snapshot pushed by the vendor stream.
type QuoteTick struct {
	Symbol        string
	Timestamp     time.Time
	LTP           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64 // day-cumulative
	Change        float64
	ChangePercent float64
}

// DepthLevel is one price level of the order book.
type DepthLevel struct {
	Price    float64
	Quantity int64
	Orders   int64
}

// DepthTick carries up to five levels of bid/ask depth.
type DepthTick struct {
	Symbol    string
	Timestamp time.Time
	Bids      []DepthLevel
	Asks      []DepthLevel
}

// Quote is a point-in-time quote read from the external quote source.
type Quote struct {
	Symbol    string
	Exchange  Exchange
	Timestamp time.Time
	LTP       float64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64
	Bid       float64
	Ask       float64
	IV        float64
}

// Candle represents OHLCV data for one time bucket.
// Complete is derived on read: a candle is complete once its bucket end
// has passed; the bucket straddling now is the single current candle.
type Candle struct {
	Symbol      string
	Timeframe   Timeframe
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	Complete    bool
}
