// Package utils provides shared market-session helpers.
package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Session boundaries in minutes from midnight IST.
const (
	sessionOpenMinutes  = 9*60 + 15  // 09:15
	sessionCloseMinutes = 15*60 + 30 // 15:30
)

// IsMarketOpenAt reports whether t falls inside the regular trading
// session: weekdays, 09:15:00 to 15:30:00 IST inclusive.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(IndiaLocation)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if minutes < sessionOpenMinutes || minutes > sessionCloseMinutes {
		return false
	}
	// 15:30 is inclusive only at the exact minute boundary.
	if minutes == sessionCloseMinutes && t.Second() > 0 {
		return false
	}
	return true
}

// IsMarketOpen reports whether the market is open right now.
func IsMarketOpen() bool {
	return IsMarketOpenAt(time.Now())
}

// NextMarketOpenAfter returns the next 09:15 IST session open after t.
func NextMarketOpenAfter(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	next := time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, IndiaLocation)
	if !t.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// MarketCloseOn returns the 15:30 IST close for the day containing t.
func MarketCloseOn(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 15, 30, 0, 0, IndiaLocation)
}

// TradingDate returns the exchange-local calendar date of t as YYYY-MM-DD.
func TradingDate(t time.Time) string {
	return t.In(IndiaLocation).Format("2006-01-02")
}
