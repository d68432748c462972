package utils

import (
	"testing"
	"time"
)

func ist(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, IndiaLocation)
}

func TestIsMarketOpenAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid-session", ist(2025, time.December, 10, 11, 0, 0), true},
		{"open boundary inclusive", ist(2025, time.December, 10, 9, 15, 0), true},
		{"close boundary inclusive", ist(2025, time.December, 10, 15, 30, 0), true},
		{"one second after close", ist(2025, time.December, 10, 15, 30, 1), false},
		{"one minute before open", ist(2025, time.December, 10, 9, 14, 59), false},
		{"late evening", ist(2025, time.December, 10, 18, 0, 0), false},
		{"saturday", ist(2025, time.December, 13, 11, 0, 0), false},
		{"sunday", ist(2025, time.December, 14, 11, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarketOpenAt(tt.at); got != tt.want {
				t.Errorf("IsMarketOpenAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsMarketOpenAtConvertsZones(t *testing.T) {
	// 05:45 UTC on a Wednesday is 11:15 IST
	at := time.Date(2025, time.December, 10, 5, 45, 0, 0, time.UTC)
	if !IsMarketOpenAt(at) {
		t.Errorf("IsMarketOpenAt(%v) = false, want true", at)
	}
	// 10:01 UTC is 15:31 IST
	at = time.Date(2025, time.December, 10, 10, 1, 0, 0, time.UTC)
	if IsMarketOpenAt(at) {
		t.Errorf("IsMarketOpenAt(%v) = true, want false", at)
	}
}

func TestNextMarketOpenAfter(t *testing.T) {
	// Mid-session Wednesday rolls to Thursday
	next := NextMarketOpenAfter(ist(2025, time.December, 10, 11, 0, 0))
	want := ist(2025, time.December, 11, 9, 15, 0)
	if !next.Equal(want) {
		t.Errorf("next open = %v, want %v", next, want)
	}

	// Before the open on the same day stays on that day
	next = NextMarketOpenAfter(ist(2025, time.December, 10, 8, 0, 0))
	want = ist(2025, time.December, 10, 9, 15, 0)
	if !next.Equal(want) {
		t.Errorf("next open = %v, want %v", next, want)
	}

	// Friday afternoon skips the weekend
	next = NextMarketOpenAfter(ist(2025, time.December, 12, 16, 0, 0))
	want = ist(2025, time.December, 15, 9, 15, 0)
	if !next.Equal(want) {
		t.Errorf("next open after friday = %v, want monday %v", next, want)
	}

	// Exactly at the open moves to the next session
	next = NextMarketOpenAfter(ist(2025, time.December, 10, 9, 15, 0))
	want = ist(2025, time.December, 11, 9, 15, 0)
	if !next.Equal(want) {
		t.Errorf("next open at the bell = %v, want %v", next, want)
	}
}

func TestMarketCloseOn(t *testing.T) {
	close := MarketCloseOn(ist(2025, time.December, 10, 11, 0, 0))
	want := ist(2025, time.December, 10, 15, 30, 0)
	if !close.Equal(want) {
		t.Errorf("close = %v, want %v", close, want)
	}
}

func TestTradingDate(t *testing.T) {
	// 20:00 UTC on the 10th is already the 11th in IST
	late := time.Date(2025, time.December, 10, 20, 0, 0, 0, time.UTC)
	if got := TradingDate(late); got != "2025-12-11" {
		t.Errorf("TradingDate(%v) = %s, want 2025-12-11", late, got)
	}

	noon := ist(2025, time.December, 10, 12, 0, 0)
	if got := TradingDate(noon); got != "2025-12-10" {
		t.Errorf("TradingDate(%v) = %s, want 2025-12-10", noon, got)
	}
}
