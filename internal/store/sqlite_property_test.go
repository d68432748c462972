package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionflow/internal/models"
)

// Property: for any batch of valid ticks, inserting the batch and reading it
// back over the full time range returns the same observations in ascending
// timestamp order.
func TestProperty_TickRoundTripConsistency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ticks_property.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	baseTime := time.Date(2025, time.December, 10, 4, 0, 0, 0, time.UTC)
	run := 0

	properties.Property("insert then read returns equivalent ticks", prop.ForAll(
		func(count int, basePrice float64, baseQty int64) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("PROP_%d", run)

			ticks := make([]models.Tick, count)
			for i := range ticks {
				ticks[i] = models.Tick{
					Symbol:    symbol,
					Timestamp: baseTime.Add(time.Duration(i) * time.Second),
					LTP:       basePrice + float64(i%7),
					Quantity:  baseQty + int64(i),
				}
			}

			if err := s.InsertTicks(ctx, ticks); err != nil {
				t.Logf("InsertTicks: %v", err)
				return false
			}

			got, err := s.TicksBetween(ctx, symbol, baseTime, baseTime.Add(time.Duration(count)*time.Second))
			if err != nil {
				t.Logf("TicksBetween: %v", err)
				return false
			}
			if len(got) != count {
				t.Logf("count mismatch: inserted %d, read %d", count, len(got))
				return false
			}
			for i, tick := range got {
				orig := ticks[i]
				if !tick.Timestamp.Equal(orig.Timestamp) || tick.LTP != orig.LTP || tick.Quantity != orig.Quantity {
					t.Logf("tick mismatch at %d: inserted=%+v read=%+v", i, orig, tick)
					return false
				}
				if i > 0 && tick.Timestamp.Before(got[i-1].Timestamp) {
					t.Logf("timestamps out of order at %d", i)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.Float64Range(10.0, 50000.0),
		gen.Int64Range(1, 10000),
	))

	properties.Property("aggregation reads never exceed the limit", prop.ForAll(
		func(count, limit int) bool {
			ctx := context.Background()
			run++
			symbol := fmt.Sprintf("PROP_LIMIT_%d", run)

			ticks := make([]models.Tick, count)
			for i := range ticks {
				ticks[i] = models.Tick{
					Symbol:    symbol,
					Timestamp: baseTime.Add(time.Duration(i) * time.Second),
					LTP:       100 + float64(i),
					Quantity:  1,
				}
			}
			if err := s.InsertTicks(ctx, ticks); err != nil {
				t.Logf("InsertTicks: %v", err)
				return false
			}

			got, err := s.TicksForAggregation(ctx, symbol, limit)
			if err != nil {
				t.Logf("TicksForAggregation: %v", err)
				return false
			}
			want := count
			if limit < want {
				want = limit
			}
			if len(got) != want {
				t.Logf("got %d ticks, want %d", len(got), want)
				return false
			}
			// The window keeps the most recent ticks
			if want > 0 && got[len(got)-1].LTP != 100+float64(count-1) {
				t.Logf("window dropped the newest tick: %+v", got[len(got)-1])
				return false
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

// Property: the start and end snapshot columns are independent. Any
// interleaving of start and end upserts leaves oi_start equal to the last
// start write and oi_end equal to the last end write.
func TestProperty_SnapshotColumnIndependence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshots_property.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	run := 0
	key := models.OptionKey{Strike: 24000, Type: models.Call}

	properties.Property("interleaved upserts keep the last write per column", prop.ForAll(
		func(startWrites, endWrites []int64) bool {
			ctx := context.Background()
			run++
			date := fmt.Sprintf("2025-12-%02d", (run%28)+1)
			underlying := fmt.Sprintf("SYM_%d", run)

			var lastStart, lastEnd int64
			for i := 0; i < len(startWrites) || i < len(endWrites); i++ {
				if i < len(startWrites) {
					oi := map[models.OptionKey]int64{key: startWrites[i]}
					if err := s.SaveStartSnapshots(ctx, date, underlying, "25-DEC-25", models.NSE, oi); err != nil {
						t.Logf("SaveStartSnapshots: %v", err)
						return false
					}
					lastStart = startWrites[i]
				}
				if i < len(endWrites) {
					oi := map[models.OptionKey]int64{key: endWrites[i]}
					if err := s.SaveEndSnapshots(ctx, date, underlying, "25-DEC-25", models.NSE, oi); err != nil {
						t.Logf("SaveEndSnapshots: %v", err)
						return false
					}
					lastEnd = endWrites[i]
				}
			}

			snaps, err := s.Snapshots(ctx, date, underlying, "25-DEC-25", models.NSE)
			if err != nil {
				t.Logf("Snapshots: %v", err)
				return false
			}
			if len(startWrites) == 0 && len(endWrites) == 0 {
				return len(snaps) == 0
			}
			snap := snaps[key]
			if snap.OIStart != lastStart || snap.OIEnd != lastEnd {
				t.Logf("snapshot = %+v, want start %d end %d", snap, lastStart, lastEnd)
				return false
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1<<40)),
		gen.SliceOf(gen.Int64Range(0, 1<<40)),
	))

	properties.TestingRun(t)
}
