package candles

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"optionflow/internal/models"
)

// fakeTickReader serves canned ticks and can be forced to fail.
type fakeTickReader struct {
	ticks   []models.Tick
	failAgg bool
	failAll bool
}

func (f *fakeTickReader) TicksBetween(ctx context.Context, symbol string, start, end time.Time) ([]models.Tick, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []models.Tick
	for _, t := range f.ticks {
		if t.Symbol == symbol && !t.Timestamp.Before(start) && t.Timestamp.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTickReader) TicksForAggregation(ctx context.Context, symbol string, limit int) ([]models.Tick, error) {
	if f.failAgg || f.failAll {
		return nil, errors.New("store down")
	}
	var out []models.Tick
	for _, t := range f.ticks {
		if t.Symbol == symbol && t.LTP > 0 {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeTickReader) LatestTicks(ctx context.Context, symbol string, limit int) ([]models.Tick, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []models.Tick
	for _, t := range f.ticks {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

var baseTime = time.Date(2025, time.December, 10, 4, 0, 0, 0, time.UTC)

func tick(offsetSec int64, price float64, qty int64) models.Tick {
	return models.Tick{
		Symbol:    "NIFTY",
		Timestamp: baseTime.Add(time.Duration(offsetSec) * time.Second),
		LTP:       price,
		Quantity:  qty,
	}
}

func newEngineAt(reader TickReader, now time.Time) *Engine {
	e := NewEngine(reader, zerolog.Nop())
	e.now = func() time.Time { return now }
	return e
}

func TestHistoricalCandlesBucketing(t *testing.T) {
	reader := &fakeTickReader{ticks: []models.Tick{
		tick(0, 10, 5),
		tick(30, 12, 3),
		tick(61, 9, 2),
		tick(119, 11, 4),
	}}
	e := newEngineAt(reader, baseTime.Add(3*time.Minute))

	candles, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 10)
	if err != nil {
		t.Fatalf("HistoricalCandles error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}

	// Ticks at 0s and 30s share the first bucket; 61s and 119s the second.
	first := candles[0]
	if first.BucketStart != baseTime {
		t.Errorf("first bucket start = %v, want %v", first.BucketStart, baseTime)
	}
	if first.Open != 10 || first.High != 12 || first.Low != 10 || first.Close != 12 {
		t.Errorf("first candle OHLC = %v/%v/%v/%v", first.Open, first.High, first.Low, first.Close)
	}
	if first.Volume != 8 {
		t.Errorf("first candle volume = %d, want 8", first.Volume)
	}

	second := candles[1]
	if second.BucketStart != baseTime.Add(time.Minute) {
		t.Errorf("second bucket start = %v", second.BucketStart)
	}
	if second.Open != 9 || second.High != 11 || second.Low != 9 || second.Close != 11 {
		t.Errorf("second candle OHLC = %v/%v/%v/%v", second.Open, second.High, second.Low, second.Close)
	}
	if second.Volume != 6 {
		t.Errorf("second candle volume = %d, want 6", second.Volume)
	}

	for _, c := range candles {
		if !c.Complete {
			t.Errorf("candle at %v should be complete", c.BucketStart)
		}
	}
}

func TestHistoricalCandlesIdempotent(t *testing.T) {
	reader := &fakeTickReader{ticks: []models.Tick{
		tick(0, 10, 5), tick(30, 12, 3), tick(61, 9, 2), tick(119, 11, 4),
	}}
	e := newEngineAt(reader, baseTime.Add(10*time.Minute))

	first, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 10)
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	second, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 10)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated calls with no new ticks differ")
	}
}

func TestHistoricalCandlesInvariants(t *testing.T) {
	reader := &fakeTickReader{ticks: []models.Tick{
		tick(5, 100, 1), tick(10, 95, 2), tick(40, 110, 1),
		tick(70, 108, 3), tick(80, 90, 1), tick(300, 105, 2),
	}}
	e := newEngineAt(reader, baseTime.Add(time.Hour))

	for _, tf := range models.AllTimeframes {
		candles, err := e.HistoricalCandles(context.Background(), "NIFTY", tf, 50)
		if err != nil {
			t.Fatalf("HistoricalCandles(%s) error: %v", tf, err)
		}
		for _, c := range candles {
			if c.Low > c.Open || c.Open > c.High || c.Low > c.Close || c.Close > c.High {
				t.Errorf("%s candle violates OHLC bounds: %+v", tf, c)
			}
			if c.Volume < 0 {
				t.Errorf("%s candle has negative volume: %+v", tf, c)
			}
		}
	}
}

func TestHistoricalCandlesSparse(t *testing.T) {
	// Ticks in minute 0 and minute 5 only: empty buckets are absent
	reader := &fakeTickReader{ticks: []models.Tick{
		tick(10, 100, 1),
		tick(310, 102, 1),
	}}
	e := newEngineAt(reader, baseTime.Add(10*time.Minute))

	candles, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 10)
	if err != nil {
		t.Fatalf("HistoricalCandles error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2 (no zero-filling)", len(candles))
	}
}

func TestHistoricalCandlesLimit(t *testing.T) {
	var ticks []models.Tick
	for i := int64(0); i < 10; i++ {
		ticks = append(ticks, tick(i*60, 100+float64(i), 1))
	}
	reader := &fakeTickReader{ticks: ticks}
	e := newEngineAt(reader, baseTime.Add(time.Hour))

	candles, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 3)
	if err != nil {
		t.Fatalf("HistoricalCandles error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	// Most recent buckets are kept
	if candles[2].Close != 109 {
		t.Errorf("last candle close = %v, want 109", candles[2].Close)
	}
}

func TestHistoricalCandlesFlatFallback(t *testing.T) {
	reader := &fakeTickReader{
		ticks: []models.Tick{
			tick(7, 100, 2),
			tick(65, 101, 1),
		},
		failAgg: true,
	}
	e := newEngineAt(reader, baseTime.Add(10*time.Minute))

	candles, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 5)
	if err != nil {
		t.Fatalf("fallback error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d fallback candles, want 2", len(candles))
	}

	for i, c := range candles {
		if c.Open != c.High || c.High != c.Low || c.Low != c.Close {
			t.Errorf("fallback candle %d not flat: %+v", i, c)
		}
	}
	// Fallback buckets carry the raw tick timestamp, not an aligned boundary
	if candles[0].BucketStart != baseTime.Add(7*time.Second) {
		t.Errorf("fallback bucket start = %v, want raw tick time", candles[0].BucketStart)
	}
}

func TestHistoricalCandlesTotalFailure(t *testing.T) {
	reader := &fakeTickReader{failAll: true}
	e := newEngineAt(reader, baseTime)

	candles, err := e.HistoricalCandles(context.Background(), "NIFTY", models.Timeframe1m, 5)
	if err != nil {
		t.Fatalf("expected degraded nil result, got error: %v", err)
	}
	if candles != nil {
		t.Errorf("expected nil candles, got %v", candles)
	}
}

func TestCurrentCandle(t *testing.T) {
	now := baseTime.Add(90 * time.Second)
	reader := &fakeTickReader{ticks: []models.Tick{
		tick(30, 10, 5),  // previous bucket
		tick(61, 9, 2),   // current bucket
		tick(80, 11, 4),  // current bucket
		tick(200, 99, 1), // future, ignored
	}}
	e := newEngineAt(reader, now)

	candle, err := e.CurrentCandle(context.Background(), "NIFTY", models.Timeframe1m)
	if err != nil {
		t.Fatalf("CurrentCandle error: %v", err)
	}
	if candle == nil {
		t.Fatal("expected a candle")
	}
	if candle.BucketStart != baseTime.Add(time.Minute) {
		t.Errorf("bucket start = %v, want %v", candle.BucketStart, baseTime.Add(time.Minute))
	}
	if candle.Open != 9 || candle.Close != 11 || candle.High != 11 || candle.Low != 9 {
		t.Errorf("OHLC = %v/%v/%v/%v", candle.Open, candle.High, candle.Low, candle.Close)
	}
	if candle.Volume != 6 {
		t.Errorf("volume = %d, want 6", candle.Volume)
	}
	if candle.Complete {
		t.Error("current candle must not be complete")
	}
}

func TestCurrentCandleEmptyBucket(t *testing.T) {
	reader := &fakeTickReader{}
	e := newEngineAt(reader, baseTime.Add(30*time.Second))

	candle, err := e.CurrentCandle(context.Background(), "NIFTY", models.Timeframe1m)
	if err != nil || candle != nil {
		t.Errorf("empty bucket = (%v, %v), want (nil, nil)", candle, err)
	}
}

func TestCurrentCandleStoreFailure(t *testing.T) {
	reader := &fakeTickReader{failAll: true}
	e := newEngineAt(reader, baseTime)

	candle, err := e.CurrentCandle(context.Background(), "NIFTY", models.Timeframe1m)
	if err != nil || candle != nil {
		t.Errorf("store failure = (%v, %v), want degraded (nil, nil)", candle, err)
	}
}
