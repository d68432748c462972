// Package candles aggregates raw ticks into fixed-width OHLCV buckets.
package candles

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"optionflow/internal/models"
)

// TickReader is the slice of the tick store the candle engine needs.
type TickReader interface {
	TicksBetween(ctx context.Context, symbol string, start, end time.Time) ([]models.Tick, error)
	TicksForAggregation(ctx context.Context, symbol string, limit int) ([]models.Tick, error)
	LatestTicks(ctx context.Context, symbol string, limit int) ([]models.Tick, error)
}

// Overfetch multipliers: recent ticks pulled per requested candle. One
// minute of liquid trading rarely exceeds a hundred trades, wider buckets
// get a larger allowance.
const (
	ticksPerMinuteCandle = 100
	ticksPerWideCandle   = 500
)

// Engine computes current and historical candles from stored ticks.
type Engine struct {
	ticks  TickReader
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates a candle engine over the given tick reader.
func NewEngine(ticks TickReader, logger zerolog.Logger) *Engine {
	return &Engine{
		ticks:  ticks,
		logger: logger.With().Str("component", "candles").Logger(),
		now:    time.Now,
	}
}

// CurrentCandle returns the in-progress candle for the bucket containing
// now. Returns (nil, nil) when the symbol has no ticks in the bucket so far
// or the store read fails; a live sweep must not die on one bad read.
func (e *Engine) CurrentCandle(ctx context.Context, symbol string, tf models.Timeframe) (*models.Candle, error) {
	now := e.now().UTC()
	start := tf.Align(now)

	ticks, err := e.ticks.TicksBetween(ctx, symbol, start, now.Add(time.Second))
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
			Msg("Tick read failed for current candle")
		return nil, nil
	}
	if len(ticks) == 0 {
		return nil, nil
	}

	candle := buildCandle(symbol, tf, start, ticks)
	candle.Complete = false
	return candle, nil
}

// HistoricalCandles returns up to limit most-recent candles for a symbol,
// oldest first. Buckets with no ticks are absent, not zero-filled. The
// bucket still in progress is included with Complete=false.
func (e *Engine) HistoricalCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		return nil, nil
	}

	ticksNeeded := limit * ticksPerWideCandle
	if tf == models.Timeframe1m {
		ticksNeeded = limit * ticksPerMinuteCandle
	}

	ticks, err := e.ticks.TicksForAggregation(ctx, symbol, ticksNeeded)
	if err != nil || len(ticks) == 0 {
		return e.fallbackFlat(ctx, symbol, tf, limit, err)
	}

	candles := aggregate(symbol, tf, ticks)
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	e.markComplete(candles, tf)
	return candles, nil
}

// fallbackFlat degrades to one flat candle per recent tick when the primary
// aggregation path yields nothing. Each candle carries O=H=L=C=tick price
// and the raw tick timestamp, distinguishable from aggregated output by the
// unaligned bucket start.
func (e *Engine) fallbackFlat(ctx context.Context, symbol string, tf models.Timeframe, limit int, cause error) ([]models.Candle, error) {
	if cause != nil {
		e.logger.Warn().Err(cause).Str("symbol", symbol).
			Msg("Aggregation read failed, trying flat fallback")
	}

	ticks, err := e.ticks.LatestTicks(ctx, symbol, limit)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Flat fallback read failed")
		return nil, nil
	}
	if len(ticks) == 0 {
		return nil, nil
	}

	candles := make([]models.Candle, len(ticks))
	for i, t := range ticks {
		candles[i] = models.Candle{
			Symbol:      symbol,
			Timeframe:   tf,
			BucketStart: t.Timestamp,
			Open:        t.LTP,
			High:        t.LTP,
			Low:         t.LTP,
			Close:       t.LTP,
			Volume:      t.Quantity,
		}
	}
	e.markComplete(candles, tf)
	return candles, nil
}

func (e *Engine) markComplete(candles []models.Candle, tf models.Timeframe) {
	now := e.now().UTC()
	for i := range candles {
		candles[i].Complete = !candles[i].BucketStart.Add(tf.Duration()).After(now)
	}
}

// aggregate groups ticks into buckets and builds one candle per non-empty
// bucket, oldest first.
func aggregate(symbol string, tf models.Timeframe, ticks []models.Tick) []models.Candle {
	buckets := make(map[int64][]models.Tick)
	for _, t := range ticks {
		b := tf.Bucket(t.Timestamp.Unix())
		buckets[b] = append(buckets[b], t)
	}

	starts := make([]int64, 0, len(buckets))
	for b := range buckets {
		starts = append(starts, b)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	candles := make([]models.Candle, 0, len(starts))
	for _, b := range starts {
		group := buckets[b]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		candles = append(candles, *buildCandle(symbol, tf, time.Unix(b, 0).UTC(), group))
	}
	return candles
}

// buildCandle folds time-ordered ticks into one candle. Volume is the sum
// of per-trade quantities.
func buildCandle(symbol string, tf models.Timeframe, start time.Time, ticks []models.Tick) *models.Candle {
	c := &models.Candle{
		Symbol:      symbol,
		Timeframe:   tf,
		BucketStart: start,
		Open:        ticks[0].LTP,
		High:        ticks[0].LTP,
		Low:         ticks[0].LTP,
		Close:       ticks[len(ticks)-1].LTP,
	}
	for _, t := range ticks {
		if t.LTP > c.High {
			c.High = t.LTP
		}
		if t.LTP < c.Low {
			c.Low = t.LTP
		}
		c.Volume += t.Quantity
	}
	return c
}
