package candles

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"optionflow/internal/models"
	"optionflow/pkg/utils"
)

// SymbolSource discovers symbols with recent tick activity.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context, since time.Time) ([]string, error)
}

// Sweeper periodically recomputes the current candle for every active
// symbol and timeframe and publishes updates to the hub.
type Sweeper struct {
	engine   *Engine
	symbols  SymbolSource
	hub      *Hub
	interval time.Duration
	window   time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweep loop over the given engine and symbol source.
func NewSweeper(engine *Engine, symbols SymbolSource, hub *Hub, interval, activeWindow time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		symbols:  symbols,
		hub:      hub,
		interval: interval,
		window:   activeWindow,
		logger:   logger.With().Str("component", "candle_sweep").Logger(),
	}
}

// Run sweeps until the context is cancelled. Symbols are processed
// sequentially; a failure on one symbol never aborts the sweep.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Candle sweep started")

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		s.sweep(ctx)

		utils.ResetTimer(timer, s.interval)
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Candle sweep stopped")
			return
		case <-timer.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	symbols, err := s.symbols.ActiveSymbols(ctx, time.Now().Add(-s.window))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Active symbol discovery failed")
		return
	}

	for _, symbol := range symbols {
		for _, tf := range models.AllTimeframes {
			if ctx.Err() != nil {
				return
			}
			candle, err := s.engine.CurrentCandle(ctx, symbol, tf)
			if err != nil || candle == nil {
				continue
			}
			s.hub.Publish(*candle)
		}
	}
}
