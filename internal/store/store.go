// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"optionflow/internal/models"
)

// TickStore is the read/write contract over the raw tick tables.
// Ticks are immutable and append-only, ordered by timestamp per symbol.
type TickStore interface {
	InsertTick(ctx context.Context, tick models.Tick) error
	InsertTicks(ctx context.Context, ticks []models.Tick) error
	InsertQuoteTick(ctx context.Context, tick models.QuoteTick) error
	InsertDepthTick(ctx context.Context, tick models.DepthTick) error

	// ActiveSymbols returns distinct symbols with a tick at or after since.
	ActiveSymbols(ctx context.Context, since time.Time) ([]string, error)
	// TicksBetween returns ticks for symbol in [start, end), ascending.
	TicksBetween(ctx context.Context, symbol string, start, end time.Time) ([]models.Tick, error)
	// TicksForAggregation returns up to limit most-recent priced ticks for
	// symbol, replayed in ascending order.
	TicksForAggregation(ctx context.Context, symbol string, limit int) ([]models.Tick, error)
	// LatestTicks returns up to limit most-recent ticks for symbol,
	// replayed in ascending order, without a price filter.
	LatestTicks(ctx context.Context, symbol string, limit int) ([]models.Tick, error)
}

// OIStore is the read/write contract used by the OI scheduler.
type OIStore interface {
	InsertOptionQuote(ctx context.Context, quote models.OptionQuote) error
	InsertUnderlyingQuote(ctx context.Context, quote models.Quote) error

	// LatestOI returns the most recent option quote per (strike, type)
	// for one (underlying, expiry, exchange).
	LatestOI(ctx context.Context, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OptionQuote, error)

	// SaveStartSnapshots upserts start-of-day OI for the given contracts,
	// last write wins within the qualifying window.
	SaveStartSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error
	// SaveEndSnapshots upserts end-of-day OI, preserving any recorded start.
	SaveEndSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error

	// Snapshots returns the snapshot rows for one day and key.
	Snapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OISnapshot, error)
	// LastSnapshotDateBefore returns the most recent snapshot date strictly
	// before the given date for the key, or "" if none exists.
	LastSnapshotDateBefore(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (string, error)
}

// DataStore combines every persistence contract of the engine.
type DataStore interface {
	TickStore
	OIStore
	Close() error
}
