package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/feed"
	"optionflow/internal/models"
)

// DefaultCacheTTL is how long a fetched expiry list stays fresh.
const DefaultCacheTTL = time.Hour

type cacheKey struct {
	symbol   string
	exchange models.Exchange
}

type cacheEntry struct {
	expiries  []string
	fetchedAt time.Time
}

// Registry serves expiry dates for the tracked universe, caching vendor
// responses with a TTL and falling back to stale data when a refresh fails.
type Registry struct {
	source  feed.ExpirySource
	indices map[string]bool
	stocks  map[string]bool
	ttl     time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
}

// New creates a Registry over the given expiry source and symbol universe.
func New(source feed.ExpirySource, indices, stocks []string, logger zerolog.Logger) *Registry {
	indexSet := make(map[string]bool, len(indices))
	for _, s := range indices {
		indexSet[s] = true
	}
	stockSet := make(map[string]bool, len(stocks))
	for _, s := range stocks {
		stockSet[s] = true
	}

	return &Registry{
		source:  source,
		indices: indexSet,
		stocks:  stockSet,
		ttl:     DefaultCacheTTL,
		logger:  logger.With().Str("component", "registry").Logger(),
		now:     time.Now,
		cache:   make(map[cacheKey]cacheEntry),
	}
}

// StrikeInterval returns the strike spacing for a symbol and whether the
// symbol was recognized.
func (r *Registry) StrikeInterval(symbol string) (float64, bool) {
	return StrikeInterval(symbol)
}

// IsTrackedIndex reports whether the symbol is in the configured index list.
func (r *Registry) IsTrackedIndex(symbol string) bool {
	return r.indices[symbol]
}

// IsTrackedStock reports whether the symbol is in the configured stock list.
func (r *Registry) IsTrackedStock(symbol string) bool {
	return r.stocks[symbol]
}

// ExpiryDates returns the chronologically sorted expiry list for a symbol,
// fetching from the vendor when the cache entry is missing or older than
// the TTL. On fetch failure a stale cache entry is served if present,
// otherwise an empty list.
func (r *Registry) ExpiryDates(ctx context.Context, symbol string, exchange models.Exchange, forceRefresh bool) ([]string, error) {
	key := cacheKey{symbol: symbol, exchange: exchange}

	r.mu.RLock()
	entry, cached := r.cache[key]
	r.mu.RUnlock()

	if cached && !forceRefresh && r.now().Sub(entry.fetchedAt) < r.ttl {
		return entry.expiries, nil
	}

	expiries, err := r.source.ExpiryList(ctx, symbol, exchange)
	if err != nil {
		if cached {
			r.logger.Warn().Err(err).Str("symbol", symbol).
				Msg("Expiry refresh failed, serving stale cache")
			return entry.expiries, nil
		}
		r.logger.Error().Err(err).Str("symbol", symbol).Msg("Expiry fetch failed")
		return nil, err
	}

	sorted := SortExpiries(expiries)

	r.mu.Lock()
	r.cache[key] = cacheEntry{expiries: sorted, fetchedAt: r.now()}
	r.mu.Unlock()

	return sorted, nil
}

// ExpiriesForSymbol returns the tradeable expiry list for a symbol: stocks
// carry only monthly contracts, indices keep the full weekly+monthly list.
func (r *Registry) ExpiriesForSymbol(ctx context.Context, symbol string, exchange models.Exchange) ([]string, error) {
	expiries, err := r.ExpiryDates(ctx, symbol, exchange, false)
	if err != nil {
		return nil, err
	}
	if r.IsTrackedIndex(symbol) || !r.IsTrackedStock(symbol) {
		return expiries, nil
	}
	return FilterMonthlyExpiries(expiries), nil
}

// NextExpiry returns the nearest expiry on or after today for a symbol.
func (r *Registry) NextExpiry(ctx context.Context, symbol string, exchange models.Exchange) (string, error) {
	expiries, err := r.ExpiriesForSymbol(ctx, symbol, exchange)
	if err != nil {
		return "", err
	}
	return NextExpiryAfter(expiries, r.now())
}

// MonthlyExpiry returns the nearest monthly expiry on or after today.
func (r *Registry) MonthlyExpiry(ctx context.Context, symbol string, exchange models.Exchange) (string, error) {
	expiries, err := r.ExpiryDates(ctx, symbol, exchange, false)
	if err != nil {
		return "", err
	}
	monthly := FilterMonthlyExpiries(expiries)
	if len(monthly) == 0 {
		return "", apperrors.ErrMissingExpiry
	}
	return NextExpiryAfter(monthly, r.now())
}
