package oi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/feed"
	"optionflow/internal/logging"
	"optionflow/internal/models"
	"optionflow/internal/registry"
	"optionflow/pkg/utils"
)

// Store is the slice of the data store the fetcher writes to and reads from.
type Store interface {
	InsertOptionQuote(ctx context.Context, quote models.OptionQuote) error
	InsertUnderlyingQuote(ctx context.Context, quote models.Quote) error
	LatestOI(ctx context.Context, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OptionQuote, error)
	SaveStartSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error
	SaveEndSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error
	Snapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OISnapshot, error)
	LastSnapshotDateBefore(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (string, error)
}

// Fetcher pulls option chains from the quote source and persists them.
type Fetcher struct {
	source  feed.QuoteSource
	store   Store
	atm     ATMSource
	limiter *Limiter
	logger  zerolog.Logger
	now     func() time.Time
}

// ATMSource resolves ATM strikes and strike intervals for an underlying.
type ATMSource interface {
	ATM(symbol string, price float64) float64
	StrikeInterval(symbol string) (float64, bool)
}

// NewFetcher creates an option chain fetcher.
func NewFetcher(source feed.QuoteSource, store Store, atm ATMSource, limiter *Limiter, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		source:  source,
		store:   store,
		atm:     atm,
		limiter: limiter,
		logger:  logging.WithComponent(logger, "oi_fetcher"),
		now:     time.Now,
	}
}

// OptionSymbol builds the vendor contract symbol, e.g.
// NIFTY25DEC2524000CE. Strikes render without a trailing .0.
func OptionSymbol(underlying, expiry string, strike float64, optType models.OptionType) (string, error) {
	date, err := registry.ParseExpiry(expiry)
	if err != nil {
		return "", err
	}
	compact := strings.ToUpper(date.Format("02Jan06"))
	return fmt.Sprintf("%s%s%s%s", underlying, compact, formatStrike(strike), optType), nil
}

func formatStrike(strike float64) string {
	if strike == float64(int64(strike)) {
		return fmt.Sprintf("%d", int64(strike))
	}
	return strings.TrimRight(fmt.Sprintf("%.2f", strike), "0")
}

// GenerateStrikes returns 2*strikeRange+1 strikes centered on atmStrike at
// the symbol's interval, ascending. Non-positive strikes are dropped.
func (f *Fetcher) GenerateStrikes(symbol string, atmStrike float64, strikeRange int) []float64 {
	interval, _ := f.atm.StrikeInterval(symbol)
	if interval <= 0 {
		interval = registry.DefaultStrikeInterval
	}

	strikes := make([]float64, 0, 2*strikeRange+1)
	for i := -strikeRange; i <= strikeRange; i++ {
		strike := atmStrike + float64(i)*interval
		if strike <= 0 {
			continue
		}
		strikes = append(strikes, strike)
	}
	return strikes
}

// FetchUnderlyingPrice fetches and persists the spot quote for an
// underlying, returning the last traded price.
func (f *Fetcher) FetchUnderlyingPrice(ctx context.Context, symbol string, exchange models.Exchange) (float64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	quote, err := f.source.Quote(ctx, symbol, exchange)
	if err != nil {
		return 0, err
	}

	if err := f.store.InsertUnderlyingQuote(ctx, *quote); err != nil {
		f.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist underlying quote")
	}
	return quote.LTP, nil
}

// FetchOptionChain requests CE and PE quotes for every strike around the
// ATM, sequentially under the rate limit. Contracts without a traded price
// are skipped; accepted quotes are persisted. The returned chain reports
// attempted and fetched counts.
func (f *Fetcher) FetchOptionChain(ctx context.Context, underlying, expiry string, atmStrike float64, strikeRange int, exchange models.Exchange) (*models.OptionChain, error) {
	strikes := f.GenerateStrikes(underlying, atmStrike, strikeRange)

	chain := models.NewOptionChain(underlying, exchange, expiry)
	chain.ATMStrike = atmStrike

	for _, strike := range strikes {
		for _, optType := range []models.OptionType{models.Call, models.Put} {
			if ctx.Err() != nil {
				return chain, ctx.Err()
			}

			chain.Attempted++
			quote, err := f.fetchContract(ctx, underlying, expiry, strike, optType, exchange)
			if err != nil {
				if !apperrors.Is(err, context.Canceled) {
					f.logger.Debug().Err(err).
						Str("underlying", underlying).
						Float64("strike", strike).
						Str("type", string(optType)).
						Msg("Skipping contract")
				}
				continue
			}

			chain.Fetched++
			if optType == models.Call {
				chain.CE[strike] = *quote
			} else {
				chain.PE[strike] = *quote
			}
		}
	}

	return chain, nil
}

func (f *Fetcher) fetchContract(ctx context.Context, underlying, expiry string, strike float64, optType models.OptionType, exchange models.Exchange) (*models.OptionQuote, error) {
	symbol, err := OptionSymbol(underlying, expiry, strike, optType)
	if err != nil {
		return nil, err
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	quote, err := f.source.Quote(ctx, symbol, registry.DerivativeExchange(exchange))
	if err != nil {
		return nil, err
	}

	oq := models.OptionQuote{
		Underlying: underlying,
		Exchange:   exchange,
		Expiry:     expiry,
		Strike:     strike,
		Type:       optType,
		Timestamp:  f.now().UTC(),
		OI:         quote.OI,
		Volume:     quote.Volume,
		LTP:        quote.LTP,
		Bid:        quote.Bid,
		Ask:        quote.Ask,
		IV:         quote.IV,
	}

	// A store hiccup must not discard a quote the vendor already served.
	if err := f.store.InsertOptionQuote(ctx, oq); err != nil {
		f.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist option quote")
	}
	return &oq, nil
}

// OIChanges computes per-contract day-over-day OI deltas: current stored OI
// against the previous day's end-of-day snapshot. A missing previous
// snapshot counts as zero previous OI, and zero previous OI yields a zero
// percentage.
func (f *Fetcher) OIChanges(ctx context.Context, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OIChange, error) {
	current, err := f.store.LatestOI(ctx, underlying, expiry, exchange)
	if err != nil {
		return nil, err
	}

	today := utils.TradingDate(f.now())
	previous := make(map[models.OptionKey]models.OISnapshot)

	prevDate, err := f.store.LastSnapshotDateBefore(ctx, today, underlying, expiry, exchange)
	if err != nil {
		return nil, err
	}
	if prevDate != "" {
		previous, err = f.store.Snapshots(ctx, prevDate, underlying, expiry, exchange)
		if err != nil {
			return nil, err
		}
	}

	changes := make(map[models.OptionKey]models.OIChange, len(current))
	for key, quote := range current {
		var prevOI int64
		if snap, ok := previous[key]; ok {
			prevOI = snap.OIEnd
		}

		change := quote.OI - prevOI
		percent := 0.0
		if prevOI != 0 {
			percent = float64(change) / float64(prevOI) * 100
		}

		changes[key] = models.OIChange{
			Strike:        key.Strike,
			Type:          key.Type,
			CurrentOI:     quote.OI,
			PreviousOI:    prevOI,
			Change:        change,
			ChangePercent: percent,
		}
	}

	return changes, nil
}
