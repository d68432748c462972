package oi

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/logging"
	"optionflow/internal/models"
	"optionflow/pkg/utils"
)

// Snapshot windows in exchange-local time. The start snapshot is taken in
// the first minutes after open and pinned for the rest of the day; the end
// snapshot rewrites on every cycle from 15:25 so the last value before
// close wins.
const (
	startWindowOpenMinutes  = 9*60 + 15  // 09:15
	startWindowCloseMinutes = 9*60 + 20  // 09:20, exclusive
	endWindowOpenMinutes    = 15*60 + 25 // 15:25
)

// DefaultFetchInterval is the per-subscription cycle interval when the
// caller does not override it.
const DefaultFetchInterval = 5 * time.Minute

type subscription struct {
	underlying  string
	exchange    models.Exchange
	expiry      string
	strikeRange int
	interval    time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	mu               sync.Mutex
	lastSnapshotDate string
	cycles           int
	lastFetched      int
	lastAttempted    int
}

// Manager owns one periodic fetch loop per (underlying, expiry) key.
// Starting an already-active key replaces its loop.
type Manager struct {
	fetcher *Fetcher
	atm     ATMSource
	logger  zerolog.Logger
	now     func() time.Time

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewManager creates an empty subscription manager.
func NewManager(fetcher *Fetcher, atm ATMSource, logger zerolog.Logger) *Manager {
	return &Manager{
		fetcher: fetcher,
		atm:     atm,
		logger:  logging.WithComponent(logger, "oi_scheduler"),
		now:     time.Now,
		subs:    make(map[string]*subscription),
	}
}

func subscriptionKey(underlying, expiry string) string {
	return fmt.Sprintf("%s_%s", underlying, expiry)
}

// Start begins a periodic fetch loop for (underlying, expiry). An empty
// expiry is rejected with ErrMissingExpiry. If a loop for the same key is
// already active it is stopped first, leaving exactly one loop per key.
func (m *Manager) Start(ctx context.Context, underlying string, exchange models.Exchange, expiry string, strikeRange int, interval time.Duration) error {
	if expiry == "" {
		return apperrors.ErrMissingExpiry
	}
	if interval <= 0 {
		interval = DefaultFetchInterval
	}

	key := subscriptionKey(underlying, expiry)

	m.mu.Lock()
	// A concurrent Start for the same key may install its own loop while we
	// wait on the old one. Keep cancelling whatever owns the key until it is
	// free, so exactly one loop survives.
	for {
		prev, ok := m.subs[key]
		if !ok {
			break
		}
		prev.cancel()
		m.mu.Unlock()
		<-prev.done
		m.mu.Lock()
		if m.subs[key] == prev {
			delete(m.subs, key)
		}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		underlying:  underlying,
		exchange:    exchange,
		expiry:      expiry,
		strikeRange: strikeRange,
		interval:    interval,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	m.subs[key] = sub
	m.mu.Unlock()

	go m.run(subCtx, sub)

	m.logger.Info().
		Str("symbol", underlying).
		Str("expiry", expiry).
		Int("strike_range", strikeRange).
		Dur("interval", interval).
		Msg("OI subscription started")
	return nil
}

// Stop cancels the fetch loop for a key and waits for it to exit.
// Returns false when no loop was active.
func (m *Manager) Stop(underlying, expiry string) bool {
	key := subscriptionKey(underlying, expiry)

	m.mu.Lock()
	sub, ok := m.subs[key]
	if ok {
		delete(m.subs, key)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	sub.cancel()
	<-sub.done

	m.logger.Info().Str("symbol", underlying).Str("expiry", expiry).
		Msg("OI subscription stopped")
	return true
}

// StopAll cancels every active fetch loop and waits for them to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for key, sub := range m.subs {
		subs = append(subs, sub)
		delete(m.subs, key)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
}

// Active returns the sorted keys of running subscriptions.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.subs))
	for key := range m.subs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// run is one subscription's fetch loop. Cycles outside market hours are
// skipped entirely; the end-of-day snapshot still fires on the last
// in-hours cycles.
func (m *Manager) run(ctx context.Context, sub *subscription) {
	defer close(sub.done)

	logger := logging.WithSubscription(m.logger, sub.underlying, sub.expiry)

	timer := time.NewTimer(sub.interval)
	defer timer.Stop()

	for {
		m.cycle(ctx, sub, logger)

		utils.ResetTimer(timer, sub.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) cycle(ctx context.Context, sub *subscription, logger zerolog.Logger) {
	now := m.now()
	if !utils.IsMarketOpenAt(now) {
		logger.Debug().Msg("Market closed, skipping cycle")
		return
	}

	spot, err := m.fetcher.FetchUnderlyingPrice(ctx, sub.underlying, sub.exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("Underlying price fetch failed")
		return
	}

	atmStrike := m.atm.ATM(sub.underlying, spot)

	chain, err := m.fetcher.FetchOptionChain(ctx, sub.underlying, sub.expiry, atmStrike, sub.strikeRange, sub.exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("Option chain fetch aborted")
		return
	}
	chain.SpotPrice = spot

	sub.mu.Lock()
	sub.cycles++
	sub.lastFetched = chain.Fetched
	sub.lastAttempted = chain.Attempted
	sub.mu.Unlock()

	logging.LogFetchCycle(logger, spot, atmStrike, chain.Fetched, chain.Attempted)

	m.maybeSnapshot(ctx, sub, chain, now, logger)
}

// maybeSnapshot records start/end-of-day OI for the contracts just fetched.
func (m *Manager) maybeSnapshot(ctx context.Context, sub *subscription, chain *models.OptionChain, now time.Time, logger zerolog.Logger) {
	oi := chainOI(chain)
	if len(oi) == 0 {
		return
	}

	date := utils.TradingDate(now)
	local := now.In(utils.IndiaLocation)
	minutes := local.Hour()*60 + local.Minute()

	if minutes >= startWindowOpenMinutes && minutes < startWindowCloseMinutes {
		sub.mu.Lock()
		alreadyDone := sub.lastSnapshotDate == date
		sub.mu.Unlock()

		if !alreadyDone {
			if err := m.fetcher.store.SaveStartSnapshots(ctx, date, sub.underlying, sub.expiry, sub.exchange, oi); err != nil {
				logger.Warn().Err(err).Msg("Start snapshot failed")
			} else {
				sub.mu.Lock()
				sub.lastSnapshotDate = date
				sub.mu.Unlock()
				logging.LogSnapshot(logger, "start", date)
			}
		}
	}

	if minutes >= endWindowOpenMinutes {
		if err := m.fetcher.store.SaveEndSnapshots(ctx, date, sub.underlying, sub.expiry, sub.exchange, oi); err != nil {
			logger.Warn().Err(err).Msg("End snapshot failed")
		} else {
			logging.LogSnapshot(logger, "end", date)
		}
	}
}

func chainOI(chain *models.OptionChain) map[models.OptionKey]int64 {
	oi := make(map[models.OptionKey]int64, len(chain.CE)+len(chain.PE))
	for strike, quote := range chain.CE {
		oi[models.OptionKey{Strike: strike, Type: models.Call}] = quote.OI
	}
	for strike, quote := range chain.PE {
		oi[models.OptionKey{Strike: strike, Type: models.Put}] = quote.OI
	}
	return oi
}
