package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/models"
)

// breakerState tracks whether the upstream vendor is considered healthy.
type breakerState string

const (
	breakerClosed   breakerState = "CLOSED"
	breakerOpen     breakerState = "OPEN"
	breakerHalfOpen breakerState = "HALF_OPEN"
)

// BreakerConfig tunes the vendor outage guard.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transport failures
	// before requests are short-circuited.
	FailureThreshold int
	// SuccessThreshold is the number of probe successes needed to resume
	// normal operation.
	SuccessThreshold int
	// Cooldown is how long requests are rejected before a probe is allowed.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the default guard tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// Breaker wraps a Source and short-circuits requests while the vendor is
// down, so a scheduler polling hundreds of contracts does not burn its rate
// budget on an unreachable host.
//
// Only transport-level failures count against the breaker. A quote that
// resolves to ErrNoData is a normal answer for an illiquid or unlisted
// contract and leaves the state untouched.
type Breaker struct {
	source Source
	config BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       breakerState
	failures    int
	successes   int
	lastFailure time.Time

	rejected uint64
}

// NewBreaker wraps source with an outage guard.
func NewBreaker(source Source, config BreakerConfig, logger zerolog.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{
		source: source,
		config: config,
		logger: logger.With().Str("component", "feed-breaker").Logger(),
		now:    time.Now,
		state:  breakerClosed,
	}
}

// Quote forwards to the wrapped source unless the breaker is open.
func (b *Breaker) Quote(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error) {
	if err := b.allow(); err != nil {
		return nil, apperrors.NewFeedError("quotes", symbol, err)
	}
	quote, err := b.source.Quote(ctx, symbol, exchange)
	b.record(err)
	return quote, err
}

// ExpiryList forwards to the wrapped source unless the breaker is open.
func (b *Breaker) ExpiryList(ctx context.Context, symbol string, exchange models.Exchange) ([]string, error) {
	if err := b.allow(); err != nil {
		return nil, apperrors.NewFeedError("expiry", symbol, err)
	}
	expiries, err := b.source.ExpiryList(ctx, symbol, exchange)
	b.record(err)
	return expiries, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed, breakerHalfOpen:
		return nil
	case breakerOpen:
		if b.now().Sub(b.lastFailure) >= b.config.Cooldown {
			b.state = breakerHalfOpen
			b.successes = 0
			b.logger.Info().Msg("cooldown elapsed, probing vendor")
			return nil
		}
		b.rejected++
		return fmt.Errorf("%w: cooling down after repeated failures", apperrors.ErrFeedUnavailable)
	}
	return nil
}

func (b *Breaker) record(err error) {
	// No-quote answers are data, not outages.
	if err != nil && apperrors.Is(err, apperrors.ErrNoData) {
		err = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.successes = 0
		b.lastFailure = b.now()
		if b.state == breakerHalfOpen || b.failures >= b.config.FailureThreshold {
			if b.state != breakerOpen {
				b.logger.Warn().
					Int("failures", b.failures).
					Msg("vendor unreachable, short-circuiting requests")
			}
			b.state = breakerOpen
		}
		return
	}

	switch b.state {
	case breakerClosed:
		b.failures = 0
	case breakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = breakerClosed
			b.failures = 0
			b.logger.Info().Msg("vendor recovered, resuming requests")
		}
	}
}

// State returns the current breaker state as a string.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}

// Rejected returns how many requests were short-circuited.
func (b *Breaker) Rejected() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}
